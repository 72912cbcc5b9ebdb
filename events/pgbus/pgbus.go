// Package pgbus is the cross-process Event Bus adapter: it publishes via
// Postgres NOTIFY and dispatches to local subscribers on LISTEN, so multiple
// docpipe processes see the same lifecycle events. Grounded on the teacher's
// db/listener.go (Listener with a reconnecting LISTEN loop), generalized from
// workflow state events to document lifecycle events and composed with an
// events/localbus.Bus for the actual fan-out to in-process subscribers.
package pgbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docpipe/docpipe/events"
	"github.com/docpipe/docpipe/events/localbus"
	"github.com/docpipe/docpipe/logging"
)

const defaultChannel = "docpipe_events"

// wireEvent is the JSON payload sent through NOTIFY; Postgres caps NOTIFY
// payloads at 8000 bytes, so this carries only the envelope, never large
// document content.
type wireEvent struct {
	Type       string                 `json:"type"`
	DocumentID string                 `json:"document_id"`
	Payload    map[string]interface{} `json:"payload"`
}

// Bus publishes lifecycle events via Postgres NOTIFY and relays incoming
// NOTIFY traffic (including its own) to local subscribers through an
// embedded localbus.Bus.
type Bus struct {
	pool    *pgxpool.Pool
	channel string
	local   *localbus.Bus
	log     *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

var _ events.Bus = (*Bus)(nil)

// New creates a Bus bound to channel (defaultChannel if empty) and starts its
// background LISTEN loop.
func New(pool *pgxpool.Pool, channel string, log *logging.Logger) *Bus {
	if channel == "" {
		channel = defaultChannel
	}
	if log == nil {
		log = logging.NewLogger(nil, map[string]interface{}{"component": "events.pgbus"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		pool:    pool,
		channel: channel,
		local:   localbus.New(log),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go b.listenLoop()
	return b
}

// Close stops the background LISTEN loop.
func (b *Bus) Close() { b.cancel() }

func (b *Bus) Publish(ctx context.Context, topic events.Topic, documentID string, payload map[string]interface{}) error {
	// The event only goes out as a NOTIFY. Subscribers in this process,
	// including the publisher's own, receive it after the round trip, when
	// listen relays it into the embedded localbus, which allocates the
	// per-process sequence numbers.
	w := wireEvent{Type: string(topic), DocumentID: documentID, Payload: payload}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", b.channel, string(data))
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, filter events.Filter) (events.Subscription, <-chan events.Event, error) {
	return b.local.Subscribe(ctx, filter)
}

func (b *Bus) Unsubscribe(id events.Subscription) error {
	return b.local.Unsubscribe(id)
}

func (b *Bus) listenLoop() {
	for {
		select {
		case <-b.ctx.Done():
			return
		default:
			if err := b.listen(); err != nil {
				b.log.WithError(err).Warn("pgbus listen error, reconnecting")
				select {
				case <-b.ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func (b *Bus) listen() error {
	conn, err := b.pool.Acquire(b.ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(b.ctx, fmt.Sprintf("LISTEN %s", b.channel)); err != nil {
		return fmt.Errorf("listen %s: %w", b.channel, err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(b.ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var w wireEvent
		if err := json.Unmarshal([]byte(notification.Payload), &w); err != nil {
			b.log.WithError(err).Warn("dropping malformed pgbus payload")
			continue
		}

		_ = b.local.Publish(b.ctx, events.Topic(w.Type), w.DocumentID, w.Payload)
	}
}
