// Package localbus is the in-process Event Bus adapter: a fan-out broadcaster
// over buffered Go channels. A subscriber whose buffer fills is dropped
// (logged) rather than allowed to stall Publish, matching spec §4.5's
// backpressure rule.
package localbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/docpipe/docpipe/events"
	"github.com/docpipe/docpipe/logging"
)

const defaultBufferSize = 64

type subscriber struct {
	id     events.Subscription
	ch     chan events.Event
	filter events.Filter
}

func (s *subscriber) matches(topic events.Topic, documentID string) bool {
	if s.filter.DocumentID != "" && s.filter.DocumentID == documentID {
		return true
	}
	for _, t := range s.filter.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Bus implements events.Bus entirely within the process.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[events.Subscription]*subscriber
	sequences   *events.SequenceAllocator
	nextID      uint64
	log         *logging.Logger
	bufferSize  int
}

var _ events.Bus = (*Bus)(nil)

// New creates an empty local bus.
func New(log *logging.Logger) *Bus {
	if log == nil {
		log = logging.NewLogger(nil, map[string]interface{}{"component": "events.localbus"})
	}
	return &Bus{
		subscribers: make(map[events.Subscription]*subscriber),
		sequences:   events.NewSequenceAllocator(),
		log:         log,
		bufferSize:  defaultBufferSize,
	}
}

func (b *Bus) Publish(_ context.Context, topic events.Topic, documentID string, payload map[string]interface{}) error {
	evt := events.Event{
		Type:       topic,
		DocumentID: documentID,
		Sequence:   b.sequences.Next(documentID),
		Payload:    payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !sub.matches(topic, documentID) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.log.WithFields(map[string]interface{}{
				"subscription": sub.id,
				"topic":        topic,
				"document_id":  documentID,
			}).Warn("dropping slow event subscriber")
			go b.Unsubscribe(sub.id)
		}
	}
	return nil
}

func (b *Bus) Subscribe(_ context.Context, filter events.Filter) (events.Subscription, <-chan events.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := events.Subscription(fmt.Sprintf("sub-%d", b.nextID))
	sub := &subscriber{id: id, ch: make(chan events.Event, b.bufferSize), filter: filter}
	b.subscribers[id] = sub
	return id, sub.ch, nil
}

func (b *Bus) Unsubscribe(id events.Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subscribers[id]
	if !ok {
		return nil
	}
	delete(b.subscribers, id)
	close(sub.ch)
	return nil
}
