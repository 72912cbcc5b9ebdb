// Package events defines the lifecycle Event Bus contract (spec §4.5): a
// topic-based pub/sub with per-document monotonic sequence numbers and
// at-least-once delivery. Per Design Note ("Cyclic references (Queue ↔ Event
// Bus ↔ Processor)"), this package imports neither queue nor document; the
// Processor publishes to it and never touches the queue.
package events

import (
	"context"
	"sync"
	"time"
)

// Topic is one of the fixed channels the core publishes to (spec §4.5).
type Topic string

const (
	TopicDocumentCreated    Topic = "document:created"
	TopicDocumentUpdated    Topic = "document:updated"
	TopicDocumentDeleted    Topic = "document:deleted"
	TopicProcessingProgress Topic = "processing:progress"
	TopicSystemNotification Topic = "system:notification"
)

// Event is the lifecycle envelope of spec §3.5 / §6.4.
type Event struct {
	Type       Topic
	DocumentID string
	Sequence   uint64
	EmittedAt  time.Time
	Payload    map[string]interface{}
}

// ProgressPayload is the type-specific shape for processing:progress (§6.4).
func ProgressPayload(progress int, message string) map[string]interface{} {
	return map[string]interface{}{"progress": progress, "message": message}
}

// UpdatedPayload is the type-specific shape for document:updated (§6.4).
func UpdatedPayload(state, summary string) map[string]interface{} {
	return map[string]interface{}{"state": state, "summary": summary}
}

// Subscription identifies one subscriber's registration.
type Subscription string

// Filter selects which events a subscriber receives: Topics alone subscribes
// to global topics; DocumentID additionally joins that document's room, so
// document:* events reach both the global channel and the matching room
// (spec §4.5's "Subscription model").
type Filter struct {
	Topics     []Topic
	DocumentID string
}

// Bus is the Event Bus contract.
type Bus interface {
	// Publish sends an event to all subscribers matching its topic/document.
	// Never blocks the publisher: a backpressured subscriber is dropped
	// rather than stalling Publish (spec §4.5).
	Publish(ctx context.Context, topic Topic, documentID string, payload map[string]interface{}) error

	// Subscribe registers a new subscriber and returns a channel of events
	// plus an id usable with Unsubscribe.
	Subscribe(ctx context.Context, filter Filter) (Subscription, <-chan Event, error)

	// Unsubscribe removes a subscriber and closes its channel.
	Unsubscribe(id Subscription) error
}

// SequenceAllocator hands out gap-free per-document monotonic sequence
// numbers (spec §3.5, invariant 5 in §8), independent of which Bus
// implementation ultimately delivers the event.
type SequenceAllocator struct {
	mu   sync.Mutex
	next map[string]uint64
}

// NewSequenceAllocator creates an empty allocator.
func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{next: make(map[string]uint64)}
}

// Next returns the next sequence number for documentID, starting at 1.
func (a *SequenceAllocator) Next(documentID string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next[documentID]++
	return a.next[documentID]
}
