package localbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/events"
)

func TestPublishSubscribeOrdering(t *testing.T) {
	ctx := context.Background()
	bus := New(nil)

	_, ch, err := bus.Subscribe(ctx, events.Filter{DocumentID: "D1"})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, events.TopicDocumentCreated, "D1", nil))
	require.NoError(t, bus.Publish(ctx, events.TopicProcessingProgress, "D1", events.ProgressPayload(30, "extracting")))
	require.NoError(t, bus.Publish(ctx, events.TopicDocumentUpdated, "D1", events.UpdatedPayload("COMPLETED", "summary")))

	var seqs []uint64
	for i := 0; i < 3; i++ {
		select {
		case evt := <-ch:
			seqs = append(seqs, evt.Sequence)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	assert.Equal(t, []uint64{1, 2, 3}, seqs)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	ctx := context.Background()
	bus := New(nil)
	bus.bufferSize = 1

	id, ch, err := bus.Subscribe(ctx, events.Filter{Topics: []events.Topic{events.TopicSystemNotification}})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_ = bus.Publish(ctx, events.TopicSystemNotification, "", nil)
	}

	// The subscriber's buffer fills and it gets dropped asynchronously;
	// publishing never blocks regardless.
	time.Sleep(50 * time.Millisecond)

	bus.mu.RLock()
	_, stillSubscribed := bus.subscribers[id]
	bus.mu.RUnlock()
	assert.False(t, stillSubscribed)

	// channel is closed once dropped.
	_, open := <-ch
	for open {
		_, open = <-ch
	}
}

func TestGlobalTopicAndDocumentRoomBothReceive(t *testing.T) {
	ctx := context.Background()
	bus := New(nil)

	_, global, err := bus.Subscribe(ctx, events.Filter{Topics: []events.Topic{events.TopicDocumentCreated}})
	require.NoError(t, err)
	_, room, err := bus.Subscribe(ctx, events.Filter{DocumentID: "D1"})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, events.TopicDocumentCreated, "D1", nil))

	select {
	case <-global:
	case <-time.After(time.Second):
		t.Fatal("global subscriber missed event")
	}
	select {
	case <-room:
	case <-time.After(time.Second):
		t.Fatal("room subscriber missed event")
	}
}
