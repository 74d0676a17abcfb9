package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/events"
)

func TestSubscribersReceivePublishedEvents(t *testing.T) {
	dispatcher := events.NewAsyncDispatcher(16, 1, zap.NewNop())

	var mu sync.Mutex
	var received []events.Event
	done := make(chan struct{}, 1)

	dispatcher.Subscribe(events.EventTicketCreated, func(ctx context.Context, event events.Event) error {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketCreated,
		TicketID: "ticket-1",
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
	dispatcher.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "ticket-1", received[0].TicketID)
	assert.NotEmpty(t, received[0].ID)
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestEventsWithoutSubscribersAreDiscarded(t *testing.T) {
	dispatcher := events.NewAsyncDispatcher(16, 1, zap.NewNop())
	defer dispatcher.Close()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventSLAWarning,
		TicketID: "ticket-1",
	})
	assert.NoError(t, err)
}

func TestHandlerErrorDoesNotStopWorkers(t *testing.T) {
	dispatcher := events.NewAsyncDispatcher(16, 1, zap.NewNop())

	done := make(chan struct{}, 2)
	dispatcher.Subscribe(events.EventTicketAssigned, func(ctx context.Context, event events.Event) error {
		done <- struct{}{}
		return assert.AnError
	})

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketAssigned, TicketID: "a"}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketAssigned, TicketID: "b"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler stopped after error")
		}
	}
	dispatcher.Close()
}
