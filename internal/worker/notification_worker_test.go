package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/events"
	"github.com/opsdesk/ticket-service/internal/observability"
	"github.com/opsdesk/ticket-service/internal/worker"
)

type sendRecorder struct {
	sends []sentNotification
	err   error
}

type sentNotification struct {
	recipientID string
	sender      string
	subject     string
	body        string
}

func (r *sendRecorder) Send(ctx context.Context, recipientID, sender, subject, body string) error {
	r.sends = append(r.sends, sentNotification{
		recipientID: recipientID,
		sender:      sender,
		subject:     subject,
		body:        body,
	})
	return r.err
}

// syncDispatcher invokes handlers inline, keeping worker tests deterministic.
type syncDispatcher struct {
	handlers map[events.EventType][]events.EventHandler
}

func newSyncDispatcher() *syncDispatcher {
	return &syncDispatcher{handlers: make(map[events.EventType][]events.EventHandler)}
}

func (d *syncDispatcher) Publish(ctx context.Context, event events.Event) error {
	for _, handler := range d.handlers[event.Type] {
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (d *syncDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *syncDispatcher) Close() {}

func setup(sendErr error) (*sendRecorder, *syncDispatcher) {
	recorder := &sendRecorder{err: sendErr}
	dispatcher := newSyncDispatcher()
	w := worker.NewNotificationWorker(recorder, observability.NewMetrics(), zap.NewNop())
	w.RegisterHandlers(dispatcher)
	return recorder, dispatcher
}

func TestBreachNotificationWording(t *testing.T) {
	recorder, dispatcher := setup(nil)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventSLABreached,
		TicketID: "ticket-1",
		Payload: events.SLABreachedPayload{
			AssignedTo: "engineer-7",
			BreachTime: time.Now(),
		},
	})
	require.NoError(t, err)

	require.Len(t, recorder.sends, 1)
	sent := recorder.sends[0]
	assert.Equal(t, "engineer-7", sent.recipientID)
	assert.Equal(t, "System-SLA-Monitor", sent.sender)
	assert.Equal(t, "SLA Alert for Ticket: ticket-1", sent.subject)
	assert.Equal(t, "SLA HAS BEEN BREACHED for ticket ticket-1", sent.body)
}

func TestWarningNotificationWordingPerTier(t *testing.T) {
	cases := []struct {
		tier string
		body string
	}{
		{tier: "5m", body: "Urgent: 5 minutes remaining for SLA on ticket ticket-1"},
		{tier: "10m", body: "Warning: 10 minutes remaining for SLA on ticket ticket-1"},
		{tier: "15m", body: "Warning: 15 minutes remaining for SLA on ticket ticket-1"},
	}

	for _, tc := range cases {
		t.Run(tc.tier, func(t *testing.T) {
			recorder, dispatcher := setup(nil)

			err := dispatcher.Publish(context.Background(), events.Event{
				Type:     events.EventSLAWarning,
				TicketID: "ticket-1",
				Payload: events.SLAWarningPayload{
					AssignedTo: "engineer-7",
					Tier:       tc.tier,
					BreachTime: time.Now(),
				},
			})
			require.NoError(t, err)

			require.Len(t, recorder.sends, 1)
			assert.Equal(t, tc.body, recorder.sends[0].body)
			assert.Equal(t, "System-SLA-Monitor", recorder.sends[0].sender)
		})
	}
}

func TestAssignmentNotificationTargetsAssignee(t *testing.T) {
	recorder, dispatcher := setup(nil)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: "ticket-1",
		Payload: events.TicketAssignedPayload{
			AssignedTo: "engineer-7",
			AssignedBy: "manager-1",
		},
	})
	require.NoError(t, err)

	require.Len(t, recorder.sends, 1)
	assert.Equal(t, "engineer-7", recorder.sends[0].recipientID)
}

func TestSendFailureIsSwallowed(t *testing.T) {
	recorder, dispatcher := setup(errors.New("connection refused"))

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventSLABreached,
		TicketID: "ticket-1",
		Payload: events.SLABreachedPayload{AssignedTo: "engineer-7"},
	})
	assert.NoError(t, err)
	require.Len(t, recorder.sends, 1)
}

func TestMalformedPayloadIsIgnored(t *testing.T) {
	recorder, dispatcher := setup(nil)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventSLABreached,
		TicketID: "ticket-1",
		Payload:  "not a struct",
	})
	assert.NoError(t, err)
	assert.Empty(t, recorder.sends)
}
