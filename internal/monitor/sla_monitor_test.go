package monitor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/events"
	"github.com/opsdesk/ticket-service/internal/monitor"
	"github.com/opsdesk/ticket-service/internal/observability"
	"github.com/opsdesk/ticket-service/internal/repository"
	"github.com/opsdesk/ticket-service/internal/testutil"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (r *eventRecorder) Close() {}

func (r *eventRecorder) byType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []events.Event
	for _, event := range r.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newMonitor(store repository.Store, clock *fakeClock, recorder *eventRecorder) *monitor.Monitor {
	return monitor.New(monitor.Options{
		Store:      store,
		Dispatcher: recorder,
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
		Now:        clock.Now,
	})
}

// seedTicket stores an assigned, triaged ticket created at createdAt with a
// one hour SLA snapshot.
func seedTicket(store *testutil.MemStore, id string, createdAt time.Time) domain.Ticket {
	hours := 1
	severity := domain.TicketSeverityHigh
	priority := domain.TicketPriorityHigh
	slaID := "sla-1"
	assignee := "engineer-7"
	ticket := domain.Ticket{
		ID:                id,
		CreatedBy:         "customer-42",
		CreatedFor:        "customer-42",
		IssueCategoryID:   "cat-1",
		IssueDescription:  "outage",
		Status:            domain.TicketStatusInProgress,
		Severity:          &severity,
		Priority:          &priority,
		SLAID:             &slaID,
		SLATimeLimitHours: &hours,
		AssignedTo:        &assignee,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	store.SeedTicket(ticket)
	return ticket
}

func TestBreachTransitionIsAppliedOnce(t *testing.T) {
	// Ticket created at T0 with a one hour limit; first run at T0+61min must
	// breach, a second run at T0+70min must not mutate anything further.
	store := testutil.NewMemStore()
	recorder := &eventRecorder{}
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedTicket(store, "ticket-1", t0)

	clock := &fakeClock{t: t0.Add(61 * time.Minute)}
	mon := newMonitor(store, clock, recorder)

	require.NoError(t, mon.RunCycle(context.Background()))

	stored, ok := store.TicketSnapshot("ticket-1")
	require.True(t, ok)
	assert.True(t, stored.SLABreached)
	require.NotNil(t, stored.Priority)
	assert.Equal(t, domain.TicketPriorityUrgent, *stored.Priority)
	require.Len(t, recorder.byType(events.EventSLABreached), 1)

	versionAfterBreach := stored.Version
	clock.Set(t0.Add(70 * time.Minute))
	require.NoError(t, mon.RunCycle(context.Background()))

	stored, _ = store.TicketSnapshot("ticket-1")
	assert.True(t, stored.SLABreached)
	assert.Equal(t, versionAfterBreach, stored.Version)
	assert.Len(t, recorder.byType(events.EventSLABreached), 1)
}

func TestFifteenMinuteTierEscalatesPriorityOnce(t *testing.T) {
	store := testutil.NewMemStore()
	recorder := &eventRecorder{}
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedTicket(store, "ticket-1", t0)

	// 14 minutes remaining.
	clock := &fakeClock{t: t0.Add(46 * time.Minute)}
	mon := newMonitor(store, clock, recorder)

	require.NoError(t, mon.RunCycle(context.Background()))

	stored, _ := store.TicketSnapshot("ticket-1")
	require.NotNil(t, stored.Priority)
	assert.Equal(t, domain.TicketPriorityUrgent, *stored.Priority)
	assert.False(t, stored.SLABreached)

	warnings := recorder.byType(events.EventSLAWarning)
	require.Len(t, warnings, 1)
	payload, ok := warnings[0].Payload.(events.SLAWarningPayload)
	require.True(t, ok)
	assert.Equal(t, monitor.TierFifteenMinutes, payload.Tier)
	assert.Equal(t, "engineer-7", payload.AssignedTo)

	// Second pass in the same window warns again without touching the row.
	version := stored.Version
	require.NoError(t, mon.RunCycle(context.Background()))
	stored, _ = store.TicketSnapshot("ticket-1")
	assert.Equal(t, version, stored.Version)
	assert.Len(t, recorder.byType(events.EventSLAWarning), 2)
}

func TestWarningTiers(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		remaining time.Duration
		tier      string
	}{
		{name: "five minute window", remaining: 3 * time.Minute, tier: monitor.TierFiveMinutes},
		{name: "ten minute window", remaining: 8 * time.Minute, tier: monitor.TierTenMinutes},
		{name: "fifteen minute window", remaining: 13 * time.Minute, tier: monitor.TierFifteenMinutes},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := testutil.NewMemStore()
			recorder := &eventRecorder{}
			seedTicket(store, "ticket-1", t0)

			clock := &fakeClock{t: t0.Add(time.Hour - tc.remaining)}
			mon := newMonitor(store, clock, recorder)
			require.NoError(t, mon.RunCycle(context.Background()))

			warnings := recorder.byType(events.EventSLAWarning)
			require.Len(t, warnings, 1)
			payload := warnings[0].Payload.(events.SLAWarningPayload)
			assert.Equal(t, tc.tier, payload.Tier)
		})
	}
}

func TestNoActionOutsideWarningWindows(t *testing.T) {
	store := testutil.NewMemStore()
	recorder := &eventRecorder{}
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedTicket(store, "ticket-1", t0)

	// 30 minutes remaining.
	clock := &fakeClock{t: t0.Add(30 * time.Minute)}
	mon := newMonitor(store, clock, recorder)
	require.NoError(t, mon.RunCycle(context.Background()))

	stored, _ := store.TicketSnapshot("ticket-1")
	assert.Equal(t, domain.TicketPriorityHigh, *stored.Priority)
	assert.False(t, stored.SLABreached)
	assert.Empty(t, recorder.byType(events.EventSLAWarning))
	assert.Empty(t, recorder.byType(events.EventSLABreached))
}

func TestUntriagedAndUnassignedTicketsAreSkipped(t *testing.T) {
	store := testutil.NewMemStore()
	recorder := &eventRecorder{}
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Past any deadline, but not eligible.
	untriaged := seedTicket(store, "no-sla", t0)
	untriaged.SLATimeLimitHours = nil
	untriaged.SLAID = nil
	store.SeedTicket(untriaged)

	unassigned := seedTicket(store, "no-assignee", t0)
	unassigned.AssignedTo = nil
	unassigned.Status = domain.TicketStatusNew
	store.SeedTicket(unassigned)

	clock := &fakeClock{t: t0.Add(2 * time.Hour)}
	mon := newMonitor(store, clock, recorder)
	require.NoError(t, mon.RunCycle(context.Background()))

	for _, id := range []string{"no-sla", "no-assignee"} {
		stored, _ := store.TicketSnapshot(id)
		assert.False(t, stored.SLABreached, id)
	}
	assert.Empty(t, recorder.events)
}

func TestTerminalTicketsAreNotScanned(t *testing.T) {
	store := testutil.NewMemStore()
	recorder := &eventRecorder{}
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	closed := seedTicket(store, "closed-1", t0)
	closed.Status = domain.TicketStatusClosed
	store.SeedTicket(closed)

	clock := &fakeClock{t: t0.Add(2 * time.Hour)}
	mon := newMonitor(store, clock, recorder)
	require.NoError(t, mon.RunCycle(context.Background()))

	stored, _ := store.TicketSnapshot("closed-1")
	assert.False(t, stored.SLABreached)
	assert.Empty(t, recorder.events)
}

type conflictStore struct {
	*testutil.MemStore
}

func (s conflictStore) Tickets() repository.TicketRepository {
	return conflictTickets{s.MemStore.Tickets()}
}

type conflictTickets struct {
	repository.TicketRepository
}

func (r conflictTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	return repository.ErrVersionConflict
}

func TestVersionConflictSkipsTicketWithoutFailingCycle(t *testing.T) {
	store := testutil.NewMemStore()
	recorder := &eventRecorder{}
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedTicket(store, "ticket-1", t0)

	clock := &fakeClock{t: t0.Add(2 * time.Hour)}
	mon := newMonitor(conflictStore{store}, clock, recorder)

	require.NoError(t, mon.RunCycle(context.Background()))

	stored, _ := store.TicketSnapshot("ticket-1")
	assert.False(t, stored.SLABreached)
	assert.Empty(t, recorder.byType(events.EventSLABreached))
}
