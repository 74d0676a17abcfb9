package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/events"
	"github.com/opsdesk/ticket-service/internal/observability"
	"github.com/opsdesk/ticket-service/internal/repository"
)

const leaseKey = "sla:monitor:lease"

// Warning tier labels, by minutes remaining at emission.
const (
	TierFiveMinutes    = "5m"
	TierTenMinutes     = "10m"
	TierFifteenMinutes = "15m"
)

// Monitor periodically scans active tickets against their SLA deadline and
// applies escalation policy. All of its writes are monotonic (slaBreached
// only goes false to true, priority only escalates to URGENT), so a repeated
// or late cycle never double-applies the breach transition. Writes go through
// the ticket's optimistic version check; losing the race to a concurrent
// lifecycle operation means the ticket is simply skipped until the next pass.
type Monitor struct {
	store      repository.Store
	redis      *redis.Client
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration
	leaseTTL   time.Duration
	now        func() time.Time
	instanceID string

	cancel context.CancelFunc
	done   chan struct{}
}

// Options configures the monitor. Redis is optional: without it the cycle
// lease is skipped and the deployment must guarantee a single instance. Now
// defaults to time.Now.
type Options struct {
	Store      repository.Store
	Redis      *redis.Client
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Interval   time.Duration
	LeaseTTL   time.Duration
	Now        func() time.Time
}

// New builds a monitor.
func New(opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Minute
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 90 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{
		store:      opts.Store,
		redis:      opts.Redis,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		interval:   opts.Interval,
		leaseTTL:   opts.LeaseTTL,
		now:        opts.Now,
		instanceID: uuid.NewString(),
	}
}

// Start launches the cycle loop. Cycles run serially; a tick that fires while
// the previous cycle is still running is dropped.
func (m *Monitor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.runCycleLogged(runCtx)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.runCycleLogged(runCtx)
			}
		}
	}()
	m.logger.Info("sla monitor started", zap.Duration("interval", m.interval))
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.logger.Info("sla monitor stopped")
}

func (m *Monitor) runCycleLogged(ctx context.Context) {
	if err := m.RunCycle(ctx); err != nil {
		m.logger.Error("sla monitor cycle failed", zap.Error(err))
	}
}

// RunCycle performs one scan. Exported so a single deterministic pass can be
// driven directly.
func (m *Monitor) RunCycle(ctx context.Context) error {
	if !m.acquireLease(ctx) {
		m.logger.Debug("sla monitor lease held elsewhere, skipping cycle")
		return nil
	}

	tickets, err := m.store.Tickets().ListByStatus(ctx, domain.ActiveStatuses)
	if err != nil {
		return err
	}

	for i := range tickets {
		m.evaluate(ctx, &tickets[i])
	}

	m.metrics.RecordMonitorCycle()
	m.logger.Debug("sla monitor cycle finished", zap.Int("active_tickets", len(tickets)))
	return nil
}

// acquireLease takes the cycle lease so concurrent replicas do not
// double-scan. Without redis the lease is a no-op.
func (m *Monitor) acquireLease(ctx context.Context) bool {
	if m.redis == nil {
		return true
	}
	ok, err := m.redis.SetNX(ctx, leaseKey, m.instanceID, m.leaseTTL).Result()
	if err != nil {
		// Redis being down must not stop breach detection.
		m.logger.Warn("sla monitor lease check failed, proceeding", zap.Error(err))
		return true
	}
	return ok
}

// evaluate applies breach and warning policy to one ticket. Tickets without
// an SLA snapshot or assignee have no deadline and are skipped. Errors are
// logged and never abort the cycle.
func (m *Monitor) evaluate(ctx context.Context, ticket *domain.Ticket) {
	if ticket.AssignedTo == nil {
		return
	}
	deadline, ok := ticket.BreachDeadline()
	if !ok {
		return
	}

	now := m.now()
	if now.After(deadline) {
		m.handleBreach(ctx, ticket, deadline)
		return
	}

	minutesRemaining := int64(deadline.Sub(now).Minutes())
	switch {
	case minutesRemaining <= 5:
		m.emitWarning(ctx, ticket, deadline, minutesRemaining, TierFiveMinutes)
	case minutesRemaining <= 10:
		m.emitWarning(ctx, ticket, deadline, minutesRemaining, TierTenMinutes)
	case minutesRemaining <= 15:
		if !m.escalatePriority(ctx, ticket) {
			return
		}
		m.emitWarning(ctx, ticket, deadline, minutesRemaining, TierFifteenMinutes)
	}
}

// handleBreach applies the one-time breach transition: priority URGENT and
// the breach flag, committed before the notification is emitted.
func (m *Monitor) handleBreach(ctx context.Context, ticket *domain.Ticket, deadline time.Time) {
	if ticket.SLABreached {
		return
	}

	urgent := domain.TicketPriorityUrgent
	ticket.SLABreached = true
	ticket.Priority = &urgent
	if err := m.store.Tickets().Update(ctx, ticket); err != nil {
		m.logUpdateFailure(ticket.ID, "breach", err)
		return
	}

	m.metrics.RecordBreach()
	m.logger.Warn("sla breached",
		zap.String("ticket_id", ticket.ID),
		zap.Time("deadline", deadline))

	m.publish(ctx, events.Event{
		Type:     events.EventSLABreached,
		TicketID: ticket.ID,
		Payload: events.SLABreachedPayload{
			AssignedTo: *ticket.AssignedTo,
			BreachTime: deadline,
		},
	})
}

// escalatePriority raises the ticket to URGENT once, ahead of the deadline.
// Returns false when a concurrent lifecycle write won the version race; the
// ticket is re-evaluated next cycle.
func (m *Monitor) escalatePriority(ctx context.Context, ticket *domain.Ticket) bool {
	if ticket.Priority != nil && *ticket.Priority == domain.TicketPriorityUrgent {
		return true
	}

	urgent := domain.TicketPriorityUrgent
	ticket.Priority = &urgent
	if err := m.store.Tickets().Update(ctx, ticket); err != nil {
		m.logUpdateFailure(ticket.ID, "escalation", err)
		return false
	}
	m.logger.Warn("ticket priority escalated to urgent", zap.String("ticket_id", ticket.ID))
	return true
}

func (m *Monitor) emitWarning(ctx context.Context, ticket *domain.Ticket, deadline time.Time, minutesRemaining int64, tier string) {
	m.metrics.RecordWarning(tier)
	m.logger.Warn("sla warning",
		zap.String("ticket_id", ticket.ID),
		zap.String("tier", tier),
		zap.Int64("minutes_remaining", minutesRemaining))

	m.publish(ctx, events.Event{
		Type:     events.EventSLAWarning,
		TicketID: ticket.ID,
		Payload: events.SLAWarningPayload{
			AssignedTo:       *ticket.AssignedTo,
			MinutesRemaining: minutesRemaining,
			Tier:             tier,
			BreachTime:       deadline,
		},
	})
}

func (m *Monitor) publish(ctx context.Context, event events.Event) {
	if m.dispatcher == nil {
		return
	}
	_ = m.dispatcher.Publish(ctx, event)
}

func (m *Monitor) logUpdateFailure(ticketID, action string, err error) {
	if errors.Is(err, repository.ErrVersionConflict) {
		m.logger.Debug("sla monitor lost version race, skipping ticket",
			zap.String("ticket_id", ticketID),
			zap.String("action", action))
		return
	}
	m.logger.Error("sla monitor update failed",
		zap.String("ticket_id", ticketID),
		zap.String("action", action),
		zap.Error(err))
}
