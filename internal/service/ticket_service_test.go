package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/cache"
	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/service"
	"github.com/opsdesk/ticket-service/internal/testutil"
	apperrors "github.com/opsdesk/ticket-service/pkg/util"
)

type feedbackRecorder struct {
	mu    sync.Mutex
	calls []feedbackCall
}

type feedbackCall struct {
	ticketID string
	userID   string
}

func (f *feedbackRecorder) CreatePendingFeedback(ctx context.Context, ticketID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, feedbackCall{ticketID: ticketID, userID: userID})
}

func (f *feedbackRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	store    *testutil.MemStore
	tickets  *service.TicketService
	feedback *feedbackRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewMemStore()
	store.SeedCategory(domain.IssueCategory{ID: "cat-1", CategoryName: "Networking"})
	store.SeedSLA(domain.SLARule{
		ID:            "sla-1",
		Severity:      domain.TicketSeverityHigh,
		Priority:      domain.TicketPriorityHigh,
		TimeLimitHour: 4,
	})

	refCache := cache.NewReferenceCache(nil, zap.NewNop())
	feedback := &feedbackRecorder{}
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Categories: service.NewCategoryService(store, refCache),
		SLAs:       service.NewSLAService(store, refCache),
		Feedback:   feedback,
	})
	return &fixture{store: store, tickets: tickets, feedback: feedback}
}

func (f *fixture) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateByCustomer(context.Background(), "customer-42", "cat-1", "VPN drops every hour")
	require.NoError(t, err)
	return ticket
}

func (f *fixture) triage(t *testing.T, ticketID, engineer string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.TriageAssign(context.Background(), service.TriageAssignInput{
		TicketID:   ticketID,
		SLAID:      "sla-1",
		Severity:   domain.TicketSeverityHigh,
		Priority:   domain.TicketPriorityHigh,
		AssignedTo: engineer,
		AssignedBy: "agent-1",
	})
	require.NoError(t, err)
	return ticket
}

func assertDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, code, domainErr.Code)
}

func TestCreateByCustomer(t *testing.T) {
	f := newFixture(t)

	ticket := f.createTicket(t)

	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, "customer-42", ticket.CreatedBy)
	assert.Equal(t, "customer-42", ticket.CreatedFor)
	assert.Nil(t, ticket.Severity)
	assert.Nil(t, ticket.AssignedTo)
	assert.False(t, ticket.SLABreached)
}

func TestCreateByAgentSetsDistinctCreator(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.tickets.CreateByAgent(context.Background(), "agent-1", "customer-42", "cat-1", "Printer offline")
	require.NoError(t, err)

	assert.Equal(t, "agent-1", ticket.CreatedBy)
	assert.Equal(t, "customer-42", ticket.CreatedFor)
}

func TestCreateRejectsBlankDescription(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.CreateByCustomer(context.Background(), "customer-42", "cat-1", "   ")
	assertDomainErrorCode(t, err, "VALIDATION_FAILED")
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.CreateByCustomer(context.Background(), "customer-42", "cat-missing", "valid description")
	assertDomainErrorCode(t, err, "NOT_FOUND")
}

func TestAssignRecordsAssignmentLog(t *testing.T) {
	// Scenario: create, then assign engineer 7 by manager 1.
	f := newFixture(t)
	ticket := f.createTicket(t)

	assigned, err := f.tickets.Assign(context.Background(), ticket.ID, "engineer-7", "manager-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, "engineer-7", *assigned.AssignedTo)

	entries := f.store.AssignmentEntries(ticket.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "engineer-7", entries[0].AssignedTo)
	assert.Equal(t, "manager-1", entries[0].AssignedBy)

	// Assign produces no action log entry, only the assignment entry.
	assert.Empty(t, f.store.ActionEntries(ticket.ID))
}

func TestTriageAssignSnapshotsSLA(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	triaged := f.triage(t, ticket.ID, "engineer-7")

	assert.Equal(t, domain.TicketStatusAssigned, triaged.Status)
	require.NotNil(t, triaged.SLAID)
	assert.Equal(t, "sla-1", *triaged.SLAID)
	require.NotNil(t, triaged.SLATimeLimitHours)
	assert.Equal(t, 4, *triaged.SLATimeLimitHours)
	require.NotNil(t, triaged.Severity)
	assert.Equal(t, domain.TicketSeverityHigh, *triaged.Severity)
	require.Len(t, f.store.AssignmentEntries(ticket.ID), 1)
}

func TestReassignAppendsBothLogs(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.triage(t, ticket.ID, "engineer-7")

	reassigned, err := f.tickets.Reassign(context.Background(), ticket.ID, "manager-1", "engineer-9")
	require.NoError(t, err)

	require.NotNil(t, reassigned.AssignedTo)
	assert.Equal(t, "engineer-9", *reassigned.AssignedTo)
	assert.Equal(t, domain.TicketStatusAssigned, reassigned.Status)

	assignments := f.store.AssignmentEntries(ticket.ID)
	require.Len(t, assignments, 2)
	assert.Equal(t, "engineer-9", assignments[1].AssignedTo)

	actions := f.store.ActionEntries(ticket.ID)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].ActionNote, "reassigned from user engineer-7 to user engineer-9")
	assert.Equal(t, reassigned.Status, actions[0].Status)
}

func TestOpenRequiresAssignee(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.tickets.Open(context.Background(), ticket.ID, "engineer-7")
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
}

func TestOpenHoldResolveAppendActionLog(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.triage(t, ticket.ID, "engineer-7")
	ctx := context.Background()

	opened, err := f.tickets.Open(ctx, ticket.ID, "engineer-7")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, opened.Status)

	held, err := f.tickets.Hold(ctx, ticket.ID, "engineer-7", "waiting on vendor parts")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOnHold, held.Status)

	attachment := "https://files.example.com/fix.png"
	resolved, err := f.tickets.Resolve(ctx, ticket.ID, "engineer-7", "replaced faulty switch", &attachment)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)

	actions := f.store.ActionEntries(ticket.ID)
	require.Len(t, actions, 3)
	assert.Equal(t, "Ticket opened by engineer.", actions[0].ActionNote)
	assert.Equal(t, domain.TicketStatusInProgress, actions[0].Status)
	assert.Equal(t, "waiting on vendor parts", actions[1].ActionNote)
	assert.Equal(t, domain.TicketStatusOnHold, actions[1].Status)
	assert.Equal(t, "replaced faulty switch", actions[2].ActionNote)
	require.NotNil(t, actions[2].AttachmentURL)
	assert.Equal(t, attachment, *actions[2].AttachmentURL)
}

func TestHoldRequiresNote(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.triage(t, ticket.ID, "engineer-7")

	_, err := f.tickets.Hold(context.Background(), ticket.ID, "engineer-7", "  ")
	assertDomainErrorCode(t, err, "VALIDATION_FAILED")
}

func TestNoteLengthBound(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.triage(t, ticket.ID, "engineer-7")

	_, err := f.tickets.Hold(context.Background(), ticket.ID, "engineer-7", strings.Repeat("x", 201))
	assertDomainErrorCode(t, err, "VALIDATION_FAILED")
}

func TestCloseRejectedUnlessResolved(t *testing.T) {
	// Scenario: on-hold ticket cannot be closed and nothing is written.
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.triage(t, ticket.ID, "engineer-7")
	ctx := context.Background()

	_, err := f.tickets.Open(ctx, ticket.ID, "engineer-7")
	require.NoError(t, err)
	_, err = f.tickets.Hold(ctx, ticket.ID, "engineer-7", "customer unavailable")
	require.NoError(t, err)
	actionsBefore := len(f.store.ActionEntries(ticket.ID))

	_, err = f.tickets.Close(ctx, ticket.ID, "customer-42")
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")

	stored, ok := f.store.TicketSnapshot(ticket.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusOnHold, stored.Status)
	assert.Len(t, f.store.ActionEntries(ticket.ID), actionsBefore)
	assert.Zero(t, f.feedback.count())
}

func TestCloseResolvedTicketFiresFeedbackOnce(t *testing.T) {
	// Scenario: resolved ticket closed by the customer.
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.triage(t, ticket.ID, "engineer-7")
	ctx := context.Background()

	_, err := f.tickets.Open(ctx, ticket.ID, "engineer-7")
	require.NoError(t, err)
	_, err = f.tickets.Resolve(ctx, ticket.ID, "engineer-7", "reset the radius server", nil)
	require.NoError(t, err)

	closed, err := f.tickets.Close(ctx, ticket.ID, "customer-42")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)

	actions := f.store.ActionEntries(ticket.ID)
	last := actions[len(actions)-1]
	assert.Equal(t, "Ticket closed by customer.", last.ActionNote)
	assert.Equal(t, domain.TicketStatusClosed, last.Status)

	require.Equal(t, 1, f.feedback.count())
	assert.Equal(t, ticket.ID, f.feedback.calls[0].ticketID)
	assert.Equal(t, "customer-42", f.feedback.calls[0].userID)
}

func TestReopenReassignsToLatestAssignee(t *testing.T) {
	// Scenario: low feedback rating reopens a closed ticket.
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.triage(t, ticket.ID, "engineer-7")
	ctx := context.Background()

	_, err := f.tickets.Open(ctx, ticket.ID, "engineer-7")
	require.NoError(t, err)
	_, err = f.tickets.Resolve(ctx, ticket.ID, "engineer-7", "cleared the cache", nil)
	require.NoError(t, err)
	_, err = f.tickets.Close(ctx, ticket.ID, "customer-42")
	require.NoError(t, err)

	reopened, err := f.tickets.Reopen(ctx, ticket.ID, "customer-42")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusReopened, reopened.Status)
	require.NotNil(t, reopened.AssignedTo)
	assert.Equal(t, "engineer-7", *reopened.AssignedTo)

	assignments := f.store.AssignmentEntries(ticket.ID)
	require.Len(t, assignments, 2)
	assert.Equal(t, "engineer-7", assignments[1].AssignedTo)
	assert.Equal(t, "customer-42", assignments[1].AssignedBy)

	actions := f.store.ActionEntries(ticket.ID)
	last := actions[len(actions)-1]
	assert.Equal(t, "Ticket automatically reopened due to low feedback rating.", last.ActionNote)
	assert.Equal(t, domain.TicketStatusReopened, last.Status)
}

func TestReopenWithoutAssignmentHistoryFails(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.tickets.Reopen(context.Background(), ticket.ID, "customer-42")
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
}

func TestUpdateStatusIsAudited(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	updated, err := f.tickets.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusResolved, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)

	actions := f.store.ActionEntries(ticket.ID)
	require.Len(t, actions, 1)
	assert.Equal(t, "Status updated by administrator.", actions[0].ActionNote)
	assert.Equal(t, "admin-1", actions[0].UpdatedBy)
	assert.Equal(t, domain.TicketStatusResolved, actions[0].Status)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.tickets.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatus("BANANAS"), "admin-1")
	assertDomainErrorCode(t, err, "VALIDATION_FAILED")
}

func TestProjections(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.triage(t, ticket.ID, "engineer-7")
	ctx := context.Background()

	mine, err := f.tickets.GetTicketsByCustomer(ctx, "customer-42")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	assigned, err := f.tickets.GetTicketsByAssignee(ctx, "engineer-7")
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	fresh, err := f.tickets.GetNewTickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestOperationsOnMissingTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tickets.Open(ctx, "nope", "engineer-7")
	assertDomainErrorCode(t, err, "NOT_FOUND")

	_, err = f.tickets.Close(ctx, "nope", "customer-42")
	assertDomainErrorCode(t, err, "NOT_FOUND")

	_, err = f.tickets.ListActionLog(ctx, "nope")
	assertDomainErrorCode(t, err, "NOT_FOUND")
}

func TestClosedTicketRejectsLifecycleVerbs(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.triage(t, ticket.ID, "engineer-7")
	ctx := context.Background()

	_, err := f.tickets.Open(ctx, ticket.ID, "engineer-7")
	require.NoError(t, err)
	_, err = f.tickets.Resolve(ctx, ticket.ID, "engineer-7", "done", nil)
	require.NoError(t, err)
	_, err = f.tickets.Close(ctx, ticket.ID, "customer-42")
	require.NoError(t, err)

	_, err = f.tickets.Assign(ctx, ticket.ID, "engineer-9", "manager-1")
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")

	_, err = f.tickets.Open(ctx, ticket.ID, "engineer-7")
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
}
