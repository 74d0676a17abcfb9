package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/cache"
	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/service"
	"github.com/opsdesk/ticket-service/internal/testutil"
)

func newSLAService() (*service.SLAService, *testutil.MemStore) {
	store := testutil.NewMemStore()
	return service.NewSLAService(store, cache.NewReferenceCache(nil, zap.NewNop())), store
}

func newCategoryService() (*service.CategoryService, *testutil.MemStore) {
	store := testutil.NewMemStore()
	return service.NewCategoryService(store, cache.NewReferenceCache(nil, zap.NewNop())), store
}

func TestCreateSLAWithinBounds(t *testing.T) {
	svc, _ := newSLAService()

	rule, err := svc.CreateSLA(context.Background(), &domain.SLARule{
		Severity:      domain.TicketSeverityCritical,
		Priority:      domain.TicketPriorityUrgent,
		TimeLimitHour: 1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
}

func TestCreateSLARejectsHoursOutOfRange(t *testing.T) {
	svc, _ := newSLAService()
	ctx := context.Background()

	for _, hours := range []int{0, -1, 73} {
		_, err := svc.CreateSLA(ctx, &domain.SLARule{
			Severity:      domain.TicketSeverityLow,
			Priority:      domain.TicketPriorityLow,
			TimeLimitHour: hours,
		})
		assertDomainErrorCode(t, err, "VALIDATION_FAILED")
	}
}

func TestCreateSLARejectsUnknownEnums(t *testing.T) {
	svc, _ := newSLAService()
	ctx := context.Background()

	_, err := svc.CreateSLA(ctx, &domain.SLARule{
		Severity:      domain.TicketSeverity("EXTREME"),
		Priority:      domain.TicketPriorityLow,
		TimeLimitHour: 8,
	})
	assertDomainErrorCode(t, err, "VALIDATION_FAILED")

	_, err = svc.CreateSLA(ctx, &domain.SLARule{
		Severity:      domain.TicketSeverityLow,
		Priority:      domain.TicketPriority("WHENEVER"),
		TimeLimitHour: 8,
	})
	assertDomainErrorCode(t, err, "VALIDATION_FAILED")
}

func TestUpdateMissingSLA(t *testing.T) {
	svc, _ := newSLAService()

	_, err := svc.UpdateSLA(context.Background(), &domain.SLARule{
		ID:            "missing",
		Severity:      domain.TicketSeverityLow,
		Priority:      domain.TicketPriorityLow,
		TimeLimitHour: 8,
	})
	assertDomainErrorCode(t, err, "NOT_FOUND")
}

func TestGetAndDeleteSLA(t *testing.T) {
	svc, store := newSLAService()
	store.SeedSLA(domain.SLARule{
		ID:            "sla-9",
		Severity:      domain.TicketSeverityMedium,
		Priority:      domain.TicketPriorityMedium,
		TimeLimitHour: 24,
	})
	ctx := context.Background()

	rule, err := svc.GetSLA(ctx, "sla-9")
	require.NoError(t, err)
	assert.Equal(t, 24, rule.TimeLimitHour)

	require.NoError(t, svc.DeleteSLA(ctx, "sla-9"))
	_, err = svc.GetSLA(ctx, "sla-9")
	assertDomainErrorCode(t, err, "NOT_FOUND")
}

func TestCategoryNameBounds(t *testing.T) {
	svc, _ := newCategoryService()
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, "x")
	assertDomainErrorCode(t, err, "VALIDATION_FAILED")

	_, err = svc.CreateCategory(ctx, strings.Repeat("a", 51))
	assertDomainErrorCode(t, err, "VALIDATION_FAILED")

	category, err := svc.CreateCategory(ctx, "  Hardware  ")
	require.NoError(t, err)
	assert.Equal(t, "Hardware", category.CategoryName)
}

func TestCategoryUpdateAndDelete(t *testing.T) {
	svc, store := newCategoryService()
	store.SeedCategory(domain.IssueCategory{ID: "cat-9", CategoryName: "Printers"})
	ctx := context.Background()

	updated, err := svc.UpdateCategory(ctx, "cat-9", "Peripherals")
	require.NoError(t, err)
	assert.Equal(t, "Peripherals", updated.CategoryName)

	require.NoError(t, svc.DeleteCategory(ctx, "cat-9"))
	err = svc.DeleteCategory(ctx, "cat-9")
	assertDomainErrorCode(t, err, "NOT_FOUND")
}
