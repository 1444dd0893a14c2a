package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	categorydomain "github.com/smallbiznis/pricewise/internal/category/domain"
	itemdomain "github.com/smallbiznis/pricewise/internal/item/domain"
	matchingdomain "github.com/smallbiznis/pricewise/internal/matching/domain"
	"github.com/smallbiznis/pricewise/internal/priceunit"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "category_validation", err: fmt.Errorf("create: %w", categorydomain.ErrDepthExceeded), want: SchedulerJobReasonValidation},
		{name: "price_validation", err: priceunit.ErrNonPositivePrice, want: SchedulerJobReasonValidation},
		{name: "search_unavailable", err: matchingdomain.ErrSearchUnavailable, want: SchedulerJobReasonSearchUnavailable},
		{name: "search_degraded", err: fmt.Errorf("add documents: %w", matchingdomain.ErrSearchDegraded), want: SchedulerJobReasonSearchUnavailable},
		{name: "stale_match", err: itemdomain.ErrStaleMatch, want: SchedulerJobReasonStaleMatch},
		{name: "not_found", err: categorydomain.ErrNotFound, want: SchedulerJobReasonNotFound},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestClassifySchedulerErrorType(t *testing.T) {
	assert.Equal(t, SchedulerErrorTypeValidation, ClassifySchedulerErrorType(categorydomain.ErrBlankTitle))
	assert.Equal(t, SchedulerErrorTypeCollaborator, ClassifySchedulerErrorType(matchingdomain.ErrSearchUnavailable))
	assert.Equal(t, SchedulerErrorTypeDB, ClassifySchedulerErrorType(&pgconn.PgError{Code: "23503"}))
	assert.Equal(t, SchedulerErrorTypeUnknown, ClassifySchedulerErrorType(nil))
	assert.True(t, IsSchedulerErrorRetryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsSchedulerErrorRetryable(categorydomain.ErrBlankTitle))
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSchedulerMetrics(registry, Config{ServiceName: "pricewise", Environment: "test"})

	m.AddBatchProcessed("normalize_items", ResourceItems, 3)
	m.AddBatchProcessed("normalize_items", ResourceItems, 0)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.batchProcessed.WithLabelValues("normalize_items", ResourceItems)))
}

func TestIncItemResult(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSchedulerMetrics(registry, Config{})

	m.IncItemResult("normalize_items", ItemResultNormalized, nil)
	m.IncItemResult("normalize_items", ItemResultFailed, priceunit.ErrUnknownUnit)
	m.IncItemResult("normalize_items", ItemResultFailed, priceunit.ErrNonPositiveSize)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.itemResults.WithLabelValues("normalize_items", ItemResultNormalized, ItemReasonNone)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.itemResults.WithLabelValues("normalize_items", ItemResultFailed, SchedulerJobReasonValidation)))
}
