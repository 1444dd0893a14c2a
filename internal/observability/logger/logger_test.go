package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	obscontext "github.com/smallbiznis/pricewise/internal/observability/context"
	"github.com/smallbiznis/pricewise/pkg/telemetry/correlation"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "chatty"})
	require.Error(t, err)
}

func TestNewAppliesLevel(t *testing.T) {
	log, err := New(nil, Config{ServiceName: "pricewise", Level: "warn", Format: "console", Debug: true})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestWithContextAddsBatchFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := correlation.ContextWithCorrelationID(context.Background(), "corr-1")
	ctx = obscontext.WithJob(ctx, "normalize_items")
	ctx = obscontext.WithItemID(ctx, 42)

	WithContext(ctx, zap.New(core)).Info("item.normalized")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "corr-1", fields["correlation_id"])
	assert.Equal(t, "normalize_items", fields["job"])
	assert.Equal(t, "42", fields["item_id"])
	assert.Contains(t, fields, "trace_id")
}

func TestWithContextOmitsUnsetBatchFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	WithContext(context.Background(), zap.New(core)).Info("startup")

	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fields, "job")
	assert.NotContains(t, fields, "item_id")
}
