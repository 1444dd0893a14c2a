package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	obscontext "github.com/smallbiznis/pricewise/internal/observability/context"
)

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        10 * time.Millisecond,
		IgnoreRecordNotFound: true,
	})

	ctx := obscontext.WithJob(context.Background(), "normalize_items")
	query := func() (string, int64) { return "UPDATE items SET category_id = NULL", 3 }

	gl.Trace(ctx, time.Now(), query, errors.New("boom"))
	gl.Trace(ctx, time.Now().Add(-time.Second), query, nil)
	gl.Trace(ctx, time.Now(), query, gormlogger.ErrRecordNotFound)
	gl.Trace(ctx, time.Now(), query, nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "gorm.query", entries[0].Message)
	assert.Equal(t, "UPDATE", entries[0].ContextMap()["operation"])
	assert.Equal(t, "normalize_items", entries[0].ContextMap()["job"])
}

func TestParseGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, ParseGormLogLevel("off"))
	assert.Equal(t, gormlogger.Error, ParseGormLogLevel("ERROR"))
	assert.Equal(t, gormlogger.Info, ParseGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, ParseGormLogLevel(""))
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("WITH leaves AS (SELECT 1) SELECT * FROM leaves"))
	assert.Equal(t, "DELETE", operationFromSQL(" delete from categories"))
	assert.Equal(t, "UNKNOWN", operationFromSQL("CREATE EXTENSION pg_trgm"))
}
