// Package context carries batch-scoped identifiers used to enrich logs.
package context

import (
	"context"
	"strconv"
)

type jobKey struct{}
type itemKey struct{}

// WithJob records the scheduler job name on ctx.
func WithJob(ctx context.Context, job string) context.Context {
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey{}, job)
}

func JobFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	job, _ := ctx.Value(jobKey{}).(string)
	return job
}

// WithItemID records the item currently being processed.
func WithItemID(ctx context.Context, id int64) context.Context {
	if id == 0 {
		return ctx
	}
	return context.WithValue(ctx, itemKey{}, id)
}

func ItemIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(itemKey{}).(int64); ok {
		return strconv.FormatInt(id, 10)
	}
	return ""
}
