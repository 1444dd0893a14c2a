package domain

import "context"

type Service interface {
	// Resolve runs the strategies in order and returns the first match, or
	// nil when none matched or search is unavailable.
	Resolve(ctx context.Context, subject Subject) (*Match, error)
	// Suggest returns up to limit scored leaf categories for query.
	Suggest(ctx context.Context, query string, limit int) ([]CategoryCandidate, error)
}
