package domain

import (
	"context"
	"errors"
)

// ErrSearchUnavailable means the similarity search capability is missing.
// The pipeline treats it as "no match".
var ErrSearchUnavailable = errors.New("similarity_search_unavailable")

// ErrSearchDegraded means one searcher failed transiently, e.g. an
// unreachable external index. The pipeline skips that stage for the current
// call only and does not cache the failure.
var ErrSearchDegraded = errors.New("similarity_search_degraded")

// PeerSearcher returns approved items ranked by descending score, all at or
// above the query threshold.
type PeerSearcher interface {
	SearchPeers(ctx context.Context, q PeerQuery) ([]PeerCandidate, error)
}

// CategorySearcher returns leaf categories ranked by descending score, all
// at or above the query threshold.
type CategorySearcher interface {
	SearchCategories(ctx context.Context, q CategoryQuery) ([]CategoryCandidate, error)
}

// Prober checks that a searcher's backing capability exists. It returns
// ErrSearchUnavailable when it does not.
type Prober interface {
	Probe(ctx context.Context) error
}

// Strategy is one stage of the resolution pipeline. A nil match with a nil
// error passes the subject on to the next stage.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, subject Subject) (*Match, error)
}
