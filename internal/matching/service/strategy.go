package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/pricewise/internal/config"
	"github.com/smallbiznis/pricewise/internal/matching/domain"
	"github.com/smallbiznis/pricewise/internal/normalize"
)

// peerStrategy adopts the category of a similar approved item. It first
// requires the same store and breadcrumb, then retries unconstrained with
// the stricter relaxed threshold.
type peerStrategy struct {
	searcher domain.PeerSearcher
	config   *config.MatchingConfigHolder
}

func (s *peerStrategy) Name() string { return "peer" }

func (s *peerStrategy) Attempt(ctx context.Context, subject domain.Subject) (*domain.Match, error) {
	text := normalize.Title(subject.Title)
	if text == "" {
		return nil, nil
	}
	cfg := s.config.Get()

	tight := domain.PeerQuery{
		Text:          text,
		StoreID:       subject.StoreID,
		Breadcrumb:    strings.TrimSpace(subject.Breadcrumb),
		ExcludeItemID: subject.ItemID,
		Threshold:     cfg.PeerThreshold,
		Limit:         1,
	}
	if tight.Constrained() {
		match, err := s.first(ctx, tight, domain.StrategyPeer)
		if match != nil || err != nil {
			return match, err
		}
	}

	relaxed := domain.PeerQuery{
		Text:          text,
		ExcludeItemID: subject.ItemID,
		Threshold:     cfg.PeerRelaxedThreshold,
		Limit:         1,
	}
	return s.first(ctx, relaxed, domain.StrategyPeerRelaxed)
}

func (s *peerStrategy) first(ctx context.Context, q domain.PeerQuery, name domain.StrategyName) (*domain.Match, error) {
	candidates, err := s.searcher.SearchPeers(ctx, q)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	best := candidates[0]
	peerID := best.ItemID
	return &domain.Match{
		CategoryID: best.CategoryID,
		Score:      best.Score,
		Strategy:   name,
		PeerItemID: &peerID,
	}, nil
}

// categoryStrategy searches leaf categories with the normalized breadcrumb,
// then with the normalized title.
type categoryStrategy struct {
	searcher domain.CategorySearcher
	config   *config.MatchingConfigHolder
}

func (s *categoryStrategy) Name() string { return "category" }

func (s *categoryStrategy) Attempt(ctx context.Context, subject domain.Subject) (*domain.Match, error) {
	threshold := s.config.Get().CategoryThreshold

	if crumb := normalize.Breadcrumb(subject.Breadcrumb); crumb != "" {
		match, err := s.first(ctx, crumb, threshold, domain.StrategyBreadcrumb)
		if match != nil || err != nil {
			return match, err
		}
	}

	title := normalize.Title(subject.Title)
	if title == "" {
		return nil, nil
	}
	return s.first(ctx, title, threshold, domain.StrategyTitle)
}

func (s *categoryStrategy) first(ctx context.Context, text string, threshold float64, name domain.StrategyName) (*domain.Match, error) {
	candidates, err := s.searcher.SearchCategories(ctx, domain.CategoryQuery{
		Text:      text,
		Threshold: threshold,
		Limit:     1,
	})
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	return &domain.Match{
		CategoryID: candidates[0].CategoryID,
		Score:      candidates[0].Score,
		Strategy:   name,
	}, nil
}
