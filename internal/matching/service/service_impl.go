package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/pricewise/internal/config"
	"github.com/smallbiznis/pricewise/internal/matching/domain"
	"github.com/smallbiznis/pricewise/internal/normalize"
	"github.com/smallbiznis/pricewise/internal/observability/logger"
	"github.com/smallbiznis/pricewise/internal/observability/metrics"
)

const tracerName = "github.com/smallbiznis/pricewise/internal/matching"

const (
	capabilityUnknown int32 = iota
	capabilityAvailable
	capabilityUnavailable
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Config     *config.MatchingConfigHolder
	Peers      domain.PeerSearcher
	Categories domain.CategorySearcher
	Prober     domain.Prober    `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	config     *config.MatchingConfigHolder
	categories domain.CategorySearcher
	prober     domain.Prober
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	strategies []domain.Strategy

	// capability caches the probe result. Concurrent first calls may both
	// probe; the last write wins and both results agree.
	capability atomic.Int32
}

func New(p Params) domain.Service {
	return NewWithStrategies(p,
		&peerStrategy{searcher: p.Peers, config: p.Config},
		&categoryStrategy{searcher: p.Categories, config: p.Config},
	)
}

// NewWithStrategies builds a pipeline that evaluates strategies in the given
// order.
func NewWithStrategies(p Params, strategies ...domain.Strategy) *Service {
	return &Service{
		log:        p.Log.Named("matching.service"),
		config:     p.Config,
		categories: p.Categories,
		prober:     p.Prober,
		metrics:    p.Metrics,
		tracer:     otel.Tracer(tracerName),
		strategies: strategies,
	}
}

func (s *Service) Resolve(ctx context.Context, subject domain.Subject) (*domain.Match, error) {
	if strings.TrimSpace(subject.Title) == "" && strings.TrimSpace(subject.Breadcrumb) == "" {
		return nil, nil
	}

	ctx, span := s.tracer.Start(ctx, "matching.resolve")
	defer span.End()
	start := time.Now()
	log := logger.WithContext(ctx, s.log)

	available, err := s.available(ctx)
	if err != nil {
		s.finish(ctx, span, "", metrics.OutcomeError, start, err)
		return nil, err
	}
	if !available {
		s.finish(ctx, span, "", metrics.OutcomeUnavailable, start, nil)
		return nil, nil
	}

	for _, strategy := range s.strategies {
		match, err := strategy.Attempt(ctx, subject)
		if errors.Is(err, domain.ErrSearchUnavailable) {
			s.capability.Store(capabilityUnavailable)
			log.Warn("matching.resolve.unavailable", zap.String("strategy", strategy.Name()), zap.Error(err))
			s.finish(ctx, span, "", metrics.OutcomeUnavailable, start, nil)
			return nil, nil
		}
		if errors.Is(err, domain.ErrSearchDegraded) {
			log.Warn("matching.resolve.degraded", zap.String("strategy", strategy.Name()), zap.Error(err))
			continue
		}
		if err != nil {
			s.finish(ctx, span, strategy.Name(), metrics.OutcomeError, start, err)
			return nil, err
		}
		if match != nil {
			span.SetAttributes(
				attribute.Int64("matching.category_id", match.CategoryID),
				attribute.Float64("matching.score", match.Score),
			)
			log.Debug("matching.resolve.matched",
				zap.String("strategy", string(match.Strategy)),
				zap.Int64("category_id", match.CategoryID),
				zap.Float64("score", match.Score),
			)
			s.finish(ctx, span, string(match.Strategy), metrics.OutcomeMatched, start, nil)
			return match, nil
		}
	}

	s.finish(ctx, span, "", metrics.OutcomeNoMatch, start, nil)
	return nil, nil
}

func (s *Service) Suggest(ctx context.Context, query string, limit int) ([]domain.CategoryCandidate, error) {
	text := normalize.Title(query)
	if text == "" {
		return nil, nil
	}

	ctx, span := s.tracer.Start(ctx, "matching.suggest")
	defer span.End()

	available, err := s.available(ctx)
	if err != nil || !available {
		return nil, err
	}

	cfg := s.config.Get()
	if limit <= 0 {
		limit = cfg.DiagnosticLimit
	}
	candidates, err := s.categories.SearchCategories(ctx, domain.CategoryQuery{
		Text:      text,
		Threshold: cfg.CategoryThreshold,
		Limit:     limit,
	})
	if errors.Is(err, domain.ErrSearchUnavailable) {
		s.capability.Store(capabilityUnavailable)
		return nil, nil
	}
	return candidates, err
}

func (s *Service) available(ctx context.Context) (bool, error) {
	switch s.capability.Load() {
	case capabilityAvailable:
		return true, nil
	case capabilityUnavailable:
		return false, nil
	}
	if s.prober == nil {
		s.capability.Store(capabilityAvailable)
		return true, nil
	}

	err := s.prober.Probe(ctx)
	switch {
	case err == nil:
		s.capability.Store(capabilityAvailable)
		return true, nil
	case errors.Is(err, domain.ErrSearchUnavailable):
		s.capability.Store(capabilityUnavailable)
		s.log.Warn("matching.capability.unavailable", zap.Error(err))
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) finish(ctx context.Context, span trace.Span, strategy, outcome string, start time.Time, err error) {
	span.SetAttributes(
		attribute.String("matching.strategy", strategy),
		attribute.String("matching.outcome", outcome),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.metrics.RecordResolution(ctx, strategy, outcome, time.Since(start))
}
