package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/pricewise/internal/clock"
	itemdomain "github.com/smallbiznis/pricewise/internal/item/domain"
	"github.com/smallbiznis/pricewise/internal/matching/searchindex"
	obsmetrics "github.com/smallbiznis/pricewise/internal/observability/metrics"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

// Indexer receives approved items for peer search and drops items that
// left the approved set.
type Indexer interface {
	Upsert(ctx context.Context, docs []searchindex.PeerDocument) error
	Delete(ctx context.Context, ids []int64) error
}

type Params struct {
	fx.In

	Log       *zap.Logger
	ItemSvc   itemdomain.Service
	GenID     *snowflake.Node
	PeerIndex *searchindex.PeerIndex       `optional:"true"`
	Clock     clock.Clock                  `optional:"true"`
	Config    Config                       `optional:"true"`
	Metrics   *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	itemSvc itemdomain.Service
	indexer Indexer
	metrics *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.ItemSvc == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	m := p.Metrics
	if m == nil {
		m = obsmetrics.Scheduler()
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   c,
		itemSvc: p.ItemSvc,
		metrics: m,
	}
	// A nil *PeerIndex must not become a non-nil Indexer.
	if p.PeerIndex != nil {
		s.indexer = p.PeerIndex
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount.Load() == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout: pending rows are picked up next tick.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("scheduler.job.timeout",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobNormalizeItems, s.isJobEnabled(JobNormalizeItems), func(ctx context.Context) error {
			return s.runJob(ctx, JobNormalizeItems, s.cfg.BatchSize, s.cfg.JobTimeout, s.NormalizeItemsJob)
		}},
		{JobIndexApproved, s.indexer != nil && s.isJobEnabled(JobIndexApproved), func(ctx context.Context) error {
			return s.runJob(ctx, JobIndexApproved, s.cfg.BatchSize, s.cfg.JobTimeout, s.IndexApprovedJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if runLag := s.clock.Now().Sub(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler.run.failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
