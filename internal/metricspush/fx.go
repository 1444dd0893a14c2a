package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/pricewise/internal/config"
)

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

// Worker pushes on an interval and once more on shutdown so the last batch
// run is not lost.
type Worker struct {
	pusher   Pusher
	gatherer prometheus.Gatherer
	interval time.Duration
	log      *zap.Logger
	failing  bool
}

func NewWorker(pusher Pusher, gatherer prometheus.Gatherer, interval time.Duration, log *zap.Logger) *Worker {
	if interval <= 0 {
		interval = config.DefaultMetricsPushInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{pusher: pusher, gatherer: gatherer, interval: interval, log: log.Named("metricspush")}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.PushOnce(ctx)
		}
	}
}

// PushOnce logs the first failure of a streak and the recovery after it.
func (w *Worker) PushOnce(ctx context.Context) {
	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()

	err := w.pusher.Push(pushCtx, w.gatherer)
	switch {
	case err != nil && !w.failing:
		w.failing = true
		w.log.Warn("metricspush.failed", zap.Error(err))
	case err == nil && w.failing:
		w.failing = false
		w.log.Info("metricspush.recovered")
	}
}

func startWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, log *zap.Logger) {
	if pusher == nil {
		return
	}
	worker := NewWorker(pusher, prometheus.DefaultGatherer, cfg.MetricsPush.Interval, log)

	var cancel context.CancelFunc
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				worker.Run(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			<-done
			worker.PushOnce(ctx)
			return nil
		},
	})
}
