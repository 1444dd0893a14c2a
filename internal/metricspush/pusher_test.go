package metricspush

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/smallbiznis/pricewise/internal/config"
)

func newRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricewise_scheduler_job_runs_total",
		Help: "runs",
	}, []string{"job"})
	lag := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pricewise_scheduler_run_loop_lag_seconds",
		Help: "lag",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "pricewise_scheduler_job_duration_seconds",
		Help: "duration",
	})
	registry.MustRegister(runs, lag, duration)

	runs.WithLabelValues("normalize_items").Add(3)
	lag.Set(1.5)
	duration.Observe(0.2)
	return registry
}

func TestBuildRemoteWriteSeriesSkipsHistograms(t *testing.T) {
	families, err := newRegistry(t).Gather()
	require.NoError(t, err)

	series := buildRemoteWriteSeries(families, 1000)
	require.Len(t, series, 2)

	byName := map[string]prompb.TimeSeries{}
	for _, ts := range series {
		for _, label := range ts.Labels {
			if label.Name == "__name__" {
				byName[label.Value] = ts
			}
		}
	}

	runs, ok := byName["pricewise_scheduler_job_runs_total"]
	require.True(t, ok)
	assert.Equal(t, []prompb.Label{
		{Name: "__name__", Value: "pricewise_scheduler_job_runs_total"},
		{Name: "job", Value: "normalize_items"},
	}, runs.Labels)
	assert.Equal(t, []prompb.Sample{{Value: 3, Timestamp: 1000}}, runs.Samples)

	lag, ok := byName["pricewise_scheduler_run_loop_lag_seconds"]
	require.True(t, ok)
	assert.Equal(t, 1.5, lag.Samples[0].Value)
}

func TestRemoteWritePusherSendsSnappyProtobuf(t *testing.T) {
	var (
		mu       sync.Mutex
		received prompb.WriteRequest
		headers  http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payload, err := snappy.Decode(nil, body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		headers = r.Header.Clone()
		if err := received.Unmarshal(payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pusher := NewRemoteWritePusher(server.URL, "secret")
	pusher.now = func() time.Time { return time.UnixMilli(42) }

	require.NoError(t, pusher.Push(context.Background(), newRegistry(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "application/x-protobuf", headers.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	require.Len(t, received.Timeseries, 2)
	for _, ts := range received.Timeseries {
		require.Len(t, ts.Samples, 1)
		assert.Equal(t, int64(42), ts.Samples[0].Timestamp)
	}
}

func TestRemoteWritePusherReportsRejectedPush(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewRemoteWritePusher(server.URL, "").Push(context.Background(), newRegistry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestRemoteWritePusherSkipsEmptyGatherer(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	require.NoError(t, NewRemoteWritePusher(server.URL, "").Push(context.Background(), prometheus.NewRegistry()))
	assert.False(t, called)
}

func TestPushgatewayPusherUsesJobAndGrouping(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(raw)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	pusher := NewPushgatewayPusher(server.URL, "pricewise", map[string]string{
		"environment": "test",
		"node":        "",
	})
	require.NoError(t, pusher.Push(context.Background(), newRegistry(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/pricewise/environment/test", path)
	assert.Contains(t, body, "exported_job")
}

func TestPushgatewayPusherRequiresJob(t *testing.T) {
	err := NewPushgatewayPusher("http://localhost:9091", " ", nil).Push(context.Background(), newRegistry(t))
	require.Error(t, err)
}

func TestNewPusherSelectsExporter(t *testing.T) {
	base := config.Config{AppName: "pricewise", Environment: "test", NodeID: 3}

	t.Run("disabled", func(t *testing.T) {
		assert.Nil(t, NewPusher(base, zap.NewNop()))
	})

	t.Run("missing endpoint", func(t *testing.T) {
		cfg := base
		cfg.MetricsPush.Exporter = ExporterRemoteWrite
		assert.Nil(t, NewPusher(cfg, zap.NewNop()))
	})

	t.Run("invalid remote write endpoint", func(t *testing.T) {
		cfg := base
		cfg.MetricsPush = config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "not a url"}
		assert.Nil(t, NewPusher(cfg, zap.NewNop()))
	})

	t.Run("unknown exporter", func(t *testing.T) {
		cfg := base
		cfg.MetricsPush = config.MetricsPushConfig{Exporter: "statsd", Endpoint: "localhost:8125"}
		assert.Nil(t, NewPusher(cfg, zap.NewNop()))
	})

	t.Run("remote write", func(t *testing.T) {
		cfg := base
		cfg.MetricsPush = config.MetricsPushConfig{Exporter: "Prometheus_Remote_Write", Endpoint: "http://prom:9090/api/v1/write"}
		assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, zap.NewNop()))
	})

	t.Run("pushgateway", func(t *testing.T) {
		cfg := base
		cfg.MetricsPush = config.MetricsPushConfig{Exporter: ExporterPushgateway, Endpoint: "http://gateway:9091"}
		pusher, ok := NewPusher(cfg, zap.NewNop()).(*PushgatewayPusher)
		require.True(t, ok)
		assert.Equal(t, "pricewise", pusher.job)
		assert.Equal(t, "3", pusher.grouping["node"])
	})
}

type flakyPusher struct {
	errs  []error
	calls int
}

func (p *flakyPusher) Push(context.Context, prometheus.Gatherer) error {
	err := p.errs[p.calls%len(p.errs)]
	p.calls++
	return err
}

func TestWorkerLogsFailureStreakOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	boom := errors.New("connection refused")
	pusher := &flakyPusher{errs: []error{boom, boom, nil}}
	worker := NewWorker(pusher, prometheus.NewRegistry(), 0, zap.New(core))

	for range 3 {
		worker.PushOnce(context.Background())
	}

	assert.Equal(t, config.DefaultMetricsPushInterval, worker.interval)
	assert.Equal(t, 3, pusher.calls)
	assert.Equal(t, 1, logs.FilterMessage("metricspush.failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("metricspush.recovered").Len())
	for _, entry := range logs.All() {
		assert.True(t, strings.HasPrefix(entry.LoggerName, "metricspush"))
	}
}
