package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Pipeline outcomes shared by the counters below.
const (
	OutcomeMatched     = "matched"
	OutcomeNoMatch     = "no_match"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
	OutcomeFallback    = "fallback"
	OutcomeCalculated  = "calculated"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
)

// Metrics exposes pipeline instruments.
type Metrics struct {
	resolutions     metric.Int64Counter
	resolveDuration metric.Float64Histogram
	unitParses      metric.Int64Counter
	priceCalcs      metric.Int64Counter
	itemsNormalized metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the pipeline instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pricewise"
	}
	meter := provider.Meter(name)

	resolutions, err := meter.Int64Counter("pricewise_category_resolutions_total",
		metric.WithDescription("Category resolutions by strategy and outcome."))
	if err != nil {
		return nil, err
	}
	resolveDuration, err := meter.Float64Histogram("pricewise_category_resolve_duration_seconds",
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	unitParses, err := meter.Int64Counter("pricewise_unit_parses_total")
	if err != nil {
		return nil, err
	}
	priceCalcs, err := meter.Int64Counter("pricewise_price_calculations_total")
	if err != nil {
		return nil, err
	}
	itemsNormalized, err := meter.Int64Counter("pricewise_items_normalized_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		resolutions:     resolutions,
		resolveDuration: resolveDuration,
		unitParses:      unitParses,
		priceCalcs:      priceCalcs,
		itemsNormalized: itemsNormalized,
	}, nil
}

// RecordResolution counts one pipeline run. strategy is empty when nothing
// matched.
func (m *Metrics) RecordResolution(ctx context.Context, strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("strategy", strings.TrimSpace(strategy)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.resolutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.resolveDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordUnitParse counts a title parse by the unit it produced.
func (m *Metrics) RecordUnitParse(ctx context.Context, unitCode, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("unit", strings.TrimSpace(unitCode)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.unitParses.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPriceCalculation counts a price-per-unit attempt by unit family.
func (m *Metrics) RecordPriceCalculation(ctx context.Context, family, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("unit_family", strings.TrimSpace(family)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.priceCalcs.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordItemNormalized counts one item passing through normalization.
func (m *Metrics) RecordItemNormalized(ctx context.Context, outcome, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("outcome", strings.TrimSpace(outcome)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.itemsNormalized.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"strategy":    {},
	"outcome":     {},
	"unit":        {},
	"unit_family": {},
	"reason":      {},
	"job":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
