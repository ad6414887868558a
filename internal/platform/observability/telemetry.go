package observability

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hanko-field/ordersim/internal/domain"
)

const instrumentationName = "github.com/hanko-field/ordersim"

// TelemetryOption customises NewRunTelemetry.
type TelemetryOption func(*telemetryConfig)

type telemetryConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	logger         *zap.Logger
	clock          func() time.Time
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TelemetryOption {
	return func(cfg *telemetryConfig) {
		cfg.tracerProvider = tp
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) TelemetryOption {
	return func(cfg *telemetryConfig) {
		cfg.meterProvider = mp
	}
}

// WithTelemetryLogger logs phase completions.
func WithTelemetryLogger(logger *zap.Logger) TelemetryOption {
	return func(cfg *telemetryConfig) {
		cfg.logger = logger
	}
}

// WithTelemetryClock overrides the clock used for phase durations.
func WithTelemetryClock(clock func() time.Time) TelemetryOption {
	return func(cfg *telemetryConfig) {
		cfg.clock = clock
	}
}

// RunTelemetry traces run phases and counts generated orders. It satisfies services.RunObserver.
type RunTelemetry struct {
	tracer trace.Tracer
	logger *zap.Logger
	clock  func() time.Time

	orders         metric.Int64Counter
	ordersEnabled  bool
	lines          metric.Int64Counter
	linesEnabled   bool
	duration       metric.Float64Histogram
	durationEnable bool
}

// NewRunTelemetry registers the run instruments. Registration failures disable the affected
// instrument and are logged.
func NewRunTelemetry(opts ...TelemetryOption) *RunTelemetry {
	cfg := telemetryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	if cfg.meterProvider == nil {
		cfg.meterProvider = otel.GetMeterProvider()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}

	meter := cfg.meterProvider.Meter(instrumentationName)
	logger := cfg.logger.Named("telemetry")

	orders, ordersErr := meter.Int64Counter(
		"ordersim.orders.generated",
		metric.WithDescription("Orders generated, by phase"),
	)
	if ordersErr != nil {
		logger.Warn("unable to register orders counter", zap.Error(ordersErr))
	}
	lines, linesErr := meter.Int64Counter(
		"ordersim.line_items.generated",
		metric.WithDescription("Line items generated, by phase"),
	)
	if linesErr != nil {
		logger.Warn("unable to register line item counter", zap.Error(linesErr))
	}
	duration, durationErr := meter.Float64Histogram(
		"ordersim.run.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Duration in milliseconds of run phases"),
	)
	if durationErr != nil {
		logger.Warn("unable to register duration histogram", zap.Error(durationErr))
	}

	return &RunTelemetry{
		tracer:         cfg.tracerProvider.Tracer(instrumentationName),
		logger:         logger,
		clock:          cfg.clock,
		orders:         orders,
		ordersEnabled:  ordersErr == nil,
		lines:          lines,
		linesEnabled:   linesErr == nil,
		duration:       duration,
		durationEnable: durationErr == nil,
	}
}

// StartPhase opens the span "ordersim.<phase>". The returned function ends it, recording err on
// the span and the phase duration.
func (t *RunTelemetry) StartPhase(ctx context.Context, phase string) (context.Context, func(error)) {
	start := t.clock()
	ctx, span := t.tracer.Start(ctx, "ordersim."+phase, trace.WithAttributes(attribute.String("phase", phase)))
	return ctx, func(err error) {
		elapsed := t.clock().Sub(start)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if t.durationEnable {
			t.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), metric.WithAttributes(
				attribute.String("phase", phase),
				attribute.String("outcome", outcome),
			))
		}
		fields := []zap.Field{zap.String("phase", phase), zap.Duration("duration", elapsed), zap.String("outcome", outcome)}
		if err != nil {
			t.logger.Warn("phase failed", append(fields, zap.Error(err))...)
			return
		}
		t.logger.Debug("phase completed", fields...)
	}
}

// RecordOrders counts orders and line items attributed to origin.
func (t *RunTelemetry) RecordOrders(ctx context.Context, origin domain.OrderOrigin, orders, lineItems int) {
	attrs := metric.WithAttributes(attribute.String("phase", string(origin)))
	if t.ordersEnabled && orders > 0 {
		t.orders.Add(ctx, int64(orders), attrs)
	}
	if t.linesEnabled && lineItems > 0 {
		t.lines.Add(ctx, int64(lineItems), attrs)
	}
}

// TraceID returns the active trace identifier, or "" outside a sampled span.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
