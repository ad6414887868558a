package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLogLevel = "info"

type loggerKey struct{}

// NewLogger constructs a production-ready zap logger emitting structured JSON. An empty level
// falls back to LOG_LEVEL and then to info.
func NewLogger(level string) (*zap.Logger, error) {
	return buildLogger(level, []string{"stderr"})
}

func buildLogger(level string, outputs []string) (*zap.Logger, error) {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	atomic := zap.NewAtomicLevel()
	if err := atomic.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		_ = atomic.UnmarshalText([]byte(defaultLogLevel))
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		NameKey:    "logger",
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(level.String()))
		},
		EncodeDuration: zapcore.MillisDurationEncoder,
		CallerKey:      "caller",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		StacktraceKey:  "stacktrace",
	}

	cfg := zap.Config{
		Level:             atomic,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     false,
		DisableStacktrace: true,
	}

	return cfg.Build()
}

// WithLogger injects the logger into the provided context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves the logger from context, defaulting to a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

// warnEvents are service events that indicate degraded output rather than progress.
var warnEvents = map[string]bool{
	"holiday_calendar_unavailable":   true,
	"customer_pool_defaulted":        true,
	"discount_table_defaulted":       true,
	"discount_table_sum_warning":     true,
	"corrector_day_floor_infeasible": true,
	"order_pricing_discount_clamped": true,
	"sampling_uniform_fallback":      true,
	"smoothing_zeroed_excessive":     true,
}

// ServiceLogger adapts zap to the event hook accepted by the service layer. Fields are emitted in
// key order so output is stable.
func ServiceLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		zfields := make([]zap.Field, 0, len(fields)+1)
		zfields = append(zfields, zap.String("event", event))
		for _, key := range sortedKeys(fields) {
			zfields = append(zfields, zap.Any(key, fields[key]))
		}
		if traceID := TraceID(ctx); traceID != "" {
			zfields = append(zfields, zap.String("trace_id", traceID))
		}
		if warnEvents[event] {
			logger.Warn(event, zfields...)
			return
		}
		logger.Info(event, zfields...)
	}
}
