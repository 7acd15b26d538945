package core

import (
	"context"
	"time"

	"deckhistory/internal/blob"
	"deckhistory/internal/commandtext"
	"deckhistory/pkg/domain"
)

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type nopMetrics struct{}

func (nopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// NopMetrics returns a MetricsRecorder that discards observations.
func NopMetrics() MetricsRecorder { return nopMetrics{} }

type nopTracer struct{}

type nopSpan struct{}

func (nopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, nopSpan{}
}

func (nopSpan) End(error) {}

// NopTracer returns a Tracer whose spans record nothing.
func NopTracer() Tracer { return nopTracer{} }

type serviceOptions struct {
	clock          Clock
	logger         domain.Logger
	metrics        MetricsRecorder
	tracer         Tracer
	engine         *domain.RulesEngine
	blobs          blob.Store
	translator     commandtext.Translator
	maxStackHeight int
}

// ServiceOption customises service construction.
type ServiceOption func(*serviceOptions)

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  domain.NopLogger(),
		metrics: NopMetrics(),
		tracer:  NopTracer(),
	}
}

// WithClock overrides the service clock.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger shared by the service and its resolvers.
func WithLogger(logger domain.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithRulesEngine replaces the default rules engine.
func WithRulesEngine(engine *domain.RulesEngine) ServiceOption {
	return func(o *serviceOptions) { o.engine = engine }
}

// WithBlobStore sets the artifact store analyses are imported from.
func WithBlobStore(store blob.Store) ServiceOption {
	return func(o *serviceOptions) { o.blobs = store }
}

// WithTranslator replaces the English command text catalog.
func WithTranslator(t commandtext.Translator) ServiceOption {
	return func(o *serviceOptions) { o.translator = t }
}

// WithMaxStackHeight overrides the stack walk cap.
func WithMaxStackHeight(n int) ServiceOption {
	return func(o *serviceOptions) { o.maxStackHeight = n }
}
