package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tirecore/internal/catalog"
)

// Logger is the structured logger consumed by the service. Arguments are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies wall-clock time to the service and its store.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// OperationStatus is the outcome recorded for a service operation.
type OperationStatus string

// Operation outcomes.
const (
	OperationSuccess OperationStatus = "success"
	OperationError   OperationStatus = "error"
)

// OperationEntry is one record in the operation log. It is unrelated to the
// cancellation audit trail, which is derived from ledger state.
type OperationEntry struct {
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  string
	Status    OperationStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// OperationRecorder receives an entry for every mutating operation.
type OperationRecorder interface {
	Record(ctx context.Context, entry OperationEntry)
}

// MetricsRecorder observes operation latency and outcome.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopOperationRecorder struct{}

func (noopOperationRecorder) Record(context.Context, OperationEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock    Clock
	logger   Logger
	recorder OperationRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	catalog  catalog.Catalog
	batchID  func() string
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:    ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:   noopLogger{},
		recorder: noopOperationRecorder{},
		metrics:  noopMetricsRecorder{},
		tracer:   noopTracer{},
		catalog:  catalog.Default(),
		batchID:  uuid.NewString,
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOperationRecorder sets the operation log sink.
func WithOperationRecorder(recorder OperationRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.recorder = recorder
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(metrics MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithCatalog replaces the built-in spec matrix.
func WithCatalog(c catalog.Catalog) ServiceOption {
	return func(o *serviceOptions) {
		o.catalog = c
	}
}

// WithBatchIDGenerator overrides how ingestion batch ids are minted.
func WithBatchIDGenerator(fn func() string) ServiceOption {
	return func(o *serviceOptions) {
		if fn != nil {
			o.batchID = fn
		}
	}
}
