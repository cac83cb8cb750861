package cli

import (
	"context"
	"errors"
	"expvar"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tirecore/internal/blob"
	"tirecore/internal/catalog"
	"tirecore/internal/config"
	"tirecore/internal/core"
	"tirecore/internal/platform/logging"
	"tirecore/internal/platform/otel"
)

// Runtime is the wired service graph a command runs against.
type Runtime struct {
	Config  config.Config
	Service *core.Service
	Logger  core.Logger
	Metrics http.Handler

	archive  blob.Store
	closers  []func(context.Context) error
	openBlob func(context.Context) (blob.Store, error)
}

// Archive opens the result archive on first use.
func (r *Runtime) Archive(ctx context.Context) (blob.Store, error) {
	if r.archive != nil {
		return r.archive, nil
	}
	if r.openBlob == nil {
		return nil, errors.New("result archive not configured")
	}
	store, err := r.openBlob(ctx)
	if err != nil {
		return nil, err
	}
	r.archive = store
	return store, nil
}

// Close releases storage, tracing and logging resources in reverse order.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i](ctx))
	}
	r.closers = nil
	return errors.Join(errs...)
}

// NewRuntime wires a runtime around an existing service, mainly for tests.
func NewRuntime(svc *core.Service, archive blob.Store) *Runtime {
	return &Runtime{Service: svc, Logger: logging.NewAdapter(nil), archive: archive}
}

// OpenRuntime builds the service graph described by cfg.
func OpenRuntime(ctx context.Context, cfg config.Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg}

	zl, err := logging.New(cfg.LogLevel)
	if err != nil {
		return rt.abort(ctx, err)
	}
	rt.closers = append(rt.closers, func(context.Context) error {
		_ = zl.Sync()
		return nil
	})
	rt.Logger = logging.NewAdapter(zl)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return rt.abort(ctx, err)
	}
	opts := []core.ServiceOption{
		core.WithLogger(rt.Logger),
		core.WithCatalog(cat),
		core.WithOperationRecorder(core.LogOperationRecorder{Logger: rt.Logger}),
	}

	switch cfg.Metrics {
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return rt.abort(ctx, err)
		}
		opts = append(opts, core.WithMetricsRecorder(rec))
		rt.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	case config.MetricsExpvar:
		opts = append(opts, core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")))
		rt.Metrics = expvar.Handler()
	}

	tp, shutdown, err := otel.Setup(ctx, "tirecore", cfg.OTLPEndpoint)
	if err != nil {
		return rt.abort(ctx, err)
	}
	rt.closers = append(rt.closers, shutdown)
	if tp != nil {
		opts = append(opts, core.WithTracer(core.NewOTelTracer(tp)))
	}

	store, err := core.OpenPersistentStore(ctx, cfg.CoreStorage(), nil)
	if err != nil {
		return rt.abort(ctx, err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return core.CloseStore(store) })
	rt.Service = core.NewService(store, opts...)

	blobCfg := cfg.BlobStore()
	rt.openBlob = func(ctx context.Context) (blob.Store, error) { return blob.Open(ctx, blobCfg) }

	if cfg.SeedDemo {
		if _, err := rt.Service.SeedDemo(ctx); err != nil {
			return rt.abort(ctx, err)
		}
	}
	zl.Debug("runtime ready",
		zap.String("storage", string(cfg.CoreStorage().Driver)),
		zap.String("metrics", cfg.Metrics),
		zap.Bool("tracing", tp != nil))
	return rt, nil
}

func (r *Runtime) abort(ctx context.Context, err error) (*Runtime, error) {
	_ = r.Close(ctx)
	return nil, err
}
