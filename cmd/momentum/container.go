package main

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do"
	"go.uber.org/zap"

	"momentum/internal/config"
	"momentum/internal/core"
	"momentum/internal/infra/logging"
)

// gatewayHandle owns the backend connection so the injector can close it.
type gatewayHandle struct {
	gateway core.Gateway
	closer  io.Closer
}

func (h *gatewayHandle) Shutdown() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

// serviceHandle releases guard timers on shutdown.
type serviceHandle struct {
	svc *core.Service
}

func (h *serviceHandle) Shutdown() error {
	h.svc.Close()
	return nil
}

type loggerHandle struct {
	logger *zap.Logger
}

func (h *loggerHandle) Shutdown() error {
	_ = h.logger.Sync()
	return nil
}

// openedService names the provider that builds the service through
// core.Open, so the link map is reconciled before any command runs.
const openedService = "opened"

// buildContainer wires config, logging, metrics, audit and storage. A non-nil
// trace writer receives one JSON span per service operation.
func buildContainer(ctx context.Context, configPath string, trace io.Writer) *do.Injector {
	inj := do.New()

	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.LoadFrom(configPath)
	})

	do.Provide(inj, func(i *do.Injector) (*loggerHandle, error) {
		cfg := do.MustInvoke[*config.Config](i)
		l, err := logging.New(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		return &loggerHandle{logger: l}, nil
	})

	do.Provide(inj, func(i *do.Injector) (*prometheus.Registry, error) {
		return prometheus.NewRegistry(), nil
	})

	do.Provide(inj, func(i *do.Injector) (*core.PrometheusMetricsRecorder, error) {
		return core.NewPrometheusMetricsRecorder(do.MustInvoke[*prometheus.Registry](i))
	})

	do.Provide(inj, func(i *do.Injector) (*gatewayHandle, error) {
		cfg := do.MustInvoke[*config.Config](i)
		gw, closer, err := core.OpenGateway(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		return &gatewayHandle{gateway: gw, closer: closer}, nil
	})

	do.Provide(inj, func(i *do.Injector) (*logging.AuditRecorder, error) {
		lh, err := do.Invoke[*loggerHandle](i)
		if err != nil {
			return nil, err
		}
		return logging.NewAuditRecorder(lh.logger), nil
	})

	do.Provide(inj, func(i *do.Injector) (*serviceHandle, error) {
		gw, opts, err := serviceDeps(i, trace)
		if err != nil {
			return nil, err
		}
		return &serviceHandle{svc: core.NewService(gw, opts...)}, nil
	})

	do.ProvideNamed(inj, openedService, func(i *do.Injector) (*serviceHandle, error) {
		gw, opts, err := serviceDeps(i, trace)
		if err != nil {
			return nil, err
		}
		svc, err := core.Open(ctx, gw, opts...)
		if err != nil {
			if svc != nil {
				svc.Close()
			}
			return nil, err
		}
		return &serviceHandle{svc: svc}, nil
	})

	return inj
}

func serviceDeps(i *do.Injector, trace io.Writer) (core.Gateway, []core.ServiceOption, error) {
	cfg := do.MustInvoke[*config.Config](i)
	gw, err := do.Invoke[*gatewayHandle](i)
	if err != nil {
		return nil, nil, err
	}
	lh, err := do.Invoke[*loggerHandle](i)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := do.Invoke[*core.PrometheusMetricsRecorder](i)
	if err != nil {
		return nil, nil, err
	}
	audit, err := do.Invoke[*logging.AuditRecorder](i)
	if err != nil {
		return nil, nil, err
	}
	opts := []core.ServiceOption{
		core.WithLogger(logging.NewAdapter(lh.logger)),
		core.WithMetricsRecorder(metrics),
		core.WithAuditRecorder(audit),
		core.WithLimits(core.LimitsForTier(cfg.Limits.Tier)),
		core.WithCooldown(cfg.Guard.Cooldown),
		core.WithDebounceWindow(cfg.Progress.Debounce),
	}
	if trace != nil {
		opts = append(opts, core.WithTracer(core.NewSpanWriter(trace, nil)))
	}
	return gw.gateway, opts, nil
}
