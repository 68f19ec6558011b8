package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/infrastructure/modules/notify"
	"github.com/mediamate/mediamate/pkg/infrastructure/modules/recognize"
	"github.com/mediamate/mediamate/pkg/infrastructure/modules/rss"
	"github.com/mediamate/mediamate/pkg/infrastructure/modules/storage"
	"github.com/mediamate/mediamate/pkg/infrastructure/persistence/store"
	"github.com/mediamate/mediamate/pkg/service/actions"
	"github.com/mediamate/mediamate/pkg/service/chain"
	"github.com/mediamate/mediamate/pkg/service/config"
	"github.com/mediamate/mediamate/pkg/service/engine"
)

// app bundles the wired engine for the serve and run commands.
type app struct {
	store     *store.BoltStore
	modules   *chain.Registry
	actions   *actions.Registry
	executor  *engine.Executor
	scheduler *engine.Scheduler
	stops     *engine.StopController
	metrics   prometheus.Gatherer
	logger    zerolog.Logger
}

// newApp opens the store and wires the registries, bus, cache, engine and
// in-repo modules.
func newApp(cfg config.Config, logger zerolog.Logger) (*app, error) {
	st, err := store.NewBoltStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	modules := chain.NewRegistry(logger)
	for _, m := range []chain.Module{
		rss.New(logger),
		recognize.New(logger),
		storage.New(logger),
		notify.New(st, logger),
	} {
		if err := modules.Register(m); err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	actionRegistry := actions.NewRegistry()
	if err := actions.RegisterBuiltins(actionRegistry); err != nil {
		_ = st.Close()
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bus := chain.NewBus(modules, logger)
	cache := actions.NewCache(st, logger)
	services := chain.NewHelper(modules, st)
	stops := engine.NewStopController()
	metrics := engine.NewMetrics(promRegistry)
	executor := engine.NewExecutor(st, actionRegistry, bus, cache, services, stops, metrics, logger)
	scheduler := engine.NewScheduler(st, executor, stops, metrics, logger)

	return &app{
		store:     st,
		modules:   modules,
		actions:   actionRegistry,
		executor:  executor,
		scheduler: scheduler,
		stops:     stops,
		metrics:   promRegistry,
		logger:    logger,
	}, nil
}

// start brings the modules up.
func (a *app) start(ctx context.Context) {
	a.modules.Start(ctx)
}

// close stops the modules and the store.
func (a *app) close(ctx context.Context) {
	a.modules.Stop(ctx)
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("failed to close store")
	}
}
