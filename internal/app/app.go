package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mend/internal/config"
	"mend/internal/engine"
	"mend/internal/healing"
	"mend/internal/mcpserver"
	"mend/internal/metrics"
	"mend/internal/strategy"
	"mend/pkg/logging"
)

// Application is the composition root: it owns the registry, coordinator,
// engine, and runner, and hands out the wired pieces to the commands.
type Application struct {
	mu  sync.RWMutex
	cfg *config.Config

	registry    *healing.Registry
	coordinator *healing.Coordinator
	runner      *engine.Runner
}

// New builds a fully wired application from the given config: it creates the
// coordinator, registers the built-in strategies with probes backed by the
// command engine, and prepares the suite runner.
func New(cfg *config.Config) (*Application, error) {
	registry := healing.NewRegistry()

	var sink healing.MetricsSink
	if cfg.Metrics.Enabled {
		sink = metrics.Sink{}
	}
	coordinator := healing.NewCoordinator(registry, sink)

	app := &Application{
		cfg:         cfg,
		registry:    registry,
		coordinator: coordinator,
	}
	app.runner = engine.NewRunner(engine.NewCommandEngine(), coordinator, cfg)

	if err := app.registerBuiltins(); err != nil {
		return nil, err
	}
	return app, nil
}

// registerBuiltins registers the built-in strategies. Probes resolve the
// runner at call time, not at registration, so a config reload that swaps
// the runner also redirects every strategy probe to the new suite.
func (a *Application) registerBuiltins() error {
	probe := func(ctx context.Context, failure healing.TestFailure) error {
		return a.currentRunner().Probe()(ctx, failure)
	}
	selectorProbe := func(ctx context.Context, failure healing.TestFailure, selector string) error {
		return a.currentRunner().SelectorProbe()(ctx, failure, selector)
	}

	builtins := []healing.Strategy{
		strategy.NewRetry(probe),
		strategy.NewBackoffAdjust(probe),
		strategy.NewSelectorUpdate(selectorProbe, a.cfg.Healing.SelectorAliasPath),
		strategy.NewWaitForElement(probe),
	}
	for _, s := range builtins {
		if err := a.registry.Register(s); err != nil {
			return fmt.Errorf("registering strategy %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Start initializes lifecycle-capable strategies and, when metrics are
// enabled, registers the aggregate healing gauges.
func (a *Application) Start(ctx context.Context) error {
	if err := a.registry.InitializeAll(ctx); err != nil {
		return fmt.Errorf("initializing strategies: %w", err)
	}
	if a.cfg.Metrics.Enabled {
		if err := metrics.RegisterStats(prometheus.DefaultRegisterer, a.coordinator.Stats); err != nil {
			return fmt.Errorf("registering healing gauges: %w", err)
		}
	}
	return nil
}

// Stop shuts lifecycle-capable strategies down.
func (a *Application) Stop(ctx context.Context) {
	a.registry.ShutdownAll(ctx)
}

// Coordinator returns the healing coordinator.
func (a *Application) Coordinator() *healing.Coordinator {
	return a.coordinator
}

// Config returns the currently active config.
func (a *Application) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// RunSuite executes the configured test suite once.
func (a *Application) RunSuite(ctx context.Context) ([]engine.TestReport, error) {
	return a.currentRunner().Run(ctx)
}

func (a *Application) currentRunner() *engine.Runner {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runner
}

// ApplyConfig swaps the active config, rebuilding the runner so new healing
// policy and suite definitions take effect for subsequent runs. The strategy
// registry is left untouched.
func (a *Application) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.runner = engine.NewRunner(engine.NewCommandEngine(), a.coordinator, cfg)
	logging.Info("App", "Applied updated configuration (%d tests, healing enabled=%v)",
		len(cfg.Suite.Tests), cfg.Healing.Enabled)
}

// MCPServer builds the MCP stdio server bound to this application's
// coordinator. Healing policy is read per call so config reloads apply to
// the running server.
func (a *Application) MCPServer(version string) *mcpserver.Server {
	return mcpserver.NewServer(a.coordinator, a.healingPolicy, version)
}

// healingPolicy snapshots the active healing config and context.
func (a *Application) healingPolicy() (healing.Config, healing.Context) {
	cfg := a.Config()
	return cfg.Healing.ToHealing(), healing.Context{
		UserPreferences: healing.UserPreferences{
			PreferredStrategies: cfg.Preferences.PreferredStrategies,
			RiskTolerance:       healing.RiskTolerance(cfg.Preferences.RiskTolerance),
		},
		AvailableStrategies: cfg.Healing.Strategies,
	}
}
