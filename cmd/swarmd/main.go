// Command swarmd runs the agent orchestration runtime's HTTP service: the
// Workflow Service of spec §6 fronted by gin, wired against the full stack
// (Pool Maker, Orchestrator, Lifecycle Manager, Evolution Engine, Execution
// Limiter, Message Bus) and, when configured, Postgres and Redis.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/brindle-systems/swarm/pkg/analyzer"
	"github.com/brindle-systems/swarm/pkg/api"
	"github.com/brindle-systems/swarm/pkg/bus"
	"github.com/brindle-systems/swarm/pkg/cache"
	"github.com/brindle-systems/swarm/pkg/clock"
	"github.com/brindle-systems/swarm/pkg/config"
	"github.com/brindle-systems/swarm/pkg/evolution"
	"github.com/brindle-systems/swarm/pkg/lifecycle"
	"github.com/brindle-systems/swarm/pkg/limiter"
	"github.com/brindle-systems/swarm/pkg/orchestrator"
	"github.com/brindle-systems/swarm/pkg/poolmaker"
	"github.com/brindle-systems/swarm/pkg/service"
	"github.com/brindle-systems/swarm/pkg/store"
	"github.com/brindle-systems/swarm/pkg/version"
	"github.com/brindle-systems/swarm/pkg/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("swarmd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	st, closeStore, err := buildStore(settings, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cch, closeCache, err := buildCache(settings, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	templates, err := config.LoadTemplateRegistry(os.Getenv("TEMPLATE_CONFIG_PATH"))
	if err != nil {
		return err
	}

	var clk clock.System
	var idgen clock.UUIDGen

	b := bus.New(bus.Config{}, logger)
	defer b.Stop()

	lc := lifecycle.New(lifecycle.Config{}, clk, st, b, logger)
	defer lc.Stop()

	evo := evolution.New(clk, idgen, logger)

	lim := limiter.New(limiter.Config{}, logger)
	defer lim.Stop()
	breakers := limiter.NewRegistry(limiter.BreakerConfig{})

	factories := worker.NewRegistry()
	worker.RegisterDefaults(factories, templateIDs(templates))

	var llmClient worker.LLMClient = &worker.StubLLMClient{}
	an := analyzer.New(logger)
	pm := poolmaker.New(an, templates, factories, llmClient, idgen, logger)

	orch := orchestrator.New(orchestrator.Config{
		MaxExecutionTime: settings.LLMTimeoutSeconds,
	}, pm, templates, lc, evo, lim, breakers, b, st, cch, clk, idgen, logger)

	svc := service.New(service.Config{}, orch, templates, lc, b, clk, idgen, logger)

	srv := api.NewServer(svc, logger)

	addr := ":" + strconv.Itoa(settings.ServicePort)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", addr, "version", version.Full())
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// buildStore wires a Postgres-backed store when DATABASE_URL is set, falling
// back to the in-memory store for local/demo runs (spec §9: persistence is a
// pluggable collaborator, not a hard runtime dependency).
func buildStore(settings *config.Settings, logger *slog.Logger) (store.WorkflowStore, func(), error) {
	if settings.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		m := store.NewMemory()
		return m, func() { _ = m.Close() }, nil
	}
	pg, err := store.NewPostgres(context.Background(), settings.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, func() { _ = pg.Close() }, nil
}

// buildCache wires a Redis-backed cache when CACHE_URL is set, otherwise an
// in-memory cache (spec §9: same pluggability as the store).
func buildCache(settings *config.Settings, logger *slog.Logger) (cache.Cache, func(), error) {
	if settings.CacheURL == "" {
		logger.Warn("CACHE_URL not set, using in-memory cache")
		m := cache.NewMemory()
		return m, func() { _ = m.Close() }, nil
	}
	rd, err := cache.NewRedis(context.Background(), settings.CacheURL)
	if err != nil {
		return nil, nil, err
	}
	return rd, func() { _ = rd.Close() }, nil
}

func templateIDs(reg *config.TemplateRegistry) []string {
	var ids []string
	for _, t := range reg.All() {
		ids = append(ids, t.TemplateID)
	}
	return ids
}
