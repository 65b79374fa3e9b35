// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lorekeep/internal/api"
	"github.com/starford/lorekeep/internal/graphservice"
	"github.com/starford/lorekeep/internal/index"
	"github.com/starford/lorekeep/internal/mcpserver"
	"github.com/starford/lorekeep/internal/sse"
	"github.com/starford/lorekeep/internal/storage"
)

// runtime holds the components shared by the HTTP and MCP entrypoints.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	db     *index.DB
	svc    *graphservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// bootstrap opens storage and the index and loads the registry. events may
// be nil.
func bootstrap(ctx context.Context, app *application, events graphservice.Publisher) (*runtime, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("registry_file", cfg.Data.RegistryFile),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("node_budget", cfg.Drilldown.NodeBudget),
		slog.Int("max_depth", cfg.Drilldown.MaxDepth),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the directory holding the registry exists so it can be watched.
	if err := os.MkdirAll(filepath.Dir(cfg.Data.RegistryPath()), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := graphservice.New(store, db, events, logger, graphservice.Options{
		RegistryFile: cfg.Data.RegistryFile,
		SnapshotDir:  cfg.Data.SnapshotDir,
		HistoryDepth: cfg.History.Depth,
		Drilldown:    cfg.Drilldown.Options(),
	})
	if err := svc.Load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger, db: db, svc: svc}, nil
}

// watch reloads the registry whenever its file is changed by another writer.
func (rt *runtime) watch(ctx context.Context) error {
	err := index.Watch(ctx, rt.cfg.Data.RegistryPath(), index.DefaultDebounce, rt.logger, rt.svc.ReloadFromDisk)
	if err != nil {
		rt.logger.Warn("watcher stopped", slog.String("error", err.Error()))
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.GraphThrottle)
	defer broker.Close()

	rt, err := bootstrap(ctx, app, broker)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	logger := rt.logger

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","entities":%d,"etag":%q}`, rt.svc.Registry().Len(), rt.svc.ETag())
	})
	r.Handle("/metrics", promhttp.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the registry on external edits.
	g.Go(func() error {
		return rt.watch(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been asked to stop, so
// the watcher exits with it.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until stdin closes or ctx ends.
// External edits to the registry file are picked up by the watcher.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := bootstrap(ctx, app, nil)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)

	g.Go(func() error {
		return rt.watch(watchCtx)
	})
	g.Go(func() error {
		defer stopWatch()
		rt.logger.Info("MCP server starting on stdio")
		return mcpserver.New(rt.svc).ServeStdio()
	})
	return g.Wait()
}
