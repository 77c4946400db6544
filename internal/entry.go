// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/spacetime/internal/api"
	"github.com/starford/spacetime/internal/graph"
	"github.com/starford/spacetime/internal/ingest"
	"github.com/starford/spacetime/internal/mcpserver"
	"github.com/starford/spacetime/internal/metrics"
	"github.com/starford/spacetime/internal/sse"
	"github.com/starford/spacetime/internal/storage"
	"github.com/starford/spacetime/internal/store"
)

// session is an open graph with its import directory.
type session struct {
	graph *graph.Model
	store *store.SQLite
	files *storage.FS
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openSession opens the store, seeds the vocabulary and prepares the import
// directory. The caller closes the returned session's graph.
func openSession(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...graph.Option) (*session, error) {
	if err := os.MkdirAll(cfg.Import.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create import dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Import.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	st, err := store.OpenSQLite(ctx, cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	opts = append([]graph.Option{
		graph.WithLogger(logger),
		graph.WithVocabulary(cfg.Arrows.Vocabulary()),
	}, opts...)
	g, err := graph.Open(ctx, st, opts...)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open graph: %w", err)
	}
	return &session{graph: g, store: st, files: files}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts...)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := newLogger(cfg, app.logOut)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("import_dir", cfg.Import.Dir),
		slog.Bool("import_watch", cfg.Import.Watch),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker receives every committed mutation.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	sess, err := openSession(ctx, cfg, logger, graph.WithObserver(func(ev graph.Event) {
		broker.PublishChange(string(ev.Kind), ev)
	}))
	if err != nil {
		return err
	}
	defer sess.graph.Close()

	// Apply the import directory before serving.
	if err := ingest.Sync(ctx, sess.graph, sess.store, sess.files, logger); err != nil {
		logger.Warn("initial import failed", slog.String("error", err.Error()))
	}

	imports := api.NewImportHandler(sess.graph, sess.files, sess.store)
	apiRouter := api.NewRouter(sess.graph, imports, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := sess.graph.Stats(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start import watcher with SSE callback.
	if cfg.Import.Watch {
		g.Go(func() error {
			err := ingest.Watch(gCtx, sess.graph, sess.store, sess.files, cfg.Import.Dir, logger, func(kind, path string) {
				broker.PublishChange("import."+kind, map[string]string{"path": path})
			})
			if err != nil {
				logger.Error("import watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		// Close the broker first so open SSE streams end and Shutdown can finish.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the graph as MCP tools on stdin/stdout. Logs go to stderr
// so they do not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts...)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := newLogger(cfg, app.logOut)

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sess.graph.Close()

	if err := ingest.Sync(ctx, sess.graph, sess.store, sess.files, logger); err != nil {
		logger.Warn("initial import failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(sess.graph, sess.files, sess.store).ServeStdio()
}

// RunImport applies the import directory once and exits.
func RunImport(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts...)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := newLogger(cfg, app.logOut)

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sess.graph.Close()

	if err := ingest.Sync(ctx, sess.graph, sess.store, sess.files, logger); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	stats, err := sess.graph.Stats(ctx)
	if err != nil {
		return err
	}
	logger.Info("Import finished",
		slog.Int("nodes", stats.Nodes),
		slog.Int("links", stats.Links),
		slog.Int("arrows", stats.Arrows),
		slog.Int("contexts", stats.Contexts))
	return nil
}
