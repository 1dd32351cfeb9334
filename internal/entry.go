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
	"golang.org/x/sync/errgroup"

	"github.com/starford/blocknote/internal/api"
	"github.com/starford/blocknote/internal/attachments"
	"github.com/starford/blocknote/internal/noteservice"
	"github.com/starford/blocknote/internal/sse"
	"github.com/starford/blocknote/internal/storage"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("attachments_backend", cfg.Attachments.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := openDB(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := openAttachments(ctx, cfg.Attachments)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := noteservice.NewService(db, broker, logger)
	apiRouter := api.NewRouter(svc, files, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	r.Mount("/attachments", api.NewAttachmentRouter(files))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Attachment watcher: uploads and removals made outside the API show up as SSE events.
	if cfg.Attachments.Backend == BackendFS {
		g.Go(func() error {
			if err := attachments.Watch(gCtx, cfg.Attachments.Path, logger, broker.PublishAttachmentEvent); err != nil {
				logger.Warn("attachment watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Orphaned attachment cleanup.
	if schedule := cfg.Attachments.Janitor.Schedule; schedule != "" {
		var onDelete func(string)
		if cfg.Attachments.Backend != BackendFS {
			// The FS watcher already reports deletions.
			onDelete = func(name string) { broker.PublishAttachmentEvent("deleted", name) }
		}
		janitor := attachments.NewJanitor(files, svc, cfg.Attachments.Janitor.Grace, logger, onDelete)
		g.Go(func() error {
			return janitor.Run(gCtx, schedule)
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
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stops the watcher and janitor.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

func openDB(path string) (*storage.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return db, nil
}

func openAttachments(ctx context.Context, cfg AttachmentsConfig) (attachments.Provider, error) {
	switch cfg.Backend {
	case BackendS3:
		files, err := attachments.NewS3(ctx, cfg.S3.Attachments())
		if err != nil {
			return nil, fmt.Errorf("init attachments: %w", err)
		}
		return files, nil
	default:
		files, err := attachments.NewFS(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("init attachments: %w", err)
		}
		return files, nil
	}
}
