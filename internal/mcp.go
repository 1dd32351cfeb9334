package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/blocknote/internal/attachments"
	"github.com/starford/blocknote/internal/editor"
	"github.com/starford/blocknote/internal/mcpserver"
	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/storage"
	"github.com/starford/blocknote/internal/syncer"
)

type mcpStore interface {
	storage.Provider
	mcpserver.Directory
}

// RunMCP serves an editor session over MCP on stdin/stdout. Notes are read
// and saved through the local database, or through a blocknote server when
// WithRemote is given. Pending edits are flushed before returning.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// stdout carries the protocol.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	var (
		store mcpStore
		files attachments.Provider
	)
	if app.remote.baseURL != "" {
		store = storage.NewRemote(app.remote.baseURL, app.remote.token, nil)
		logger.Info("MCP editing remote notes", slog.String("server", app.remote.baseURL))
	} else {
		db, err := openDB(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db

		files, err = openAttachments(ctx, cfg.Attachments)
		if err != nil {
			return err
		}
		logger.Info("MCP editing local notes", slog.String("sqlite_path", cfg.SQLite.Path))
	}

	sync := cfg.Editor.Sync()
	sync.Logger = logger
	sync.Notifier = syncer.NotifierFunc(func(kind string, n models.Note) {
		logger.Info("note list changed", slog.String("kind", kind), slog.String("note_id", n.ID))
	})
	session := editor.NewSession(store, editor.SessionConfig{
		Sync:      sync,
		Confirmer: mcpserver.Confirmer(),
		Logger:    logger,
	})
	defer session.Close()

	srv := mcpserver.New(session, store, files, logger)
	logger.Info("Starting MCP stdio server")
	serveErr := srv.ServeStdio()

	if ctrl := session.Controller(); ctrl != nil && ctrl.Dirty() {
		if err := session.Save(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("flush pending edits failed", slog.String("error", err.Error()))
		}
	}
	if serveErr != nil {
		return fmt.Errorf("MCP server error: %w", serveErr)
	}
	return nil
}
