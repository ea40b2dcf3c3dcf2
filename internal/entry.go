// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notecore/internal/index"
	"github.com/starford/notecore/internal/mcpserver"
	"github.com/starford/notecore/internal/notestore"
	"github.com/starford/notecore/internal/storage"
)

// NewLogger builds the structured JSON logger. It writes to stderr because
// stdout carries the MCP protocol.
func NewLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Services is an opened note store with its search index kept in step.
type Services struct {
	Store  *notestore.Store
	Index  *index.DB
	Logger *slog.Logger

	stopFollow func()
}

// Open loads the notes directory and brings the search index up to date.
func Open(cfg *Config, logger *slog.Logger) (*Services, error) {
	if err := os.MkdirAll(cfg.Notes.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Notes.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	store, err := notestore.New(files,
		notestore.WithBackupDir(cfg.Notes.BackupPath),
		notestore.WithTemplateTitle(cfg.Notes.TemplateTitle),
		notestore.WithAutoBullets(cfg.Editor.AutoBulletedLists),
		notestore.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store.Notes(), logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &Services{
		Store:      store,
		Index:      db,
		Logger:     logger,
		stopFollow: index.Follow(db, store.Bus(), store.FindByURI, logger),
	}, nil
}

// Close writes pending note changes and releases the index.
func (s *Services) Close() error {
	var saveErr error
	_ = s.Store.Exec(func() error {
		saveErr = s.Store.SaveAll()
		return nil
	})
	s.stopFollow()
	s.Store.Close()
	return errors.Join(saveErr, s.Index.Close())
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("notes_path", cfg.Notes.Path),
		slog.String("backup_path", cfg.Notes.BackupPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("watch", cfg.Notes.Watch),
		slog.Bool("mcp", cfg.MCP.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Shutdown error", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Notes loaded", slog.Int("count", svc.Store.Len()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	if cfg.Notes.Watch {
		g.Go(func() error {
			return svc.Store.Watch(gCtx, cfg.Notes.Path, func(kind, uri string) {
				logger.Info("Note changed on disk", slog.String("kind", kind), slog.String("uri", uri))
			})
		})
	}

	if cfg.MCP.Enabled {
		srv := mcpserver.New(svc.Store, svc.Index)
		g.Go(func() error {
			// The client going away ends the service.
			defer cancel()
			logger.Info("Starting MCP server on stdio")
			if err := srv.Listen(gCtx, app.stdin, app.stdout); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}
