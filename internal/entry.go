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
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/hexokit/internal/api"
	"github.com/starford/hexokit/internal/clipboard"
	"github.com/starford/hexokit/internal/convert"
	"github.com/starford/hexokit/internal/diagram"
	"github.com/starford/hexokit/internal/history"
	"github.com/starford/hexokit/internal/imageservice"
	"github.com/starford/hexokit/internal/mcpserver"
	"github.com/starford/hexokit/internal/models"
	"github.com/starford/hexokit/internal/report"
	"github.com/starford/hexokit/internal/session"
	"github.com/starford/hexokit/internal/sse"
	"github.com/starford/hexokit/internal/storage"
	"github.com/starford/hexokit/internal/vault"
	"github.com/starford/hexokit/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// components is everything a conversion needs, wired from the config.
type components struct {
	store   *storage.FS
	export  *storage.FS
	db      history.Store
	session *session.Session
}

func (c *components) Close() error {
	return c.db.Close()
}

// build wires storage, history, the engine and the session.
// notify, when non-nil, receives every session status change.
func build(cfg *Config, logger *slog.Logger, clip clipboard.Writer, notify func(*models.Run)) (*components, error) {
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := history.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	docs := vault.New(store)
	services := imageservice.New(cfg.ImageServices, imageservice.WithBinaryReader(docs))
	logger.Debug("image services configured", slog.Any("services", services.Names()))
	engine := convert.NewEngine(docs,
		convert.WithImageServices(services),
		convert.WithDiagramExporter(diagram.NewSidecarExporter(docs)),
		convert.WithSlugifier(cfg.Hexo.Renderer),
		convert.WithFrontMatterProperties(cfg.Hexo.Properties()),
		convert.WithLogger(logger),
	)

	opts := []session.Option{
		session.WithRecorder(db),
		session.WithLogger(logger),
	}
	if clip != nil {
		opts = append(opts, session.WithClipboard(clip))
	}
	if notify != nil {
		opts = append(opts, session.WithNotify(notify))
	}

	c := &components{store: store, db: db}
	if cfg.Export.Dir != "" {
		if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
			db.Close()
			return nil, fmt.Errorf("create export dir: %w", err)
		}
		if c.export, err = storage.NewFS(cfg.Export.Dir); err != nil {
			db.Close()
			return nil, fmt.Errorf("init export: %w", err)
		}
		opts = append(opts, session.WithExporter(c.export))
	}

	c.session = session.New(docs, engine, opts...)
	c.session.Ready()
	return c, nil
}

// exportSkip returns the export directory relative to the vault when it
// lives inside it, so the watcher ignores its own output.
func (c *components) exportSkip() []string {
	if c.export == nil {
		return nil
	}
	rel, err := filepath.Rel(c.store.Root(), c.export.Root())
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	return []string{rel}
}

// cliLogger logs to stderr so stdout stays free for reports and MCP frames.
func cliLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("renderer", string(cfg.Hexo.Renderer)),
		slog.Int("image_services", len(cfg.ImageServices)),
		slog.String("export_dir", cfg.Export.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	var clip clipboard.Writer
	if cfg.Clipboard.Enabled {
		sys := clipboard.Detect(nil)
		if len(sys.Command()) == 0 {
			logger.Warn("no clipboard command found, copies will fail")
		}
		clip = sys
	}
	c, err := build(cfg, logger, clip, broker.PublishRun)
	if err != nil {
		return err
	}
	defer c.Close()

	// Build API service and router.
	svc := &api.Service{
		Converter: c.session,
		History:   c.db,
		Notes:     c.store,
		ExportDir: cfg.Export.Dir,
	}
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		st, _ := c.session.Status()
		if st == models.RunInit {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"starting"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-convert edited notes into the export directory.
	if cfg.Export.Watch && c.export != nil {
		w := watch.New(c.store, c.session,
			watch.WithExport(c.export),
			watch.WithSkip(c.exportSkip()...),
			watch.WithLogger(logger),
			watch.WithCallback(func(kind, path string) {
				logger.Info("watcher: "+kind, slog.String("path", path))
			}),
		)
		g.Go(func() error {
			n, err := w.Sync(gCtx, c.db)
			if err != nil {
				logger.Warn("initial sync failed", slog.String("error", err.Error()))
			} else {
				logger.Info("initial sync done", slog.Int("converted", n))
			}
			return w.Run(gCtx)
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

// errShutdown stops the other goroutines of the group once the server is down.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := cliLogger(app.config)
	slog.SetDefault(logger)

	c, err := build(app.config, logger, nil, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("vault_path", app.config.Vault.Path))
	return mcpserver.New(c.session, c.db, c.store).ServeStdio()
}

// ConvertOptions tune a one-shot conversion.
type ConvertOptions struct {
	// Print writes the converted content instead of the report.
	Print bool
}

// Convert converts one note and prints the report. The returned run is
// nil only when the conversion was rejected.
func Convert(ctx context.Context, path string, co ConvertOptions, opts ...Option) (*models.Run, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config
	logger := cliLogger(cfg)

	var clip clipboard.Writer
	if cfg.Clipboard.Enabled {
		clip = clipboard.Detect(os.Stderr)
	}
	c, err := build(cfg, logger, clip, nil)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	run, err := c.session.Convert(ctx, filepath.ToSlash(path))
	if err != nil {
		return nil, err
	}
	if co.Print {
		_, err = io.WriteString(app.out, run.Content)
		return run, err
	}
	return run, report.Run(app.out, run)
}

// Last prints the most recent stored conversion.
func Last(ctx context.Context, printContent bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	db, err := history.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	defer db.Close()

	run, err := db.LastRun()
	if err != nil {
		return fmt.Errorf("last conversion: %w", err)
	}
	if printContent {
		_, err = io.WriteString(app.out, run.Content)
		return err
	}
	return report.Run(app.out, run)
}

// History prints stored conversions, newest first.
func History(ctx context.Context, limit int, path string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	db, err := history.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	defer db.Close()

	runs, total, err := db.ListRuns(limit, 0, path)
	if err != nil {
		return err
	}
	return report.History(app.out, runs, total)
}
