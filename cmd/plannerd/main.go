// Plannerd is the calendar reconciliation and scheduling-suggestion daemon.
//
// It merges tasks, calendar entries, and health breaks into a unified
// timeline, generates AI scheduling suggestions, and serves everything
// over HTTP.
//
// Configuration is loaded from ~/.config/plannerd/config.yaml and
// PLANNERD_* environment variables.
//
// Usage:
//
//	# Start the daemon with defaults
//	plannerd
//
//	# Custom config file
//	plannerd -config /etc/plannerd/config.yaml
//
//	# Configure via environment
//	PLANNERD_SERVER_PORT=9280 plannerd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/plannerd/internal/breaks"
	"github.com/fyrsmithlabs/plannerd/internal/config"
	"github.com/fyrsmithlabs/plannerd/internal/httpapi"
	"github.com/fyrsmithlabs/plannerd/internal/logging"
	"github.com/fyrsmithlabs/plannerd/internal/scheduler"
	"github.com/fyrsmithlabs/plannerd/internal/store"
	"github.com/fyrsmithlabs/plannerd/internal/suggest"
	"github.com/fyrsmithlabs/plannerd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/plannerd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  plannerd           Start the plannerd daemon\n")
			fmt.Fprintf(os.Stderr, "  plannerd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("plannerd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the plannerd server and blocks until the context is
// cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Build logger and telemetry
//  3. Open SQLite storage, connect NATS when enabled
//  4. Wire break generator, suggestion engine, scheduler service
//  5. Start HTTP server and config watcher
//  6. Graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting plannerd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Path),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	tel, err := telemetry.New(ctx, cfg.Observability, logger)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	db, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	var nc *nats.Conn
	if cfg.NATS.Enabled {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			return fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		defer nc.Close()
		logger.Info("connected to NATS", zap.String("url", cfg.NATS.URL))
	}

	gen, err := breaks.NewGenerator(cfg.Breaks, logger)
	if err != nil {
		return fmt.Errorf("initialize break generator: %w", err)
	}

	engine := suggest.NewEngine(cfg.Suggest, logger)

	svc, err := scheduler.NewService(
		scheduler.Config{},
		db.Tasks(), db.Schedules(), db.Pencils(),
		gen, engine,
		scheduler.ContextIdentity{},
		nc,
		logger,
	)
	if err != nil {
		return fmt.Errorf("initialize scheduler service: %w", err)
	}

	srv, err := httpapi.NewServer(svc, db.Tasks(), db.Schedules(), logger, &httpapi.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		Token:     cfg.Auth.Token,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("initialize http server: %w", err)
	}

	// Hot-reload break preferences on config file changes. Watcher
	// failures are not fatal; the daemon runs with the startup config.
	if watcher, werr := config.NewWatcher(configPath, logger); werr != nil {
		logger.Warn("config watcher disabled", zap.Error(werr))
	} else if werr := watcher.Start(ctx); werr != nil {
		logger.Warn("config watcher disabled", zap.Error(werr))
		watcher.Stop()
	} else {
		defer watcher.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case newCfg, ok := <-watcher.Reloads():
					if !ok {
						return
					}
					if err := gen.SetPreferences(newCfg.Breaks); err != nil {
						logger.Warn("rejected reloaded break preferences", zap.Error(err))
						continue
					}
					logger.Info("break preferences updated")
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
