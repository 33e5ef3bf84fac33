package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/liftplan/internal/catalog"
	"github.com/claude/liftplan/internal/clock"
	"github.com/claude/liftplan/internal/config"
	"github.com/claude/liftplan/internal/ingest/alpha"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/server"
	"github.com/claude/liftplan/internal/session"
	"github.com/claude/liftplan/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("LiftPlan starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	// Run migrations (postgres only; sqlite creates its schema on open)
	if cfg.Database.Driver == config.DriverPostgres {
		version, err := storage.Migrate(cfg.Database.DSN(), cfg.Database.Migrations)
		if err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied", "version", version)
	}
	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Open store
	ctx := context.Background()
	store, closeStore, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN(), cfg.Database.Path)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	log.Info("store opened", "driver", cfg.Database.Driver)

	// Exercise catalog
	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			log.Error("failed to load exercise catalog", "path", cfg.Catalog.Path, "error", err)
			os.Exit(1)
		}
	}
	log.Info("exercise catalog loaded", "exercises", cat.Len())

	// Scheduling and sessions
	expander, err := cfg.Schedule.Expander()
	if err != nil {
		log.Error("invalid schedule config", "error", err)
		os.Exit(1)
	}
	estimator := cfg.Calories.Estimator()
	scheduler := schedule.NewScheduler(store, expander, schedule.Instantiator{Salt: cfg.Schedule.Salt}, cfg.Schedule.SaveConcurrency, log)
	sessions := session.NewManager(store, session.Machine{Estimator: estimator}, clock.Real{}, log)
	defer sessions.Shutdown()

	// Create server
	srv := server.New(server.Deps{
		Store:     store,
		Scheduler: scheduler,
		Sessions:  sessions,
		Catalog:   cat,
		Estimator: estimator,
		Importer:  alpha.NewImporter(store, cat, log),
	}, cfg.Auth.APIKey, log)

	listener, closeListener, err := listen(cfg, srv, log)
	if err != nil {
		log.Error("listen failed", "error", err)
		os.Exit(1)
	}
	defer closeListener()

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// listen opens the tailnet listener when tailscale is enabled, otherwise a
// plain TCP listener on server.host:port. Behind tsnet the server resolves
// request identity from the tailnet peer.
func listen(cfg *config.Config, srv *server.Server, log *slog.Logger) (net.Listener, func(), error) {
	if !cfg.Tailscale.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("listening on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
		return ln, func() {}, nil
	}

	ts := &tsnet.Server{
		Hostname: cfg.Tailscale.Hostname,
		Dir:      cfg.Tailscale.StateDir,
	}
	if err := ts.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting tsnet: %w", err)
	}
	lc, err := ts.LocalClient()
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet local client: %w", err)
	}
	srv.SetTailscale(lc)

	ln, err := ts.Listen("tcp", ":80")
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet listen: %w", err)
	}
	log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	return ln, func() { ts.Close() }, nil
}
