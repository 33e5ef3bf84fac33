package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftplan/internal/calories"
	"github.com/claude/liftplan/internal/catalog"
	"github.com/claude/liftplan/internal/config"
	"github.com/claude/liftplan/internal/mcp"
	"github.com/claude/liftplan/internal/remote"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "LiftPlan server URL; tools call its REST API")
	apiKey := flag.String("api-key", os.Getenv("LIFTPLAN_AUTH_API_KEY"), "API key for -server (defaults to $LIFTPLAN_AUTH_API_KEY)")
	configPath := flag.String("config", "config.yaml", "config file used when -server is not set")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftplan-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var (
		ds        mcp.DataSource
		expander  = schedule.DefaultExpander()
		estimator = calories.Default()
	)

	if *serverURL != "" {
		ds = remote.New(*serverURL, *apiKey)
		log.Info("using remote data source", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		store, closeStore, err := storage.Open(context.Background(), cfg.Database.Driver, cfg.Database.DSN(), cfg.Database.Path)
		if err != nil {
			log.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
			os.Exit(1)
		}
		defer closeStore()

		cat := catalog.Default()
		if cfg.Catalog.Path != "" {
			if cat, err = catalog.Load(cfg.Catalog.Path); err != nil {
				log.Error("failed to load exercise catalog", "path", cfg.Catalog.Path, "error", err)
				os.Exit(1)
			}
		}
		if expander, err = cfg.Schedule.Expander(); err != nil {
			log.Error("invalid schedule config", "error", err)
			os.Exit(1)
		}
		estimator = cfg.Calories.Estimator()

		scheduler := schedule.NewScheduler(store, expander, schedule.Instantiator{Salt: cfg.Schedule.Salt}, cfg.Schedule.SaveConcurrency, log)
		ds = mcp.Local{Store: store, Catalog: cat, Scheduler: scheduler}
		log.Info("using local data source", "driver", cfg.Database.Driver)
	}

	s := mcp.New(ds, expander, estimator, Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
