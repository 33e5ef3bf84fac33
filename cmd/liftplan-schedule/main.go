package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/claude/liftplan/internal/config"
	"github.com/claude/liftplan/internal/remote"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/storage"
	"github.com/google/uuid"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "LiftPlan server URL (e.g. https://liftplan.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("LIFTPLAN_AUTH_API_KEY"), "API key for -server (defaults to $LIFTPLAN_AUTH_API_KEY)")
	configPath := flag.String("config", "", "schedule straight into the store from this config file instead of a server")
	templateID := flag.String("template", "", "template workout ID")
	start := flag.String("start", time.Now().Format("2006-01-02"), "first day of the pattern (YYYY-MM-DD)")
	days := flag.String("days", "", "comma separated weekdays (e.g. mon,wed,fri)")
	cadence := flag.String("cadence", "weekly", "weekly, fortnightly or monthly")
	horizon := flag.Int("horizon", schedule.DefaultHorizonMonths, "months to expand for -dry-run")
	dryRun := flag.Bool("dry-run", false, "print the dates without scheduling anything")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftplan-schedule", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *days == "" || (*templateID == "" && !*dryRun) {
		fmt.Fprintf(os.Stderr, "Usage: liftplan-schedule -template <ID> -days mon,thu [-start YYYY-MM-DD] [-cadence weekly] (-server <URL> | -config <file>) [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	spec, err := schedule.Request{
		StartDate: *start,
		Days:      strings.Split(*days, ","),
		Cadence:   *cadence,
	}.Spec()
	if err != nil {
		log.Error("invalid recurrence", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		expander := schedule.DefaultExpander()
		expander.HorizonMonths = *horizon
		for _, d := range schedule.FormatDates(expander.Expand(spec)) {
			fmt.Println(d)
		}
		return
	}

	id, err := uuid.Parse(*templateID)
	if err != nil {
		log.Error("invalid template ID", "template", *templateID, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var res *schedule.Result
	switch {
	case *serverURL != "":
		client := remote.New(*serverURL, *apiKey)
		res, err = client.ScheduleWorkout(ctx, id, spec)
	case *configPath != "":
		res, err = scheduleLocal(ctx, *configPath, id, spec, log)
	default:
		fmt.Fprintf(os.Stderr, "Error: -server or -config is required (or use -dry-run)\n")
		os.Exit(1)
	}
	if err != nil {
		log.Error("scheduling failed", "template", id, "error", err)
		os.Exit(1)
	}

	log.Info("scheduled", "template", id, "created", res.Created, "skipped", res.Skipped)
	for i, d := range res.Dates {
		fmt.Printf("%s\t%s\n", d, res.WorkoutIDs[i])
	}
}

// scheduleLocal runs the scheduler against the store named in the config.
func scheduleLocal(ctx context.Context, path string, id uuid.UUID, spec schedule.RecurrenceSpec, log *slog.Logger) (*schedule.Result, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN(), cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer closeStore()

	expander, err := cfg.Schedule.Expander()
	if err != nil {
		return nil, err
	}
	s := schedule.NewScheduler(store, expander, schedule.Instantiator{Salt: cfg.Schedule.Salt}, cfg.Schedule.SaveConcurrency, log)
	return s.Schedule(ctx, id, spec)
}
