package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	v1 "drillwatch.org/drillwatch/api/v1"
	"drillwatch.org/drillwatch/capture"
	"drillwatch.org/drillwatch/infrastructure/devops"
	"drillwatch.org/drillwatch/infrastructure/filesystem"
	"drillwatch.org/drillwatch/model"
	"drillwatch.org/drillwatch/store"
	"drillwatch.org/drillwatch/sync"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "agent.yaml", "path to the device config file")
	lat := flag.Float64("lat", 0, "device latitude (operator entered)")
	lon := flag.Float64("lon", 0, "device longitude (operator entered)")
	accuracy := flag.Float64("accuracy", 15, "location accuracy in metres")
	rosterPath := flag.String("roster", "", "import a trainee roster CSV and exit")
	eventID := flag.String("event", "", "event id for -roster or -status")
	status := flag.Bool("status", false, "print pending sync counts and exit")
	once := flag.Bool("once", false, "run a single reconciliation pass and exit")
	flag.Parse()

	cfg, err := devops.LoadAgentConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	blobs, err := filesystem.NewLocalFilesystem(cfg.MediaDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *status {
		if err := printStatus(st, *eventID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *rosterPath != "" {
		location := capture.FixedLocation{Lat: *lat, Lon: *lon, AccuracyM: *accuracy}
		session := capture.NewSession(st, blobs, location)
		if err := importRoster(session, *rosterPath, *eventID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	client := v1.NewClient(cfg.ServerURL, cfg.AuthToken)
	conn := sync.NewHTTPConnectivity(cfg.ServerURL)
	reconciler := sync.NewReconciler(st, client, conn, blobs)
	reconciler.MaxAttempts = cfg.Sync.MaxAttempts
	reconciler.BackoffBase = time.Duration(cfg.Sync.BackoffMs) * time.Millisecond
	reconciler.OnRecord = func(rs sync.RecordStatus) {
		if rs.Err != nil {
			fmt.Printf("%s %s: %s (%v)\n", rs.Kind, rs.ID, rs.Outcome, rs.Err)
			return
		}
		fmt.Printf("%s %s: %s\n", rs.Kind, rs.ID, rs.Outcome)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		sum, err := reconciler.RunOnce(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("synced=%d deferred=%d rejected=%d\n", sum.Synced, sum.Deferred, sum.Rejected)
		return
	}

	reconciler.OnPass = func(sum sync.Summary, err error) {
		if err != nil {
			fmt.Printf("pass failed: %v\n", err)
			return
		}
		fmt.Printf("pass done: synced=%d deferred=%d rejected=%d\n",
			sum.Synced, sum.Deferred, sum.Rejected)
	}

	interval := time.Duration(cfg.Sync.IntervalSec) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		reconciler.Trigger()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reconciler.Trigger()
			}
		}
	}()

	fmt.Printf("agent %s syncing to %s every %s\n", cfg.DeviceID, cfg.ServerURL, interval)
	reconciler.Run(ctx)
}

func printStatus(st *store.Store, eventID string) error {
	counts, err := st.UnsyncedCounts()
	if err != nil {
		return err
	}
	fmt.Println("awaiting sync:")
	for _, kind := range model.SyncOrder {
		fmt.Printf("  %-10s %d\n", kind, counts[kind])
	}

	if eventID == "" {
		return nil
	}
	id, err := model.ParseID(eventID)
	if err != nil {
		return err
	}
	perEvent, err := st.CountsForEvent(id)
	if err != nil {
		return err
	}
	fmt.Printf("captured for event %s:\n", eventID)
	for _, kind := range []model.Kind{model.KindReport, model.KindAttendance, model.KindMedia} {
		fmt.Printf("  %-10s %d\n", kind, perEvent[kind])
	}
	return nil
}

func importRoster(session *capture.Session, path, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("-event is required with -roster")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	id, err := model.ParseID(eventID)
	if err != nil {
		return err
	}

	n, err := session.ImportAttendanceCSV(id, f)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d attendance rows for event %s\n", n, eventID)
	return nil
}
