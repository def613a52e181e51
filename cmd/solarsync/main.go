package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/db"
	"solar-sync-backend/internal/metrics"
	"solar-sync-backend/internal/notification"
	"solar-sync-backend/internal/solaredge"
	"solar-sync-backend/internal/store"
	"solar-sync-backend/internal/syncer"
)

const usage = `usage: solarsync <command> [flags]

commands:
  init-db     create or migrate the database schema and query views
  check-api   verify the API key and list the accessible sites
  sync        sync every site (--full, --sites 1,2)
  status      show the stored sync state (--sites 1,2, --diagnostics)
  export      export sites, energy, power, equipment, inventory, environmental
              or telemetry as csv or json
  serve       run scheduled syncs and the HTTP API

The configuration is read from CONFIG_PATH (default ./config/config.yaml) and SEH_* variables.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := log.New(os.Stdout, "solarsync ", log.LstdFlags)
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Printf("failed to load configuration from %s: %v", configPath, err)
		return 1
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Printf("failed to open log file %s: %v", cfg.LogFile, err)
			return 1
		}
		defer f.Close()
		out := io.MultiWriter(os.Stdout, f)
		logger.SetOutput(out)
		log.SetOutput(out)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init-db":
		err = initDB(cfg, logger)
	case "check-api":
		err = checkAPI(ctx, cfg, logger)
	case "sync":
		err = syncCmd(ctx, cfg, logger, rest)
	case "status":
		err = statusCmd(ctx, cfg, logger, rest)
	case "export":
		err = exportCmd(ctx, cfg, logger, rest)
	case "serve":
		err = serve(ctx, cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	var failed errSyncFailed
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 2
	case errors.As(err, &failed):
		logger.Printf("%s: %v", cmd, err)
		return 1
	default:
		logger.Printf("%s failed: %v", cmd, err)
		return 1
	}
}

// errSyncFailed marks a run that finished with failed sites.
type errSyncFailed struct{ failed, total int }

func (e errSyncFailed) Error() string {
	return fmt.Sprintf("%d of %d sites failed", e.failed, e.total)
}

// app bundles the components the commands share.
type app struct {
	cfg      *config.Config
	store    store.Store
	client   *solaredge.Client
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

func newApp(cfg *config.Config, needAPI bool) (*app, error) {
	if needAPI {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("solarsync", reg)

	return &app{
		cfg:      cfg,
		store:    store.NewGormStore(gormDB),
		client:   solaredge.NewClient(solaredge.OptionsFromConfig(&cfg.API, collector)),
		registry: reg,
		metrics:  collector,
	}, nil
}

func (a *app) orchestrator(notifier syncer.Notifier) (*syncer.Orchestrator, error) {
	return syncer.NewOrchestrator(a.client, a.store, syncer.Options{
		Settings:      syncer.SettingsFromConfig(&a.cfg.Sync),
		ErrorHandling: a.cfg.Sync.ErrorHandling,
		SiteIDs:       a.cfg.Sync.SiteIDs,
		Metrics:       a.metrics,
		Notifier:      notifier,
	})
}

// workerPool returns the push notification pool, or nil when VAPID keys are missing.
func (a *app) workerPool() *notification.WorkerPool {
	if !a.cfg.Push.Enabled() {
		return nil
	}
	return notification.NewWorkerPool(a.cfg.WorkerPool.Size, a.store, a.cfg.Push)
}

func initDB(cfg *config.Config, logger *log.Logger) error {
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return err
	}
	if err := db.CreateViews(gormDB); err != nil {
		return err
	}
	driver, _ := db.ResolveDriver(cfg.Database.Driver, cfg.Database.DSN)
	logger.Printf("database initialized (%s) with views %s", driver, strings.Join(db.ViewNames(), ", "))
	return nil
}

func checkAPI(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	sites, err := a.client.GetSites(ctx)
	if err != nil {
		return fmt.Errorf("API check failed: %w", err)
	}

	logger.Printf("API key OK: %d sites accessible", len(sites))
	for _, s := range sites {
		fmt.Printf("  %-10d %-40s %s\n", s.ID, s.Name, s.Status)
	}
	limiter := a.client.Limiter()
	fmt.Printf("quota: %d of %d requests left today\n", limiter.RemainingRequests(), limiter.DailyLimit())
	return nil
}

func syncCmd(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	full := fs.Bool("full", false, "ignore watermarks and refetch the configured lookback")
	sites := fs.String("sites", "", "comma separated site ids (default: configured site_ids or all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	siteIDs, err := config.ParseSiteIDs(*sites)
	if err != nil {
		return fmt.Errorf("%w: --sites: %v", config.ErrInvalid, err)
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	orch, err := a.orchestrator(nil)
	if err != nil {
		return err
	}

	summary, err := orch.SyncAll(ctx, *full, siteIDs)
	if err != nil {
		return err
	}
	printSummary(summary)

	if pool := a.workerPool(); pool != nil {
		pool.NotifyNow(context.WithoutCancel(ctx), summary)
	}
	logger.Printf("%d requests left today", a.client.Limiter().RemainingRequests())

	if summary.FailedSites > 0 {
		return errSyncFailed{failed: summary.FailedSites, total: summary.TotalSites}
	}
	return nil
}

func printSummary(s *syncer.SyncSummary) {
	fmt.Printf("run %s: %d sites, %d ok, %d failed, %d records, %.1fs\n",
		s.RunID, s.TotalSites, s.SuccessfulSites, s.FailedSites, s.TotalRecords, s.DurationSeconds)
	for _, r := range s.Results {
		state := "ok"
		if !r.Success {
			state = "FAILED"
		}
		fmt.Printf("  %-10d %-30s %-6s %6d records\n", r.SiteID, r.SiteName, state, r.TotalRecords())
		for dataType, msg := range r.Errors {
			fmt.Printf("      %s: %s\n", dataType, msg)
		}
	}
}

func statusCmd(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	sites := fs.String("sites", "", "comma separated site ids")
	diagnostics := fs.Bool("diagnostics", false, "also print configuration and quota details")
	if err := fs.Parse(args); err != nil {
		return err
	}
	siteIDs, err := config.ParseSiteIDs(*sites)
	if err != nil {
		return fmt.Errorf("%w: --sites: %v", config.ErrInvalid, err)
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	orch, err := a.orchestrator(nil)
	if err != nil {
		return err
	}

	statuses, err := orch.GetSyncStatus(ctx, siteIDs...)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		logger.Println("no synced sites yet")
	}
	for _, s := range statuses {
		fmt.Printf("%d %s (updated %s)\n", s.SiteID, s.SiteName, s.LastUpdate.Format(time.RFC3339))
		for _, dataType := range orch.Order() {
			st, ok := s.DataTypes[dataType]
			if !ok {
				fmt.Printf("  %-20s never synced\n", dataType)
				continue
			}
			lastData := "-"
			if st.LastData != nil {
				lastData = st.LastData.Format(time.RFC3339)
			}
			fmt.Printf("  %-20s %-8s %6d records  last sync %s  data up to %s\n",
				dataType, st.Status, st.Records, st.LastSync.Format(time.RFC3339), lastData)
			if st.Error != "" {
				fmt.Printf("  %-20s error: %s\n", "", st.Error)
			}
		}
	}

	if *diagnostics {
		driver, _ := db.ResolveDriver(cfg.Database.Driver, cfg.Database.DSN)
		fmt.Println("diagnostics:")
		fmt.Printf("  api base url:     %s\n", cfg.API.BaseURL)
		fmt.Printf("  api key set:      %t\n", cfg.API.Key != "")
		fmt.Printf("  database driver:  %s (timescale %t)\n", driver, cfg.Database.EnableTimescale)
		fmt.Printf("  error handling:   %s\n", cfg.Sync.ErrorHandling)
		fmt.Printf("  lookback days:    energy %d, power %d, telemetry %d\n",
			cfg.Sync.EnergyLookbackDays, cfg.Sync.PowerLookbackDays, cfg.Sync.TelemetryLookbackDays)
		fmt.Printf("  overlap:          %s\n", cfg.Sync.Overlap)
		fmt.Printf("  daily limit:      %d (this process has used %d)\n", a.client.Limiter().DailyLimit(), a.client.Limiter().RequestsToday())
		fmt.Printf("  push enabled:     %t\n", cfg.Push.Enabled())
	}
	return nil
}
