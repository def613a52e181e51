package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/metrics"
	"solar-sync-backend/internal/solaredge"
	"solar-sync-backend/internal/store"
)

// ErrSyncInProgress is returned when a run is requested while another is active.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// Notifier receives the summary of every finished run.
type Notifier interface {
	NotifySync(summary *SyncSummary)
}

// Options configures an Orchestrator.
type Options struct {
	Settings      Settings
	ErrorHandling string
	// SiteIDs restricts SyncAll when the caller passes no filter.
	SiteIDs  []int64
	Registry *Registry
	Metrics  *metrics.Collector
	Notifier Notifier
	Now      func() time.Time
}

// Orchestrator runs the strategies of every data type across sites.
// Strategies of one site run sequentially, each in its own transaction.
type Orchestrator struct {
	api           API
	store         store.Store
	registry      *Registry
	order         []string
	settings      Settings
	errorHandling string
	siteIDs       []int64
	metrics       *metrics.Collector
	notifier      Notifier
	now           func() time.Time

	running sync.Mutex
}

// NewOrchestrator creates an orchestrator. The run order is resolved once here.
func NewOrchestrator(api API, st store.Store, opts Options) (*Orchestrator, error) {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	switch opts.ErrorHandling {
	case "":
		opts.ErrorHandling = config.ErrorHandlingLenient
	case config.ErrorHandlingStrict, config.ErrorHandlingLenient, config.ErrorHandlingSkip:
	default:
		return nil, fmt.Errorf("%w: unknown error handling mode %q", config.ErrInvalid, opts.ErrorHandling)
	}

	order, err := opts.Registry.Order()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		api:           api,
		store:         st,
		registry:      opts.Registry,
		order:         order,
		settings:      opts.Settings,
		errorHandling: opts.ErrorHandling,
		siteIDs:       opts.SiteIDs,
		metrics:       opts.Metrics,
		notifier:      opts.Notifier,
		now:           opts.Now,
	}, nil
}

// Order returns the data types in run order.
func (o *Orchestrator) Order() []string {
	return append([]string(nil), o.order...)
}

// SyncSite runs every strategy for one site. One failing data type does not stop the others
// unless error handling is strict.
func (o *Orchestrator) SyncSite(ctx context.Context, siteID int64, full bool) SyncResult {
	result, _ := o.syncSite(ctx, siteID, full)
	return result
}

// syncSite also reports whether the remaining batch must stop.
func (o *Orchestrator) syncSite(ctx context.Context, siteID int64, full bool) (SyncResult, bool) {
	start := time.Now()
	log.Printf("Syncing site %d (full=%t)", siteID, full)

	result := SyncResult{
		SiteID:        siteID,
		RecordsSynced: make(map[string]int, len(o.order)),
		Errors:        make(map[string]string),
	}

	abort := false
	for _, dataType := range o.order {
		if err := ctx.Err(); err != nil {
			result.Errors[dataType] = err.Error()
			abort = true
			continue
		}
		if abort {
			result.Errors[dataType] = "skipped after an earlier failure"
			continue
		}

		count, err := o.runStrategy(ctx, siteID, dataType, full)
		result.RecordsSynced[dataType] = count
		if err == nil {
			continue
		}

		result.Errors[dataType] = errorMessage(err)
		var quota *solaredge.RateLimitExceededError
		switch {
		case errors.As(err, &quota):
			log.Printf("Daily API quota exhausted while syncing %s for site %d; stopping run", dataType, siteID)
			abort = true
		case o.errorHandling == config.ErrorHandlingStrict:
			log.Printf("Error: %s sync failed for site %d, stopping (strict): %v", dataType, siteID, err)
			abort = true
		case o.errorHandling == config.ErrorHandlingSkip:
			log.Printf("Skipping failed %s sync for site %d", dataType, siteID)
		default:
			log.Printf("Error: %s sync failed for site %d, continuing: %v", dataType, siteID, err)
		}
	}

	result.Success = len(result.Errors) == 0
	result.DurationSeconds = time.Since(start).Seconds()
	o.metrics.RecordSiteSync(result.Success)
	return result, abort
}

// runStrategy runs one strategy in its own transaction. A failure rolls back the strategy's writes
// and is then recorded in the sync metadata.
func (o *Orchestrator) runStrategy(ctx context.Context, siteID int64, dataType string, full bool) (int, error) {
	reg, _ := o.registry.Get(dataType)
	start := time.Now()

	var count int
	err := o.store.Transaction(ctx, func(tx store.Store) error {
		strategy := reg.New(Deps{API: o.api, Store: tx, Settings: o.settings, Now: o.now})
		var err error
		count, err = strategy.Sync(ctx, siteID, full)
		return err
	})
	if err != nil {
		count = 0
		var se *StrategyError
		if !errors.As(err, &se) {
			err = &StrategyError{DataType: dataType, SiteID: siteID, Err: err}
		}
		if recErr := RecordFailure(context.WithoutCancel(ctx), o.store, siteID, dataType, err, o.now()); recErr != nil {
			log.Printf("Error: could not record %s failure for site %d: %v", dataType, siteID, recErr)
		}
	}
	o.metrics.RecordStrategy(dataType, count, time.Since(start), err)
	return count, err
}

// SyncAll syncs every site of the account, or only siteFilter when given (the configured
// site ids otherwise). Every targeted site gets a result, even if the run stops early.
func (o *Orchestrator) SyncAll(ctx context.Context, full bool, siteFilter []int64) (*SyncSummary, error) {
	if !o.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer o.running.Unlock()

	summary := &SyncSummary{RunID: uuid.NewString(), Full: full, StartedAt: o.now().UTC()}
	start := time.Now()
	log.Printf("Starting sync run %s (full=%t)", summary.RunID, full)

	sites, err := o.api.GetSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	if len(siteFilter) == 0 {
		siteFilter = o.siteIDs
	}
	sites = filterSites(sites, siteFilter)
	if len(sites) == 0 {
		log.Printf("No sites to sync for this API key")
	}

	abort := false
	for _, site := range sites {
		var result SyncResult
		if abort {
			result = SyncResult{
				SiteID:        site.ID,
				RecordsSynced: map[string]int{},
				Errors:        map[string]string{"site": "skipped after an earlier failure"},
			}
		} else {
			result, abort = o.syncSite(ctx, site.ID, full)
		}
		result.SiteName = site.Name
		summary.Results = append(summary.Results, result)
	}

	for _, r := range summary.Results {
		if r.Success {
			summary.SuccessfulSites++
		}
		summary.TotalRecords += r.TotalRecords()
	}
	summary.TotalSites = len(summary.Results)
	summary.FailedSites = summary.TotalSites - summary.SuccessfulSites
	summary.DurationSeconds = time.Since(start).Seconds()

	log.Printf("Sync run %s complete: %d sites, %d successful, %d records in %.1fs",
		summary.RunID, summary.TotalSites, summary.SuccessfulSites, summary.TotalRecords, summary.DurationSeconds)

	if o.notifier != nil {
		o.notifier.NotifySync(summary)
	}
	return summary, nil
}

// GetSyncStatus reports the stored sync state of every known site, or of siteIDs. It makes no API calls.
func (o *Orchestrator) GetSyncStatus(ctx context.Context, siteIDs ...int64) ([]SiteStatus, error) {
	sites, err := o.store.ListSites(ctx)
	if err != nil {
		return nil, err
	}
	metas, err := o.store.ListSyncMetadata(ctx, siteIDs...)
	if err != nil {
		return nil, err
	}

	wanted := make(map[int64]bool, len(siteIDs))
	for _, id := range siteIDs {
		wanted[id] = true
	}

	byID := make(map[int64]*SiteStatus, len(sites))
	statuses := make([]SiteStatus, 0, len(sites))
	for _, site := range sites {
		if len(wanted) > 0 && !wanted[site.ID] {
			continue
		}
		statuses = append(statuses, SiteStatus{
			SiteID:     site.ID,
			SiteName:   site.Name,
			LastUpdate: site.UpdatedAt,
			DataTypes:  make(map[string]DataTypeStatus),
		})
	}
	for i := range statuses {
		byID[statuses[i].SiteID] = &statuses[i]
	}

	for _, m := range metas {
		status, ok := byID[m.SiteID]
		if !ok {
			continue
		}
		status.DataTypes[m.DataType] = DataTypeStatus{
			LastSync: m.LastSyncTime,
			LastData: m.LastDataTimestamp,
			Records:  m.RecordsSynced,
			Status:   m.Status,
			Error:    m.ErrorMessage,
		}
	}
	return statuses, nil
}

func filterSites(sites []solaredge.Site, ids []int64) []solaredge.Site {
	if len(ids) == 0 {
		return sites
	}
	found := make(map[int64]bool, len(sites))
	var out []solaredge.Site
	for _, site := range sites {
		for _, id := range ids {
			if site.ID == id {
				out = append(out, site)
				found[id] = true
				break
			}
		}
	}
	for _, id := range ids {
		if !found[id] {
			log.Printf("Warning: site %d is not accessible with this API key. Skipping.", id)
		}
	}
	return out
}

func errorMessage(err error) string {
	var se *StrategyError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}
