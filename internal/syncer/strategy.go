package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
	"solar-sync-backend/internal/solaredge"
	"solar-sync-backend/internal/store"
)

// Data type tags. They key SyncMetadata rows and must stay stable.
const (
	DataTypeSite               = "site"
	DataTypeEquipment          = "equipment"
	DataTypeEnergy             = "energy"
	DataTypePower              = "power"
	DataTypeStorage            = "storage"
	DataTypeMeter              = "meter"
	DataTypeEnvironmental      = "environmental"
	DataTypeAlert              = "alert"
	DataTypeInventory          = "inventory"
	DataTypeInverterTelemetry  = "inverter_telemetry"
	DataTypeOptimizerTelemetry = "optimizer_telemetry"
)

const maxErrorMessageLen = 500

var errNoData = errors.New("no data returned")

// API is the part of the monitoring client the strategies use.
type API interface {
	GetSites(ctx context.Context) ([]solaredge.Site, error)
	GetSiteDetails(ctx context.Context, siteID int64) (*solaredge.Site, error)
	GetEquipment(ctx context.Context, siteID int64) ([]solaredge.Reporter, error)
	GetEnergy(ctx context.Context, siteID int64, start, end time.Time, timeUnit string) ([]solaredge.DateValue, error)
	GetPower(ctx context.Context, siteID int64, start, end time.Time) ([]solaredge.DateValue, error)
	GetPowerFlow(ctx context.Context, siteID int64) (*solaredge.PowerFlow, error)
	GetStorageData(ctx context.Context, siteID int64, start, end time.Time) (*solaredge.StorageData, error)
	GetMeters(ctx context.Context, siteID int64) ([]solaredge.MeterInfo, error)
	GetMeterData(ctx context.Context, siteID int64, start, end time.Time) (*solaredge.MeterEnergyDetails, error)
	GetEnvironmentalBenefits(ctx context.Context, siteID int64) (*solaredge.EnvBenefits, error)
	GetAlerts(ctx context.Context, siteID int64) ([]solaredge.AlertEntry, error)
	GetInventory(ctx context.Context, siteID int64) (solaredge.Inventory, error)
	GetInverterData(ctx context.Context, siteID int64, serial string, start, end time.Time) ([]solaredge.InverterReading, error)
	GetOptimizerData(ctx context.Context, siteID int64, serial string, start, end time.Time) ([]solaredge.OptimizerReading, error)
}

// Strategy synchronizes one data type for one site.
// Sync returns the number of records processed, counting upserts of unchanged rows too.
type Strategy interface {
	DataType() string
	Sync(ctx context.Context, siteID int64, full bool) (int, error)
}

// Settings are the fetch window parameters shared by all strategies.
type Settings struct {
	EnergyLookbackDays    int
	PowerLookbackDays     int
	TelemetryLookbackDays int
	Overlap               time.Duration
}

// SettingsFromConfig maps the sync section of the configuration.
func SettingsFromConfig(cfg *config.SyncConfig) Settings {
	return Settings{
		EnergyLookbackDays:    cfg.EnergyLookbackDays,
		PowerLookbackDays:     cfg.PowerLookbackDays,
		TelemetryLookbackDays: cfg.TelemetryLookbackDays,
		Overlap:               cfg.Overlap,
	}
}

// Deps is what a strategy is built from. Store is bound to the strategy's transaction.
type Deps struct {
	API      API
	Store    store.Store
	Settings Settings
	Now      func() time.Time
}

// StrategyError is a failed strategy run.
type StrategyError struct {
	DataType string
	SiteID   int64
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s sync failed for site %d: %v", e.DataType, e.SiteID, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// base carries the helpers every strategy shares.
type base struct {
	dataType string
	api      API
	store    store.Store
	settings Settings
	now      func() time.Time
}

func newBase(dataType string, d Deps) base {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return base{
		dataType: dataType,
		api:      d.API,
		store:    d.Store,
		settings: d.Settings,
		now:      func() time.Time { return now().UTC() },
	}
}

func (b *base) DataType() string {
	return b.dataType
}

// LastSync returns the watermark of the site, or nil if it was never synced.
func (b *base) LastSync(ctx context.Context, siteID int64) (*time.Time, error) {
	meta, err := b.store.GetSyncMetadata(ctx, siteID, b.dataType)
	if err != nil {
		return nil, err
	}
	if meta == nil || meta.LastDataTimestamp == nil {
		return nil, nil
	}
	t := meta.LastDataTimestamp.UTC()
	return &t, nil
}

// StartTime is the start of the next fetch window: now minus lookbackDays on the first sync,
// the watermark minus the overlap buffer afterwards.
func (b *base) StartTime(ctx context.Context, siteID int64, lookbackDays int) (time.Time, error) {
	last, err := b.LastSync(ctx, siteID)
	if err != nil {
		return time.Time{}, err
	}
	if last != nil {
		return last.Add(-b.settings.Overlap), nil
	}
	return b.siteNow(ctx, siteID).AddDate(0, 0, -lookbackDays), nil
}

// siteNow is the current wall-clock time at the site. Fetch windows are sent without a zone
// and read as site-local upstream. Without a stored timezone it is UTC.
func (b *base) siteNow(ctx context.Context, siteID int64) time.Time {
	now := b.now()
	site, err := b.store.GetSite(ctx, siteID)
	if err != nil {
		log.Printf("Warning: could not read timezone of site %d, using UTC: %v", siteID, err)
		return now
	}
	if site == nil || site.Timezone == "" {
		return now
	}
	loc, err := time.LoadLocation(site.Timezone)
	if err != nil {
		log.Printf("Warning: unknown timezone %q of site %d, using UTC", site.Timezone, siteID)
		return now
	}
	return parse.WallClock(now, loc)
}

// window returns the fetch range for time-series types: a full sync always covers the lookback.
func (b *base) window(ctx context.Context, siteID int64, full bool, lookbackDays int) (time.Time, time.Time, error) {
	end := b.siteNow(ctx, siteID)
	if full {
		return end.AddDate(0, 0, -lookbackDays), end, nil
	}
	start, err := b.StartTime(ctx, siteID, lookbackDays)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// UpdateSyncMetadata records the outcome of a run. A nil lastData keeps the stored watermark.
func (b *base) UpdateSyncMetadata(ctx context.Context, siteID int64, lastData *time.Time, records int, status, errorMessage string) error {
	return b.store.UpsertSyncMetadata(ctx, &model.SyncMetadata{
		SiteID:            siteID,
		DataType:          b.dataType,
		LastSyncTime:      b.now(),
		LastDataTimestamp: lastData,
		RecordsSynced:     records,
		Status:            status,
		ErrorMessage:      truncate(errorMessage, maxErrorMessageLen),
	})
}

func (b *base) succeed(ctx context.Context, siteID int64, lastData *time.Time, records int) (int, error) {
	return b.finish(ctx, siteID, lastData, records, model.SyncStatusSuccess, "")
}

func (b *base) finish(ctx context.Context, siteID int64, lastData *time.Time, records int, status, message string) (int, error) {
	if err := b.UpdateSyncMetadata(ctx, siteID, lastData, records, status, message); err != nil {
		return b.fail(siteID, fmt.Errorf("failed to update sync metadata: %w", err))
	}
	log.Printf("%s sync complete for site %d: %d records", b.dataType, siteID, records)
	return records, nil
}

// unavailable downgrades an endpoint the site has no access to into an empty successful run.
func (b *base) unavailable(ctx context.Context, siteID int64, err error) (int, error) {
	log.Printf("%s not available for site %d (status %d); recording empty sync", b.dataType, siteID, solaredge.StatusCode(err))
	now := b.now()
	return b.succeed(ctx, siteID, &now, 0)
}

// fail wraps err for the orchestrator, which records it after the strategy's transaction rolls back.
func (b *base) fail(siteID int64, err error) (int, error) {
	log.Printf("%s sync failed for site %d: %v", b.dataType, siteID, err)
	return 0, &StrategyError{DataType: b.dataType, SiteID: siteID, Err: err}
}

// RecordFailure stores status=error for a failed run, keeping the previous watermark.
func RecordFailure(ctx context.Context, st store.Store, siteID int64, dataType string, cause error, now time.Time) error {
	var se *StrategyError
	if errors.As(cause, &se) {
		cause = se.Err
	}
	return st.UpsertSyncMetadata(ctx, &model.SyncMetadata{
		SiteID:        siteID,
		DataType:      dataType,
		LastSyncTime:  now.UTC(),
		RecordsSynced: 0,
		Status:        model.SyncStatusError,
		ErrorMessage:  truncate(cause.Error(), maxErrorMessageLen),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// dedupe keeps the last row per key, in first-seen order.
// One upsert statement cannot touch the same conflict target twice.
func dedupe[T any, K comparable](rows []T, key func(T) K) []T {
	index := make(map[K]int, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		k := key(row)
		if i, ok := index[k]; ok {
			out[i] = row
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out
}

func later(current *time.Time, t time.Time) *time.Time {
	if current == nil || t.After(*current) {
		return &t
	}
	return current
}
