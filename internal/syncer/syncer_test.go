package syncer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/db"
	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/solaredge"
	"solar-sync-backend/internal/store"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

var testSettings = Settings{
	EnergyLookbackDays:    365,
	PowerLookbackDays:     7,
	TelemetryLookbackDays: 1,
	Overlap:               15 * time.Minute,
}

// mockAPI implements API. Unset funcs return empty results.
type mockAPI struct {
	mu    sync.Mutex
	calls map[string]int

	GetSitesFunc                 func(ctx context.Context) ([]solaredge.Site, error)
	GetSiteDetailsFunc           func(ctx context.Context, siteID int64) (*solaredge.Site, error)
	GetEquipmentFunc             func(ctx context.Context, siteID int64) ([]solaredge.Reporter, error)
	GetEnergyFunc                func(ctx context.Context, siteID int64, start, end time.Time, timeUnit string) ([]solaredge.DateValue, error)
	GetPowerFunc                 func(ctx context.Context, siteID int64, start, end time.Time) ([]solaredge.DateValue, error)
	GetPowerFlowFunc             func(ctx context.Context, siteID int64) (*solaredge.PowerFlow, error)
	GetStorageDataFunc           func(ctx context.Context, siteID int64, start, end time.Time) (*solaredge.StorageData, error)
	GetMetersFunc                func(ctx context.Context, siteID int64) ([]solaredge.MeterInfo, error)
	GetMeterDataFunc             func(ctx context.Context, siteID int64, start, end time.Time) (*solaredge.MeterEnergyDetails, error)
	GetEnvironmentalBenefitsFunc func(ctx context.Context, siteID int64) (*solaredge.EnvBenefits, error)
	GetAlertsFunc                func(ctx context.Context, siteID int64) ([]solaredge.AlertEntry, error)
	GetInventoryFunc             func(ctx context.Context, siteID int64) (solaredge.Inventory, error)
	GetInverterDataFunc          func(ctx context.Context, siteID int64, serial string, start, end time.Time) ([]solaredge.InverterReading, error)
	GetOptimizerDataFunc         func(ctx context.Context, siteID int64, serial string, start, end time.Time) ([]solaredge.OptimizerReading, error)
}

func (m *mockAPI) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

func (m *mockAPI) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockAPI) GetSites(ctx context.Context) ([]solaredge.Site, error) {
	m.record("sites")
	if m.GetSitesFunc != nil {
		return m.GetSitesFunc(ctx)
	}
	return nil, nil
}

func (m *mockAPI) GetSiteDetails(ctx context.Context, siteID int64) (*solaredge.Site, error) {
	m.record("details")
	if m.GetSiteDetailsFunc != nil {
		return m.GetSiteDetailsFunc(ctx, siteID)
	}
	return &solaredge.Site{ID: siteID, Name: "Home"}, nil
}

func (m *mockAPI) GetEquipment(ctx context.Context, siteID int64) ([]solaredge.Reporter, error) {
	m.record("equipment")
	if m.GetEquipmentFunc != nil {
		return m.GetEquipmentFunc(ctx, siteID)
	}
	return nil, nil
}

func (m *mockAPI) GetEnergy(ctx context.Context, siteID int64, start, end time.Time, timeUnit string) ([]solaredge.DateValue, error) {
	m.record("energy")
	if m.GetEnergyFunc != nil {
		return m.GetEnergyFunc(ctx, siteID, start, end, timeUnit)
	}
	return nil, nil
}

func (m *mockAPI) GetPower(ctx context.Context, siteID int64, start, end time.Time) ([]solaredge.DateValue, error) {
	m.record("power")
	if m.GetPowerFunc != nil {
		return m.GetPowerFunc(ctx, siteID, start, end)
	}
	return nil, nil
}

func (m *mockAPI) GetPowerFlow(ctx context.Context, siteID int64) (*solaredge.PowerFlow, error) {
	m.record("powerflow")
	if m.GetPowerFlowFunc != nil {
		return m.GetPowerFlowFunc(ctx, siteID)
	}
	return nil, nil
}

func (m *mockAPI) GetStorageData(ctx context.Context, siteID int64, start, end time.Time) (*solaredge.StorageData, error) {
	m.record("storage")
	if m.GetStorageDataFunc != nil {
		return m.GetStorageDataFunc(ctx, siteID, start, end)
	}
	return nil, nil
}

func (m *mockAPI) GetMeters(ctx context.Context, siteID int64) ([]solaredge.MeterInfo, error) {
	m.record("meters")
	if m.GetMetersFunc != nil {
		return m.GetMetersFunc(ctx, siteID)
	}
	return nil, nil
}

func (m *mockAPI) GetMeterData(ctx context.Context, siteID int64, start, end time.Time) (*solaredge.MeterEnergyDetails, error) {
	m.record("meterdata")
	if m.GetMeterDataFunc != nil {
		return m.GetMeterDataFunc(ctx, siteID, start, end)
	}
	return nil, nil
}

func (m *mockAPI) GetEnvironmentalBenefits(ctx context.Context, siteID int64) (*solaredge.EnvBenefits, error) {
	m.record("env")
	if m.GetEnvironmentalBenefitsFunc != nil {
		return m.GetEnvironmentalBenefitsFunc(ctx, siteID)
	}
	return &solaredge.EnvBenefits{}, nil
}

func (m *mockAPI) GetAlerts(ctx context.Context, siteID int64) ([]solaredge.AlertEntry, error) {
	m.record("alerts")
	if m.GetAlertsFunc != nil {
		return m.GetAlertsFunc(ctx, siteID)
	}
	return nil, nil
}

func (m *mockAPI) GetInventory(ctx context.Context, siteID int64) (solaredge.Inventory, error) {
	m.record("inventory")
	if m.GetInventoryFunc != nil {
		return m.GetInventoryFunc(ctx, siteID)
	}
	return nil, nil
}

func (m *mockAPI) GetInverterData(ctx context.Context, siteID int64, serial string, start, end time.Time) ([]solaredge.InverterReading, error) {
	m.record("inverter")
	if m.GetInverterDataFunc != nil {
		return m.GetInverterDataFunc(ctx, siteID, serial, start, end)
	}
	return nil, nil
}

func (m *mockAPI) GetOptimizerData(ctx context.Context, siteID int64, serial string, start, end time.Time) ([]solaredge.OptimizerReading, error) {
	m.record("optimizer")
	if m.GetOptimizerDataFunc != nil {
		return m.GetOptimizerDataFunc(ctx, siteID, serial, start, end)
	}
	return nil, nil
}

type mockNotifier struct {
	summaries []*SyncSummary
}

func (n *mockNotifier) NotifySync(summary *SyncSummary) {
	n.summaries = append(n.summaries, summary)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{DSN: "sqlite:file::memory:", LogLevel: "silent"})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return store.NewGormStore(gormDB)
}

func newTestOrchestrator(t *testing.T, api API, st store.Store, mode string) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(api, st, Options{Settings: testSettings, ErrorHandling: mode, Now: clock})
	require.NoError(t, err)
	return o
}

func apiError(status int) error {
	return &solaredge.APIError{StatusCode: status, Message: http.StatusText(status)}
}

func f64(v float64) *float64 { return &v }

func metadata(t *testing.T, st store.Store, siteID int64, dataType string) *model.SyncMetadata {
	t.Helper()
	meta, err := st.GetSyncMetadata(context.Background(), siteID, dataType)
	require.NoError(t, err)
	require.NotNil(t, meta, "no sync metadata for %s", dataType)
	return meta
}

func TestStartTime(t *testing.T) {
	st := newTestStore(t)
	b := newBase(DataTypeEnergy, Deps{Store: st, Settings: testSettings, Now: clock})
	ctx := context.Background()

	start, err := b.StartTime(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.AddDate(0, 0, -7), start)

	watermark := time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC)
	require.NoError(t, b.UpdateSyncMetadata(ctx, 1, &watermark, 3, model.SyncStatusSuccess, ""))

	start, err = b.StartTime(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, watermark.Add(-15*time.Minute), start)
}

func TestChunks(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		end   time.Time
		count int
	}{
		{name: "empty range", end: start, count: 0},
		{name: "within one chunk", end: start.AddDate(0, 0, 10), count: 1},
		{name: "exactly one chunk", end: start.Add(PowerChunk), count: 1},
		{name: "65 days", end: start.AddDate(0, 0, 65), count: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := Chunks(start, tc.end, PowerChunk)
			require.Len(t, chunks, tc.count)
			if tc.count == 0 {
				return
			}
			assert.Equal(t, start, chunks[0][0])
			assert.Equal(t, tc.end, chunks[len(chunks)-1][1])
			for i, c := range chunks {
				assert.LessOrEqual(t, c[1].Sub(c[0]), PowerChunk)
				if i > 0 {
					assert.Equal(t, chunks[i-1][1], c[0], "chunks must be contiguous")
				}
			}
		})
	}
}

func TestPowerStrategy_SplitsLongRange(t *testing.T) {
	st := newTestStore(t)
	var ranges [][2]time.Time
	api := &mockAPI{
		GetPowerFunc: func(_ context.Context, _ int64, start, end time.Time) ([]solaredge.DateValue, error) {
			ranges = append(ranges, [2]time.Time{start, end})
			return []solaredge.DateValue{{Date: start.Format("2006-01-02 15:04:05"), Value: f64(100)}}, nil
		},
	}
	settings := testSettings
	settings.PowerLookbackDays = 65

	n, err := NewPowerStrategy(Deps{API: api, Store: st, Settings: settings, Now: clock}).Sync(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, ranges, 3)
	assert.Equal(t, fixedNow.AddDate(0, 0, -65), ranges[0][0])
	assert.Equal(t, fixedNow, ranges[2][1])
	for i := 1; i < len(ranges); i++ {
		assert.Equal(t, ranges[i-1][1], ranges[i][0])
	}

	meta := metadata(t, st, 1, DataTypePower)
	require.NotNil(t, meta.LastDataTimestamp)
	assert.True(t, ranges[2][0].Equal(*meta.LastDataTimestamp))
}

func TestPowerStrategy_PowerFlowFailureIsIgnored(t *testing.T) {
	st := newTestStore(t)
	api := &mockAPI{
		GetPowerFlowFunc: func(context.Context, int64) (*solaredge.PowerFlow, error) {
			return nil, apiError(http.StatusInternalServerError)
		},
	}

	n, err := NewPowerStrategy(Deps{API: api, Store: st, Settings: testSettings, Now: clock}).Sync(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Zero(t, n)

	meta := metadata(t, st, 1, DataTypePower)
	assert.Equal(t, model.SyncStatusSuccess, meta.Status)
	assert.Nil(t, meta.LastDataTimestamp)
}

func TestAlertStrategy_ForbiddenIsUnavailable(t *testing.T) {
	st := newTestStore(t)
	api := &mockAPI{
		GetAlertsFunc: func(context.Context, int64) ([]solaredge.AlertEntry, error) {
			return nil, apiError(http.StatusForbidden)
		},
	}

	n, err := NewAlertStrategy(Deps{API: api, Store: st, Settings: testSettings, Now: clock}).Sync(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Zero(t, n)

	meta := metadata(t, st, 1, DataTypeAlert)
	assert.Equal(t, model.SyncStatusSuccess, meta.Status)
	assert.Zero(t, meta.RecordsSynced)
	require.NotNil(t, meta.LastDataTimestamp)
	assert.True(t, fixedNow.Equal(*meta.LastDataTimestamp))
}

func TestEnvironmentalStrategy_EmptyResponseFails(t *testing.T) {
	st := newTestStore(t)
	api := &mockAPI{
		GetEnvironmentalBenefitsFunc: func(context.Context, int64) (*solaredge.EnvBenefits, error) { return nil, nil },
	}

	_, err := NewEnvironmentalStrategy(Deps{API: api, Store: st, Settings: testSettings, Now: clock}).Sync(context.Background(), 1, false)
	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, DataTypeEnvironmental, se.DataType)
	assert.ErrorIs(t, err, errNoData)
}

func TestSyncSite_FullScenario(t *testing.T) {
	st := newTestStore(t)
	var energyStart time.Time
	api := &mockAPI{
		GetEnergyFunc: func(_ context.Context, _ int64, start, _ time.Time, timeUnit string) ([]solaredge.DateValue, error) {
			assert.Equal(t, "DAY", timeUnit)
			energyStart = start
			return []solaredge.DateValue{
				{Date: "2024-06-13 00:00:00", Value: f64(1200)},
				{Date: "2024-06-14 00:00:00", Value: f64(1500)},
				{Date: "2024-06-15 00:00:00", Value: nil},
			}, nil
		},
		GetAlertsFunc: func(context.Context, int64) ([]solaredge.AlertEntry, error) {
			return nil, apiError(http.StatusForbidden)
		},
	}
	o := newTestOrchestrator(t, api, st, config.ErrorHandlingLenient)

	result := o.SyncSite(context.Background(), 42, true)

	assert.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, time.Date(2023, 6, 16, 0, 0, 0, 0, time.UTC), energyStart)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.RecordsSynced[DataTypeSite])
	assert.Equal(t, 2, result.RecordsSynced[DataTypeEnergy])
	assert.Equal(t, 0, result.RecordsSynced[DataTypeAlert])
	assert.Len(t, result.RecordsSynced, len(o.Order()))

	site, err := st.GetSite(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, site)
	assert.Equal(t, "Home", site.Name)

	energy := metadata(t, st, 42, DataTypeEnergy)
	require.NotNil(t, energy.LastDataTimestamp)
	assert.True(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC).Equal(*energy.LastDataTimestamp))
	assert.Equal(t, model.SyncStatusSuccess, metadata(t, st, 42, DataTypeAlert).Status)
}

func TestSyncSite_ErrorHandling(t *testing.T) {
	testCases := []struct {
		name          string
		mode          string
		wantPowerCall bool
	}{
		{name: "lenient continues", mode: config.ErrorHandlingLenient, wantPowerCall: true},
		{name: "skip continues", mode: config.ErrorHandlingSkip, wantPowerCall: true},
		{name: "strict stops", mode: config.ErrorHandlingStrict, wantPowerCall: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStore(t)
			api := &mockAPI{
				GetEnergyFunc: func(context.Context, int64, time.Time, time.Time, string) ([]solaredge.DateValue, error) {
					return nil, apiError(http.StatusInternalServerError)
				},
			}
			o := newTestOrchestrator(t, api, st, tc.mode)

			result := o.SyncSite(context.Background(), 7, false)

			assert.False(t, result.Success)
			assert.Contains(t, result.Errors[DataTypeEnergy], "500")
			assert.Equal(t, tc.wantPowerCall, api.count("power") > 0)
			if tc.wantPowerCall {
				assert.Len(t, result.Errors, 1)
			} else {
				assert.Contains(t, result.Errors, DataTypePower)
			}
			assert.Equal(t, model.SyncStatusError, metadata(t, st, 7, DataTypeEnergy).Status)
		})
	}
}

func TestSyncSite_FailureKeepsWatermark(t *testing.T) {
	st := newTestStore(t)
	fail := false
	api := &mockAPI{
		GetEnergyFunc: func(context.Context, int64, time.Time, time.Time, string) ([]solaredge.DateValue, error) {
			if fail {
				return nil, errors.New("connection reset")
			}
			return []solaredge.DateValue{{Date: "2024-06-14 00:00:00", Value: f64(900)}}, nil
		},
	}
	o := newTestOrchestrator(t, api, st, config.ErrorHandlingLenient)
	ctx := context.Background()

	require.True(t, o.SyncSite(ctx, 3, false).Success)
	fail = true
	result := o.SyncSite(ctx, 3, false)

	assert.Equal(t, "connection reset", result.Errors[DataTypeEnergy])
	meta := metadata(t, st, 3, DataTypeEnergy)
	assert.Equal(t, model.SyncStatusError, meta.Status)
	assert.Equal(t, "connection reset", meta.ErrorMessage)
	assert.Zero(t, meta.RecordsSynced)
	require.NotNil(t, meta.LastDataTimestamp)
	assert.True(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC).Equal(*meta.LastDataTimestamp))

	readings, err := st.EnergyReadings(ctx, 3, time.Time{}, fixedNow)
	require.NoError(t, err)
	assert.Len(t, readings, 1)
}

func TestTelemetry_PartialWhenDeviceUnavailable(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertSites(ctx, []model.Site{{ID: 5, Name: "Roof"}}))
	require.NoError(t, st.UpsertEquipment(ctx, []model.Equipment{
		{SiteID: 5, SerialNumber: "INV-1", EquipmentType: model.EquipmentTypeInverter},
		{SiteID: 5, SerialNumber: "INV-2", EquipmentType: model.EquipmentTypeInverter},
	}))

	api := &mockAPI{
		GetInverterDataFunc: func(_ context.Context, _ int64, serial string, start, end time.Time) ([]solaredge.InverterReading, error) {
			assert.Equal(t, fixedNow.AddDate(0, 0, -1), start)
			if serial == "INV-2" {
				return nil, apiError(http.StatusForbidden)
			}
			return []solaredge.InverterReading{
				{Date: "2024-06-15 10:00:00", TotalActivePower: f64(2500)},
				{Date: "2024-06-15 10:05:00", TotalActivePower: f64(2600)},
			}, nil
		},
	}

	n, err := NewInverterTelemetryStrategy(Deps{API: api, Store: st, Settings: testSettings, Now: clock}).Sync(ctx, 5, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	meta := metadata(t, st, 5, DataTypeInverterTelemetry)
	assert.Equal(t, model.SyncStatusPartial, meta.Status)
	assert.Contains(t, meta.ErrorMessage, "INV-2")
}

func TestSyncAll(t *testing.T) {
	st := newTestStore(t)
	api := &mockAPI{
		GetSitesFunc: func(context.Context) ([]solaredge.Site, error) {
			return []solaredge.Site{{ID: 1, Name: "One"}, {ID: 2, Name: "Two"}}, nil
		},
		GetSiteDetailsFunc: func(_ context.Context, siteID int64) (*solaredge.Site, error) {
			return &solaredge.Site{ID: siteID, Name: map[int64]string{1: "One", 2: "Two"}[siteID]}, nil
		},
		GetAlertsFunc: func(_ context.Context, siteID int64) ([]solaredge.AlertEntry, error) {
			if siteID == 2 {
				return nil, apiError(http.StatusInternalServerError)
			}
			return []solaredge.AlertEntry{{AlertID: 10, Severity: "HIGH", AlertTimestamp: "2024-06-15T08:00:00"}}, nil
		},
	}
	notifier := &mockNotifier{}
	o, err := NewOrchestrator(api, st, Options{Settings: testSettings, Now: clock, Notifier: notifier})
	require.NoError(t, err)

	summary, err := o.SyncAll(context.Background(), false, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.TotalSites)
	assert.Equal(t, 1, summary.SuccessfulSites)
	assert.Equal(t, 1, summary.FailedSites)
	assert.Equal(t, "One", summary.Results[0].SiteName)
	assert.Equal(t, summary.Results[0].TotalRecords()+summary.Results[1].TotalRecords(), summary.TotalRecords)
	require.Len(t, notifier.summaries, 1)
	assert.Same(t, summary, notifier.summaries[0])

	statuses, err := o.GetSyncStatus(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "Two", statuses[0].SiteName)
	assert.Equal(t, model.SyncStatusError, statuses[0].DataTypes[DataTypeAlert].Status)
	assert.Equal(t, model.SyncStatusSuccess, statuses[0].DataTypes[DataTypeSite].Status)
}

func TestSyncAll_FilterSkipsUnknownSites(t *testing.T) {
	st := newTestStore(t)
	api := &mockAPI{
		GetSitesFunc: func(context.Context) ([]solaredge.Site, error) {
			return []solaredge.Site{{ID: 1, Name: "One"}, {ID: 2, Name: "Two"}}, nil
		},
	}
	o := newTestOrchestrator(t, api, st, "")

	summary, err := o.SyncAll(context.Background(), false, []int64{2, 99})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, int64(2), summary.Results[0].SiteID)
}

func TestSyncAll_QuotaExhaustionStopsRun(t *testing.T) {
	st := newTestStore(t)
	api := &mockAPI{
		GetSitesFunc: func(context.Context) ([]solaredge.Site, error) {
			return []solaredge.Site{{ID: 1}, {ID: 2}}, nil
		},
		GetEnergyFunc: func(context.Context, int64, time.Time, time.Time, string) ([]solaredge.DateValue, error) {
			return nil, &solaredge.RateLimitExceededError{Limit: 300, ResetAt: fixedNow.Add(time.Hour)}
		},
	}
	o := newTestOrchestrator(t, api, st, config.ErrorHandlingLenient)

	summary, err := o.SyncAll(context.Background(), false, nil)
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, 2, summary.FailedSites)
	assert.Equal(t, 1, api.count("energy"))
	assert.Equal(t, 1, api.count("details"))
	assert.Zero(t, api.count("power"))
}

func TestSyncAll_CancelledContext(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	api := &mockAPI{
		GetSitesFunc: func(context.Context) ([]solaredge.Site, error) {
			return []solaredge.Site{{ID: 1}, {ID: 2}}, nil
		},
		GetSiteDetailsFunc: func(_ context.Context, siteID int64) (*solaredge.Site, error) {
			cancel()
			return &solaredge.Site{ID: siteID}, nil
		},
	}
	o := newTestOrchestrator(t, api, st, config.ErrorHandlingLenient)

	summary, err := o.SyncAll(ctx, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalSites)
	assert.Zero(t, summary.SuccessfulSites)
	assert.Equal(t, 1, api.count("details"))
}

func TestSyncAll_InProgress(t *testing.T) {
	o := newTestOrchestrator(t, &mockAPI{}, newTestStore(t), "")
	o.running.Lock()
	defer o.running.Unlock()

	_, err := o.SyncAll(context.Background(), false, nil)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestNewOrchestrator_RejectsUnknownMode(t *testing.T) {
	_, err := NewOrchestrator(&mockAPI{}, nil, Options{ErrorHandling: "ignore"})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRegistry_Order(t *testing.T) {
	order, err := DefaultRegistry().Order()
	require.NoError(t, err)
	require.Len(t, order, 11)
	assert.Equal(t, DataTypeSite, order[0])

	index := make(map[string]int)
	for i, dt := range order {
		index[dt] = i
	}
	assert.Less(t, index[DataTypeEquipment], index[DataTypeInverterTelemetry])
	assert.Less(t, index[DataTypeEquipment], index[DataTypeOptimizerTelemetry])

	noop := func(Deps) Strategy { return nil }
	r := NewRegistry()
	require.NoError(t, r.Register(Registration{DataType: "b", Prerequisites: []string{"c"}, New: noop}))
	require.NoError(t, r.Register(Registration{DataType: "a", New: noop}))
	require.NoError(t, r.Register(Registration{DataType: "c", New: noop}))
	order, err = r.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, order)

	assert.Error(t, r.Register(Registration{DataType: "a", New: noop}))
}

func TestRegistry_OrderErrors(t *testing.T) {
	noop := func(Deps) Strategy { return nil }

	cyclic := NewRegistry()
	require.NoError(t, cyclic.Register(Registration{DataType: "a", Prerequisites: []string{"b"}, New: noop}))
	require.NoError(t, cyclic.Register(Registration{DataType: "b", Prerequisites: []string{"a"}, New: noop}))
	_, err := cyclic.Order()
	assert.Error(t, err)

	missing := NewRegistry()
	require.NoError(t, missing.Register(Registration{DataType: "a", Prerequisites: []string{"ghost"}, New: noop}))
	_, err = missing.Order()
	assert.Error(t, err)
}

func TestDedupe(t *testing.T) {
	rows := []model.PowerReading{
		{SiteID: 1, Timestamp: fixedNow, PowerWatts: f64(1)},
		{SiteID: 1, Timestamp: fixedNow.Add(time.Minute), PowerWatts: f64(2)},
		{SiteID: 1, Timestamp: fixedNow, PowerWatts: f64(3)},
	}

	out := dedupe(rows, func(r model.PowerReading) time.Time { return r.Timestamp })

	require.Len(t, out, 2)
	assert.Equal(t, 3.0, *out[0].PowerWatts)
	assert.Equal(t, 2.0, *out[1].PowerWatts)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 500))
	assert.Len(t, truncate(strings.Repeat("x", 600), 500), 500)

	s := truncate(strings.Repeat("é", 300), 500)
	assert.LessOrEqual(t, len(s), 500)
	assert.True(t, strings.HasSuffix(s, "é"))
}
