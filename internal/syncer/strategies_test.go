package syncer

import (
	"context"
	"net/http"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/solaredge"
)

func TestStorageStrategy_KeepsLatestSample(t *testing.T) {
	at := func(hour int) time.Time { return time.Date(2024, 6, 15, hour, 0, 0, 0, time.UTC) }

	testCases := []struct {
		name          string
		samples       []solaredge.BatteryTelemetry
		wantSoC       *float64
		wantTime      *time.Time
		wantWatermark bool
	}{
		{
			name: "newest first",
			samples: []solaredge.BatteryTelemetry{
				{TimeStamp: "2024-06-15 11:00:00", BatteryPercentageState: f64(80)},
				{TimeStamp: "2024-06-15 10:00:00", BatteryPercentageState: f64(50)},
			},
			wantSoC: f64(80), wantTime: ptr(at(11)), wantWatermark: true,
		},
		{
			name: "newest last",
			samples: []solaredge.BatteryTelemetry{
				{TimeStamp: "2024-06-15 09:00:00", BatteryPercentageState: f64(20)},
				{TimeStamp: "2024-06-15 10:00:00", BatteryPercentageState: f64(35)},
			},
			wantSoC: f64(35), wantTime: ptr(at(10)), wantWatermark: true,
		},
		{
			name: "unparseable timestamps fall back to the last sample",
			samples: []solaredge.BatteryTelemetry{
				{TimeStamp: "yesterday", BatteryPercentageState: f64(30)},
				{TimeStamp: "today", BatteryPercentageState: f64(40)},
			},
			wantSoC: f64(40),
		},
		{
			name: "no telemetry keeps the static attributes",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStore(t)
			api := &mockAPI{
				GetStorageDataFunc: func(context.Context, int64, time.Time, time.Time) (*solaredge.StorageData, error) {
					return &solaredge.StorageData{
						BatteryCount: 1,
						Batteries: []solaredge.StorageBattery{
							{SerialNumber: "BAT-1", Name: "Garage", Nameplate: f64(9700), Telemetries: tc.samples},
						},
					}, nil
				},
			}

			n, err := NewStorageStrategy(Deps{API: api, Store: st, Settings: testSettings, Now: clock}).Sync(context.Background(), 4, false)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			batteries, err := st.ListBatteries(context.Background(), 4)
			require.NoError(t, err)
			require.Len(t, batteries, 1)
			b := batteries[0]
			assert.Equal(t, "Garage", b.Name)
			assert.Equal(t, f64(9700), b.NameplateCapacity)
			assert.Equal(t, tc.wantSoC, b.LastStateOfCharge)
			if tc.wantTime == nil {
				assert.Nil(t, b.LastTelemetryTime)
			} else {
				require.NotNil(t, b.LastTelemetryTime)
				assert.True(t, tc.wantTime.Equal(*b.LastTelemetryTime), "got %s", b.LastTelemetryTime)
			}

			meta := metadata(t, st, 4, DataTypeStorage)
			assert.Equal(t, model.SyncStatusSuccess, meta.Status)
			if tc.wantWatermark {
				require.NotNil(t, meta.LastDataTimestamp)
				assert.True(t, tc.wantTime.Equal(*meta.LastDataTimestamp))
			} else {
				assert.Nil(t, meta.LastDataTimestamp)
			}
		})
	}
}

func TestMeterStrategy_MatchesReadingsToMeters(t *testing.T) {
	sample := func(date string, energy float64) solaredge.MeterSample {
		return solaredge.MeterSample{Date: date, MeterMeasurement: solaredge.MeterMeasurement{Energy: f64(energy)}}
	}

	testCases := []struct {
		name    string
		details *solaredge.MeterEnergyDetails
		want    map[string]int
	}{
		{
			name: "series by name",
			details: &solaredge.MeterEnergyDetails{Meters: []solaredge.MeterSeries{
				{Name: "Production", Values: []solaredge.MeterSample{sample("2024-06-15 10:00:00", 100), sample("2024-06-15 10:15:00", 110)}},
				{Name: "Consumption", Values: []solaredge.MeterSample{sample("2024-06-15 10:00:00", 40)}},
			}},
			want: map[string]int{"Production": 2, "Consumption": 1},
		},
		{
			name: "series with only a serial number",
			details: &solaredge.MeterEnergyDetails{Meters: []solaredge.MeterSeries{
				{MeterSerialNumber: "M-2", Values: []solaredge.MeterSample{sample("2024-06-15 10:00:00", 40)}},
			}},
			want: map[string]int{"Consumption": 1},
		},
		{
			name: "readings keyed by serial number",
			details: &solaredge.MeterEnergyDetails{
				BySerial: []byte(`{"M-1": [{"date": "2024-06-15 10:00:00", "values": {"energy": 5}}], "M-9": [{"date": "2024-06-15 10:00:00", "values": {"energy": 1}}]}`),
			},
			want: map[string]int{"Production": 1},
		},
		{
			name: "unknown meter is skipped",
			details: &solaredge.MeterEnergyDetails{Meters: []solaredge.MeterSeries{
				{Name: "Ghost", Values: []solaredge.MeterSample{sample("2024-06-15 10:00:00", 1)}},
			}},
			want: map[string]int{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStore(t)
			api := &mockAPI{
				GetMetersFunc: func(context.Context, int64) ([]solaredge.MeterInfo, error) {
					return []solaredge.MeterInfo{
						{Name: "Production", SN: "M-1", Type: "Production"},
						{Name: "Consumption", SN: "M-2", Type: "Consumption"},
					}, nil
				},
				GetMeterDataFunc: func(context.Context, int64, time.Time, time.Time) (*solaredge.MeterEnergyDetails, error) {
					return tc.details, nil
				},
			}

			n, err := NewMeterStrategy(Deps{API: api, Store: st, Settings: testSettings, Now: clock}).Sync(context.Background(), 8, false)
			require.NoError(t, err)

			meters, err := st.ListMeters(context.Background(), 8)
			require.NoError(t, err)
			require.Len(t, meters, 2)

			total := 0
			for _, m := range meters {
				var count int64
				require.NoError(t, st.DB().Model(&model.MeterReading{}).Where("meter_id = ?", m.ID).Count(&count).Error)
				assert.Equal(t, int64(tc.want[m.Name]), count, m.Name)
				total += int(count)
			}
			assert.Equal(t, len(meters)+total, n)
		})
	}
}

func TestInventoryStrategy(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		inventory  solaredge.Inventory
		wantCount  int
		wantFailed bool
	}{
		{name: "forbidden is unavailable", err: apiError(http.StatusForbidden)},
		{name: "bad request is unavailable", err: apiError(http.StatusBadRequest)},
		{name: "server error fails", err: apiError(http.StatusInternalServerError), wantFailed: true},
		{
			name: "categories are flattened",
			inventory: solaredge.Inventory{
				"inverters": {{Name: "Inverter 1", SN: "INV-1", Model: "SE5000"}},
				"meters":    {{Model: "SE-MTR", SerialNumberField: "M-1"}},
				"gateways":  {{}},
			},
			wantCount: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStore(t)
			api := &mockAPI{
				GetInventoryFunc: func(context.Context, int64) (solaredge.Inventory, error) {
					return tc.inventory, tc.err
				},
			}

			n, err := NewInventoryStrategy(Deps{API: api, Store: st, Settings: testSettings, Now: clock}).Sync(context.Background(), 6, false)
			if tc.wantFailed {
				var se *StrategyError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, DataTypeInventory, se.DataType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantCount, n)

			meta := metadata(t, st, 6, DataTypeInventory)
			assert.Equal(t, model.SyncStatusSuccess, meta.Status)
			assert.Equal(t, tc.wantCount, meta.RecordsSynced)
			require.NotNil(t, meta.LastDataTimestamp)
			assert.True(t, fixedNow.Equal(*meta.LastDataTimestamp))

			items, err := st.ListInventory(context.Background(), 6)
			require.NoError(t, err)
			assert.Len(t, items, tc.wantCount)
		})
	}
}

func TestEnergyStrategy_Window(t *testing.T) {
	watermark := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		watermark *time.Time
		full      bool
		wantStart time.Time
	}{
		{name: "first sync covers the lookback", wantStart: time.Date(2023, 6, 16, 12, 0, 0, 0, time.UTC)},
		{name: "incremental starts at the watermark minus the overlap", watermark: &watermark, wantStart: watermark.Add(-15 * time.Minute)},
		{name: "full ignores the watermark and starts at midnight", watermark: &watermark, full: true, wantStart: time.Date(2023, 6, 16, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStore(t)
			deps := Deps{Store: st, Settings: testSettings, Now: clock}
			if tc.watermark != nil {
				b := newBase(DataTypeEnergy, deps)
				require.NoError(t, b.UpdateSyncMetadata(context.Background(), 2, tc.watermark, 10, model.SyncStatusSuccess, ""))
			}

			var gotStart, gotEnd time.Time
			deps.API = &mockAPI{
				GetEnergyFunc: func(_ context.Context, _ int64, start, end time.Time, _ string) ([]solaredge.DateValue, error) {
					gotStart, gotEnd = start, end
					return nil, nil
				},
			}

			_, err := NewEnergyStrategy(deps).Sync(context.Background(), 2, tc.full)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, gotStart)
			assert.Equal(t, fixedNow, gotEnd)
		})
	}
}

func TestFetchWindow_UsesSiteWallClock(t *testing.T) {
	testCases := []struct {
		name    string
		zone    string
		wantEnd time.Time
	}{
		{name: "no timezone stored", wantEnd: fixedNow},
		{name: "east of UTC", zone: "Asia/Tokyo", wantEnd: time.Date(2024, 6, 15, 21, 0, 0, 0, time.UTC)},
		{name: "west of UTC", zone: "America/New_York", wantEnd: time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)},
		{name: "unknown timezone falls back to UTC", zone: "Mars/Olympus_Mons", wantEnd: fixedNow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStore(t)
			ctx := context.Background()
			require.NoError(t, st.UpsertSites(ctx, []model.Site{{ID: 9, Name: "Abroad", Timezone: tc.zone}}))

			var energyStart, energyEnd time.Time
			var powerRanges [][2]time.Time
			api := &mockAPI{
				GetEnergyFunc: func(_ context.Context, _ int64, start, end time.Time, _ string) ([]solaredge.DateValue, error) {
					energyStart, energyEnd = start, end
					return nil, nil
				},
				GetPowerFunc: func(_ context.Context, _ int64, start, end time.Time) ([]solaredge.DateValue, error) {
					powerRanges = append(powerRanges, [2]time.Time{start, end})
					return nil, nil
				},
			}
			deps := Deps{API: api, Store: st, Settings: testSettings, Now: clock}

			_, err := NewEnergyStrategy(deps).Sync(ctx, 9, false)
			require.NoError(t, err)
			assert.Equal(t, tc.wantEnd, energyEnd)
			assert.Equal(t, tc.wantEnd.AddDate(0, 0, -testSettings.EnergyLookbackDays), energyStart)

			_, err = NewPowerStrategy(deps).Sync(ctx, 9, true)
			require.NoError(t, err)
			require.Len(t, powerRanges, 1)
			assert.Equal(t, tc.wantEnd.AddDate(0, 0, -testSettings.PowerLookbackDays), powerRanges[0][0])
			assert.Equal(t, tc.wantEnd, powerRanges[0][1])

			meta := metadata(t, st, 9, DataTypeEnergy)
			assert.True(t, fixedNow.Equal(meta.LastSyncTime), "the sync time stays in UTC")
		})
	}
}

func ptr[T any](v T) *T { return &v }
