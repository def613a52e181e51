package syncer

import (
	"context"
	"log"
	"time"

	"gorm.io/datatypes"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
	"solar-sync-backend/internal/solaredge"
	"solar-sync-backend/internal/store"
)

// PowerChunk is the longest range the power endpoint accepts in one request.
const PowerChunk = 30 * 24 * time.Hour

// powerStrategy syncs power samples in chunks and refreshes the current power flow.
type powerStrategy struct{ base }

// NewPowerStrategy creates the power strategy.
func NewPowerStrategy(d Deps) Strategy {
	return &powerStrategy{newBase(DataTypePower, d)}
}

func (s *powerStrategy) Sync(ctx context.Context, siteID int64, full bool) (int, error) {
	start, end, err := s.window(ctx, siteID, full, s.settings.PowerLookbackDays)
	if err != nil {
		return s.fail(siteID, err)
	}
	log.Printf("Syncing power for site %d from %s to %s (full=%t)", siteID, parse.FormatTimestamp(start), parse.FormatTimestamp(end), full)

	total := 0
	var latest *time.Time
	for _, chunk := range Chunks(start, end, PowerChunk) {
		n, chunkLatest, err := s.syncChunk(ctx, siteID, chunk[0], chunk[1])
		if err != nil {
			return s.fail(siteID, err)
		}
		total += n
		if chunkLatest != nil {
			latest = later(latest, *chunkLatest)
		}
	}

	s.syncPowerFlow(ctx, siteID)

	return s.succeed(ctx, siteID, latest, total)
}

func (s *powerStrategy) syncChunk(ctx context.Context, siteID int64, start, end time.Time) (int, *time.Time, error) {
	values, err := s.api.GetPower(ctx, siteID, start, end)
	if err != nil {
		return 0, nil, err
	}

	var readings []model.PowerReading
	var latest *time.Time
	for _, v := range values {
		if v.Value == nil {
			continue
		}
		ts, err := parse.Timestamp(v.Date)
		if err != nil {
			log.Printf("Warning: skipping power value of site %d: %v", siteID, err)
			continue
		}
		readings = append(readings, model.PowerReading{SiteID: siteID, Timestamp: ts, PowerWatts: v.Value})
		latest = later(latest, ts)
	}
	readings = dedupe(readings, func(r model.PowerReading) time.Time { return r.Timestamp })

	if err := s.store.UpsertPowerReadings(ctx, readings); err != nil {
		return 0, nil, err
	}
	return len(readings), latest, nil
}

// syncPowerFlow stores a power flow snapshot. Its failures are logged and never fail the power sync;
// the write runs in a savepoint so a database error does not poison the surrounding transaction.
func (s *powerStrategy) syncPowerFlow(ctx context.Context, siteID int64) {
	flow, err := s.api.GetPowerFlow(ctx, siteID)
	if err != nil {
		log.Printf("Warning: power flow sync failed for site %d: %v", siteID, err)
		return
	}
	if flow == nil {
		return
	}

	row := powerFlowFromAPI(siteID, s.now().Truncate(time.Second), flow)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		return tx.UpsertPowerFlow(ctx, &row)
	})
	if err != nil {
		log.Printf("Warning: power flow sync failed for site %d: %v", siteID, err)
	}
}

func powerFlowFromAPI(siteID int64, ts time.Time, f *solaredge.PowerFlow) model.PowerFlow {
	row := model.PowerFlow{SiteID: siteID, Timestamp: ts, Unit: f.Unit}
	if f.Grid != nil {
		row.GridStatus, row.GridPower = f.Grid.Status, f.Grid.CurrentPower
	}
	if f.PV != nil {
		row.PVStatus, row.PVPower = f.PV.Status, f.PV.CurrentPower
	}
	if f.Load != nil {
		row.LoadStatus, row.LoadPower = f.Load.Status, f.Load.CurrentPower
	}
	if f.Storage != nil {
		row.StorageStatus = f.Storage.Status
		row.StoragePower = f.Storage.CurrentPower
		row.StorageChargeLevel = f.Storage.ChargeLevel
		row.StorageCritical = f.Storage.Critical
	}
	if len(f.Connections) > 0 && string(f.Connections) != "null" {
		row.Connections = datatypes.JSON(f.Connections)
	}
	return row
}

// Chunks splits [start, end) into contiguous windows of at most size.
func Chunks(start, end time.Time, size time.Duration) [][2]time.Time {
	var out [][2]time.Time
	for cur := start; cur.Before(end); {
		next := cur.Add(size)
		if next.After(end) {
			next = end
		}
		out = append(out, [2]time.Time{cur, next})
		cur = next
	}
	return out
}
