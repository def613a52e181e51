package syncer

import (
	"context"
	"log"
	"strconv"
	"time"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
	"solar-sync-backend/internal/solaredge"
)

// storageStrategy stores every battery with a snapshot of its latest telemetry sample.
type storageStrategy struct{ base }

// NewStorageStrategy creates the storage strategy.
func NewStorageStrategy(d Deps) Strategy {
	return &storageStrategy{newBase(DataTypeStorage, d)}
}

func (s *storageStrategy) Sync(ctx context.Context, siteID int64, full bool) (int, error) {
	start, end, err := s.window(ctx, siteID, full, s.settings.PowerLookbackDays)
	if err != nil {
		return s.fail(siteID, err)
	}
	log.Printf("Syncing storage for site %d (full=%t)", siteID, full)

	data, err := s.api.GetStorageData(ctx, siteID, start, end)
	if err != nil {
		return s.fail(siteID, err)
	}
	if data == nil || len(data.Batteries) == 0 {
		log.Printf("No batteries found for site %d", siteID)
		return s.succeed(ctx, siteID, nil, 0)
	}

	var batteries []model.Battery
	var latest *time.Time
	for _, b := range data.Batteries {
		if b.SerialNumber == "" {
			continue
		}
		battery := model.Battery{
			SiteID:              siteID,
			SerialNumber:        b.SerialNumber,
			Name:                b.Name,
			Manufacturer:        b.ManufacturerName,
			Model:               b.ModelNumber,
			NameplateCapacity:   b.Nameplate,
			ConnectedInverterSN: b.ConnectedInverterSn,
		}
		if sample, ts := latestSample(b.Telemetries); sample != nil {
			battery.LastPower = sample.Power
			battery.LastStateOfCharge = sample.BatteryPercentageState
			battery.LifetimeEnergyCharged = sample.LifeTimeEnergyCharged
			battery.LifetimeEnergyDischarged = sample.LifeTimeEnergyDischarged
			battery.Capacity = sample.FullPackEnergyAvailable
			if sample.BatteryState != nil {
				battery.LastStatus = strconv.Itoa(*sample.BatteryState)
			}
			if ts != nil {
				battery.LastTelemetryTime = ts
				latest = later(latest, *ts)
			}
		}
		batteries = append(batteries, battery)
	}
	batteries = dedupe(batteries, func(b model.Battery) string { return b.SerialNumber })

	if err := s.store.UpsertBatteries(ctx, batteries); err != nil {
		return s.fail(siteID, err)
	}
	return s.succeed(ctx, siteID, latest, len(batteries))
}

// latestSample picks the newest sample by timestamp, or the last one when none parse.
func latestSample(samples []solaredge.BatteryTelemetry) (*solaredge.BatteryTelemetry, *time.Time) {
	if len(samples) == 0 {
		return nil, nil
	}
	var best *solaredge.BatteryTelemetry
	var bestTS *time.Time
	for i := range samples {
		ts, err := parse.Timestamp(samples[i].TimeStamp)
		if err != nil {
			continue
		}
		if bestTS == nil || !ts.Before(*bestTS) {
			best, bestTS = &samples[i], &ts
		}
	}
	if best == nil {
		return &samples[len(samples)-1], nil
	}
	return best, bestTS
}
