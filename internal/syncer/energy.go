package syncer

import (
	"context"
	"log"
	"time"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
)

const energyTimeUnit = "DAY"

// energyStrategy syncs daily energy totals. The latest date in a batch becomes the watermark.
type energyStrategy struct{ base }

// NewEnergyStrategy creates the energy strategy.
func NewEnergyStrategy(d Deps) Strategy {
	return &energyStrategy{newBase(DataTypeEnergy, d)}
}

func (s *energyStrategy) Sync(ctx context.Context, siteID int64, full bool) (int, error) {
	end := s.siteNow(ctx, siteID)
	var start time.Time
	if full {
		start = parse.StartOfDay(end).AddDate(0, 0, -s.settings.EnergyLookbackDays)
	} else {
		var err error
		if start, err = s.StartTime(ctx, siteID, s.settings.EnergyLookbackDays); err != nil {
			return s.fail(siteID, err)
		}
	}
	log.Printf("Syncing energy for site %d from %s to %s (full=%t)", siteID, parse.FormatDate(start), parse.FormatDate(end), full)

	values, err := s.api.GetEnergy(ctx, siteID, start, end, energyTimeUnit)
	if err != nil {
		return s.fail(siteID, err)
	}

	var readings []model.EnergyReading
	var latest *time.Time
	for _, v := range values {
		if v.Value == nil {
			continue
		}
		day, err := parse.Date(v.Date)
		if err != nil {
			log.Printf("Warning: skipping energy value of site %d: %v", siteID, err)
			continue
		}
		readings = append(readings, model.EnergyReading{
			SiteID:      siteID,
			ReadingDate: day,
			TimeUnit:    energyTimeUnit,
			EnergyWh:    v.Value,
		})
		latest = later(latest, day)
	}
	readings = dedupe(readings, func(r model.EnergyReading) time.Time { return r.ReadingDate })

	if err := s.store.UpsertEnergyReadings(ctx, readings); err != nil {
		return s.fail(siteID, err)
	}
	return s.succeed(ctx, siteID, latest, len(readings))
}
