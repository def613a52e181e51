package syncer

import (
	"context"
	"log"
	"net/http"
	"time"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
	"solar-sync-backend/internal/solaredge"
)

// meterStrategy upserts the meter list first, then the readings matched back to meters by name.
type meterStrategy struct{ base }

// NewMeterStrategy creates the meter strategy.
func NewMeterStrategy(d Deps) Strategy {
	return &meterStrategy{newBase(DataTypeMeter, d)}
}

func (s *meterStrategy) Sync(ctx context.Context, siteID int64, full bool) (int, error) {
	log.Printf("Syncing meters for site %d (full=%t)", siteID, full)

	infos, err := s.api.GetMeters(ctx, siteID)
	if solaredge.IsUnavailable(err, http.StatusBadRequest) {
		return s.unavailable(ctx, siteID, err)
	}
	if err != nil {
		return s.fail(siteID, err)
	}

	var meters []model.Meter
	for _, m := range infos {
		if m.Name == "" {
			continue
		}
		meters = append(meters, model.Meter{
			Name:           m.Name,
			Manufacturer:   m.Manufacturer,
			Model:          m.Model,
			MeterType:      m.Type,
			SerialNumber:   m.SN,
			ConnectionType: m.ConnectedTo,
			Form:           m.Form,
		})
	}
	meters = dedupe(meters, func(m model.Meter) string { return m.Name })
	if len(meters) == 0 {
		log.Printf("No meters found for site %d", siteID)
		return s.succeed(ctx, siteID, nil, 0)
	}

	stored, err := s.store.UpsertMeters(ctx, siteID, meters)
	if err != nil {
		return s.fail(siteID, err)
	}
	ids := make(map[string]int64, 2*len(stored))
	for _, m := range stored {
		if m.SerialNumber != "" {
			ids[m.SerialNumber] = m.ID
		}
	}
	// Names win over serial numbers when both match.
	for _, m := range stored {
		ids[m.Name] = m.ID
	}

	start, end, err := s.window(ctx, siteID, full, s.settings.PowerLookbackDays)
	if err != nil {
		return s.fail(siteID, err)
	}
	details, err := s.api.GetMeterData(ctx, siteID, start, end)
	if err != nil {
		return s.fail(siteID, err)
	}
	if details == nil {
		return s.succeed(ctx, siteID, nil, len(meters))
	}

	series, err := details.Series()
	if err != nil {
		return s.fail(siteID, err)
	}

	var readings []model.MeterReading
	var latest *time.Time
	for _, ser := range series {
		meterID, ok := ids[ser.Key()]
		if !ok {
			log.Printf("Warning: readings for unknown meter %q of site %d. Skipping.", ser.Key(), siteID)
			continue
		}
		for _, sample := range ser.Values {
			ts, err := parse.Timestamp(sample.Date)
			if err != nil {
				continue
			}
			m := sample.Measurement()
			energy := m.Energy
			if energy == nil {
				energy = m.Value
			}
			readings = append(readings, model.MeterReading{
				MeterID:        meterID,
				Timestamp:      ts,
				Power:          m.Power,
				EnergyLifetime: energy,
				VoltageL1:      m.Voltage.L1,
				VoltageL2:      m.Voltage.L2,
				VoltageL3:      m.Voltage.L3,
				CurrentL1:      m.Current.L1,
				CurrentL2:      m.Current.L2,
				CurrentL3:      m.Current.L3,
				PowerFactor:    m.PowerFactor,
			})
			latest = later(latest, ts)
		}
	}
	type readingKey struct {
		meterID int64
		ts      time.Time
	}
	readings = dedupe(readings, func(r model.MeterReading) readingKey { return readingKey{r.MeterID, r.Timestamp} })

	if err := s.store.UpsertMeterReadings(ctx, readings); err != nil {
		return s.fail(siteID, err)
	}
	return s.succeed(ctx, siteID, latest, len(meters)+len(readings))
}
