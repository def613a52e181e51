package syncer

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
	"solar-sync-backend/internal/solaredge"
)

// deviceSync fetches and stores the telemetry of one device.
// It returns the stored row count and the newest timestamp seen.
type deviceSync func(ctx context.Context, siteID int64, serial string, start, end time.Time) (int, *time.Time, error)

// telemetryStrategy syncs per-device telemetry for the known devices of one equipment type.
// It reads devices from storage, so it depends on the equipment strategy.
type telemetryStrategy struct {
	base
	equipmentType string
	device        deviceSync
}

// NewInverterTelemetryStrategy creates the inverter telemetry strategy.
func NewInverterTelemetryStrategy(d Deps) Strategy {
	s := &telemetryStrategy{base: newBase(DataTypeInverterTelemetry, d), equipmentType: model.EquipmentTypeInverter}
	s.device = s.syncInverter
	return s
}

// NewOptimizerTelemetryStrategy creates the optimizer telemetry strategy.
func NewOptimizerTelemetryStrategy(d Deps) Strategy {
	s := &telemetryStrategy{base: newBase(DataTypeOptimizerTelemetry, d), equipmentType: model.EquipmentTypeOptimizer}
	s.device = s.syncOptimizer
	return s
}

func (s *telemetryStrategy) Sync(ctx context.Context, siteID int64, full bool) (int, error) {
	devices, err := s.store.ListEquipment(ctx, siteID, s.equipmentType)
	if err != nil {
		return s.fail(siteID, err)
	}
	if len(devices) == 0 {
		log.Printf("No %s devices found for site %d", s.equipmentType, siteID)
		return s.succeed(ctx, siteID, nil, 0)
	}

	end := s.siteNow(ctx, siteID)
	var start time.Time
	if full {
		start = end.AddDate(0, 0, -s.settings.PowerLookbackDays)
	} else if start, err = s.StartTime(ctx, siteID, s.settings.TelemetryLookbackDays); err != nil {
		return s.fail(siteID, err)
	}
	log.Printf("Syncing %s for %d devices of site %d (full=%t)", s.dataType, len(devices), siteID, full)

	total := 0
	var latest *time.Time
	var skipped []string
	for _, dev := range devices {
		n, devLatest, err := s.device(ctx, siteID, dev.SerialNumber, start, end)
		if solaredge.IsUnavailable(err, http.StatusBadRequest, http.StatusForbidden) {
			log.Printf("%s not available for device %s of site %d (status %d)", s.dataType, dev.SerialNumber, siteID, solaredge.StatusCode(err))
			skipped = append(skipped, dev.SerialNumber)
			continue
		}
		if err != nil {
			return s.fail(siteID, fmt.Errorf("device %s: %w", dev.SerialNumber, err))
		}
		total += n
		if devLatest != nil {
			latest = later(latest, *devLatest)
		}
	}

	if len(skipped) > 0 {
		return s.finish(ctx, siteID, latest, total, model.SyncStatusPartial,
			fmt.Sprintf("telemetry unavailable for %d of %d devices: %v", len(skipped), len(devices), skipped))
	}
	return s.succeed(ctx, siteID, latest, total)
}

func (s *telemetryStrategy) syncInverter(ctx context.Context, siteID int64, serial string, start, end time.Time) (int, *time.Time, error) {
	readings, err := s.api.GetInverterData(ctx, siteID, serial, start, end)
	if err != nil {
		return 0, nil, err
	}

	var rows []model.InverterTelemetry
	var latest *time.Time
	for _, r := range readings {
		ts, err := parse.Timestamp(r.Date)
		if err != nil {
			continue
		}
		row := model.InverterTelemetry{
			SiteID:           siteID,
			SerialNumber:     serial,
			Timestamp:        ts,
			TotalActivePower: r.TotalActivePower,
			TotalEnergy:      r.TotalEnergy,
			PowerLimit:       r.PowerLimit,
			Temperature:      r.Temperature,
			InverterMode:     r.InverterMode,
			OperationMode:    r.OperationMode,
			DCVoltage:        r.DCVoltage,
		}
		if l1 := r.L1Data; l1 != nil {
			row.ACCurrent = l1.ACCurrent
			row.ACVoltage = l1.ACVoltage
			row.ACFrequency = l1.ACFrequency
			row.ApparentPower = l1.ApparentPower
			row.ActivePower = l1.ActivePower
			row.ReactivePower = l1.ReactivePower
			row.CosPhi = l1.CosPhi
		}
		rows = append(rows, row)
		latest = later(latest, ts)
	}
	rows = dedupe(rows, func(r model.InverterTelemetry) time.Time { return r.Timestamp })

	if err := s.store.UpsertInverterTelemetry(ctx, rows); err != nil {
		return 0, nil, err
	}
	return len(rows), latest, nil
}

func (s *telemetryStrategy) syncOptimizer(ctx context.Context, siteID int64, serial string, start, end time.Time) (int, *time.Time, error) {
	readings, err := s.api.GetOptimizerData(ctx, siteID, serial, start, end)
	if err != nil {
		return 0, nil, err
	}

	var rows []model.OptimizerTelemetry
	var latest *time.Time
	for _, r := range readings {
		ts, err := parse.Timestamp(r.Date)
		if err != nil {
			continue
		}
		rows = append(rows, model.OptimizerTelemetry{
			SiteID:         siteID,
			SerialNumber:   serial,
			Timestamp:      ts,
			PanelID:        r.PanelID,
			DCVoltage:      r.DCVoltage,
			DCCurrent:      r.DCCurrent,
			DCPower:        r.DCPower,
			OutputVoltage:  r.OutputVoltage,
			OutputCurrent:  r.OutputCurrent,
			OutputPower:    r.OutputPower,
			Energy:         r.Energy,
			LifetimeEnergy: r.LifetimeEnergy,
			Temperature:    r.Temperature,
			OptimizerMode:  r.OptimizerMode,
		})
		latest = later(latest, ts)
	}
	rows = dedupe(rows, func(r model.OptimizerTelemetry) time.Time { return r.Timestamp })

	if err := s.store.UpsertOptimizerTelemetry(ctx, rows); err != nil {
		return 0, nil, err
	}
	return len(rows), latest, nil
}
