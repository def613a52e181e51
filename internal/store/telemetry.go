package store

import (
	"context"
	"time"

	"solar-sync-backend/internal/model"
)

// TelemetryRepository persists per-device technical samples.
type TelemetryRepository interface {
	UpsertInverterTelemetry(ctx context.Context, rows []model.InverterTelemetry) error
	UpsertOptimizerTelemetry(ctx context.Context, rows []model.OptimizerTelemetry) error
	InverterTelemetry(ctx context.Context, siteID int64, serial string, from, to time.Time) ([]model.InverterTelemetry, error)
	OptimizerTelemetry(ctx context.Context, siteID int64, serial string, from, to time.Time) ([]model.OptimizerTelemetry, error)
}

func (s *gormStore) UpsertInverterTelemetry(ctx context.Context, rows []model.InverterTelemetry) error {
	if len(rows) == 0 {
		return nil
	}
	return s.upsert(ctx, "inverter telemetry", &rows, []string{"site_id", "serial_number", "timestamp"}, []string{
		"total_active_power", "total_energy", "power_limit", "temperature", "inverter_mode", "operation_mode",
		"ac_current", "ac_voltage", "ac_frequency", "apparent_power", "active_power", "reactive_power", "cos_phi",
		"dc_voltage",
	})
}

func (s *gormStore) UpsertOptimizerTelemetry(ctx context.Context, rows []model.OptimizerTelemetry) error {
	if len(rows) == 0 {
		return nil
	}
	return s.upsert(ctx, "optimizer telemetry", &rows, []string{"site_id", "serial_number", "timestamp"}, []string{
		"panel_id", "dc_voltage", "dc_current", "dc_power", "output_voltage", "output_current", "output_power",
		"energy", "lifetime_energy", "temperature", "optimizer_mode",
	})
}

func (s *gormStore) InverterTelemetry(ctx context.Context, siteID int64, serial string, from, to time.Time) ([]model.InverterTelemetry, error) {
	var rows []model.InverterTelemetry
	err := s.db.WithContext(ctx).
		Where("site_id = ? AND serial_number = ? AND timestamp >= ? AND timestamp <= ?", siteID, serial, from, to).
		Order("timestamp").
		Find(&rows).Error
	if err != nil {
		return nil, wrapError("query inverter telemetry", err)
	}
	return rows, nil
}

func (s *gormStore) OptimizerTelemetry(ctx context.Context, siteID int64, serial string, from, to time.Time) ([]model.OptimizerTelemetry, error) {
	var rows []model.OptimizerTelemetry
	err := s.db.WithContext(ctx).
		Where("site_id = ? AND serial_number = ? AND timestamp >= ? AND timestamp <= ?", siteID, serial, from, to).
		Order("timestamp").
		Find(&rows).Error
	if err != nil {
		return nil, wrapError("query optimizer telemetry", err)
	}
	return rows, nil
}
