package store

import (
	"context"
	"time"

	"solar-sync-backend/internal/model"
)

// EnergyRepository persists aggregate energy values.
type EnergyRepository interface {
	UpsertEnergyReadings(ctx context.Context, readings []model.EnergyReading) error
	// EnergyReadings returns the readings of a site with from <= date <= to, oldest first.
	EnergyReadings(ctx context.Context, siteID int64, from, to time.Time) ([]model.EnergyReading, error)
}

// PowerRepository persists power samples and power-flow snapshots.
type PowerRepository interface {
	UpsertPowerReadings(ctx context.Context, readings []model.PowerReading) error
	// PowerReadings returns the samples of a site with from <= timestamp <= to, oldest first.
	PowerReadings(ctx context.Context, siteID int64, from, to time.Time) ([]model.PowerReading, error)
	UpsertPowerFlow(ctx context.Context, flow *model.PowerFlow) error
}

func (s *gormStore) UpsertEnergyReadings(ctx context.Context, readings []model.EnergyReading) error {
	if len(readings) == 0 {
		return nil
	}
	return s.upsert(ctx, "energy readings", &readings,
		[]string{"site_id", "reading_date", "time_unit"},
		[]string{"energy_wh", "updated_at"})
}

func (s *gormStore) EnergyReadings(ctx context.Context, siteID int64, from, to time.Time) ([]model.EnergyReading, error) {
	var readings []model.EnergyReading
	err := s.db.WithContext(ctx).
		Where("site_id = ? AND reading_date >= ? AND reading_date <= ?", siteID, from, to).
		Order("reading_date").
		Find(&readings).Error
	if err != nil {
		return nil, wrapError("query energy readings", err)
	}
	return readings, nil
}

func (s *gormStore) UpsertPowerReadings(ctx context.Context, readings []model.PowerReading) error {
	if len(readings) == 0 {
		return nil
	}
	return s.upsert(ctx, "power readings", &readings,
		[]string{"site_id", "timestamp"},
		[]string{"power_watts", "updated_at"})
}

func (s *gormStore) PowerReadings(ctx context.Context, siteID int64, from, to time.Time) ([]model.PowerReading, error) {
	var readings []model.PowerReading
	err := s.db.WithContext(ctx).
		Where("site_id = ? AND timestamp >= ? AND timestamp <= ?", siteID, from, to).
		Order("timestamp").
		Find(&readings).Error
	if err != nil {
		return nil, wrapError("query power readings", err)
	}
	return readings, nil
}

func (s *gormStore) UpsertPowerFlow(ctx context.Context, flow *model.PowerFlow) error {
	return s.upsert(ctx, "power flow", flow,
		[]string{"site_id", "timestamp"},
		[]string{
			"unit", "grid_status", "grid_power", "pv_status", "pv_power", "load_status", "load_power",
			"storage_status", "storage_power", "storage_charge_level", "storage_critical", "connections",
		})
}
