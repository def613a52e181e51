package store

import (
	"context"

	"solar-sync-backend/internal/model"
)

// MeterRepository persists meters and their readings.
type MeterRepository interface {
	// UpsertMeters stores meters keyed by (site, name) and returns every meter of the site with its id.
	UpsertMeters(ctx context.Context, siteID int64, meters []model.Meter) ([]model.Meter, error)
	ListMeters(ctx context.Context, siteID int64) ([]model.Meter, error)
	UpsertMeterReadings(ctx context.Context, readings []model.MeterReading) error
}

func (s *gormStore) UpsertMeters(ctx context.Context, siteID int64, meters []model.Meter) ([]model.Meter, error) {
	if len(meters) > 0 {
		for i := range meters {
			meters[i].SiteID = siteID
		}
		err := s.upsert(ctx, "meters", &meters, []string{"site_id", "name"}, []string{
			"manufacturer", "model", "meter_type", "serial_number", "connection_type", "form", "updated_at",
		})
		if err != nil {
			return nil, err
		}
	}
	return s.ListMeters(ctx, siteID)
}

func (s *gormStore) ListMeters(ctx context.Context, siteID int64) ([]model.Meter, error) {
	var meters []model.Meter
	if err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("name").Find(&meters).Error; err != nil {
		return nil, wrapError("list meters", err)
	}
	return meters, nil
}

func (s *gormStore) UpsertMeterReadings(ctx context.Context, readings []model.MeterReading) error {
	if len(readings) == 0 {
		return nil
	}
	return s.upsert(ctx, "meter readings", &readings, []string{"meter_id", "timestamp"}, []string{
		"power", "energy_lifetime", "voltage_l1", "voltage_l2", "voltage_l3",
		"current_l1", "current_l2", "current_l3", "power_factor",
	})
}
