package store

import (
	"context"

	"solar-sync-backend/internal/model"
)

// BatteryRepository persists storage units with their latest telemetry snapshot.
type BatteryRepository interface {
	UpsertBatteries(ctx context.Context, batteries []model.Battery) error
	ListBatteries(ctx context.Context, siteID int64) ([]model.Battery, error)
}

func (s *gormStore) UpsertBatteries(ctx context.Context, batteries []model.Battery) error {
	if len(batteries) == 0 {
		return nil
	}
	return s.upsert(ctx, "batteries", &batteries, []string{"serial_number"}, []string{
		"site_id", "name", "manufacturer", "model", "firmware_version", "nameplate_capacity",
		"connected_inverter_sn", "capacity", "last_state_of_charge", "last_power", "last_status",
		"last_telemetry_time", "lifetime_energy_charged", "lifetime_energy_discharged", "updated_at",
	})
}

func (s *gormStore) ListBatteries(ctx context.Context, siteID int64) ([]model.Battery, error) {
	var batteries []model.Battery
	if err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("serial_number").Find(&batteries).Error; err != nil {
		return nil, wrapError("list batteries", err)
	}
	return batteries, nil
}
