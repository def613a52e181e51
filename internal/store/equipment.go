package store

import (
	"context"

	"solar-sync-backend/internal/model"
)

// EquipmentRepository persists devices keyed by serial number.
type EquipmentRepository interface {
	UpsertEquipment(ctx context.Context, items []model.Equipment) error
	// ListEquipment lists the devices of a site, optionally restricted to one equipment type.
	ListEquipment(ctx context.Context, siteID int64, equipmentType string) ([]model.Equipment, error)
}

var equipmentUpdateColumns = []string{
	"site_id", "name", "manufacturer", "model", "equipment_type", "communication_method",
	"cpu_version", "dsp1_version", "dsp2_version", "connected_optimizers", "last_report_date", "updated_at",
}

func (s *gormStore) UpsertEquipment(ctx context.Context, items []model.Equipment) error {
	if len(items) == 0 {
		return nil
	}
	return s.upsert(ctx, "equipment", &items, []string{"serial_number"}, equipmentUpdateColumns)
}

func (s *gormStore) ListEquipment(ctx context.Context, siteID int64, equipmentType string) ([]model.Equipment, error) {
	q := s.db.WithContext(ctx).Where("site_id = ?", siteID)
	if equipmentType != "" {
		q = q.Where("equipment_type = ?", equipmentType)
	}
	var items []model.Equipment
	if err := q.Order("serial_number").Find(&items).Error; err != nil {
		return nil, wrapError("list equipment", err)
	}
	return items, nil
}
