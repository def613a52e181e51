package store

import (
	"context"

	"solar-sync-backend/internal/model"
)

// InventoryRepository persists the flattened site inventory.
type InventoryRepository interface {
	UpsertInventory(ctx context.Context, items []model.InventoryItem) error
	ListInventory(ctx context.Context, siteID int64) ([]model.InventoryItem, error)
}

func (s *gormStore) UpsertInventory(ctx context.Context, items []model.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.upsert(ctx, "inventory", &items, []string{"site_id", "name", "serial_number"}, []string{
		"manufacturer", "model", "category", "firmware_version", "cpu_version", "connected_optimizers", "connected_to", "updated_at",
	})
}

func (s *gormStore) ListInventory(ctx context.Context, siteID int64) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	if err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("category, name").Find(&items).Error; err != nil {
		return nil, wrapError("list inventory", err)
	}
	return items, nil
}
