package syncer

import (
	"context"
	"log"
	"net/http"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/solaredge"
)

// inventoryStrategy flattens every inventory category into one table.
type inventoryStrategy struct{ base }

// NewInventoryStrategy creates the inventory strategy.
func NewInventoryStrategy(d Deps) Strategy {
	return &inventoryStrategy{newBase(DataTypeInventory, d)}
}

func (s *inventoryStrategy) Sync(ctx context.Context, siteID int64, _ bool) (int, error) {
	log.Printf("Syncing inventory for site %d", siteID)

	inv, err := s.api.GetInventory(ctx, siteID)
	if solaredge.IsUnavailable(err, http.StatusBadRequest, http.StatusForbidden) {
		return s.unavailable(ctx, siteID, err)
	}
	if err != nil {
		return s.fail(siteID, err)
	}

	var items []model.InventoryItem
	for _, category := range inv.Categories() {
		for _, e := range inv[category] {
			name := e.Name
			if name == "" {
				name = e.Model
			}
			if name == "" {
				continue
			}
			items = append(items, model.InventoryItem{
				SiteID:              siteID,
				Name:                name,
				SerialNumber:        e.SerialNumber(),
				Manufacturer:        e.Manufacturer,
				Model:               e.Model,
				Category:            category,
				FirmwareVersion:     e.FirmwareVersion,
				CPUVersion:          e.CPUVersion,
				ConnectedOptimizers: e.ConnectedOptimizers,
				ConnectedTo:         e.ConnectedTo,
			})
		}
	}
	type itemKey struct{ name, serial string }
	items = dedupe(items, func(i model.InventoryItem) itemKey { return itemKey{i.Name, i.SerialNumber} })

	if err := s.store.UpsertInventory(ctx, items); err != nil {
		return s.fail(siteID, err)
	}
	now := s.now()
	return s.succeed(ctx, siteID, &now, len(items))
}
