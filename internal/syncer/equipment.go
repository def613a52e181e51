package syncer

import (
	"context"
	"log"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
)

// equipmentStrategy refreshes the device list. Devices missing from the response are kept.
type equipmentStrategy struct{ base }

// NewEquipmentStrategy creates the equipment strategy.
func NewEquipmentStrategy(d Deps) Strategy {
	return &equipmentStrategy{newBase(DataTypeEquipment, d)}
}

func (s *equipmentStrategy) Sync(ctx context.Context, siteID int64, _ bool) (int, error) {
	log.Printf("Syncing equipment for site %d", siteID)

	reporters, err := s.api.GetEquipment(ctx, siteID)
	if err != nil {
		return s.fail(siteID, err)
	}

	var items []model.Equipment
	for _, r := range reporters {
		serial := r.SerialNumber()
		if serial == "" {
			log.Printf("Warning: equipment %q of site %d has no serial number. Skipping.", r.Name, siteID)
			continue
		}
		equipmentType := r.Type
		if equipmentType == "" {
			equipmentType = model.EquipmentTypeInverter
		}
		items = append(items, model.Equipment{
			SiteID:              siteID,
			SerialNumber:        serial,
			Name:                r.Name,
			Manufacturer:        r.Manufacturer,
			Model:               r.Model,
			EquipmentType:       equipmentType,
			CommunicationMethod: r.CommunicationMethod,
			CPUVersion:          r.CPUVersion,
			DSP1Version:         r.DSP1Version,
			DSP2Version:         r.DSP2Version,
			ConnectedOptimizers: r.ConnectedOptimizers,
			LastReportDate:      parse.OptionalISO(r.LastReportDate),
		})
	}
	items = dedupe(items, func(e model.Equipment) string { return e.SerialNumber })

	if err := s.store.UpsertEquipment(ctx, items); err != nil {
		return s.fail(siteID, err)
	}
	now := s.now()
	return s.succeed(ctx, siteID, &now, len(items))
}
