package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"solar-sync-backend/internal/model"
)

// AlertRepository persists site alerts keyed by (site, alert id).
type AlertRepository interface {
	UpsertAlerts(ctx context.Context, alerts []model.Alert) error
	ListAlerts(ctx context.Context, siteID int64) ([]model.Alert, error)
}

// EnvironmentalRepository persists the one-row-per-site benefits summary.
type EnvironmentalRepository interface {
	UpsertEnvironmentalBenefits(ctx context.Context, benefits *model.EnvironmentalBenefits) error
	// GetEnvironmentalBenefits returns nil when the site has no summary yet.
	GetEnvironmentalBenefits(ctx context.Context, siteID int64) (*model.EnvironmentalBenefits, error)
}

func (s *gormStore) UpsertAlerts(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return s.upsert(ctx, "alerts", &alerts, []string{"site_id", "alert_id"}, []string{
		"severity", "alert_type", "alert_code", "name", "description", "serial_number", "alert_timestamp", "updated_at",
	})
}

func (s *gormStore) ListAlerts(ctx context.Context, siteID int64) ([]model.Alert, error) {
	var alerts []model.Alert
	if err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("alert_id").Find(&alerts).Error; err != nil {
		return nil, wrapError("list alerts", err)
	}
	return alerts, nil
}

func (s *gormStore) UpsertEnvironmentalBenefits(ctx context.Context, benefits *model.EnvironmentalBenefits) error {
	return s.upsert(ctx, "environmental benefits", benefits, []string{"site_id"}, []string{
		"co2_saved", "so2_saved", "nox_saved", "co2_units", "trees_planted", "light_bulbs", "benefits_timestamp", "updated_at",
	})
}

func (s *gormStore) GetEnvironmentalBenefits(ctx context.Context, siteID int64) (*model.EnvironmentalBenefits, error) {
	var benefits model.EnvironmentalBenefits
	err := s.db.WithContext(ctx).First(&benefits, "site_id = ?", siteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("get environmental benefits", err)
	}
	return &benefits, nil
}
