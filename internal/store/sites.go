package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"solar-sync-backend/internal/model"
)

// SiteRepository persists site metadata.
type SiteRepository interface {
	UpsertSites(ctx context.Context, sites []model.Site) error
	ListSites(ctx context.Context) ([]model.Site, error)
	// GetSite returns nil when the site is unknown.
	GetSite(ctx context.Context, id int64) (*model.Site, error)
}

var siteUpdateColumns = []string{
	"name", "account_id", "status", "peak_power", "last_update_time", "installation_date", "currency",
	"notes", "site_type", "country", "state", "city", "address", "address2", "zip_code", "timezone",
	"primary_module_manufacturer", "primary_module_model", "primary_module_power",
	"is_public", "public_name", "public_settings", "updated_at",
}

func (s *gormStore) UpsertSites(ctx context.Context, sites []model.Site) error {
	if len(sites) == 0 {
		return nil
	}
	return s.upsert(ctx, "sites", &sites, []string{"id"}, siteUpdateColumns)
}

func (s *gormStore) ListSites(ctx context.Context) ([]model.Site, error) {
	var sites []model.Site
	if err := s.db.WithContext(ctx).Order("id").Find(&sites).Error; err != nil {
		return nil, wrapError("list sites", err)
	}
	return sites, nil
}

func (s *gormStore) GetSite(ctx context.Context, id int64) (*model.Site, error) {
	var site model.Site
	err := s.db.WithContext(ctx).First(&site, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("get site", err)
	}
	return &site, nil
}
