package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"solar-sync-backend/internal/model"
)

// SyncMetadataRepository persists the resume state per (site, data type).
type SyncMetadataRepository interface {
	// GetSyncMetadata returns nil when the pair was never synced.
	GetSyncMetadata(ctx context.Context, siteID int64, dataType string) (*model.SyncMetadata, error)
	// UpsertSyncMetadata stores meta. A nil LastDataTimestamp keeps the stored watermark.
	UpsertSyncMetadata(ctx context.Context, meta *model.SyncMetadata) error
	// ListSyncMetadata lists the metadata of the given sites, or of every site when none are given.
	ListSyncMetadata(ctx context.Context, siteIDs ...int64) ([]model.SyncMetadata, error)
}

func (s *gormStore) GetSyncMetadata(ctx context.Context, siteID int64, dataType string) (*model.SyncMetadata, error) {
	var meta model.SyncMetadata
	err := s.db.WithContext(ctx).First(&meta, "site_id = ? AND data_type = ?", siteID, dataType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("get sync metadata", err)
	}
	return &meta, nil
}

func (s *gormStore) UpsertSyncMetadata(ctx context.Context, meta *model.SyncMetadata) error {
	update := []string{"last_sync_time", "records_synced", "status", "error_message", "updated_at"}
	if meta.LastDataTimestamp != nil {
		update = append(update, "last_data_timestamp")
	}
	return s.upsert(ctx, "sync metadata", meta, []string{"site_id", "data_type"}, update)
}

func (s *gormStore) ListSyncMetadata(ctx context.Context, siteIDs ...int64) ([]model.SyncMetadata, error) {
	q := s.db.WithContext(ctx)
	if len(siteIDs) > 0 {
		q = q.Where("site_id IN ?", siteIDs)
	}
	var rows []model.SyncMetadata
	if err := q.Order("site_id, data_type").Find(&rows).Error; err != nil {
		return nil, wrapError("list sync metadata", err)
	}
	return rows, nil
}
