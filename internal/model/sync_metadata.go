package model

import "time"

// Sync statuses recorded per site and data type.
const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusError   = "error"
)

// SyncMetadata tracks resume state for one (site, data type) pair.
// LastDataTimestamp is the watermark that drives the next incremental fetch window.
type SyncMetadata struct {
	ID                int64      `gorm:"primaryKey" json:"-"`
	SiteID            int64      `gorm:"not null;uniqueIndex:uq_sync_metadata" json:"siteId"`
	DataType          string     `gorm:"size:50;not null;uniqueIndex:uq_sync_metadata" json:"dataType"`
	LastSyncTime      time.Time  `gorm:"not null" json:"lastSync"`
	LastDataTimestamp *time.Time `json:"lastData"`
	RecordsSynced     int        `json:"records"`
	Status            string     `gorm:"size:20" json:"status"`
	ErrorMessage      string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt         time.Time  `json:"-"`
	UpdatedAt         time.Time  `json:"-"`
}

// TableName overrides the pluralised default.
func (SyncMetadata) TableName() string {
	return "sync_metadata"
}
