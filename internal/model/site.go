package model

import (
	"time"

	"gorm.io/datatypes"
)

// Site is one monitored installation. The primary key is the upstream site id.
type Site struct {
	ID               int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name             string     `gorm:"size:255;not null" json:"name"`
	AccountID        *int64     `json:"accountId,omitempty"`
	Status           string     `gorm:"size:50" json:"status,omitempty"`
	PeakPower        *float64   `json:"peakPower,omitempty"`
	LastUpdateTime   *time.Time `json:"lastUpdateTime,omitempty"`
	InstallationDate *time.Time `json:"installationDate,omitempty"`
	Currency         string     `gorm:"size:10" json:"currency,omitempty"`
	Notes            string     `gorm:"type:text" json:"notes,omitempty"`
	SiteType         string     `gorm:"size:50" json:"type,omitempty"`

	// Location
	Country  string `gorm:"size:100" json:"country,omitempty"`
	State    string `gorm:"size:100" json:"state,omitempty"`
	City     string `gorm:"size:100" json:"city,omitempty"`
	Address  string `gorm:"size:255" json:"address,omitempty"`
	Address2 string `gorm:"size:255" json:"address2,omitempty"`
	ZipCode  string `gorm:"size:20" json:"zip,omitempty"`
	Timezone string `gorm:"size:50" json:"timeZone,omitempty"`

	PrimaryModuleManufacturer string   `gorm:"size:100" json:"primaryModuleManufacturer,omitempty"`
	PrimaryModuleModel        string   `gorm:"size:100" json:"primaryModuleModel,omitempty"`
	PrimaryModulePower        *float64 `json:"primaryModulePower,omitempty"`

	IsPublic       *bool          `json:"isPublic,omitempty"`
	PublicName     string         `gorm:"size:255" json:"publicName,omitempty"`
	PublicSettings datatypes.JSON `gorm:"type:json" json:"publicSettings,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
