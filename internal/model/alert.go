package model

import "time"

// Alert is a historical alert raised for a site component.
type Alert struct {
	ID             int64  `gorm:"primaryKey"`
	SiteID         int64  `gorm:"not null;uniqueIndex:uq_alert"`
	AlertID        int64  `gorm:"not null;uniqueIndex:uq_alert"`
	Severity       string `gorm:"size:20"`
	AlertType      string `gorm:"size:100"`
	AlertCode      *int
	Name           string `gorm:"size:255"`
	Description    string `gorm:"type:text"`
	SerialNumber   string `gorm:"size:100"`
	AlertTimestamp *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EnvironmentalBenefits holds the cumulative savings of a site. One row per site.
type EnvironmentalBenefits struct {
	ID                int64      `gorm:"primaryKey" json:"-"`
	SiteID            int64      `gorm:"not null;uniqueIndex:uq_environmental_benefits_site" json:"siteId"`
	CO2Saved          *float64   `gorm:"column:co2_saved" json:"co2Saved"`
	SO2Saved          *float64   `gorm:"column:so2_saved" json:"so2Saved"`
	NOxSaved          *float64   `gorm:"column:nox_saved" json:"noxSaved"`
	CO2Units          string     `gorm:"column:co2_units;size:20" json:"units"`
	TreesPlanted      *float64   `json:"treesPlanted"`
	LightBulbs        *float64   `json:"lightBulbs"`
	BenefitsTimestamp *time.Time `json:"timestamp"`
	CreatedAt         time.Time  `json:"-"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// TableName keeps the plural form explicit.
func (EnvironmentalBenefits) TableName() string {
	return "environmental_benefits"
}
