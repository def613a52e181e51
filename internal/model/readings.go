package model

import (
	"time"

	"gorm.io/datatypes"
)

// EnergyReading is one aggregate energy value for a site, date and time unit.
type EnergyReading struct {
	ID          int64     `gorm:"primaryKey" json:"-"`
	SiteID      int64     `gorm:"not null;uniqueIndex:uq_energy_reading" json:"siteId"`
	ReadingDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_energy_reading" json:"date"`
	TimeUnit    string    `gorm:"size:20;not null;uniqueIndex:uq_energy_reading" json:"timeUnit"`
	EnergyWh    *float64  `json:"energyWh"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// PowerReading is one instantaneous power sample for a site.
type PowerReading struct {
	ID         int64     `gorm:"primaryKey" json:"-"`
	SiteID     int64     `gorm:"not null;uniqueIndex:uq_power_reading" json:"siteId"`
	Timestamp  time.Time `gorm:"not null;uniqueIndex:uq_power_reading" json:"timestamp"`
	PowerWatts *float64  `json:"powerWatts"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// PowerFlow is a snapshot of the current grid, PV, load and storage flow of a site.
type PowerFlow struct {
	ID        int64     `gorm:"primaryKey"`
	SiteID    int64     `gorm:"not null;uniqueIndex:uq_power_flow"`
	Timestamp time.Time `gorm:"not null;uniqueIndex:uq_power_flow"`
	Unit      string    `gorm:"size:10"`

	GridStatus string `gorm:"size:50"`
	GridPower  *float64
	PVStatus   string   `gorm:"column:pv_status;size:50"`
	PVPower    *float64 `gorm:"column:pv_power"`
	LoadStatus string   `gorm:"size:50"`
	LoadPower  *float64

	StorageStatus      string `gorm:"size:50"`
	StoragePower       *float64
	StorageChargeLevel *float64
	StorageCritical    *bool

	Connections datatypes.JSON `gorm:"type:json"`
	CreatedAt   time.Time
}
