package model

import "time"

// Meter is a production, consumption or feed-in meter of a site.
type Meter struct {
	ID             int64  `gorm:"primaryKey"`
	SiteID         int64  `gorm:"not null;uniqueIndex:uq_meter_site_name"`
	Name           string `gorm:"size:100;not null;uniqueIndex:uq_meter_site_name"`
	Manufacturer   string `gorm:"size:100"`
	Model          string `gorm:"size:100"`
	MeterType      string `gorm:"size:50"`
	SerialNumber   string `gorm:"size:100"`
	ConnectionType string `gorm:"size:50"`
	Form           string `gorm:"size:50"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Readings []MeterReading `gorm:"foreignKey:MeterID"`
}

// MeterReading is one multi-phase meter sample.
type MeterReading struct {
	ID             int64     `gorm:"primaryKey"`
	MeterID        int64     `gorm:"not null;uniqueIndex:uq_meter_reading"`
	Timestamp      time.Time `gorm:"not null;uniqueIndex:uq_meter_reading"`
	Power          *float64
	EnergyLifetime *float64
	VoltageL1      *float64 `gorm:"column:voltage_l1"`
	VoltageL2      *float64 `gorm:"column:voltage_l2"`
	VoltageL3      *float64 `gorm:"column:voltage_l3"`
	CurrentL1      *float64 `gorm:"column:current_l1"`
	CurrentL2      *float64 `gorm:"column:current_l2"`
	CurrentL3      *float64 `gorm:"column:current_l3"`
	PowerFactor    *float64
	CreatedAt      time.Time
}
