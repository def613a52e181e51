package model

import "time"

// Battery is a storage unit with a snapshot of its most recent telemetry sample.
type Battery struct {
	ID                  int64  `gorm:"primaryKey"`
	SiteID              int64  `gorm:"index;not null"`
	SerialNumber        string `gorm:"size:100;not null;uniqueIndex:uq_battery_serial"`
	Name                string `gorm:"size:255"`
	Manufacturer        string `gorm:"size:100"`
	Model               string `gorm:"size:100"`
	FirmwareVersion     string `gorm:"size:50"`
	NameplateCapacity   *float64
	ConnectedInverterSN string `gorm:"column:connected_inverter_sn;size:100"`

	// Latest telemetry snapshot
	Capacity                 *float64
	LastStateOfCharge        *float64
	LastPower                *float64
	LastStatus               string `gorm:"size:50"`
	LastTelemetryTime        *time.Time
	LifetimeEnergyCharged    *float64
	LifetimeEnergyDischarged *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}
