package model

import "time"

// InverterTelemetry is one technical sample of an inverter.
type InverterTelemetry struct {
	ID               int64     `gorm:"primaryKey" json:"-"`
	SiteID           int64     `gorm:"not null;uniqueIndex:uq_inverter_telemetry" json:"siteId"`
	SerialNumber     string    `gorm:"size:100;not null;uniqueIndex:uq_inverter_telemetry" json:"serialNumber"`
	Timestamp        time.Time `gorm:"not null;uniqueIndex:uq_inverter_telemetry" json:"timestamp"`
	TotalActivePower *float64  `json:"totalActivePower"`
	TotalEnergy      *float64  `json:"totalEnergy"`
	PowerLimit       *float64  `json:"powerLimit"`
	Temperature      *float64  `json:"temperature"`
	InverterMode     string    `gorm:"size:50" json:"inverterMode"`
	OperationMode    *int      `json:"operationMode"`

	// Phase L1
	ACCurrent     *float64 `gorm:"column:ac_current" json:"acCurrent"`
	ACVoltage     *float64 `gorm:"column:ac_voltage" json:"acVoltage"`
	ACFrequency   *float64 `gorm:"column:ac_frequency" json:"acFrequency"`
	ApparentPower *float64 `json:"apparentPower"`
	ActivePower   *float64 `json:"activePower"`
	ReactivePower *float64 `json:"reactivePower"`
	CosPhi        *float64 `json:"cosPhi"`

	DCVoltage *float64  `gorm:"column:dc_voltage" json:"dcVoltage"`
	CreatedAt time.Time `json:"-"`
}

// TableName overrides the pluralised default.
func (InverterTelemetry) TableName() string {
	return "inverter_telemetry"
}

// OptimizerTelemetry is one technical sample of a power optimizer.
type OptimizerTelemetry struct {
	ID             int64     `gorm:"primaryKey"`
	SiteID         int64     `gorm:"not null;uniqueIndex:uq_optimizer_telemetry"`
	SerialNumber   string    `gorm:"size:100;not null;uniqueIndex:uq_optimizer_telemetry"`
	Timestamp      time.Time `gorm:"not null;uniqueIndex:uq_optimizer_telemetry"`
	PanelID        *int64
	DCVoltage      *float64 `gorm:"column:dc_voltage"`
	DCCurrent      *float64 `gorm:"column:dc_current"`
	DCPower        *float64 `gorm:"column:dc_power"`
	OutputVoltage  *float64
	OutputCurrent  *float64
	OutputPower    *float64
	Energy         *float64
	LifetimeEnergy *float64
	Temperature    *float64
	OptimizerMode  string `gorm:"size:50"`
	CreatedAt      time.Time
}

// TableName overrides the pluralised default.
func (OptimizerTelemetry) TableName() string {
	return "optimizer_telemetry"
}
