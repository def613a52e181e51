package model

import "time"

// Equipment type discriminators as reported by the upstream API.
const (
	EquipmentTypeInverter  = "Inverter"
	EquipmentTypeOptimizer = "Optimizer"
)

// Equipment is a physical device (inverter, optimizer, gateway) attached to a site.
// Devices missing from a later response are not removed.
type Equipment struct {
	ID                  int64      `gorm:"primaryKey" json:"-"`
	SiteID              int64      `gorm:"index;not null" json:"siteId"`
	SerialNumber        string     `gorm:"size:100;not null;uniqueIndex:uq_equipment_serial" json:"serialNumber"`
	Name                string     `gorm:"size:255" json:"name"`
	Manufacturer        string     `gorm:"size:100" json:"manufacturer"`
	Model               string     `gorm:"size:100" json:"model"`
	EquipmentType       string     `gorm:"size:50;index" json:"type"`
	CommunicationMethod string     `gorm:"size:50" json:"communicationMethod,omitempty"`
	CPUVersion          string     `gorm:"column:cpu_version;size:50" json:"cpuVersion,omitempty"`
	DSP1Version         string     `gorm:"column:dsp1_version;size:50" json:"dsp1Version,omitempty"`
	DSP2Version         string     `gorm:"column:dsp2_version;size:50" json:"dsp2Version,omitempty"`
	ConnectedOptimizers *int       `json:"connectedOptimizers,omitempty"`
	LastReportDate      *time.Time `json:"lastReportDate,omitempty"`
	CreatedAt           time.Time  `json:"-"`
	UpdatedAt           time.Time  `json:"updatedAt"`

	// Associations
	Site Site `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the uncountable table name.
func (Equipment) TableName() string {
	return "equipment"
}
