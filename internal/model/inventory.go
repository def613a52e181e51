package model

import "time"

// InventoryItem flattens every inventory category (inverters, optimizers, gateways, ...) into one table.
type InventoryItem struct {
	ID                  int64     `gorm:"primaryKey" json:"-"`
	SiteID              int64     `gorm:"not null;uniqueIndex:uq_inventory_item" json:"siteId"`
	Name                string    `gorm:"size:255;not null;uniqueIndex:uq_inventory_item" json:"name"`
	SerialNumber        string    `gorm:"size:100;not null;default:'';uniqueIndex:uq_inventory_item" json:"serialNumber"`
	Manufacturer        string    `gorm:"size:100" json:"manufacturer"`
	Model               string    `gorm:"size:100" json:"model"`
	Category            string    `gorm:"size:50;index" json:"category"`
	FirmwareVersion     string    `gorm:"size:50" json:"firmwareVersion,omitempty"`
	CPUVersion          string    `gorm:"column:cpu_version;size:50" json:"cpuVersion,omitempty"`
	ConnectedOptimizers *int      `json:"connectedOptimizers,omitempty"`
	ConnectedTo         string    `gorm:"size:100" json:"connectedTo,omitempty"`
	CreatedAt           time.Time `json:"-"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// TableName keeps the inventory table name singular.
func (InventoryItem) TableName() string {
	return "inventory"
}
