package model

import "time"

// PushSubscription holds a browser push subscription of an operator who wants sync outcome notifications.
// SiteIDs restricts notifications to the listed sites; an empty list means every site.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Sites []*Site `gorm:"many2many:subscription_site_mapping;"`
}
