package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"solar-sync-backend/internal/model"
)

// ErrSubscriptionNotFound is returned when no subscription matches an endpoint.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// SubscriptionRepository persists operator push subscriptions.
type SubscriptionRepository interface {
	// PutSubscription creates or replaces a subscription and its site filter.
	PutSubscription(ctx context.Context, sub *model.PushSubscription, siteIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	// SubscriptionsForSites returns the subscriptions interested in any of siteIDs,
	// including those without a site filter.
	SubscriptionsForSites(ctx context.Context, siteIDs []int64) ([]model.PushSubscription, error)
}

func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, siteIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return wrapError("upsert subscription", err)
		}

		var sites []*model.Site
		if len(siteIDs) > 0 {
			if err := tx.Find(&sites, siteIDs).Error; err != nil {
				return wrapError("find subscribed sites", err)
			}
		}

		if err := tx.Model(sub).Association("Sites").Replace(&sites); err != nil {
			return wrapError("replace subscribed sites", err)
		}
		sub.Sites = sites
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Sites").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, wrapError("get subscription", err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := &model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(sub).Association("Sites").Clear(); err != nil {
			return wrapError("clear subscribed sites", err)
		}
		if err := tx.Delete(sub).Error; err != nil {
			return wrapError("delete subscription", err)
		}
		return nil
	})
}

func (s *gormStore) SubscriptionsForSites(ctx context.Context, siteIDs []int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Sites").Find(&subs).Error; err != nil {
		return nil, wrapError("list subscriptions", err)
	}

	wanted := make(map[int64]bool, len(siteIDs))
	for _, id := range siteIDs {
		wanted[id] = true
	}

	var matched []model.PushSubscription
	for _, sub := range subs {
		if len(sub.Sites) == 0 {
			matched = append(matched, sub)
			continue
		}
		for _, site := range sub.Sites {
			if wanted[site.ID] {
				matched = append(matched, sub)
				break
			}
		}
	}
	return matched, nil
}
