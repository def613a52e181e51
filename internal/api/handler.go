package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"solar-sync-backend/internal/store"
	"solar-sync-backend/internal/syncer"
)

// Syncer is the part of the orchestrator the API triggers and reports on.
type Syncer interface {
	SyncAll(ctx context.Context, full bool, siteFilter []int64) (*syncer.SyncSummary, error)
	GetSyncStatus(ctx context.Context, siteIDs ...int64) ([]syncer.SiteStatus, error)
}

// Quota reports the local API quota.
type Quota interface {
	RemainingRequests() int
	DailyLimit() int
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	syncer  Syncer
	quota   Quota
	webpush *webpush.Options
	cache   *cache.Cache
}

// NewHandler creates a new API handler. quota and responses may be nil.
func NewHandler(s store.Store, sy Syncer, quota Quota, webpushOptions *webpush.Options, responses *cache.Cache) *Handler {
	return &Handler{
		store:   s,
		syncer:  sy,
		quota:   quota,
		webpush: webpushOptions,
		cache:   responses,
	}
}
