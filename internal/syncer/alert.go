package syncer

import (
	"context"
	"log"
	"net/http"
	"time"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
	"solar-sync-backend/internal/solaredge"
)

// alertStrategy syncs all alerts of a site. Sites without alert access record an empty run.
type alertStrategy struct{ base }

// NewAlertStrategy creates the alert strategy.
func NewAlertStrategy(d Deps) Strategy {
	return &alertStrategy{newBase(DataTypeAlert, d)}
}

func (s *alertStrategy) Sync(ctx context.Context, siteID int64, _ bool) (int, error) {
	log.Printf("Syncing alerts for site %d", siteID)

	entries, err := s.api.GetAlerts(ctx, siteID)
	if solaredge.IsUnavailable(err, http.StatusBadRequest, http.StatusForbidden) {
		return s.unavailable(ctx, siteID, err)
	}
	if err != nil {
		return s.fail(siteID, err)
	}

	var alerts []model.Alert
	var latest *time.Time
	for _, a := range entries {
		if a.AlertID == 0 {
			continue
		}
		ts := parse.OptionalISO(a.AlertTimestamp)
		alerts = append(alerts, model.Alert{
			SiteID:         siteID,
			AlertID:        a.AlertID,
			Severity:       a.Severity,
			AlertType:      a.AlertType,
			AlertCode:      a.AlertCode,
			Name:           a.ComponentName,
			Description:    a.Message,
			SerialNumber:   a.ComponentSerialNumber,
			AlertTimestamp: ts,
		})
		if ts != nil {
			latest = later(latest, *ts)
		}
	}
	alerts = dedupe(alerts, func(a model.Alert) int64 { return a.AlertID })

	if err := s.store.UpsertAlerts(ctx, alerts); err != nil {
		return s.fail(siteID, err)
	}
	if latest == nil {
		now := s.now()
		latest = &now
	}
	return s.succeed(ctx, siteID, latest, len(alerts))
}
