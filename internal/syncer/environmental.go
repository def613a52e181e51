package syncer

import (
	"context"
	"log"
	"net/http"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/solaredge"
)

// environmentalStrategy replaces the benefits row of a site. An empty response is an error.
type environmentalStrategy struct{ base }

// NewEnvironmentalStrategy creates the environmental benefits strategy.
func NewEnvironmentalStrategy(d Deps) Strategy {
	return &environmentalStrategy{newBase(DataTypeEnvironmental, d)}
}

func (s *environmentalStrategy) Sync(ctx context.Context, siteID int64, _ bool) (int, error) {
	log.Printf("Syncing environmental benefits for site %d", siteID)

	env, err := s.api.GetEnvironmentalBenefits(ctx, siteID)
	if solaredge.IsUnavailable(err, http.StatusBadRequest) {
		return s.unavailable(ctx, siteID, err)
	}
	if err != nil {
		return s.fail(siteID, err)
	}
	if env == nil {
		return s.fail(siteID, errNoData)
	}

	now := s.now()
	row := model.EnvironmentalBenefits{
		SiteID:            siteID,
		TreesPlanted:      env.TreesPlanted,
		LightBulbs:        env.LightBulbs,
		BenefitsTimestamp: &now,
	}
	if gas := env.GasEmissionSaved; gas != nil {
		row.CO2Saved = gas.CO2
		row.SO2Saved = gas.SO2
		row.NOxSaved = gas.NOx
		row.CO2Units = gas.Units
	}

	if err := s.store.UpsertEnvironmentalBenefits(ctx, &row); err != nil {
		return s.fail(siteID, err)
	}
	return s.succeed(ctx, siteID, &now, 1)
}
