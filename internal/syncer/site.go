package syncer

import (
	"bytes"
	"context"
	"log"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"

	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
	"solar-sync-backend/internal/solaredge"
)

// siteStrategy refreshes the site record. It ignores the full flag.
type siteStrategy struct{ base }

// NewSiteStrategy creates the site strategy.
func NewSiteStrategy(d Deps) Strategy {
	return &siteStrategy{newBase(DataTypeSite, d)}
}

func (s *siteStrategy) Sync(ctx context.Context, siteID int64, _ bool) (int, error) {
	log.Printf("Syncing site details for site %d", siteID)

	details, err := s.api.GetSiteDetails(ctx, siteID)
	if err != nil {
		return s.fail(siteID, err)
	}
	if details == nil {
		return s.fail(siteID, errNoData)
	}

	if err := s.store.UpsertSites(ctx, []model.Site{siteFromAPI(siteID, details)}); err != nil {
		return s.fail(siteID, err)
	}
	now := s.now()
	return s.succeed(ctx, siteID, &now, 1)
}

func siteFromAPI(siteID int64, d *solaredge.Site) model.Site {
	site := model.Site{
		ID:                        siteID,
		Name:                      d.Name,
		AccountID:                 d.AccountID,
		Status:                    d.Status,
		PeakPower:                 d.PeakPower,
		LastUpdateTime:            parse.OptionalISO(d.LastUpdateTime),
		InstallationDate:          parse.OptionalDate(d.InstallationDate),
		Currency:                  d.Currency,
		Notes:                     d.Notes,
		SiteType:                  d.Type,
		Country:                   d.Location.Country,
		State:                     d.Location.State,
		City:                      d.Location.City,
		Address:                   d.Location.Address,
		Address2:                  d.Location.Address2,
		ZipCode:                   d.Location.Zip,
		Timezone:                  d.Location.TimeZone,
		PrimaryModuleManufacturer: d.PrimaryModule.ManufacturerName,
		PrimaryModuleModel:        d.PrimaryModule.ModelName,
		PrimaryModulePower:        d.PrimaryModule.MaximumPower,
	}

	raw := bytes.TrimSpace(d.PublicSettings)
	if len(raw) > 0 && raw[0] == '{' {
		var ps solaredge.PublicSettings
		if err := json.Unmarshal(raw, &ps); err != nil {
			log.Printf("Warning: could not decode public settings of site %d: %v", siteID, err)
		} else {
			site.IsPublic = ps.IsPublic
			site.PublicName = ps.Name
		}
		site.PublicSettings = datatypes.JSON(raw)
	}
	return site
}
