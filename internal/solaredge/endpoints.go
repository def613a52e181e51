package solaredge

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"solar-sync-backend/internal/parse"
)

const sitesCacheKey = "sites"

// GetSites lists every site of the account. The result is cached for the configured TTL.
func (c *Client) GetSites(ctx context.Context) ([]Site, error) {
	if cached, found := c.cache.Get(sitesCacheKey); found {
		return cached.([]Site), nil
	}

	var env struct {
		Sites struct {
			Count int        `json:"count"`
			Site  List[Site] `json:"site"`
		} `json:"sites"`
	}
	if err := c.get(ctx, "sites", "/sites/list", nil, &env); err != nil {
		return nil, err
	}
	sites := []Site(env.Sites.Site)
	c.cache.SetDefault(sitesCacheKey, sites)
	return sites, nil
}

// InvalidateSites drops the cached site list.
func (c *Client) InvalidateSites() {
	c.cache.Delete(sitesCacheKey)
}

// GetSiteDetails returns the details of one site, or nil when the response carries none.
func (c *Client) GetSiteDetails(ctx context.Context, siteID int64) (*Site, error) {
	var env struct {
		Details *Site `json:"details"`
	}
	if err := c.get(ctx, "site_details", fmt.Sprintf("/site/%d/details", siteID), nil, &env); err != nil {
		return nil, err
	}
	return env.Details, nil
}

// GetEquipment lists the devices of a site.
func (c *Client) GetEquipment(ctx context.Context, siteID int64) ([]Reporter, error) {
	var env struct {
		Reporters struct {
			Count int            `json:"count"`
			List  List[Reporter] `json:"list"`
		} `json:"reporters"`
	}
	if err := c.get(ctx, "equipment", fmt.Sprintf("/equipment/%d/list", siteID), nil, &env); err != nil {
		return nil, err
	}
	return env.Reporters.List, nil
}

// GetEnergy returns the site energy series between two dates for a time unit such as "DAY".
func (c *Client) GetEnergy(ctx context.Context, siteID int64, start, end time.Time, timeUnit string) ([]DateValue, error) {
	params := url.Values{}
	params.Set("startDate", parse.FormatDate(start))
	params.Set("endDate", parse.FormatDate(end))
	params.Set("timeUnit", timeUnit)

	var env struct {
		Energy struct {
			TimeUnit string          `json:"timeUnit"`
			Unit     string          `json:"unit"`
			Values   List[DateValue] `json:"values"`
		} `json:"energy"`
	}
	if err := c.get(ctx, "energy", fmt.Sprintf("/site/%d/energy", siteID), params, &env); err != nil {
		return nil, err
	}
	return env.Energy.Values, nil
}

// GetPower returns the site power series. The API accepts at most one month per request.
func (c *Client) GetPower(ctx context.Context, siteID int64, start, end time.Time) ([]DateValue, error) {
	var env struct {
		Power struct {
			TimeUnit string          `json:"timeUnit"`
			Unit     string          `json:"unit"`
			Values   List[DateValue] `json:"values"`
		} `json:"power"`
	}
	if err := c.get(ctx, "power", fmt.Sprintf("/site/%d/power", siteID), timeRange(start, end), &env); err != nil {
		return nil, err
	}
	return env.Power.Values, nil
}

// GetPowerFlow returns the current power flow, or nil when the site reports none.
func (c *Client) GetPowerFlow(ctx context.Context, siteID int64) (*PowerFlow, error) {
	var env struct {
		Flow *PowerFlow `json:"siteCurrentPowerFlow"`
	}
	if err := c.get(ctx, "power_flow", fmt.Sprintf("/site/%d/currentPowerFlow", siteID), nil, &env); err != nil {
		return nil, err
	}
	return env.Flow, nil
}

// GetStorageData returns battery telemetry between two timestamps, or nil when absent.
func (c *Client) GetStorageData(ctx context.Context, siteID int64, start, end time.Time) (*StorageData, error) {
	var env struct {
		StorageData *StorageData `json:"storageData"`
	}
	if err := c.get(ctx, "storage", fmt.Sprintf("/site/%d/storageData", siteID), timeRange(start, end), &env); err != nil {
		return nil, err
	}
	return env.StorageData, nil
}

// GetMeters lists the meters of a site.
func (c *Client) GetMeters(ctx context.Context, siteID int64) ([]MeterInfo, error) {
	var env struct {
		MetersList struct {
			Meters List[MeterInfo] `json:"meters"`
		} `json:"metersList"`
	}
	if err := c.get(ctx, "meters", fmt.Sprintf("/site/%d/meters", siteID), nil, &env); err != nil {
		return nil, err
	}
	return env.MetersList.Meters, nil
}

// GetMeterData returns meter readings between two timestamps, or nil when absent.
func (c *Client) GetMeterData(ctx context.Context, siteID int64, start, end time.Time) (*MeterEnergyDetails, error) {
	var env struct {
		Details *MeterEnergyDetails `json:"meterEnergyDetails"`
	}
	if err := c.get(ctx, "meter_data", fmt.Sprintf("/site/%d/meters", siteID), timeRange(start, end), &env); err != nil {
		return nil, err
	}
	return env.Details, nil
}

// GetEnvironmentalBenefits returns the benefits summary, or nil when absent.
func (c *Client) GetEnvironmentalBenefits(ctx context.Context, siteID int64) (*EnvBenefits, error) {
	var env struct {
		EnvBenefits *EnvBenefits `json:"envBenefits"`
	}
	if err := c.get(ctx, "env_benefits", fmt.Sprintf("/site/%d/envBenefits", siteID), nil, &env); err != nil {
		return nil, err
	}
	return env.EnvBenefits, nil
}

// GetAlerts lists the alerts of a site.
func (c *Client) GetAlerts(ctx context.Context, siteID int64) ([]AlertEntry, error) {
	var env struct {
		Alerts struct {
			Count int              `json:"count"`
			Alert List[AlertEntry] `json:"alert"`
		} `json:"alerts"`
	}
	if err := c.get(ctx, "alerts", fmt.Sprintf("/site/%d/alerts", siteID), nil, &env); err != nil {
		return nil, err
	}
	return env.Alerts.Alert, nil
}

// GetInventory returns the inventory by category. Only categories holding a list are kept.
func (c *Client) GetInventory(ctx context.Context, siteID int64) (Inventory, error) {
	var env struct {
		Inventory map[string]json.RawMessage `json:"Inventory"`
	}
	if err := c.get(ctx, "inventory", fmt.Sprintf("/site/%d/inventory", siteID), nil, &env); err != nil {
		return nil, err
	}

	inv := make(Inventory, len(env.Inventory))
	for category, raw := range env.Inventory {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		var items []InventoryEntry
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode inventory category %q: %w", category, err)
		}
		inv[category] = items
	}
	return inv, nil
}

// Categories returns the inventory categories in a stable order.
func (inv Inventory) Categories() []string {
	keys := make([]string, 0, len(inv))
	for k := range inv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetInverterData returns technical telemetry of one inverter.
func (c *Client) GetInverterData(ctx context.Context, siteID int64, serial string, start, end time.Time) ([]InverterReading, error) {
	var env struct {
		Data struct {
			Count       int                   `json:"count"`
			Telemetries List[InverterReading] `json:"telemetries"`
		} `json:"data"`
	}
	if err := c.get(ctx, "inverter_data", deviceDataPath(siteID, serial), timeRange(start, end), &env); err != nil {
		return nil, err
	}
	return env.Data.Telemetries, nil
}

// GetOptimizerData returns technical telemetry of one optimizer.
func (c *Client) GetOptimizerData(ctx context.Context, siteID int64, serial string, start, end time.Time) ([]OptimizerReading, error) {
	var env struct {
		Data struct {
			Count       int                    `json:"count"`
			Telemetries List[OptimizerReading] `json:"telemetries"`
		} `json:"data"`
	}
	if err := c.get(ctx, "optimizer_data", deviceDataPath(siteID, serial), timeRange(start, end), &env); err != nil {
		return nil, err
	}
	return env.Data.Telemetries, nil
}

func deviceDataPath(siteID int64, serial string) string {
	return fmt.Sprintf("/equipment/%d/%s/data", siteID, url.PathEscape(serial))
}

func timeRange(start, end time.Time) url.Values {
	params := url.Values{}
	params.Set("startTime", parse.FormatTimestamp(start))
	params.Set("endTime", parse.FormatTimestamp(end))
	return params
}
