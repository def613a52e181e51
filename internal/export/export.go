package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/parse"
	"solar-sync-backend/internal/store"
)

// Data sets and formats accepted by Export.
const (
	TypeSites         = "sites"
	TypeEnergy        = "energy"
	TypePower         = "power"
	TypeEquipment     = "equipment"
	TypeInventory     = "inventory"
	TypeEnvironmental = "environmental"
	TypeTelemetry     = "telemetry"

	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Types lists every exportable data set.
var Types = []string{TypeSites, TypeEnergy, TypePower, TypeEquipment, TypeInventory, TypeEnvironmental, TypeTelemetry}

// Request selects what to export. SiteID is required for energy, power and telemetry;
// equipment, inventory and environmental cover every stored site when it is zero.
// Serial narrows telemetry to one inverter.
type Request struct {
	Type   string
	Format string
	SiteID int64
	Serial string
	Start  time.Time
	End    time.Time
}

// Validate checks the request before any data is read.
func (r Request) Validate() error {
	switch r.Format {
	case FormatCSV, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown export format %q", config.ErrInvalid, r.Format)
	}
	switch r.Type {
	case TypeSites, TypeEquipment, TypeInventory, TypeEnvironmental:
		return nil
	case TypeEnergy, TypePower, TypeTelemetry:
		if r.SiteID == 0 {
			return fmt.Errorf("%w: %s export needs a site id", config.ErrInvalid, r.Type)
		}
		if r.End.Before(r.Start) {
			return fmt.Errorf("%w: export start is after end", config.ErrInvalid)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown export type %q", config.ErrInvalid, r.Type)
	}
}

// Export writes the requested data set to w and returns the number of rows written.
func Export(ctx context.Context, st store.Store, w io.Writer, req Request) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	switch req.Type {
	case TypeSites:
		sites, err := st.ListSites(ctx)
		if err != nil {
			return 0, err
		}
		return len(sites), write(w, req.Format, sites, siteTable(sites))
	case TypeEnergy:
		readings, err := st.EnergyReadings(ctx, req.SiteID, req.Start, req.End)
		if err != nil {
			return 0, err
		}
		return len(readings), write(w, req.Format, readings, energyTable(readings))
	case TypePower:
		readings, err := st.PowerReadings(ctx, req.SiteID, req.Start, req.End)
		if err != nil {
			return 0, err
		}
		return len(readings), write(w, req.Format, readings, powerTable(readings))
	case TypeEquipment:
		var items []model.Equipment
		err := eachSite(ctx, st, req.SiteID, func(siteID int64) error {
			rows, err := st.ListEquipment(ctx, siteID, "")
			items = append(items, rows...)
			return err
		})
		if err != nil {
			return 0, err
		}
		return len(items), write(w, req.Format, items, equipmentTable(items))
	case TypeInventory:
		var items []model.InventoryItem
		err := eachSite(ctx, st, req.SiteID, func(siteID int64) error {
			rows, err := st.ListInventory(ctx, siteID)
			items = append(items, rows...)
			return err
		})
		if err != nil {
			return 0, err
		}
		return len(items), write(w, req.Format, items, inventoryTable(items))
	case TypeEnvironmental:
		var rows []model.EnvironmentalBenefits
		err := eachSite(ctx, st, req.SiteID, func(siteID int64) error {
			benefits, err := st.GetEnvironmentalBenefits(ctx, siteID)
			if benefits != nil {
				rows = append(rows, *benefits)
			}
			return err
		})
		if err != nil {
			return 0, err
		}
		return len(rows), write(w, req.Format, rows, environmentalTable(rows))
	default:
		rows, err := telemetry(ctx, st, req)
		if err != nil {
			return 0, err
		}
		return len(rows), write(w, req.Format, rows, telemetryTable(rows))
	}
}

// eachSite calls fn for siteID, or for every stored site when siteID is zero.
func eachSite(ctx context.Context, st store.Store, siteID int64, fn func(siteID int64) error) error {
	if siteID != 0 {
		return fn(siteID)
	}
	sites, err := st.ListSites(ctx)
	if err != nil {
		return err
	}
	for _, s := range sites {
		if err := fn(s.ID); err != nil {
			return err
		}
	}
	return nil
}

// telemetry reads the samples of req.Serial, or of every stored inverter of the site.
func telemetry(ctx context.Context, st store.Store, req Request) ([]model.InverterTelemetry, error) {
	serials := []string{req.Serial}
	if req.Serial == "" {
		inverters, err := st.ListEquipment(ctx, req.SiteID, model.EquipmentTypeInverter)
		if err != nil {
			return nil, err
		}
		serials = serials[:0]
		for _, inv := range inverters {
			serials = append(serials, inv.SerialNumber)
		}
	}
	var rows []model.InverterTelemetry
	for _, serial := range serials {
		samples, err := st.InverterTelemetry(ctx, req.SiteID, serial, req.Start, req.End)
		if err != nil {
			return nil, err
		}
		rows = append(rows, samples...)
	}
	return rows, nil
}

func write(w io.Writer, format string, rows any, table [][]string) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func siteTable(sites []model.Site) [][]string {
	table := [][]string{{"id", "name", "status", "peak_power_kw", "type", "country", "city", "timezone", "installation_date", "last_update_time"}}
	for _, s := range sites {
		table = append(table, []string{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			s.Status,
			float(s.PeakPower),
			s.SiteType,
			s.Country,
			s.City,
			s.Timezone,
			date(s.InstallationDate),
			timestamp(s.LastUpdateTime),
		})
	}
	return table
}

func energyTable(readings []model.EnergyReading) [][]string {
	table := [][]string{{"site_id", "date", "time_unit", "energy_wh"}}
	for _, r := range readings {
		table = append(table, []string{
			strconv.FormatInt(r.SiteID, 10),
			parse.FormatDate(r.ReadingDate),
			r.TimeUnit,
			float(r.EnergyWh),
		})
	}
	return table
}

func powerTable(readings []model.PowerReading) [][]string {
	table := [][]string{{"site_id", "timestamp", "power_w"}}
	for _, r := range readings {
		table = append(table, []string{
			strconv.FormatInt(r.SiteID, 10),
			parse.FormatTimestamp(r.Timestamp.UTC()),
			float(r.PowerWatts),
		})
	}
	return table
}

func equipmentTable(items []model.Equipment) [][]string {
	table := [][]string{{"site_id", "serial_number", "name", "manufacturer", "model", "type", "cpu_version", "connected_optimizers", "last_report_date"}}
	for _, e := range items {
		table = append(table, []string{
			strconv.FormatInt(e.SiteID, 10),
			e.SerialNumber,
			e.Name,
			e.Manufacturer,
			e.Model,
			e.EquipmentType,
			e.CPUVersion,
			integer(e.ConnectedOptimizers),
			timestamp(e.LastReportDate),
		})
	}
	return table
}

func inventoryTable(items []model.InventoryItem) [][]string {
	table := [][]string{{"site_id", "category", "name", "serial_number", "manufacturer", "model", "firmware_version", "cpu_version", "connected_optimizers", "connected_to"}}
	for _, i := range items {
		table = append(table, []string{
			strconv.FormatInt(i.SiteID, 10),
			i.Category,
			i.Name,
			i.SerialNumber,
			i.Manufacturer,
			i.Model,
			i.FirmwareVersion,
			i.CPUVersion,
			integer(i.ConnectedOptimizers),
			i.ConnectedTo,
		})
	}
	return table
}

func environmentalTable(rows []model.EnvironmentalBenefits) [][]string {
	table := [][]string{{"site_id", "co2_saved", "so2_saved", "nox_saved", "units", "trees_planted", "light_bulbs", "timestamp"}}
	for _, b := range rows {
		table = append(table, []string{
			strconv.FormatInt(b.SiteID, 10),
			float(b.CO2Saved),
			float(b.SO2Saved),
			float(b.NOxSaved),
			b.CO2Units,
			float(b.TreesPlanted),
			float(b.LightBulbs),
			timestamp(b.BenefitsTimestamp),
		})
	}
	return table
}

func telemetryTable(rows []model.InverterTelemetry) [][]string {
	table := [][]string{{"site_id", "serial_number", "timestamp", "total_active_power", "total_energy", "power_limit", "temperature", "inverter_mode", "ac_voltage", "ac_current", "ac_frequency", "dc_voltage"}}
	for _, r := range rows {
		table = append(table, []string{
			strconv.FormatInt(r.SiteID, 10),
			r.SerialNumber,
			parse.FormatTimestamp(r.Timestamp.UTC()),
			float(r.TotalActivePower),
			float(r.TotalEnergy),
			float(r.PowerLimit),
			float(r.Temperature),
			r.InverterMode,
			float(r.ACVoltage),
			float(r.ACCurrent),
			float(r.ACFrequency),
			float(r.DCVoltage),
		})
	}
	return table
}

func integer(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func float(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return parse.FormatDate(*t)
}

func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return parse.FormatTimestamp(t.UTC())
}
