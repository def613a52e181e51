package db

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
)

// monthExpr is replaced with the dialect's year-month expression of reading_date.
const monthExpr = "{{month}}"

// views are the read-only query views created by init-db, in creation order.
var views = []struct {
	name, query string
}{
	{"v_site_summary", `
		SELECT s.id AS site_id, s.name AS site_name, s.city, s.state, s.country, s.timezone,
			s.peak_power, s.status, s.installation_date, s.last_update_time,
			s.primary_module_manufacturer, s.primary_module_model, s.created_at, s.updated_at
		FROM sites s`},
	{"v_daily_energy", `
		SELECT e.id, e.site_id, s.name AS site_name, e.reading_date, e.time_unit, e.energy_wh,
			ROUND(CAST(e.energy_wh / 1000.0 AS NUMERIC), 2) AS energy_kwh, e.created_at
		FROM energy_readings e
		JOIN sites s ON e.site_id = s.id`},
	{"v_latest_power", `
		SELECT p.id, p.site_id, s.name AS site_name, p.timestamp, p.power_watts,
			ROUND(CAST(p.power_watts / 1000.0 AS NUMERIC), 2) AS power_kw, p.created_at
		FROM power_readings p
		JOIN sites s ON p.site_id = s.id
		WHERE p.timestamp = (SELECT MAX(p2.timestamp) FROM power_readings p2 WHERE p2.site_id = p.site_id)`},
	{"v_power_flow_current", `
		SELECT pf.id, pf.site_id, s.name AS site_name, pf.timestamp, pf.unit,
			pf.pv_status, pf.pv_power, pf.grid_status, pf.grid_power, pf.load_status, pf.load_power,
			pf.storage_status, pf.storage_power, pf.storage_charge_level, pf.created_at
		FROM power_flows pf
		JOIN sites s ON pf.site_id = s.id
		WHERE pf.timestamp = (SELECT MAX(pf2.timestamp) FROM power_flows pf2 WHERE pf2.site_id = pf.site_id)`},
	{"v_sync_status", `
		SELECT sm.id, sm.site_id, s.name AS site_name, sm.data_type, sm.last_sync_time,
			sm.last_data_timestamp, sm.records_synced, sm.status, sm.error_message, sm.updated_at
		FROM sync_metadata sm
		JOIN sites s ON sm.site_id = s.id`},
	{"v_equipment_list", `
		SELECT e.id, e.site_id, s.name AS site_name, e.serial_number, e.name AS equipment_name,
			e.manufacturer, e.model, e.equipment_type, e.cpu_version, e.connected_optimizers,
			e.last_report_date, e.created_at
		FROM equipment e
		JOIN sites s ON e.site_id = s.id`},
	{"v_battery_status", `
		SELECT b.id, b.site_id, s.name AS site_name, b.serial_number, b.name AS battery_name,
			b.manufacturer, b.model, b.nameplate_capacity, b.capacity AS current_capacity,
			b.last_state_of_charge, b.last_power, b.last_status, b.last_telemetry_time,
			b.lifetime_energy_charged, b.lifetime_energy_discharged, b.created_at
		FROM batteries b
		JOIN sites s ON b.site_id = s.id`},
	{"v_energy_monthly", `
		SELECT site_id, ` + monthExpr + ` AS month, SUM(energy_wh) AS total_wh,
			ROUND(CAST(SUM(energy_wh) / 1000.0 AS NUMERIC), 2) AS total_kwh, COUNT(*) AS days_with_data
		FROM energy_readings
		WHERE time_unit = 'DAY'
		GROUP BY site_id, ` + monthExpr},
}

// ViewNames lists the views CreateViews maintains.
func ViewNames() []string {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.name
	}
	return names
}

// CreateViews creates the query views, replacing them on postgres. Run it after Migrate.
func CreateViews(db *gorm.DB) error {
	driver := db.Dialector.Name()
	for _, v := range views {
		ddl := viewDDL(driver, v.name, v.query)
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("failed to create view %s: %w", v.name, err)
		}
	}
	log.Printf("Created %d query views.", len(views))
	return nil
}

func viewDDL(driver, name, query string) string {
	if driver == DriverPostgres {
		query = strings.ReplaceAll(query, monthExpr, "TO_CHAR(reading_date, 'YYYY-MM')")
		return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", name, query)
	}
	query = strings.ReplaceAll(query, monthExpr, "strftime('%Y-%m', reading_date)")
	return fmt.Sprintf("CREATE VIEW IF NOT EXISTS %s AS %s", name, query)
}
