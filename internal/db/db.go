package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/model"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// hypertables lists the time-series tables converted when TimescaleDB is enabled.
var hypertables = []struct {
	table, column string
}{
	{"power_readings", "timestamp"},
	{"meter_readings", "timestamp"},
	{"inverter_telemetry", "timestamp"},
	{"optimizer_telemetry", "timestamp"},
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableTimescale && db.Dialector.Name() == DriverPostgres {
		log.Println("TimescaleDB is enabled, applying TimescaleDB-specific DDL...")
		if err := applyTimescaleDDL(db); err != nil {
			log.Printf("Warning: failed to apply some TimescaleDB DDL: %v. Continuing without them.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Open connects to the database selected by the DSN (or the explicit driver) without migrating.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	driver, dsn := ResolveDriver(cfg.Driver, cfg.DSN)

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", config.ErrInvalid, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(LogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetimeMinutes > 0 {
			sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
		}
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// ResolveDriver picks the driver and the driver-specific DSN.
// "sqlite:path" and "sqlite://path" select SQLite; an explicit driver wins over the prefix.
func ResolveDriver(driver, dsn string) (string, string) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		dsn = strings.TrimPrefix(dsn, "sqlite://")
		if driver == "" {
			driver = DriverSQLite
		}
	case strings.HasPrefix(dsn, "sqlite:"):
		dsn = strings.TrimPrefix(dsn, "sqlite:")
		if driver == "" {
			driver = DriverSQLite
		}
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		if driver == "" {
			driver = DriverPostgres
		}
	}
	if driver == "sqlite3" {
		driver = DriverSQLite
	}
	if driver == "" || driver == "postgresql" {
		driver = DriverPostgres
	}
	return driver, dsn
}

// LogLevel maps a config level name to the gorm logger level. Unknown names mean warn.
func LogLevel(name string) logger.LogLevel {
	switch strings.ToLower(name) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

func applyTimescaleDDL(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS timescaledb;").Error; err != nil {
		return fmt.Errorf("DDL failed on timescaledb extension: %w", err)
	}

	var failed []string
	for _, h := range hypertables {
		// Hypertable unique indexes must include the time column, the surrogate key does not.
		ddls := []string{
			fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s_pkey;", h.table, h.table),
			fmt.Sprintf("SELECT create_hypertable('%s', '%s', if_not_exists => TRUE, migrate_data => TRUE);", h.table, h.column),
		}
		for _, ddl := range ddls {
			if err := db.Exec(ddl).Error; err != nil {
				log.Printf("DDL execution warning (query: %q): %v", ddl, err)
				failed = append(failed, h.table)
				break
			}
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("hypertable conversion failed for %s", strings.Join(failed, ", "))
	}
	return nil
}
