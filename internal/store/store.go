package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// batchSize bounds the rows per INSERT so large telemetry windows stay under driver parameter limits.
const batchSize = 500

// Store defines the interface for all database operations.
type Store interface {
	SiteRepository
	EquipmentRepository
	EnergyRepository
	PowerRepository
	BatteryRepository
	MeterRepository
	AlertRepository
	EnvironmentalRepository
	InventoryRepository
	TelemetryRepository
	SyncMetadataRepository
	SubscriptionRepository

	// Transaction runs fn against a Store bound to one database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// upsert inserts rows, overwriting the update columns of rows whose conflict columns already exist.
// rows must be a pointer to a non-empty slice or a pointer to one model.
func (s *gormStore) upsert(ctx context.Context, op string, rows any, conflict, update []string) error {
	columns := make([]clause.Column, len(conflict))
	for i, name := range conflict {
		columns[i] = clause.Column{Name: name}
	}

	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   columns,
			DoUpdates: clause.AssignmentColumns(update),
		}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return wrapError(fmt.Sprintf("upsert %s", op), err)
	}
	return nil
}
