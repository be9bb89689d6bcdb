package db

import (
	"errors"

	"gorm.io/gorm"
)

// MigrateUp creates/updates tables and indexes from models. Table
// structure changes do not use versioned migrations.
func MigrateUp(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is required")
	}
	if err := db.AutoMigrate(
		&KVState{},
	); err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_kv_state_updated_at ON kv_state(updated_at DESC);`).Error
}
