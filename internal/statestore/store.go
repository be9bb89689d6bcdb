// Package statestore persists the developer console's client-side state
// blobs. Each blob lives under a fixed storage key and is loaded and
// written back wholesale, matching the browser-extension storage
// contract it replaces.
package statestore

import (
	"encoding/json"
	"errors"
	"time"

	dbmodel "devbridge/cli/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage keys are part of the observable contract; renaming one orphans
// previously persisted state.
const (
	KeyCodeActions     = "devconsole-code-actions"
	KeyTerminalPrefs   = "devconsole-terminal-stream-prefs"
	KeyAISettings      = "devconsole-ai-settings"
	KeyGitHubSettings  = "devconsole-github-settings"
	KeyLiveKitSettings = "devconsole-livekit-settings"
	KeyPageStore       = "devconsole-page-store"
)

type Store struct {
	db *gorm.DB
}

// NewStore uses the shared DB. Caller must not close the db.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db}, nil
}

// LoadBlob returns the raw JSON under key, or nil when the key has never
// been written.
func (s *Store) LoadBlob(key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("state store is not initialized")
	}
	if key == "" {
		return nil, errors.New("storage key is required")
	}
	var row dbmodel.KVState
	err := s.db.Where("storage_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row.ValueJSON == "" {
		return nil, nil
	}
	return []byte(row.ValueJSON), nil
}

// SaveBlob replaces the blob under key.
func (s *Store) SaveBlob(key string, raw []byte) error {
	if s == nil || s.db == nil {
		return errors.New("state store is not initialized")
	}
	if key == "" {
		return errors.New("storage key is required")
	}
	row := dbmodel.KVState{
		StorageKey: key,
		ValueJSON:  string(raw),
		UpdatedAt:  time.Now().UTC().Unix(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value_json": row.ValueJSON,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
}

// LoadJSON unmarshals the blob under key into v. Returns false when the
// key has never been written; v is left untouched in that case.
func (s *Store) LoadJSON(key string, v any) (bool, error) {
	raw, err := s.LoadBlob(key)
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SaveJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.SaveBlob(key, raw)
}

// Delete removes the blob under key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if s == nil || s.db == nil {
		return errors.New("state store is not initialized")
	}
	return s.db.Where("storage_key = ?", key).Delete(&dbmodel.KVState{}).Error
}
