// file: internal/storage/settings.go
// version: 1.0.0
// guid: 8f6a2b3c-7d8e-4f0a-9b1c-2d3e4f5a6b7c

package storage

import (
	"encoding/json"
	"time"

	"github.com/booktrackapp/booktrack/internal/models"
)

// settingsID is the fixed key of the singleton settings record.
const settingsID = "1"

// SettingsStore is the record adapter for the singleton settings row.
type SettingsStore struct {
	engine *Engine
}

// NewSettingsStore creates the settings adapter.
func NewSettingsStore(engine *Engine) *SettingsStore {
	return &SettingsStore{engine: engine}
}

// GetSettings always succeeds: when no row has been saved yet it returns the
// defaults without persisting them.
func (s *SettingsStore) GetSettings() (models.UserSettings, error) {
	data, ok, err := s.engine.GetByID(StoreSettings, settingsID)
	if err != nil {
		return models.UserSettings{}, err
	}
	if !ok {
		return models.DefaultSettings(), nil
	}

	var settings models.UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return models.UserSettings{}, wrap(ErrUnknown, "decode settings record", err)
	}
	return settings, nil
}

// SaveSettings forces the singleton id and stamps updated_at, so at most one
// settings record exists regardless of what the caller passes.
func (s *SettingsStore) SaveSettings(settings models.UserSettings) (models.UserSettings, error) {
	settings.ID = settingsID
	settings.UpdatedAt = time.Now()

	data, err := json.Marshal(&settings)
	if err != nil {
		return models.UserSettings{}, wrap(ErrUnknown, "encode settings record", err)
	}
	if err := s.engine.Put(StoreSettings, settingsID, data); err != nil {
		return models.UserSettings{}, err
	}
	return settings, nil
}

// UpdateLastBackup stamps the last-backup time on the settings record,
// creating it from defaults if necessary.
func (s *SettingsStore) UpdateLastBackup(t time.Time) error {
	settings, err := s.GetSettings()
	if err != nil {
		return err
	}
	settings.LastBackup = &t
	_, err = s.SaveSettings(settings)
	return err
}
