package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"ebook-reader/internal/domain"
)

// SettingsRepository persists the global reader settings as one JSON
// document. Load unmarshals the stored values over the defaults, so a
// setting added after the document was written comes back with its
// default instead of a zero value.
type SettingsRepository struct {
	store  domain.BlobStore
	logger domain.Logger
}

func NewSettingsRepository(store domain.BlobStore, logger domain.Logger) *SettingsRepository {
	return &SettingsRepository{store: store, logger: logger}
}

func (r *SettingsRepository) Load() domain.Settings {
	settings := domain.DefaultSettings()
	raw, err := r.store.Get(domain.KeySettings)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			r.logger.Warn("failed to read settings, using defaults", "error", err)
		}
		return settings
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		r.logger.Warn("failed to decode settings, using defaults", "error", err)
		return domain.DefaultSettings()
	}
	return settings
}

func (r *SettingsRepository) Save(settings domain.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return r.store.Put(domain.KeySettings, raw)
}
