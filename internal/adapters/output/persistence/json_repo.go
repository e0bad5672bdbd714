package persistence

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"media-player-card/internal/domain/model"
)

type JSONStoreRepository struct {
	filepath string
	mu       sync.RWMutex
}

// legacyStore is the single-card layout written before several cards were
// supported.
type legacyStore struct {
	HassURL   string            `json:"hass_url"`
	HassToken string            `json:"hass_token"`
	LocalIP   string            `json:"local_ip,omitempty"`
	Card      *model.CardConfig `json:"card"`
}

func NewJSONStoreRepository(filepath string) *JSONStoreRepository {
	return &JSONStoreRepository{filepath: filepath}
}

func (r *JSONStoreRepository) Get(ctx context.Context) (*model.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Store{Cards: []*model.CardConfig{}}, nil
		}
		return nil, err
	}

	var store model.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, err
	}

	// Migration check: no cards list but a file, look for the single card layout
	if store.Cards == nil {
		return r.migrate(data)
	}

	return &store, nil
}

func (r *JSONStoreRepository) migrate(data []byte) (*model.Store, error) {
	var legacy legacyStore
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}

	store := &model.Store{
		HassURL:   legacy.HassURL,
		HassToken: legacy.HassToken,
		LocalIP:   legacy.LocalIP,
		Cards:     []*model.CardConfig{},
	}
	if legacy.Card != nil && legacy.Card.Entity != "" {
		store.Cards = append(store.Cards, legacy.Card)
	}
	return store, nil
}

func (r *JSONStoreRepository) Save(ctx context.Context, store *model.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.filepath, data, 0o600)
}
