package ports

import (
	"context"

	"media-player-card/internal/domain/model"
)

type StoreRepository interface {
	Get(ctx context.Context) (*model.Store, error)
	Save(ctx context.Context, store *model.Store) error
}

// ConfigChangeListener receives the full card config after an editor change.
type ConfigChangeListener interface {
	ConfigChanged(ctx context.Context, cfg *model.CardConfig)
}
