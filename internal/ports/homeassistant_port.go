package ports

import (
	"context"

	"media-player-card/internal/domain/model"
)

type HomeAssistantEntity struct {
	EntityID     string `json:"entity_id"`
	FriendlyName string `json:"friendly_name"`
}

// HostAPI issues Home Assistant service calls. The returned snapshots are the
// states the call changed, as reported by Home Assistant.
type HostAPI interface {
	CallService(ctx context.Context, domain, service string, data map[string]any) ([]model.EntitySnapshot, error)
}

// EntityRegistry answers whether an entity exists on the host.
type EntityRegistry interface {
	HasEntity(ctx context.Context, entityID string) bool
}

type HomeAssistantPort interface {
	HostAPI
	EntityRegistry
	GetStates(ctx context.Context) ([]model.EntitySnapshot, error)
	GetAllEntities(ctx context.Context) ([]HomeAssistantEntity, error)
	Configure(url, token string)
	IsConfigured() bool
}

// StateSubscriber delivers every state change until ctx is done.
type StateSubscriber interface {
	Subscribe(ctx context.Context, onChange func(model.EntitySnapshot)) error
}
