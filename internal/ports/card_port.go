package ports

import (
	"context"

	"media-player-card/internal/domain/model"
)

// Outcome is the pending result of an invoked card action.
type Outcome interface {
	Done() <-chan struct{}
	Err() error
	Rejected() bool
	Wait(ctx context.Context) error
}

// CardPort is what the dashboard and admin surfaces drive.
type CardPort interface {
	ListCards(ctx context.Context) []model.CardSummary
	RenderCard(ctx context.Context, id string) (*model.RenderModel, error)
	InvokeAction(ctx context.Context, id, action string, args ...string) (Outcome, error)
	PressControl(ctx context.Context, id, control string) (Outcome, error)
	PressButton(ctx context.Context, id string, bar, item int) (Outcome, error)

	CardConfig(ctx context.Context, id string) (*model.CardConfig, error)
	AddCard(ctx context.Context, cfg *model.CardConfig) (*model.CardConfig, error)
	UpdateCard(ctx context.Context, id string, cfg *model.CardConfig) error
	DeleteCard(ctx context.Context, id string) error
	SetField(ctx context.Context, id, key, value string) (*model.CardConfig, bool, error)
	DebugCall(ctx context.Context, id, call string, data map[string]any) ([]model.EntitySnapshot, error)

	GetConfig(ctx context.Context) (*model.Store, error)
	UpdateConfig(ctx context.Context, hassURL, hassToken string) error
	GetAllEntities(ctx context.Context) ([]HomeAssistantEntity, error)
}

// HuePort exposes cards as Hue lights.
type HuePort interface {
	GetDevices(ctx context.Context) ([]*model.Device, error)
	GetDevice(ctx context.Context, id string) (*model.Device, error)
	UpdateDeviceState(ctx context.Context, id string, update model.HueStateUpdate) error
}
