package service

import (
	"context"

	"media-player-card/internal/domain/dispatch"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/ports"
)

// API serves the input adapters on top of the card service and the editor.
type API struct {
	cards  *CardService
	editor *Editor
}

var (
	_ ports.CardPort = (*API)(nil)
	_ ports.HuePort  = (*API)(nil)
)

func NewAPI(cards *CardService, editor *Editor) *API {
	return &API{cards: cards, editor: editor}
}

func (a *API) ListCards(ctx context.Context) []model.CardSummary {
	cards := a.cards.Cards()
	out := make([]model.CardSummary, 0, len(cards))
	for _, c := range cards {
		cfg := c.Config()
		out = append(out, model.CardSummary{ID: c.ID(), Entity: cfg.Entity, Title: cfg.Title})
	}
	return out
}

func (a *API) RenderCard(ctx context.Context, id string) (*model.RenderModel, error) {
	card, err := a.cards.Card(id)
	if err != nil {
		return nil, err
	}
	return card.Render()
}

func (a *API) InvokeAction(ctx context.Context, id, action string, args ...string) (ports.Outcome, error) {
	card, err := a.cards.Card(id)
	if err != nil {
		return nil, err
	}
	p, err := card.Act(ctx, dispatch.ActionKind(action), args...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *API) PressControl(ctx context.Context, id, control string) (ports.Outcome, error) {
	card, err := a.cards.Card(id)
	if err != nil {
		return nil, err
	}
	p, err := card.Press(ctx, ControlID(control))
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *API) PressButton(ctx context.Context, id string, bar, item int) (ports.Outcome, error) {
	card, err := a.cards.Card(id)
	if err != nil {
		return nil, err
	}
	p, err := card.PressButton(ctx, bar, item)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *API) CardConfig(ctx context.Context, id string) (*model.CardConfig, error) {
	card, err := a.cards.Card(id)
	if err != nil {
		return nil, err
	}
	return card.Config(), nil
}

func (a *API) AddCard(ctx context.Context, cfg *model.CardConfig) (*model.CardConfig, error) {
	card, err := a.cards.AddCard(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return card.Config(), nil
}

func (a *API) UpdateCard(ctx context.Context, id string, cfg *model.CardConfig) error {
	return a.cards.UpdateCard(ctx, id, cfg)
}

func (a *API) DeleteCard(ctx context.Context, id string) error {
	return a.cards.DeleteCard(ctx, id)
}

func (a *API) SetField(ctx context.Context, id, key, value string) (*model.CardConfig, bool, error) {
	return a.editor.SetField(ctx, id, key, value)
}

func (a *API) DebugCall(ctx context.Context, id, call string, data map[string]any) ([]model.EntitySnapshot, error) {
	return a.cards.DebugCall(ctx, id, call, data)
}

func (a *API) GetConfig(ctx context.Context) (*model.Store, error) {
	return a.cards.GetConfig(ctx)
}

func (a *API) UpdateConfig(ctx context.Context, hassURL, hassToken string) error {
	return a.cards.UpdateConfig(ctx, hassURL, hassToken)
}

func (a *API) GetAllEntities(ctx context.Context) ([]ports.HomeAssistantEntity, error) {
	return a.cards.GetAllEntities(ctx)
}

func (a *API) GetDevices(ctx context.Context) ([]*model.Device, error) {
	return a.cards.GetDevices(ctx)
}

func (a *API) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	return a.cards.GetDevice(ctx, id)
}

// UpdateDeviceState starts the actions of a Hue update without waiting for
// them; their failures are logged by the card's engine.
func (a *API) UpdateDeviceState(ctx context.Context, id string, update model.HueStateUpdate) error {
	_, err := a.cards.UpdateDeviceState(ctx, id, update)
	return err
}
