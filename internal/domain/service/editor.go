package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"media-player-card/internal/domain/model"
	"media-player-card/internal/ports"
)

var ErrUnknownField = errors.New("unknown config field")

// Editor changes single fields of a card config and announces the result.
type Editor struct {
	cards     *CardService
	listeners []ports.ConfigChangeListener
	logger    *slog.Logger
}

func NewEditor(cards *CardService, logger *slog.Logger, listeners ...ports.ConfigChangeListener) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{cards: cards, listeners: listeners, logger: logger}
}

// SetField sets key to value on the card's config. When the value differs,
// the config is validated and stored, then every listener gets the full new
// config. It reports whether anything changed.
func (e *Editor) SetField(ctx context.Context, cardID, key, value string) (*model.CardConfig, bool, error) {
	card, err := e.cards.Card(cardID)
	if err != nil {
		return nil, false, err
	}
	cfg := card.Config()

	var field *string
	switch key {
	case "entity":
		field = &cfg.Entity
	case "title":
		field = &cfg.Title
	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if *field == value {
		return cfg, false, nil
	}
	*field = value

	if err := e.cards.UpdateCard(ctx, cardID, cfg); err != nil {
		return nil, false, err
	}
	e.logger.Info("config changed", "card", cardID, "field", key)
	for _, l := range e.listeners {
		l.ConfigChanged(ctx, cfg.Clone())
	}
	return cfg, true, nil
}
