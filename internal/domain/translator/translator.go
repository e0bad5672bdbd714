package translator

import (
	"github.com/amimof/huego"
	"media-player-card/internal/domain/dispatch"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/domain/projection"
)

// Intent is one card action a Hue update turns into.
type Intent struct {
	Action dispatch.ActionKind
	Args   []string
}

// Translator defines the interface for translating between Hue light states
// and a media player card
type Translator interface {
	ToHue(facts projection.ViewFacts) *huego.State
	ToIntents(current projection.ViewFacts, update model.HueStateUpdate) []Intent
	GetMetadata() model.HueMetadata
}

// powerIntent toggles power only when the requested state differs. Power is a
// toggle, so a player that is neither on nor off (idle, standby) counts as on.
func powerIntent(current projection.ViewFacts, update model.HueStateUpdate) []Intent {
	if update.On == nil || !current.PowerEnabled {
		return nil
	}
	if *update.On == current.IsOff {
		return []Intent{{Action: dispatch.ActionPower}}
	}
	return nil
}
