package translator

import (
	"math"
	"strconv"

	"github.com/amimof/huego"
	"media-player-card/internal/domain/dispatch"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/domain/projection"
)

// DimmableStrategy exposes volume as brightness.
type DimmableStrategy struct{}

func (s *DimmableStrategy) ToHue(facts projection.ViewFacts) *huego.State {
	return &huego.State{
		On:        facts.IsOn,
		Bri:       BriFromPercent(facts.VolumePercent),
		Reachable: facts.StateName != model.StateUnavailable,
	}
}

func (s *DimmableStrategy) ToIntents(current projection.ViewFacts, update model.HueStateUpdate) []Intent {
	intents := powerIntent(current, update)
	if update.Bri != nil && current.VolumeEnabled {
		percent := PercentFromBri(*update.Bri)
		intents = append(intents, Intent{Action: dispatch.ActionVolumeSet, Args: []string{strconv.Itoa(percent)}})
	}
	return intents
}

func (s *DimmableStrategy) GetMetadata() model.HueMetadata {
	return model.HueMetadata{
		Type:             "Dimmable light",
		ModelID:          "LWB010",
		ManufacturerName: "Philips",
	}
}

// OnOffStrategy exposes players without volume control as plugs.
type OnOffStrategy struct{}

func (s *OnOffStrategy) ToHue(facts projection.ViewFacts) *huego.State {
	state := &huego.State{
		On:        facts.IsOn,
		Reachable: facts.StateName != model.StateUnavailable,
	}
	if facts.IsOn {
		state.Bri = 254
	}
	return state
}

func (s *OnOffStrategy) ToIntents(current projection.ViewFacts, update model.HueStateUpdate) []Intent {
	return powerIntent(current, update)
}

func (s *OnOffStrategy) GetMetadata() model.HueMetadata {
	return model.HueMetadata{
		Type:             "On/Off plug-in unit",
		ModelID:          "LOM001",
		ManufacturerName: "Philips",
	}
}

// BriFromPercent maps 0-100 onto Hue's 0-254.
func BriFromPercent(percent int) uint8 {
	percent = min(max(percent, 0), 100)
	return uint8(math.Round(float64(percent) * 254 / 100))
}

func PercentFromBri(bri uint8) int {
	return int(math.Round(float64(bri) * 100 / 254))
}
