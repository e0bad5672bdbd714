// Package projection turns a Home Assistant media player snapshot into the
// flags and display values a card renders from.
package projection

import (
	"fmt"
	"math"

	"media-player-card/internal/domain/model"
)

const (
	IconMuted   = "mdi:volume-off"
	IconUnmuted = "mdi:volume-high"

	IconStateOff  = "mdi:power-plug-off-outline"
	IconStateIdle = "mdi:power-sleep"
	IconStateOn   = "mdi:power"
)

// ViewFacts is derived from one snapshot and discarded with it.
type ViewFacts struct {
	Name        string
	StateName   string
	DeviceClass string

	VolumeEnabled bool
	MuteEnabled   bool
	PowerEnabled  bool
	SourceEnabled bool

	IsOn    bool
	IsOff   bool
	IsMuted bool

	VolumePercent   int
	MutedIcon       string
	DeviceIcon      string
	DeviceIconTitle string
	StateIcon       string
	Sources         []string
}

// Project computes the view facts of a snapshot. It has no side effects.
func Project(s model.EntitySnapshot) ViewFacts {
	features := s.SupportedFeatures()
	f := ViewFacts{
		Name:        s.FriendlyName(),
		StateName:   s.State,
		DeviceClass: s.DeviceClass(),

		VolumeEnabled: IsFeatureOn(features, model.FeatureVolumeSet),
		MuteEnabled:   IsFeatureOn(features, model.FeatureVolumeMute),
		PowerEnabled:  IsFeatureOn(features, model.FeatureTurnOn),
		SourceEnabled: IsFeatureOn(features, model.FeatureSelectSource),

		IsOn:    s.State == model.StateOn,
		IsOff:   s.State == model.StateOff,
		IsMuted: s.IsVolumeMuted(),
	}
	if level, ok := s.VolumeLevel(); ok {
		f.VolumePercent = VolumePercent(level)
	}
	f.MutedIcon = IconUnmuted
	if f.IsMuted {
		f.MutedIcon = IconMuted
	}
	f.DeviceIcon = DeviceIcon(f.DeviceClass, f.IsOn)
	f.DeviceIconTitle = fmt.Sprintf("%s %s", f.DeviceClass, f.StateName)
	f.StateIcon = StateIcon(s.State)
	f.Sources = s.SourceList()
	if f.Sources == nil {
		f.Sources = []string{}
	}
	return f
}

// IsFeatureOn reports whether every bit of mask is set in features.
func IsFeatureOn(features, mask int) bool {
	return features&mask == mask
}

// VolumePercent converts a 0.0-1.0 level to a percentage rounded to the
// nearest whole number.
func VolumePercent(level float64) int {
	return int(math.Round(level * 100))
}

func StateIcon(state string) string {
	switch state {
	case model.StateOff:
		return IconStateOff
	case model.StateIdle:
		return IconStateIdle
	default:
		return IconStateOn
	}
}
