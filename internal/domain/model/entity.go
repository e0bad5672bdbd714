package model

import (
	"encoding/json"
	"strings"
)

// Media player feature bits, as reported in the supported_features attribute.
const (
	FeatureVolumeSet    = 4
	FeatureVolumeMute   = 8
	FeatureTurnOn       = 128
	FeatureTurnOff      = 256
	FeatureSelectSource = 2048
)

const (
	DomainMediaPlayer = "media_player"
	DomainRemote      = "remote"
)

const (
	StateOn   = "on"
	StateOff  = "off"
	StateIdle = "idle"
	// StateUnavailable is also used for entities removed from the host.
	StateUnavailable = "unavailable"
)

// EntitySnapshot is a Home Assistant state object. It is replaced wholesale on
// every update and never mutated.
type EntitySnapshot struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed,omitempty"`
	LastUpdated string         `json:"last_updated,omitempty"`
}

// Attribute returns the raw attribute value and whether it is present.
func (s EntitySnapshot) Attribute(key string) (any, bool) {
	if s.Attributes == nil {
		return nil, false
	}
	v, ok := s.Attributes[key]
	return v, ok
}

func (s EntitySnapshot) StringAttr(key string) string {
	v, _ := s.Attribute(key)
	str, _ := v.(string)
	return str
}

func (s EntitySnapshot) FriendlyName() string { return s.StringAttr("friendly_name") }
func (s EntitySnapshot) DeviceClass() string  { return s.StringAttr("device_class") }

// SupportedFeatures decodes the supported_features bitmask. A missing or
// non-numeric value reads as zero.
func (s EntitySnapshot) SupportedFeatures() int {
	v, _ := s.Attribute("supported_features")
	n, _ := toFloat(v)
	return int(n)
}

// VolumeLevel returns volume_level (0.0-1.0) and whether it was present.
func (s EntitySnapshot) VolumeLevel() (float64, bool) {
	v, ok := s.Attribute("volume_level")
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func (s EntitySnapshot) IsVolumeMuted() bool {
	v, _ := s.Attribute("is_volume_muted")
	b, _ := v.(bool)
	return b
}

// SourceList returns source_list, or nil when absent or malformed.
func (s EntitySnapshot) SourceList() []string {
	v, _ := s.Attribute("source_list")
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ComputeDomain returns the part of an entity id before the first dot, or ""
// when there is none.
func ComputeDomain(entityID string) string {
	domain, _, found := strings.Cut(entityID, ".")
	if !found {
		return ""
	}
	return domain
}

// ComputeObjectID returns the part of an entity id after the first dot.
func ComputeObjectID(entityID string) string {
	_, object, found := strings.Cut(entityID, ".")
	if !found {
		return entityID
	}
	return object
}
