package model

import "github.com/amimof/huego"

// Device is a card exposed as a Hue light.
type Device struct {
	ID       string // Hue light id, 1-based card position
	CardID   string
	Name     string
	EntityID string // Home Assistant entity id
	State    *huego.State
	Metadata HueMetadata
}

type HueMetadata struct {
	Type             string
	ModelID          string
	ManufacturerName string
}

// HueStateUpdate is a Hue "PUT /lights/{id}/state" body. Nil fields were not
// sent.
type HueStateUpdate struct {
	On  *bool  `json:"on,omitempty"`
	Bri *uint8 `json:"bri,omitempty"`
}
