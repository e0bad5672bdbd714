package model

// RenderModel is what a card shows for one snapshot.
type RenderModel struct {
	CardID          string        `json:"card_id"`
	Entity          string        `json:"entity"`
	Name            string        `json:"name"`
	State           string        `json:"state"`
	IsOn            bool          `json:"is_on"`
	DeviceIcon      string        `json:"device_icon"`
	DeviceIconTitle string        `json:"device_icon_title"`
	StateIcon       string        `json:"state_icon"`
	VolumePercent   int           `json:"volume_percent"`
	Controls        []ControlView `json:"controls"`
	SourceEnabled   bool          `json:"source_enabled"`
	Sources         []string      `json:"sources"`
	Bars            []BarView     `json:"bars"`
	CardSize        int           `json:"card_size"`
}

type ControlView struct {
	ID       string `json:"id"`
	Icon     string `json:"icon"`
	Disabled bool   `json:"disabled"`
	Busy     bool   `json:"busy"`
}

type BarView struct {
	Align   Align        `json:"align,omitempty"`
	Buttons []ButtonView `json:"buttons"`
}

type ButtonView struct {
	Index      int        `json:"index"`
	Icon       string     `json:"icon"`
	Title      string     `json:"title"`
	Disabled   bool       `json:"disabled"`
	ActionType ActionType `json:"action_type,omitempty"`
	Value      string     `json:"value,omitempty"`
}

// CardSummary identifies a card in listings.
type CardSummary struct {
	ID     string `json:"id"`
	Entity string `json:"entity"`
	Title  string `json:"title,omitempty"`
}
