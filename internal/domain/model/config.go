package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// SupportedDomains lists the entity domains a card can be bound to.
var SupportedDomains = []string{DomainMediaPlayer}

type ActionType string

const (
	ActionTypeApp     ActionType = "app"
	ActionTypeKey     ActionType = "key"
	ActionTypeCommand ActionType = "command"
	ActionTypeSource  ActionType = "source"
	ActionTypeCustom  ActionType = "custom"
)

type Align string

const (
	AlignEvenly  Align = "evenly"
	AlignBetween Align = "between"
)

// ButtonConfig is one user-authored button of a bar.
type ButtonConfig struct {
	Icon               string     `json:"icon"`
	IconExpression     string     `json:"iconExpression,omitempty"`
	IconOff            string     `json:"iconOff,omitempty"`
	Title              string     `json:"title,omitempty"`
	DisabledExpression string     `json:"disabledExpression,omitempty"`
	ActionType         ActionType `json:"actionType,omitempty"`
	Value              string     `json:"value,omitempty"`
}

// UnmarshalJSON accepts the legacy "type" and "disabled" keys, and numeric
// values such as app ids written without quotes.
func (b *ButtonConfig) UnmarshalJSON(data []byte) error {
	type plain ButtonConfig
	var aux struct {
		plain
		Value          json.RawMessage `json:"value,omitempty"`
		LegacyType     ActionType      `json:"type,omitempty"`
		LegacyDisabled string          `json:"disabled,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = ButtonConfig(aux.plain)
	if len(aux.Value) > 0 {
		var s string
		if err := json.Unmarshal(aux.Value, &s); err == nil {
			b.Value = s
		} else {
			var n json.Number
			if err := json.Unmarshal(aux.Value, &n); err != nil {
				return fmt.Errorf("button value: %w", err)
			}
			b.Value = n.String()
		}
	}
	if b.ActionType == "" {
		b.ActionType = aux.LegacyType
	}
	if b.DisabledExpression == "" {
		b.DisabledExpression = aux.LegacyDisabled
	}
	return nil
}

// Label is the button tooltip: its title, or its value when untitled.
func (b ButtonConfig) Label() string {
	if b.Title != "" {
		return b.Title
	}
	return b.Value
}

type BarConfig struct {
	Align Align          `json:"align,omitempty"`
	Items []ButtonConfig `json:"items"`
}

// CardConfig is the configuration of one media player card.
type CardConfig struct {
	ID     string      `json:"id,omitempty"`
	Entity string      `json:"entity"`
	Title  string      `json:"title,omitempty"`
	Bars   []BarConfig `json:"bars,omitempty"`
}

// Domain returns the entity domain of the bound entity.
func (c *CardConfig) Domain() string { return ComputeDomain(c.Entity) }

// Clone returns a deep copy, so editors never mutate a config a card holds.
func (c *CardConfig) Clone() *CardConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Bars = make([]BarConfig, len(c.Bars))
	for i, bar := range c.Bars {
		out.Bars[i] = BarConfig{Align: bar.Align, Items: slices.Clone(bar.Items)}
	}
	if c.Bars == nil {
		out.Bars = nil
	}
	return &out
}

// StubCardConfig is the config a freshly added card starts with.
func StubCardConfig() *CardConfig {
	return &CardConfig{Entity: "media_player.samsung_tv"}
}

// ConfigurationError reports a card config that cannot be used.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (%s)", e.Msg, e.Field)
}

// Validate checks the card config the same way at load time and on every edit.
func (c *CardConfig) Validate() error {
	if c == nil || c.Entity == "" {
		return &ConfigurationError{Field: "entity", Msg: "You need to define an entity"}
	}
	domain := c.Domain()
	if !slices.Contains(SupportedDomains, domain) {
		return &ConfigurationError{Field: "entity", Msg: fmt.Sprintf("The domain %s is not supported!", domain)}
	}
	for i, bar := range c.Bars {
		switch bar.Align {
		case "", AlignEvenly, AlignBetween:
		default:
			return &ConfigurationError{Field: fmt.Sprintf("bars[%d].align", i), Msg: fmt.Sprintf("unknown alignment %q", bar.Align)}
		}
		for j, item := range bar.Items {
			switch item.ActionType {
			case "", ActionTypeApp, ActionTypeKey, ActionTypeCommand, ActionTypeSource, ActionTypeCustom:
			default:
				return &ConfigurationError{Field: fmt.Sprintf("bars[%d].items[%d].actionType", i, j), Msg: fmt.Sprintf("unknown action type %q", item.ActionType)}
			}
		}
	}
	return nil
}

// Store is the persisted state of the service: HA connection and cards.
type Store struct {
	HassURL   string        `json:"hass_url"`
	HassToken string        `json:"hass_token"`
	LocalIP   string        `json:"local_ip,omitempty"`
	Cards     []*CardConfig `json:"cards"` // Ordered slice
}
