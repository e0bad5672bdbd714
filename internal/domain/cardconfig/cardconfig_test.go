package cardconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"media-player-card/internal/domain/model"
)

const lovelaceCard = `
type: custom:simple-media-player-card2
entity: media_player.samsung_tv
title: Living Room
bars:
  - align: evenly
    items:
      - icon: mdi:netflix
        type: app
        value: 11101200001
        disabled: source==Netflix
      - icon: mdi:home
        iconOff: mdi:home-outline
        iconExpression: source==TV
        actionType: key
        value: KEY_HOME
  - items:
      - icon: mdi:youtube
        actionType: custom
        value: app|111299001912
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(lovelaceCard))
	require.NoError(t, err)
	assert.Equal(t, "media_player.samsung_tv", cfg.Entity)
	assert.Equal(t, "Living Room", cfg.Title)
	require.Len(t, cfg.Bars, 2)
	assert.Equal(t, model.AlignEvenly, cfg.Bars[0].Align)

	netflix := cfg.Bars[0].Items[0]
	assert.Equal(t, model.ActionTypeApp, netflix.ActionType)
	assert.Equal(t, "11101200001", netflix.Value)
	assert.Equal(t, "source==Netflix", netflix.DisabledExpression)

	home := cfg.Bars[0].Items[1]
	assert.Equal(t, "mdi:home-outline", home.IconOff)
	assert.Equal(t, model.ActionTypeKey, home.ActionType)

	assert.Equal(t, "app|111299001912", cfg.Bars[1].Items[0].Value)
}

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"entity":"media_player.tv"}`))
	require.NoError(t, err)
	assert.Equal(t, "media_player.tv", cfg.Entity)
}

func TestParse_ConfigurationErrors(t *testing.T) {
	cases := map[string]string{
		"missing entity":     `{}`,
		"empty document":     ``,
		"unsupported domain": `entity: light.kitchen`,
		"bad align":          "entity: media_player.tv\nbars:\n  - align: left\n    items: []",
		"bad action type":    "entity: media_player.tv\nbars:\n  - items:\n      - icon: x\n        actionType: teleport",
		"not a mapping":      `just a string`,
		"broken yaml":        "entity: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			var cfgErr *model.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "got %T: %v", err, err)
		})
	}
}

func TestParseFile(t *testing.T) {
	cards, err := ParseFile([]byte(`
cards:
  - entity: media_player.tv
  - entity: media_player.receiver
    title: Receiver
`))
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Receiver", cards[1].Title)

	_, err = ParseFile([]byte("cards:\n  - entity: switch.tv\n"))
	assert.ErrorContains(t, err, "cards[0]")
}
