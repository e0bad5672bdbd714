// Package cardconfig reads card configs written as Lovelace YAML or JSON.
package cardconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
	"media-player-card/internal/domain/model"
)

var schema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("card.schema.json", strings.NewReader(cardSchema)); err != nil {
		panic(err)
	}
	s, err := compiler.Compile("card.schema.json")
	if err != nil {
		panic(err)
	}
	return s
}

// Parse decodes and validates one card. Any problem is reported as a
// *model.ConfigurationError.
func Parse(data []byte) (*model.CardConfig, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &model.ConfigurationError{Msg: fmt.Sprintf("invalid card config: %v", err)}
	}
	if doc == nil {
		return nil, &model.ConfigurationError{Field: "entity", Msg: "You need to define an entity"}
	}
	return fromDocument(doc)
}

// ParseFile decodes a YAML file holding a "cards" list.
func ParseFile(data []byte) ([]*model.CardConfig, error) {
	var file struct {
		Cards []any `yaml:"cards"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &model.ConfigurationError{Msg: fmt.Sprintf("invalid cards file: %v", err)}
	}
	cards := make([]*model.CardConfig, 0, len(file.Cards))
	for i, doc := range file.Cards {
		cfg, err := fromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("cards[%d]: %w", i, err)
		}
		cards = append(cards, cfg)
	}
	return cards, nil
}

func fromDocument(doc any) (*model.CardConfig, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &model.ConfigurationError{Msg: fmt.Sprintf("invalid card config: %v", err)}
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, &model.ConfigurationError{Msg: fmt.Sprintf("invalid card config: %v", err)}
	}
	if err := schema.Validate(generic); err != nil {
		return nil, schemaError(err)
	}

	var cfg model.CardConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &model.ConfigurationError{Msg: fmt.Sprintf("invalid card config: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func schemaError(err error) error {
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		leaf := verr
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		return &model.ConfigurationError{Field: leaf.InstanceLocation, Msg: leaf.Message}
	}
	return &model.ConfigurationError{Msg: err.Error()}
}
