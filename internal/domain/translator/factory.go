package translator

import (
	"media-player-card/internal/domain/projection"
)

type Kind string

const (
	KindDimmable Kind = "dimmable"
	KindOnOff    Kind = "onoff"
)

type Factory struct {
	strategies map[Kind]Translator
}

func NewFactory() *Factory {
	return &Factory{
		strategies: map[Kind]Translator{
			KindDimmable: &DimmableStrategy{},
			KindOnOff:    &OnOffStrategy{},
		},
	}
}

// KindFor picks dimmable for players that support setting the volume.
func KindFor(facts projection.ViewFacts) Kind {
	if facts.VolumeEnabled {
		return KindDimmable
	}
	return KindOnOff
}

func (f *Factory) GetTranslator(facts projection.ViewFacts) Translator {
	if t, ok := f.strategies[KindFor(facts)]; ok {
		return t
	}
	return f.strategies[KindOnOff]
}
