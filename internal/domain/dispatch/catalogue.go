package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"media-player-card/internal/domain/model"
	"media-player-card/internal/domain/projection"
	"media-player-card/internal/ports"
)

// CatalogueDeps are the card-side inputs the media player actions read when
// they run.
type CatalogueDeps struct {
	Facts    func() projection.ViewFacts
	Registry func() ports.EntityRegistry
	Power    Control
	Mute     Control
}

// Catalogue builds the media player actions of a card.
func Catalogue(deps CatalogueDeps) map[ActionKind]Descriptor {
	return map[ActionKind]Descriptor{
		ActionPower: {
			Execute: func(ctx context.Context, call *Caller, _ ...string) error {
				if deps.Facts().IsOff {
					return call.Call(ctx, "turn_on", nil)
				}
				return call.Call(ctx, "turn_off", nil)
			},
			SingleExecution:     true,
			AutoRestoreOnSettle: true,
			Affected:            []Control{deps.Power},
		},
		ActionMute: {
			Execute: func(ctx context.Context, call *Caller, _ ...string) error {
				return call.Call(ctx, "volume_mute", map[string]any{"is_volume_muted": !deps.Facts().IsMuted})
			},
			SingleExecution: true,
			Affected:        []Control{deps.Mute},
		},
		ActionVolumeUp: {
			Execute: func(ctx context.Context, call *Caller, _ ...string) error {
				return call.Call(ctx, "volume_up", nil)
			},
		},
		ActionVolumeDown: {
			Execute: func(ctx context.Context, call *Caller, _ ...string) error {
				return call.Call(ctx, "volume_down", nil)
			},
		},
		ActionVolumeSet: {
			Execute: func(ctx context.Context, call *Caller, args ...string) error {
				if len(args) < 1 {
					return fmt.Errorf("%w: volume_set needs a percentage", ErrInvalidCommand)
				}
				percent, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
				if err != nil {
					return fmt.Errorf("%w: volume %q: %v", ErrInvalidCommand, args[0], err)
				}
				percent = min(max(percent, 0), 100)
				return call.Call(ctx, "volume_set", map[string]any{"volume_level": percent / 100})
			},
		},
		ActionSelectSource: {
			Execute: func(ctx context.Context, call *Caller, args ...string) error {
				if len(args) < 1 || args[0] == "" {
					return fmt.Errorf("%w: select_source needs a source", ErrInvalidCommand)
				}
				return call.Call(ctx, "select_source", map[string]any{"source": args[0]})
			},
		},
		ActionCommand: {
			Execute: func(ctx context.Context, call *Caller, args ...string) error {
				var typ, value string
				if len(args) > 0 {
					typ = args[0]
				}
				if len(args) > 1 {
					value = args[1]
				}
				var registry ports.EntityRegistry
				if deps.Registry != nil {
					registry = deps.Registry()
				}
				return RunCommand(ctx, call, registry, model.ActionType(typ), value)
			},
		},
	}
}

// RunCommand dispatches one bar button command. Unknown types, and remote
// commands for a media player without a companion remote entity, do nothing.
func RunCommand(ctx context.Context, call *Caller, registry ports.EntityRegistry, typ model.ActionType, value string) error {
	switch typ {
	case model.ActionTypeApp:
		return call.Call(ctx, "play_media", map[string]any{
			"media_content_id":   value,
			"media_content_type": "app",
		})
	case model.ActionTypeKey:
		return call.Call(ctx, "play_media", map[string]any{
			"media_content_id":   value,
			"media_content_type": "send_key",
		})
	case model.ActionTypeCommand:
		remoteID := RemoteEntityID(call.EntityID())
		if registry == nil || !registry.HasEntity(ctx, remoteID) {
			return nil
		}
		return call.CallDomain(ctx, model.DomainRemote, "send_command", map[string]any{
			"command":   value,
			"entity_id": remoteID,
		})
	case model.ActionTypeSource:
		return call.Call(ctx, "select_source", map[string]any{"source": value})
	case model.ActionTypeCustom:
		contentType, contentID, ok := strings.Cut(value, "|")
		if !ok {
			return fmt.Errorf("%w: custom value %q is not <type>|<id>", ErrInvalidCommand, value)
		}
		return call.Call(ctx, "play_media", map[string]any{
			"media_content_id":   contentID,
			"media_content_type": contentType,
		})
	}
	return nil
}

// RemoteEntityID is the companion remote of a media player:
// media_player.tv -> remote.tv.
func RemoteEntityID(entityID string) string {
	return model.DomainRemote + "." + model.ComputeObjectID(entityID)
}
