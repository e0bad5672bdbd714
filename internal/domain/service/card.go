package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"media-player-card/internal/domain/dispatch"
	"media-player-card/internal/domain/expression"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/domain/projection"
	"media-player-card/internal/ports"
)

const cardSize = 2

var (
	ErrNotRendered     = errors.New("card has no state to render yet")
	ErrControlDisabled = errors.New("control is disabled")
	ErrUnknownControl  = errors.New("unknown control")
	ErrButtonNotFound  = errors.New("button not found")
)

// CardOptions are shared by every card a service hosts.
type CardOptions struct {
	Host           ports.HostAPI
	Registry       ports.EntityRegistry
	HapticFeedback bool
	HapticPolicy   dispatch.HapticPolicy
	Haptic         ports.HapticNotifier
	Observer       ports.DispatchObserver
	Logger         *slog.Logger
}

// Card is one media player card: it keeps the latest snapshot of its entity,
// renders it and forwards presses to its own dispatch engine.
type Card struct {
	id     string
	opts   CardOptions
	logger *slog.Logger

	mu       sync.RWMutex
	config   *model.CardConfig
	snapshot *model.EntitySnapshot
	changed  bool

	controls controlCache
	engine   *dispatch.Engine
}

func NewCard(id string, cfg *model.CardConfig, opts CardOptions) (*Card, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Card{
		id:      id,
		opts:    opts,
		logger:  logger.With("card", id),
		config:  cfg.Clone(),
		changed: true,
	}
	c.config.ID = id

	var haptic func(ports.HapticKind)
	if opts.Haptic != nil {
		haptic = func(kind ports.HapticKind) { opts.Haptic.Haptic(id, kind) }
	}
	c.engine = dispatch.NewEngine(dispatch.Catalogue(dispatch.CatalogueDeps{
		Facts:    c.facts,
		Registry: func() ports.EntityRegistry { return opts.Registry },
		Power:    c.controls.get(ControlPower),
		Mute:     c.controls.get(ControlMute),
	}), dispatch.Options{
		ResolveHostAPI:        func() ports.HostAPI { return opts.Host },
		ResolveTargetEntityID: c.Entity,
		HapticFeedback:        opts.HapticFeedback,
		HapticPolicy:          opts.HapticPolicy,
		Haptic:                haptic,
		Observer:              opts.Observer,
		Logger:                c.logger,
	})
	return c, nil
}

func (c *Card) ID() string { return c.id }

func (c *Card) Size() int { return cardSize }

func (c *Card) Entity() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Entity
}

// Config returns a copy of the card's configuration.
func (c *Card) Config() *model.CardConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Clone()
}

// SetConfig replaces the configuration. An invalid config leaves the card
// unchanged. Switching entity drops the snapshot of the old one.
func (c *Card) SetConfig(cfg *model.CardConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	next := cfg.Clone()
	next.ID = c.id

	c.mu.Lock()
	defer c.mu.Unlock()
	if next.Entity != c.config.Entity {
		c.snapshot = nil
	}
	c.config = next
	c.changed = true
	return nil
}

// SetSnapshot stores a new state of the card's entity and reports whether it
// was taken. States of other entities are ignored.
func (c *Card) SetSnapshot(s model.EntitySnapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.EntityID != c.config.Entity {
		return false
	}
	c.snapshot = &s
	c.changed = true
	return true
}

// Snapshot returns the latest state of the card's entity, if any.
func (c *Card) Snapshot() (model.EntitySnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return model.EntitySnapshot{}, false
	}
	return *c.snapshot, true
}

// ShouldRender reports whether the card has something to render that it has
// not rendered yet.
func (c *Card) ShouldRender() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot != nil && c.changed
}

// Facts projects the latest snapshot.
func (c *Card) Facts() (projection.ViewFacts, bool) {
	s, ok := c.Snapshot()
	if !ok {
		return projection.ViewFacts{}, false
	}
	return projection.Project(s), true
}

func (c *Card) facts() projection.ViewFacts {
	f, _ := c.Facts()
	return f
}

// Render builds the render model of the latest snapshot. Once it is built the
// engine's in-flight set is swept, so no control stays disabled past a render.
func (c *Card) Render() (*model.RenderModel, error) {
	c.mu.Lock()
	if c.snapshot == nil {
		c.mu.Unlock()
		return nil, ErrNotRendered
	}
	cfg := c.config
	s := *c.snapshot
	c.changed = false
	c.mu.Unlock()

	f := projection.Project(s)
	name := cfg.Title
	if name == "" {
		name = f.Name
	}
	rm := &model.RenderModel{
		CardID:          c.id,
		Entity:          cfg.Entity,
		Name:            name,
		State:           f.StateName,
		IsOn:            f.IsOn,
		DeviceIcon:      f.DeviceIcon,
		DeviceIconTitle: f.DeviceIconTitle,
		StateIcon:       f.StateIcon,
		VolumePercent:   f.VolumePercent,
		Controls:        c.controlViews(f),
		SourceEnabled:   f.SourceEnabled,
		Sources:         f.Sources,
		Bars:            c.barViews(cfg, s),
		CardSize:        cardSize,
	}

	c.engine.ResetAll()
	return rm, nil
}

// controlViews lists the toolbar. Mute and volume are only shown while the
// player is on; power is always shown.
func (c *Card) controlViews(f projection.ViewFacts) []model.ControlView {
	var views []model.ControlView
	if f.IsOn {
		views = append(views,
			c.controlView(ControlMute, f.MutedIcon, !f.MuteEnabled),
			c.controlView(ControlVolumeDown, "mdi:volume-minus", !f.VolumeEnabled),
			c.controlView(ControlVolumeUp, "mdi:volume-plus", !f.VolumeEnabled),
		)
	}
	return append(views, c.controlView(ControlPower, "mdi:power", false))
}

func (c *Card) controlView(id ControlID, icon string, unsupported bool) model.ControlView {
	busy := c.controls.get(id).Disabled()
	return model.ControlView{
		ID:       string(id),
		Icon:     icon,
		Disabled: unsupported || busy,
		Busy:     busy,
	}
}

func (c *Card) barViews(cfg *model.CardConfig, s model.EntitySnapshot) []model.BarView {
	ev := expression.Evaluator{Logger: c.logger}
	bars := make([]model.BarView, 0, len(cfg.Bars))
	for _, bar := range cfg.Bars {
		view := model.BarView{Align: bar.Align, Buttons: []model.ButtonView{}}
		for i, b := range bar.Items {
			if b.Icon == "" {
				continue
			}
			view.Buttons = append(view.Buttons, model.ButtonView{
				Index:      i,
				Icon:       ev.ButtonIcon(b, s),
				Title:      b.Label(),
				Disabled:   ev.ButtonDisabled(b, s),
				ActionType: b.ActionType,
				Value:      b.Value,
			})
		}
		bars = append(bars, view)
	}
	return bars
}

var controlActions = map[ControlID]dispatch.ActionKind{
	ControlPower:      dispatch.ActionPower,
	ControlMute:       dispatch.ActionMute,
	ControlVolumeDown: dispatch.ActionVolumeDown,
	ControlVolumeUp:   dispatch.ActionVolumeUp,
}

// Press handles a click on a toolbar control.
func (c *Card) Press(ctx context.Context, id ControlID) (*dispatch.Pending, error) {
	kind, ok := controlActions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	f, ok := c.Facts()
	if !ok {
		return nil, ErrNotRendered
	}
	if !actionAllowed(kind, f) {
		return nil, fmt.Errorf("%w: %s", ErrControlDisabled, id)
	}
	return c.engine.Invoke(ctx, kind), nil
}

// Act runs an action by name under the same rules as the toolbar.
func (c *Card) Act(ctx context.Context, kind dispatch.ActionKind, args ...string) (*dispatch.Pending, error) {
	if !slices.Contains(c.engine.Kinds(), kind) {
		return nil, fmt.Errorf("%w: %s", dispatch.ErrUnknownAction, kind)
	}
	f, ok := c.Facts()
	if !ok {
		return nil, ErrNotRendered
	}
	if !actionAllowed(kind, f) {
		return nil, fmt.Errorf("%w: %s", ErrControlDisabled, kind)
	}
	return c.engine.Invoke(ctx, kind, args...), nil
}

// actionAllowed reports whether the player's state lets kind run. Mute and
// volume need the player on and the feature supported, source selection
// needs the feature. Power and bar commands are always allowed.
func actionAllowed(kind dispatch.ActionKind, f projection.ViewFacts) bool {
	switch kind {
	case dispatch.ActionMute:
		return f.IsOn && f.MuteEnabled
	case dispatch.ActionVolumeUp, dispatch.ActionVolumeDown, dispatch.ActionVolumeSet:
		return f.IsOn && f.VolumeEnabled
	case dispatch.ActionSelectSource:
		return f.SourceEnabled
	}
	return true
}

// PressButton handles a click on a configured bar button. item is the
// button's position in the bar's config.
func (c *Card) PressButton(ctx context.Context, bar, item int) (*dispatch.Pending, error) {
	c.mu.RLock()
	var button model.ButtonConfig
	found := bar >= 0 && bar < len(c.config.Bars) && item >= 0 && item < len(c.config.Bars[bar].Items)
	if found {
		button = c.config.Bars[bar].Items[item]
	}
	c.mu.RUnlock()
	if !found || button.Icon == "" {
		return nil, fmt.Errorf("%w: bar %d item %d", ErrButtonNotFound, bar, item)
	}

	s, ok := c.Snapshot()
	if !ok {
		return nil, ErrNotRendered
	}
	ev := expression.Evaluator{Logger: c.logger}
	if ev.ButtonDisabled(button, s) {
		return nil, fmt.Errorf("%w: bar %d item %d", ErrControlDisabled, bar, item)
	}
	return c.engine.Invoke(ctx, dispatch.ActionCommand, string(button.ActionType), button.Value), nil
}

// Invoke runs an action of the card's engine directly, without the toolbar
// rules. Hue requests use it since a turn-on and a brightness arrive together.
func (c *Card) Invoke(ctx context.Context, kind dispatch.ActionKind, args ...string) *dispatch.Pending {
	return c.engine.Invoke(ctx, kind, args...)
}

func (c *Card) InFlight() []dispatch.ActionKind { return c.engine.InFlight() }

// Wait blocks until every action started so far has settled.
func (c *Card) Wait() { c.engine.Wait() }
