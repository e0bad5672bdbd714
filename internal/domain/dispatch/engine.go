// Package dispatch turns card actions into Home Assistant service calls. It
// keeps single-execution actions from running twice at once and disables the
// controls tied to an action while it runs.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"media-player-card/internal/ports"
)

type ActionKind string

const (
	ActionPower        ActionKind = "power"
	ActionMute         ActionKind = "mute"
	ActionVolumeUp     ActionKind = "volume_up"
	ActionVolumeDown   ActionKind = "volume_down"
	ActionVolumeSet    ActionKind = "volume_set"
	ActionSelectSource ActionKind = "select_source"
	ActionCommand      ActionKind = "command"
)

var (
	ErrInFlight        = errors.New("action is performing")
	ErrUnknownAction   = errors.New("unknown action")
	ErrHostUnavailable = errors.New("home assistant is not available")
	ErrInvalidCommand  = errors.New("invalid command")
)

// Control is a UI control whose disabled state follows an action.
type Control interface {
	SetDisabled(disabled bool)
}

type ExecuteFunc func(ctx context.Context, call *Caller, args ...string) error

// Descriptor defines one action. It is not modified after the engine is built.
type Descriptor struct {
	Execute             ExecuteFunc
	SingleExecution     bool
	AutoRestoreOnSettle bool
	Affected            []Control
}

// HapticPolicy decides whether a dropped duplicate still gets haptic feedback.
type HapticPolicy int

const (
	HapticAcceptedOnly HapticPolicy = iota
	HapticAlways
)

type Options struct {
	ResolveHostAPI        func() ports.HostAPI
	ResolveTargetEntityID func() string
	HapticFeedback        bool
	HapticPolicy          HapticPolicy
	Haptic                func(kind ports.HapticKind)
	Observer              ports.DispatchObserver
	Logger                *slog.Logger
}

type Engine struct {
	actions map[ActionKind]Descriptor
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[ActionKind]uint64
	seq      uint64

	wg sync.WaitGroup
}

func NewEngine(actions map[ActionKind]Descriptor, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	copied := make(map[ActionKind]Descriptor, len(actions))
	for kind, d := range actions {
		d.Affected = slices.Clone(d.Affected)
		copied[kind] = d
	}
	return &Engine{
		actions:  copied,
		opts:     opts,
		logger:   logger,
		inFlight: make(map[ActionKind]uint64),
	}
}

// Invoke runs an action. Bookkeeping and disabling happen before Invoke
// returns; the host call runs in the background and is never cancelled, even
// when ctx is.
func (e *Engine) Invoke(ctx context.Context, kind ActionKind, args ...string) *Pending {
	d, ok := e.actions[kind]
	if !ok {
		e.logger.Error("unknown action", "action", kind)
		return rejectedPending(fmt.Errorf("%w: %s", ErrUnknownAction, kind))
	}

	if e.opts.HapticPolicy == HapticAlways {
		e.haptic()
	}

	var token uint64
	if d.SingleExecution {
		e.mu.Lock()
		if _, busy := e.inFlight[kind]; busy {
			e.mu.Unlock()
			e.logger.Error("action is performing", "action", kind)
			e.opts.Observer.Rejected(string(kind))
			return rejectedPending(ErrInFlight)
		}
		e.seq++
		token = e.seq
		e.inFlight[kind] = token
		e.mu.Unlock()
		setDisabled(d.Affected, true)
	}

	if e.opts.HapticPolicy == HapticAcceptedOnly {
		e.haptic()
	}
	e.opts.Observer.Invoked(string(kind))

	p := newPending()
	call := &Caller{resolveHost: e.opts.ResolveHostAPI, resolveEntity: e.opts.ResolveTargetEntityID}
	callCtx := context.WithoutCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		start := time.Now()
		err := run(callCtx, d, call, args)
		if d.SingleExecution {
			e.settle(kind, token, d, err)
		}
		if err != nil {
			e.logger.Warn("action failed", "action", kind, "entity", call.EntityID(), "error", err)
		}
		e.opts.Observer.Settled(string(kind), time.Since(start), err)
		p.resolve(err)
	}()
	return p
}

func run(ctx context.Context, d Descriptor, call *Caller, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	if d.Execute == nil {
		return nil
	}
	return d.Execute(ctx, call, args...)
}

// settle releases the in-flight slot, unless ResetAll already did and a newer
// invocation took it.
func (e *Engine) settle(kind ActionKind, token uint64, d Descriptor, err error) {
	e.mu.Lock()
	current := e.inFlight[kind] == token
	if current {
		delete(e.inFlight, kind)
	}
	e.mu.Unlock()

	// A failure always re-enables, so controls never stay stuck after an error.
	if err != nil || (current && d.AutoRestoreOnSettle) {
		setDisabled(d.Affected, false)
	}
}

// ResetAll re-enables the controls of every in-flight action and empties the
// in-flight set. Cards call it after each render.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	kinds := make([]ActionKind, 0, len(e.inFlight))
	for kind := range e.inFlight {
		kinds = append(kinds, kind)
	}
	clear(e.inFlight)
	e.mu.Unlock()

	for _, kind := range kinds {
		setDisabled(e.actions[kind].Affected, false)
	}
}

func (e *Engine) IsInFlight(kind ActionKind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.inFlight[kind]
	return ok
}

func (e *Engine) InFlight() []ActionKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	kinds := make([]ActionKind, 0, len(e.inFlight))
	for kind := range e.inFlight {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// Kinds lists the configured actions.
func (e *Engine) Kinds() []ActionKind {
	kinds := make([]ActionKind, 0, len(e.actions))
	for kind := range e.actions {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// Wait blocks until every host call started so far has settled.
func (e *Engine) Wait() { e.wg.Wait() }

func (e *Engine) haptic() {
	if e.opts.HapticFeedback && e.opts.Haptic != nil {
		e.opts.Haptic(ports.HapticLight)
	}
}

func setDisabled(controls []Control, disabled bool) {
	for _, c := range controls {
		if c != nil {
			c.SetDisabled(disabled)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Invoked(string)                       {}
func (nopObserver) Rejected(string)                      {}
func (nopObserver) Settled(string, time.Duration, error) {}
