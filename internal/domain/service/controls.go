package service

import (
	"sync"
	"sync/atomic"
)

// ControlID names one of a card's fixed toolbar controls.
type ControlID string

const (
	ControlPower      ControlID = "power"
	ControlMute       ControlID = "mute"
	ControlVolumeDown ControlID = "volume_down"
	ControlVolumeUp   ControlID = "volume_up"
)

// controlHandle holds the disabled flag the dispatch engine drives while an
// action runs.
type controlHandle struct {
	id       ControlID
	disabled atomic.Bool
}

func (h *controlHandle) SetDisabled(disabled bool) { h.disabled.Store(disabled) }

func (h *controlHandle) Disabled() bool { return h.disabled.Load() }

// controlCache hands out one handle per control id, created on first use.
type controlCache struct {
	mu      sync.Mutex
	handles map[ControlID]*controlHandle
}

func (c *controlCache) get(id ControlID) *controlHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handles == nil {
		c.handles = make(map[ControlID]*controlHandle)
	}
	h, ok := c.handles[id]
	if !ok {
		h = &controlHandle{id: id}
		c.handles[id] = h
	}
	return h
}
