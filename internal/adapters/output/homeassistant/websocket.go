package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/ports"
)

var ErrAuthInvalid = errors.New("home assistant rejected the access token")

type wsMessage struct {
	ID        int      `json:"id,omitempty"`
	Type      string   `json:"type"`
	Success   *bool    `json:"success,omitempty"`
	Message   string   `json:"message,omitempty"`
	EventType string   `json:"event_type,omitempty"`
	Event     *wsEvent `json:"event,omitempty"`
	Error     *wsError `json:"error,omitempty"`
	Token     string   `json:"access_token,omitempty"`
}

type wsEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string                `json:"entity_id"`
		NewState *model.EntitySnapshot `json:"new_state"`
	} `json:"data"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Subscriber follows state_changed events over the websocket API and
// reconnects with a capped backoff when the connection drops.
type Subscriber struct {
	client     *Client
	dialer     websocket.Dialer
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

var _ ports.StateSubscriber = (*Subscriber)(nil)

func NewSubscriber(client *Client, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		client:     client,
		dialer:     websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		logger:     logger,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Subscribe blocks until ctx is done.
func (s *Subscriber) Subscribe(ctx context.Context, onChange func(model.EntitySnapshot)) error {
	backoff := s.minBackoff
	for {
		connected, err := s.session(ctx, onChange)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = s.minBackoff
		}
		if errors.Is(err, ErrNotConfigured) {
			s.logger.Debug("websocket waiting for configuration")
		} else {
			s.logger.Warn("websocket disconnected; retrying...", "error", err, "in", backoff)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.maxBackoff)
	}
}

// session runs one connection. It reports whether authentication succeeded.
func (s *Subscriber) session(ctx context.Context, onChange func(model.EntitySnapshot)) (bool, error) {
	base, token, err := s.client.credentials()
	if err != nil {
		return false, err
	}

	conn, _, err := s.dialer.DialContext(ctx, websocketURL(base), nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return false, fmt.Errorf("reading auth_required: %w", err)
	}
	if err := conn.WriteJSON(wsMessage{Type: "auth", Token: token}); err != nil {
		return false, err
	}
	msg = wsMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		return false, fmt.Errorf("reading auth result: %w", err)
	}
	if msg.Type != "auth_ok" {
		return false, fmt.Errorf("%w: %s", ErrAuthInvalid, msg.Message)
	}

	if err := conn.WriteJSON(wsMessage{ID: 1, Type: "subscribe_events", EventType: "state_changed"}); err != nil {
		return true, err
	}
	s.logger.Info("subscribed to state changes", "url", base)

	for {
		msg = wsMessage{}
		if err := conn.ReadJSON(&msg); err != nil {
			return true, err
		}
		switch msg.Type {
		case "result":
			if msg.Success != nil && !*msg.Success {
				reason := ""
				if msg.Error != nil {
					reason = msg.Error.Message
				}
				return true, fmt.Errorf("subscribe_events failed: %s", reason)
			}
			if msg.ID == 1 {
				s.resync(ctx, onChange)
			}
		case "event":
			if msg.Event == nil || msg.Event.EventType != "state_changed" {
				continue
			}
			data := msg.Event.Data
			if data.NewState == nil {
				// The entity was removed.
				onChange(model.EntitySnapshot{EntityID: data.EntityID, State: model.StateUnavailable})
				continue
			}
			onChange(*data.NewState)
		}
	}
}

// resync replays every current state once the subscription is live, so
// changes made while disconnected are not lost.
func (s *Subscriber) resync(ctx context.Context, onChange func(model.EntitySnapshot)) {
	s.client.invalidateStates()
	states, err := s.client.GetStates(ctx)
	if err != nil {
		s.logger.Warn("could not reload states after subscribing", "error", err)
		return
	}
	for _, st := range states {
		onChange(st)
	}
	s.logger.Debug("states reloaded after subscribing", "count", len(states))
}

// websocketURL maps http(s)://host to ws(s)://host/api/websocket.
func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/websocket"
}
