// Package homeassistant talks to the Home Assistant REST and websocket APIs.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	ttlcache "github.com/jellydator/ttlcache/v2"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/ports"
)

const statesKey = "states"

var ErrNotConfigured = errors.New("Home Assistant not configured")

// APIError is a non-2xx answer of the REST API.
type APIError struct {
	StatusCode int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HA API error: %d (%s)", e.StatusCode, e.Path)
}

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	cache      *ttlcache.Cache

	mu    sync.RWMutex
	url   string
	token string
}

var _ ports.HomeAssistantPort = (*Client)(nil)

// NewClient returns an unconfigured client. States are cached for ttl, so
// entity lookups during a burst of actions hit Home Assistant once.
func NewClient(ttl time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cache := ttlcache.NewCache()
	_ = cache.SetTTL(ttl)
	cache.SkipTTLExtensionOnHit(true)
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		cache:      cache,
	}
}

func (c *Client) Configure(url, token string) {
	c.mu.Lock()
	c.url = strings.TrimSuffix(url, "/")
	c.token = token
	c.mu.Unlock()
	_ = c.cache.Purge()
}

func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.url != "" && c.token != ""
}

func (c *Client) credentials() (string, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.url == "" || c.token == "" {
		return "", "", ErrNotConfigured
	}
	return c.url, c.token, nil
}

// Close stops the cache janitor.
func (c *Client) Close() error {
	return c.cache.Close()
}

// GetStates returns every entity state, from cache when fresh.
func (c *Client) GetStates(ctx context.Context) ([]model.EntitySnapshot, error) {
	if cached, err := c.cache.Get(statesKey); err == nil {
		return cached.([]model.EntitySnapshot), nil
	}

	var states []model.EntitySnapshot
	if err := c.do(ctx, http.MethodGet, "/api/states", nil, &states); err != nil {
		return nil, err
	}

	// Pictures are large and never rendered.
	for _, s := range states {
		delete(s.Attributes, "entity_picture")
		delete(s.Attributes, "entity_picture_local")
	}

	_ = c.cache.Set(statesKey, states)
	return states, nil
}

func (c *Client) HasEntity(ctx context.Context, entityID string) bool {
	states, err := c.GetStates(ctx)
	if err != nil {
		c.logger.Warn("entity lookup failed", "entity", entityID, "error", err)
		return false
	}
	for _, s := range states {
		if s.EntityID == entityID {
			return true
		}
	}
	return false
}

func (c *Client) GetAllEntities(ctx context.Context) ([]ports.HomeAssistantEntity, error) {
	states, err := c.GetStates(ctx)
	if err != nil {
		return nil, err
	}

	entities := make([]ports.HomeAssistantEntity, 0, len(states))
	for _, s := range states {
		if !strings.Contains(s.EntityID, ".") {
			continue
		}
		name := s.FriendlyName()
		if name == "" {
			name = s.EntityID
		}
		entities = append(entities, ports.HomeAssistantEntity{
			EntityID:     s.EntityID,
			FriendlyName: name,
		})
	}
	return entities, nil
}

// CallService posts to /api/services/<domain>/<service> and returns the
// states Home Assistant reports as changed.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) ([]model.EntitySnapshot, error) {
	if domain == "" || service == "" {
		return nil, fmt.Errorf("invalid service %q.%q", domain, service)
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding service data: %w", err)
	}

	var changed []model.EntitySnapshot
	path := fmt.Sprintf("/api/services/%s/%s", domain, service)
	if err := c.do(ctx, http.MethodPost, path, body, &changed); err != nil {
		return nil, err
	}
	c.invalidateStates()
	c.logger.Debug("service called", "domain", domain, "service", service, "changed", len(changed))
	return changed, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	base, token, err := c.credentials()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Path: path}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) invalidateStates() {
	_ = c.cache.Remove(statesKey)
}
