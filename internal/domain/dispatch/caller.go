package dispatch

import (
	"context"

	"media-player-card/internal/domain/model"
	"media-player-card/internal/ports"
)

// Caller issues service calls addressed at the card's target entity.
type Caller struct {
	resolveHost   func() ports.HostAPI
	resolveEntity func() string
}

func (c *Caller) EntityID() string {
	if c.resolveEntity == nil {
		return ""
	}
	return c.resolveEntity()
}

// Call calls a media_player service.
func (c *Caller) Call(ctx context.Context, service string, data map[string]any) error {
	return c.CallDomain(ctx, model.DomainMediaPlayer, service, data)
}

// CallDomain calls a service of another domain. entity_id defaults to the
// target entity and may be overridden through data.
func (c *Caller) CallDomain(ctx context.Context, domain, service string, data map[string]any) error {
	var host ports.HostAPI
	if c.resolveHost != nil {
		host = c.resolveHost()
	}
	if host == nil {
		return ErrHostUnavailable
	}
	payload := map[string]any{"entity_id": c.EntityID()}
	for k, v := range data {
		payload[k] = v
	}
	_, err := host.CallService(ctx, domain, service, payload)
	return err
}
