package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/services"
)

// Resolver turns a track into a playable URL using its provider's strategy.
//
// Resolution never fails: any error falls back to the track's origin URI.
type Resolver struct {
	providers map[models.ProviderTag]services.Provider
	endpoints EndpointSource
	timeout   time.Duration
	logger    *log.Logger
}

// NewResolver creates a resolver; timeout bounds each provider call.
func NewResolver(providers map[models.ProviderTag]services.Provider, endpoints EndpointSource, timeout time.Duration, logger *log.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Resolver{providers: providers, endpoints: endpoints, timeout: timeout, logger: logger}
}

// Resolve returns the URL the engine should play for track.
func (r *Resolver) Resolve(ctx context.Context, track models.Track) string {
	if !track.Provider().Online() {
		return track.OriginURI()
	}

	p, ok := r.providers[track.Provider()]
	if !ok {
		return track.OriginURI()
	}

	endpoint, _ := r.endpoints.Selected(track.Provider())

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	url, err := p.Resolve(ctx, endpoint, track)
	if err != nil || url == "" {
		r.logger.Warn("resolution failed, using origin", "provider", track.Provider(), "title", track.Title(), "err", err)
		return track.OriginURI()
	}

	r.logger.Debug("resolved stream", "provider", track.Provider(), "title", track.Title())
	return url
}
