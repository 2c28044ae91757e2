// Bodian [Provider] implementation
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

type bodianSong struct {
	Title  flexString `json:"title"`
	Artist flexString `json:"artist"`
	URL    flexString `json:"url"`
}

type bodianSearchResponse struct {
	Data []json.RawMessage `json:"data"`
}

// BodianProvider searches Bodian. Its search results already carry the final stream URL.
type BodianProvider struct {
	fetcher *Fetcher
	logger  *log.Logger
}

// NewBodianProvider creates a Bodian provider using fetcher.
func NewBodianProvider(fetcher *Fetcher, logger *log.Logger) *BodianProvider {
	return &BodianProvider{fetcher: fetcher, logger: logger}
}

func (b *BodianProvider) Kind() models.ProviderTag { return models.Bodian }

func (b *BodianProvider) Name() string { return "Bodian" }

// Search calls GET /search?type=bodian on the selected endpoint.
func (b *BodianProvider) Search(ctx context.Context, endpoint models.CatalogEndpoint, query string) []models.Track {
	params := url.Values{"keywords": {query}, "type": {"bodian"}}

	body, err := b.fetcher.Get(ctx, models.Bodian, endpoint.Base()+"/search?"+params.Encode())
	if err != nil {
		return failSoft(b.logger, query, err)
	}

	var resp bodianSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return failSoft(b.logger, query, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err))
	}

	tracks := make([]models.Track, 0, len(resp.Data))
	for _, song := range decodeRecords[bodianSong](resp.Data) {
		if song.URL == "" {
			continue
		}
		tracks = append(tracks, models.NewTrack(SyntheticID(), string(song.Title), string(song.Artist), 0, string(song.URL), models.Bodian))
	}

	return tracks
}

// Resolve returns the origin URI unchanged.
func (b *BodianProvider) Resolve(_ context.Context, _ models.CatalogEndpoint, track models.Track) (string, error) {
	return track.OriginURI(), nil
}
