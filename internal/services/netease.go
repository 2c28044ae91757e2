// NetEase Cloud Music [Provider] implementation
//
// Talks to a NeteaseCloudMusicApi compatible deployment (the selected endpoint).
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

const neteaseOuterURL = "https://music.163.com/song/media/outer/url?id=%d.mp3"

type neteaseArtist struct {
	Name flexString `json:"name"`
}

type neteaseSong struct {
	ID      flexInt         `json:"id"`
	Name    flexString      `json:"name"`
	Artists []neteaseArtist `json:"ar"`
	DT      flexInt         `json:"dt"` // milliseconds
}

type neteaseSearchResponse struct {
	Result struct {
		Songs []json.RawMessage `json:"songs"`
	} `json:"result"`
}

type neteaseSongURLResponse struct {
	Data []struct {
		ID  flexInt    `json:"id"`
		URL flexString `json:"url"`
	} `json:"data"`
}

// NetEaseProvider searches and resolves tracks from NetEase Cloud Music.
type NetEaseProvider struct {
	fetcher *Fetcher
	logger  *log.Logger
}

// NewNetEaseProvider creates a NetEase provider using fetcher.
func NewNetEaseProvider(fetcher *Fetcher, logger *log.Logger) *NetEaseProvider {
	return &NetEaseProvider{fetcher: fetcher, logger: logger}
}

func (n *NetEaseProvider) Kind() models.ProviderTag { return models.NetEase }

func (n *NetEaseProvider) Name() string { return "NetEase" }

// Search calls GET /cloudsearch on the selected endpoint.
func (n *NetEaseProvider) Search(ctx context.Context, endpoint models.CatalogEndpoint, query string) []models.Track {
	params := url.Values{"keywords": {query}, "limit": {"20"}, "type": {"1"}}

	body, err := n.fetcher.Get(ctx, models.NetEase, endpoint.Base()+"/cloudsearch?"+params.Encode())
	if err != nil {
		return failSoft(n.logger, query, err)
	}

	var resp neteaseSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return failSoft(n.logger, query, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err))
	}

	tracks := make([]models.Track, 0, len(resp.Result.Songs))
	for _, song := range decodeRecords[neteaseSong](resp.Result.Songs) {
		if song.ID <= 0 {
			continue
		}

		artist := ""
		if len(song.Artists) > 0 {
			artist = string(song.Artists[0].Name)
		}

		id := int64(song.ID)
		tracks = append(tracks, models.NewTrack(id, string(song.Name), artist, int64(song.DT), fmt.Sprintf(neteaseOuterURL, id), models.NetEase))
	}

	return tracks
}

// Resolve asks the selected endpoint for the playback url of the track id.
//
// An empty or absent url falls back to the public outer link.
func (n *NetEaseProvider) Resolve(ctx context.Context, endpoint models.CatalogEndpoint, track models.Track) (string, error) {
	if track.ID() <= 0 {
		return "", fmt.Errorf("%w: netease track without id", shared.ErrResolutionFailed)
	}

	params := url.Values{"id": {strconv.FormatInt(track.ID(), 10)}, "level": {"standard"}}
	body, err := n.fetcher.Get(ctx, models.NetEase, endpoint.Base()+"/song/url/v1?"+params.Encode())
	if err != nil {
		return "", err
	}

	var resp neteaseSongURLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}

	if len(resp.Data) > 0 {
		if u := strings.TrimSpace(string(resp.Data[0].URL)); u != "" && u != "null" {
			return u, nil
		}
	}

	n.logger.Debug("no playback url, using outer link", "id", track.ID())
	return fmt.Sprintf(neteaseOuterURL, track.ID()), nil
}
