// Kugou [Provider] implementation
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

const (
	kugouSongPage   = "https://www.kugou.com/song/"
	kugouLookupHost = "http://m.kugou.com"
)

type kugouSong struct {
	Hash       flexString `json:"hash"`
	SongName   flexString `json:"songname"`
	SingerName flexString `json:"singername"`
	Duration   flexInt    `json:"duration"` // seconds
}

type kugouSearchResponse struct {
	Data struct {
		Info []json.RawMessage `json:"info"`
	} `json:"data"`
}

type kugouPlayInfo struct {
	URL flexString `json:"url"`
}

// KugouProvider searches and resolves tracks from Kugou.
//
// Kugou has no stable numeric id in search results, so ids are synthesized and the hash
// travels in the origin URI fragment.
type KugouProvider struct {
	fetcher *Fetcher
	logger  *log.Logger
	lookup  string
}

// NewKugouProvider creates a Kugou provider using fetcher.
func NewKugouProvider(fetcher *Fetcher, logger *log.Logger) *KugouProvider {
	return &KugouProvider{fetcher: fetcher, logger: logger, lookup: kugouLookupHost}
}

func (k *KugouProvider) Kind() models.ProviderTag { return models.Kugou }

func (k *KugouProvider) Name() string { return "Kugou" }

// Search calls GET /api/v3/search/song on the selected endpoint.
func (k *KugouProvider) Search(ctx context.Context, endpoint models.CatalogEndpoint, query string) []models.Track {
	params := url.Values{"keyword": {query}, "page": {"1"}, "pagesize": {"20"}}

	body, err := k.fetcher.Get(ctx, models.Kugou, endpoint.Base()+"/api/v3/search/song?"+params.Encode())
	if err != nil {
		return failSoft(k.logger, query, err)
	}

	var resp kugouSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return failSoft(k.logger, query, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err))
	}

	tracks := make([]models.Track, 0, len(resp.Data.Info))
	for _, song := range decodeRecords[kugouSong](resp.Data.Info) {
		if song.Hash == "" {
			continue
		}
		tracks = append(tracks, models.NewTrack(
			SyntheticID(),
			string(song.SongName),
			string(song.SingerName),
			int64(song.Duration)*1000,
			kugouSongPage+"#hash="+string(song.Hash),
			models.Kugou,
		))
	}

	return tracks
}

// Resolve looks up the play info for the hash embedded in the origin URI.
//
// An empty url field is a failure.
func (k *KugouProvider) Resolve(ctx context.Context, _ models.CatalogEndpoint, track models.Track) (string, error) {
	hash := kugouHash(track.OriginURI())
	if hash == "" {
		return "", fmt.Errorf("%w: no hash in %s", shared.ErrResolutionFailed, track.OriginURI())
	}

	params := url.Values{"cmd": {"playInfo"}, "hash": {hash}}
	body, err := k.fetcher.Get(ctx, models.Kugou, k.lookup+"/app/i/getSongInfo.php?"+params.Encode())
	if err != nil {
		return "", err
	}

	var info kugouPlayInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}

	if strings.TrimSpace(string(info.URL)) == "" {
		return "", fmt.Errorf("%w: empty url for hash %s", shared.ErrResolutionFailed, hash)
	}

	return string(info.URL), nil
}

// kugouHash extracts h from a reference ending in #hash=h.
func kugouHash(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	key, value, ok := strings.Cut(u.Fragment, "=")
	if !ok || key != "hash" {
		return ""
	}
	return value
}
