// Kuwo [Provider] implementation
//
// Search responses are a JavaScript object literal using single quotes, so the body is
// normalized before JSON decoding.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

const (
	kuwoSearchHost     = "http://search.kuwo.cn"
	kuwoAntiLeechHost  = "http://antiserver.kuwo.cn"
	kuwoOuterHost      = "https://antiserver.kuwo.cn"
	kuwoRIDPrefix      = "MUSIC_"
	kuwoSearchPageSize = 15
)

// kuwoSong is one entry of the abslist array.
type kuwoSong struct {
	MusicRID flexString `json:"MUSICRID"`
	SongName flexString `json:"SONGNAME"`
	Artist   flexString `json:"ARTIST"`
	Duration flexInt    `json:"DURATION"` // seconds
}

type kuwoSearchResponse struct {
	AbsList []json.RawMessage `json:"abslist"`
}

// KuwoProvider searches and resolves tracks from Kuwo.
type KuwoProvider struct {
	fetcher    *Fetcher
	logger     *log.Logger
	searchHost string // used when the selected endpoint is the default kuwo.cn entry point
	antiLeech  string
}

// NewKuwoProvider creates a Kuwo provider using fetcher.
func NewKuwoProvider(fetcher *Fetcher, logger *log.Logger) *KuwoProvider {
	return &KuwoProvider{
		fetcher:    fetcher,
		logger:     logger,
		searchHost: kuwoSearchHost,
		antiLeech:  kuwoAntiLeechHost,
	}
}

func (k *KuwoProvider) Kind() models.ProviderTag { return models.Kuwo }

func (k *KuwoProvider) Name() string { return "Kuwo" }

// searchBase picks the host to search. The built-in endpoint points at the anti-leech
// server, which does not serve search, so any kuwo.cn endpoint is redirected to the search host.
func (k *KuwoProvider) searchBase(endpoint models.CatalogEndpoint) string {
	if u, err := url.Parse(endpoint.BaseURL); err == nil && strings.HasSuffix(u.Hostname(), "kuwo.cn") {
		return k.searchHost
	}
	return endpoint.Base()
}

// Search calls GET /r.s on the search host.
func (k *KuwoProvider) Search(ctx context.Context, endpoint models.CatalogEndpoint, query string) []models.Track {
	params := url.Values{
		"all":      {query},
		"ft":       {"music"},
		"itemset":  {"web_2013"},
		"client":   {"kt"},
		"cluster":  {"0"},
		"pn":       {"0"},
		"rn":       {strconv.Itoa(kuwoSearchPageSize)},
		"rformat":  {"json"},
		"encoding": {"utf8"},
	}

	body, err := k.fetcher.Get(ctx, models.Kuwo, k.searchBase(endpoint)+"/r.s?"+params.Encode())
	if err != nil {
		return failSoft(k.logger, query, err)
	}

	var resp kuwoSearchResponse
	if err := json.Unmarshal(sanitizeKuwo(body), &resp); err != nil {
		return failSoft(k.logger, query, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err))
	}

	tracks := make([]models.Track, 0, len(resp.AbsList))
	for _, song := range decodeRecords[kuwoSong](resp.AbsList) {
		rid := strings.TrimPrefix(string(song.MusicRID), kuwoRIDPrefix)
		if rid == "" {
			continue
		}

		id, err := strconv.ParseInt(rid, 10, 64)
		if err != nil {
			id = SyntheticID()
		}

		tracks = append(tracks, models.NewTrack(
			id,
			html.UnescapeString(string(song.SongName)),
			html.UnescapeString(string(song.Artist)),
			int64(song.Duration)*1000,
			kuwoOuterURL(rid),
			models.Kuwo,
		))
	}

	return tracks
}

// Resolve exchanges the rid for a short-lived signed URL through the anti-leech endpoint.
//
// A response that does not look like a URL falls back to the public outer link for the rid.
func (k *KuwoProvider) Resolve(ctx context.Context, _ models.CatalogEndpoint, track models.Track) (string, error) {
	rid := kuwoRID(track)
	if rid == "" {
		return "", fmt.Errorf("%w: track has no kuwo rid", shared.ErrResolutionFailed)
	}

	params := url.Values{
		"type":     {"convert_url"},
		"rid":      {kuwoRIDPrefix + rid},
		"format":   {"mp3"},
		"response": {"url"},
	}

	body, err := k.fetcher.Get(ctx, models.Kuwo, k.antiLeech+"/anti.s?"+params.Encode())
	if err != nil {
		return "", err
	}

	if signed := strings.TrimSpace(string(body)); strings.HasPrefix(signed, "http") {
		return signed, nil
	}

	k.logger.Debug("anti-leech response was not a url, using outer link", "rid", rid)
	return kuwoOuterURL(rid), nil
}

// sanitizeKuwo strips the ('...') wrapper and normalizes single quotes to double quotes.
func sanitizeKuwo(body []byte) []byte {
	s := strings.TrimSpace(string(body))
	s = strings.TrimPrefix(s, "('")
	s = strings.TrimSuffix(s, "')")
	return []byte(strings.ReplaceAll(s, "'", `"`))
}

// kuwoRID reads the rid from the origin URI, falling back to the numeric id.
func kuwoRID(track models.Track) string {
	if u, err := url.Parse(track.OriginURI()); err == nil {
		if rid := strings.TrimPrefix(u.Query().Get("rid"), kuwoRIDPrefix); rid != "" {
			return rid
		}
	}
	if track.ID() > 0 {
		return strconv.FormatInt(track.ID(), 10)
	}
	return ""
}

// kuwoOuterURL is the public link that redirects to the stream for rid.
func kuwoOuterURL(rid string) string {
	return fmt.Sprintf("%s/anti.s?format=mp3&rid=%s%s&type=convert_url&response=res&cp=0", kuwoOuterHost, kuwoRIDPrefix, rid)
}
