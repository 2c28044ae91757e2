// package services defines interface Provider for querying remote music catalogs
package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
	"golang.org/x/time/rate"
)

// Provider is the search and resolve strategy for one catalog.
type Provider interface {
	// Kind returns the catalog this provider is permanently bound to.
	Kind() models.ProviderTag

	// Name returns a display name for logs and output.
	Name() string

	// Search queries the catalog through endpoint. It never fails; errors yield an empty slice.
	Search(ctx context.Context, endpoint models.CatalogEndpoint, query string) []models.Track

	// Resolve returns a playable URL for track, or an error the caller falls back from.
	Resolve(ctx context.Context, endpoint models.CatalogEndpoint, track models.Track) (string, error)
}

// New returns the four catalog providers in fan-out order, sharing fetcher.
func New(fetcher *Fetcher, logger *log.Logger) map[models.ProviderTag]Provider {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return map[models.ProviderTag]Provider{
		models.Kuwo:    NewKuwoProvider(fetcher, shared.WithLogger(logger, "provider", "kuwo")),
		models.Bodian:  NewBodianProvider(fetcher, shared.WithLogger(logger, "provider", "bodian")),
		models.NetEase: NewNetEaseProvider(fetcher, shared.WithLogger(logger, "provider", "netease")),
		models.Kugou:   NewKugouProvider(fetcher, shared.WithLogger(logger, "provider", "kugou")),
	}
}

// Fetcher issues GET requests with the headers every catalog expects.
type Fetcher struct {
	client    *http.Client
	userAgent string
	referer   string
	limiters  map[models.ProviderTag]*rate.Limiter
}

// NewFetcher builds a Fetcher from cfg. A nil client gets one with cfg.Timeout.
//
// A non-positive cfg.RateLimit disables rate limiting.
func NewFetcher(cfg shared.HTTPConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	limiters := make(map[models.ProviderTag]*rate.Limiter)
	if cfg.RateLimit > 0 {
		for _, p := range models.Providers() {
			limiters[p] = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
		}
	}

	return &Fetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		referer:   cfg.Referer,
		limiters:  limiters,
	}
}

// Get fetches rawURL on behalf of kind and returns the body.
//
// Transport failures and non-2xx statuses wrap [shared.ErrProviderUnavailable].
func (f *Fetcher) Get(ctx context.Context, kind models.ProviderTag, rawURL string) ([]byte, error) {
	if l, ok := f.limiters[kind]; ok {
		if err := l.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrProviderUnavailable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.referer != "" {
		req.Header.Set("Referer", f.referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrProviderUnavailable, err)
	}

	return body, nil
}

// Close releases idle connections held by the client.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

// SyntheticID returns a random non-negative 63-bit id for catalogs without stable numeric ids.
//
// These ids are process local; never persist or dedup on them.
func SyntheticID() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return int64(binary.BigEndian.Uint64(b[:]) >> 1)
}

// flexInt decodes a JSON number or numeric string; anything else becomes 0.
type flexInt int64

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = flexInt(v)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*n = flexInt(v)
		return nil
	}
	*n = 0
	return nil
}

// flexString decodes a JSON string or number; anything else becomes "".
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*s = flexString(num.String())
		return nil
	}
	*s = ""
	return nil
}

// decodeRecords decodes each raw record into T, dropping records that fail to decode.
func decodeRecords[T any](raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// failSoft logs a search failure and returns an empty result.
func failSoft(logger *log.Logger, query string, err error) []models.Track {
	logger.Debug("search degraded to empty result", "query", query, "err", err)
	return []models.Track{}
}
