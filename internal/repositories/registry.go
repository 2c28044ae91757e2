package repositories

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

// BuiltinEndpoints returns the default endpoint of every catalog. They are always present and cannot be removed.
func BuiltinEndpoints() []models.CatalogEndpoint {
	return []models.CatalogEndpoint{
		{DisplayName: "默认 (Qijieya)", BaseURL: "https://163api.qijieya.cn", Provider: models.NetEase},
		{DisplayName: "官方源", BaseURL: "http://antiserver.kuwo.cn", Provider: models.Kuwo},
		{DisplayName: "官方源", BaseURL: "https://findmusic-api.com", Provider: models.Bodian},
		{DisplayName: "官方源", BaseURL: "http://mobilecdn.kugou.com", Provider: models.Kugou},
	}
}

// IsBuiltin reports whether e is the built-in endpoint of its catalog. The same URL under another catalog is custom.
func IsBuiltin(e models.CatalogEndpoint) bool {
	return slices.ContainsFunc(BuiltinEndpoints(), func(b models.CatalogEndpoint) bool {
		return b.Provider == e.Provider && b.BaseURL == e.BaseURL
	})
}

// CatalogRegistry keeps the endpoints known for each catalog and which one is selected.
//
// Built-ins come first, followed by custom endpoints in the order they were added.
// Only custom endpoints are written to the store.
type CatalogRegistry struct {
	mu        sync.RWMutex
	store     *SettingsStore
	logger    *log.Logger
	endpoints []models.CatalogEndpoint
	selected  map[models.ProviderTag]models.CatalogEndpoint
}

// NewCatalogRegistry loads the registry from store. A corrupt custom list is logged and ignored.
func NewCatalogRegistry(store *SettingsStore, logger *log.Logger) (*CatalogRegistry, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	r := &CatalogRegistry{
		store:    store,
		logger:   logger,
		selected: make(map[models.ProviderTag]models.CatalogEndpoint),
	}

	custom, err := r.loadCustom()
	if err != nil {
		return nil, err
	}
	r.endpoints = append(BuiltinEndpoints(), custom...)

	for _, p := range models.Providers() {
		saved, _, err := store.GetString(KeySelectedPrefix + p.String())
		if err != nil {
			return nil, err
		}

		idx := slices.IndexFunc(r.endpoints, func(e models.CatalogEndpoint) bool {
			return e.Provider == p && e.BaseURL == saved
		})
		if idx < 0 {
			idx = slices.IndexFunc(r.endpoints, func(e models.CatalogEndpoint) bool { return e.Provider == p })
		}
		if idx >= 0 {
			r.selected[p] = r.endpoints[idx]
		}
	}

	return r, nil
}

func (r *CatalogRegistry) loadCustom() ([]models.CatalogEndpoint, error) {
	raw, ok, err := r.store.GetString(KeyCustomSources)
	if err != nil || !ok {
		return nil, err
	}

	var custom []models.CatalogEndpoint
	if err := json.Unmarshal([]byte(raw), &custom); err != nil {
		r.logger.Warn("ignoring corrupt custom endpoints", "err", err)
		return nil, nil
	}

	return slices.DeleteFunc(custom, func(e models.CatalogEndpoint) bool {
		return !e.Provider.Online() || e.BaseURL == "" || IsBuiltin(e)
	}), nil
}

// Endpoints returns every known endpoint.
func (r *CatalogRegistry) Endpoints() []models.CatalogEndpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.endpoints)
}

// EndpointsFor returns the endpoints of a single catalog.
func (r *CatalogRegistry) EndpointsFor(kind models.ProviderTag) []models.CatalogEndpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.CatalogEndpoint{}
	for _, e := range r.endpoints {
		if e.Provider == kind {
			out = append(out, e)
		}
	}
	return out
}

// Selected returns the endpoint searches and resolutions for kind go through.
func (r *CatalogRegistry) Selected(kind models.ProviderTag) (models.CatalogEndpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.selected[kind]
	return e, ok
}

// Select makes endpoint the selected one for kind. The endpoint must be registered for that catalog.
func (r *CatalogRegistry) Select(kind models.ProviderTag, endpoint models.CatalogEndpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.endpoints, func(e models.CatalogEndpoint) bool {
		return e.Provider == kind && e.BaseURL == endpoint.BaseURL
	})
	if idx < 0 {
		return fmt.Errorf("%w: %s for %s", shared.ErrEndpointNotFound, endpoint.BaseURL, kind)
	}

	if err := r.store.PutString(KeySelectedPrefix+kind.String(), endpoint.BaseURL); err != nil {
		return err
	}
	r.selected[kind] = r.endpoints[idx]
	return nil
}

// Add registers a custom endpoint.
func (r *CatalogRegistry) Add(endpoint models.CatalogEndpoint) error {
	if strings.TrimSpace(endpoint.DisplayName) == "" {
		return fmt.Errorf("%w: endpoint name is required", shared.ErrInvalidInput)
	}
	if !endpoint.Provider.Online() {
		return fmt.Errorf("%w: endpoint must belong to an online catalog", shared.ErrInvalidInput)
	}
	if u, err := url.Parse(endpoint.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: invalid endpoint url %q", shared.ErrInvalidInput, endpoint.BaseURL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.ContainsFunc(r.endpoints, func(e models.CatalogEndpoint) bool {
		return e.Provider == endpoint.Provider && e.BaseURL == endpoint.BaseURL
	}) {
		return fmt.Errorf("%w: endpoint %s already registered", shared.ErrInvalidInput, endpoint.BaseURL)
	}

	next := append(slices.Clone(r.endpoints), endpoint)
	if err := r.saveCustom(next); err != nil {
		return err
	}
	r.endpoints = next
	return nil
}

// Remove unregisters a custom endpoint. If it was selected, the catalog's first endpoint is selected instead.
func (r *CatalogRegistry) Remove(endpoint models.CatalogEndpoint) error {
	if IsBuiltin(endpoint) {
		return fmt.Errorf("%w: %s", shared.ErrBuiltinEndpoint, endpoint.BaseURL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	match := func(e models.CatalogEndpoint) bool {
		return e.Provider == endpoint.Provider && e.BaseURL == endpoint.BaseURL
	}
	if !slices.ContainsFunc(r.endpoints, match) {
		return fmt.Errorf("%w: %s", shared.ErrEndpointNotFound, endpoint.BaseURL)
	}

	next := slices.DeleteFunc(slices.Clone(r.endpoints), match)
	if err := r.saveCustom(next); err != nil {
		return err
	}
	r.endpoints = next

	if sel, ok := r.selected[endpoint.Provider]; ok && sel.BaseURL == endpoint.BaseURL {
		idx := slices.IndexFunc(next, func(e models.CatalogEndpoint) bool { return e.Provider == endpoint.Provider })
		if idx < 0 {
			delete(r.selected, endpoint.Provider)
			return nil
		}
		r.selected[endpoint.Provider] = next[idx]
		if err := r.store.PutString(KeySelectedPrefix+endpoint.Provider.String(), next[idx].BaseURL); err != nil {
			return err
		}
	}

	return nil
}

func (r *CatalogRegistry) saveCustom(all []models.CatalogEndpoint) error {
	custom := slices.DeleteFunc(slices.Clone(all), IsBuiltin)
	if custom == nil {
		custom = []models.CatalogEndpoint{}
	}

	data, err := json.Marshal(custom)
	if err != nil {
		return fmt.Errorf("failed to encode endpoints: %w", err)
	}
	return r.store.PutString(KeyCustomSources, string(data))
}
