package models

import "strings"

// CatalogEndpoint is one base URL a catalog can be queried through.
//
// JSON field names match what the settings store has always persisted.
type CatalogEndpoint struct {
	DisplayName string      `json:"name"`
	BaseURL     string      `json:"url"`
	Provider    ProviderTag `json:"platform"`
}

// Base returns the base URL without a trailing slash.
func (e CatalogEndpoint) Base() string {
	return strings.TrimRight(e.BaseURL, "/")
}

// SearchSession is the query being searched and its generation.
type SearchSession struct {
	Query      string
	Generation uint64
}
