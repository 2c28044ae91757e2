package models

import (
	"fmt"
	"strings"
)

// ProviderTag identifies where a track came from.
type ProviderTag int

const (
	Local ProviderTag = iota
	NetEase
	Kuwo
	Kugou
	Bodian
)

var providerNames = map[ProviderTag]string{
	Local:   "LOCAL",
	NetEase: "NETEASE",
	Kuwo:    "KUWO",
	Kugou:   "KUGOU",
	Bodian:  "BODIAN",
}

var providerLabels = map[ProviderTag]string{
	Local:   "Local",
	NetEase: "NetEase Cloud Music",
	Kuwo:    "Kuwo",
	Kugou:   "Kugou",
	Bodian:  "Bodian",
}

// Providers returns the online catalogs in fan-out order.
//
// Merged search results are grouped in this order, so it must stay fixed.
func Providers() []ProviderTag {
	return []ProviderTag{Kuwo, Bodian, NetEase, Kugou}
}

// String returns the persisted name (e.g. "NETEASE").
func (p ProviderTag) String() string {
	if name, ok := providerNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PROVIDER(%d)", int(p))
}

// Label returns a human readable name.
func (p ProviderTag) Label() string {
	if label, ok := providerLabels[p]; ok {
		return label
	}
	return p.String()
}

// Online reports whether p is one of the remote catalogs.
func (p ProviderTag) Online() bool {
	return p != Local && providerNames[p] != ""
}

// ParseProviderTag accepts the persisted name in any case.
func ParseProviderTag(s string) (ProviderTag, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for tag, name := range providerNames {
		if name == s {
			return tag, nil
		}
	}
	return Local, fmt.Errorf("unknown provider %q", s)
}

func (p ProviderTag) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ProviderTag) UnmarshalText(b []byte) error {
	tag, err := ParseProviderTag(string(b))
	if err != nil {
		return err
	}
	*p = tag
	return nil
}
