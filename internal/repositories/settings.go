package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Setting kinds recorded alongside each value.
const (
	kindString = "string"
	kindBool   = "bool"
	kindSet    = "set"
)

// Persisted setting keys.
const (
	KeyCustomSources  = "custom_sources"
	KeySelectedPrefix = "selected_source_"
	KeyUserPlaylists  = "user_playlists"
	KeyHiddenSongs    = "hidden_songs"
	KeyOnlineEnabled  = "online_enabled"
	KeyPinnedProvider = "pinned_provider"
)

// SettingsStore is a typed key/value store over the settings table.
type SettingsStore struct {
	db *sql.DB
}

// NewSettingsStore creates a SettingsStore with the given database connection
func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetString returns the value stored at key and whether it exists.
func (s *SettingsStore) GetString(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// PutString stores value at key, replacing any previous value.
func (s *SettingsStore) PutString(key, value string) error {
	return s.put(key, kindString, value)
}

// GetBool returns the boolean at key, or def when the key is absent or unparsable.
func (s *SettingsStore) GetBool(key string, def bool) (bool, error) {
	raw, ok, err := s.GetString(key)
	if err != nil || !ok {
		return def, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, nil
	}
	return v, nil
}

// PutBool stores a boolean at key.
func (s *SettingsStore) PutBool(key string, value bool) error {
	return s.put(key, kindBool, strconv.FormatBool(value))
}

// GetStringSet returns the sorted set at key. A missing key is an empty set.
func (s *SettingsStore) GetStringSet(key string) ([]string, error) {
	raw, ok, err := s.GetString(key)
	if err != nil || !ok {
		return []string{}, err
	}

	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return []string{}, fmt.Errorf("corrupt set %s: %w", key, err)
	}
	slices.Sort(values)
	return slices.Compact(values), nil
}

// PutStringSet stores values at key as a sorted set without duplicates.
func (s *SettingsStore) PutStringSet(key string, values []string) error {
	set := slices.Clone(values)
	slices.Sort(set)
	set = slices.Compact(set)
	if set == nil {
		set = []string{}
	}

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode set %s: %w", key, err)
	}
	return s.put(key, kindSet, string(data))
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SettingsStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) put(key, kind, value string) error {
	query := `
		INSERT INTO settings (key, kind, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET kind = excluded.kind, value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.Exec(query, key, kind, value); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}
