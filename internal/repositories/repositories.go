package repositories

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
)

// Repositories bundles the stores built over one database connection.
type Repositories struct {
	Settings *SettingsStore
	Tracks   *TrackRepository
	Registry *CatalogRegistry
	Library  *LibraryStore
}

// Open builds every store over db, which must already be migrated.
func Open(db *sql.DB, logger *log.Logger) (*Repositories, error) {
	settings := NewSettingsStore(db)
	tracks := NewTrackRepository(db)

	registry, err := NewCatalogRegistry(settings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog registry: %w", err)
	}

	library, err := NewLibraryStore(settings, tracks, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	return &Repositories{Settings: settings, Tracks: tracks, Registry: registry, Library: library}, nil
}
