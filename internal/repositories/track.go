package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

// TrackRepository persists online tracks referenced by playlists so they can be listed after a restart.
//
// Rows are unique on (provider, origin_uri); saving an existing key refreshes its metadata.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Save inserts or updates track.
func (r *TrackRepository) Save(track models.Track) error {
	if track.OriginURI() == "" {
		return fmt.Errorf("%w: track has no origin uri", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO tracks (provider, origin_uri, track_id, title, artist, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, origin_uri) DO UPDATE SET
			track_id = excluded.track_id,
			title = excluded.title,
			artist = excluded.artist,
			duration_ms = excluded.duration_ms
	`

	_, err := r.db.Exec(query,
		track.Provider().String(),
		track.OriginURI(),
		track.ID(),
		track.Title(),
		track.Artist(),
		track.DurationMs(),
	)
	if err != nil {
		return fmt.Errorf("failed to save track: %w", err)
	}

	return nil
}

// Get retrieves the track stored under key
func (r *TrackRepository) Get(key models.TrackKey) (models.Track, error) {
	query := `
		SELECT provider, origin_uri, track_id, title, artist, duration_ms
		FROM tracks
		WHERE provider = ? AND origin_uri = ?
	`

	track, err := scanTrack(r.db.QueryRow(query, key.Provider.String(), key.OriginURI))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Track{}, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, key)
	}
	return track, err
}

// Delete removes the track stored under key
func (r *TrackRepository) Delete(key models.TrackKey) error {
	result, err := r.db.Exec(`DELETE FROM tracks WHERE provider = ? AND origin_uri = ?`, key.Provider.String(), key.OriginURI)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, key)
	}

	return nil
}

// List returns every stored track in insertion order
func (r *TrackRepository) List() ([]models.Track, error) {
	query := `
		SELECT provider, origin_uri, track_id, title, artist, duration_ms
		FROM tracks
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// scanner is satisfied by [sql.Row] and [sql.Rows]
type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(s scanner) (models.Track, error) {
	var (
		provider   string
		originURI  string
		id         int64
		title      string
		artist     string
		durationMs int64
	)

	if err := s.Scan(&provider, &originURI, &id, &title, &artist, &durationMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Track{}, err
		}
		return models.Track{}, fmt.Errorf("failed to scan track: %w", err)
	}

	tag, err := models.ParseProviderTag(provider)
	if err != nil {
		return models.Track{}, fmt.Errorf("failed to scan track: %w", err)
	}

	return models.NewTrack(id, title, artist, durationMs, originURI, tag), nil
}
