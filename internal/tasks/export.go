package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/tunepool/internal/formatter"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

// PlaylistSource reads playlists and resolves their tracks.
type PlaylistSource interface {
	Playlist(id string) (models.Playlist, error)
	TracksIn(id string, local []models.Track) ([]models.Track, error)
}

// ExportOpts configures [ExportPlaylists].
type ExportOpts struct {
	Format     string // csv, markdown, txt, json or yaml
	OutputDir  string // default: tunepool_export_{epoch}
	NumWorkers int    // default: 4
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	Tracks       int    `json:"tracks"`
	File         string `json:"file,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ExportResult summarizes an export run.
type ExportResult struct {
	OutputDirectory string                 `json:"output_directory"`
	Format          string                 `json:"format"`
	Succeeded       int                    `json:"succeeded"`
	Failed          int                    `json:"failed"`
	Results         []PlaylistExportResult `json:"results"`
	ManifestPath    string                 `json:"-"`
}

// ExportPlaylists writes each playlist in ids to OutputDir and a manifest summarizing the run.
//
// Playlists are exported concurrently; a failing playlist is recorded and does not stop the others.
func ExportPlaylists(ctx context.Context, src PlaylistSource, local []models.Track, ids []string, opts ExportOpts) (*ExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("tunepool_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	pool := NewPool(opts.NumWorkers)
	defer pool.Close()

	results := make([]PlaylistExportResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		if ctx.Err() != nil {
			results[i] = PlaylistExportResult{PlaylistID: id, Error: ctx.Err().Error()}
			continue
		}

		wg.Add(1)
		if !pool.Submit(func() {
			defer wg.Done()
			results[i] = exportOne(src, local, id, opts)
		}) {
			wg.Done()
		}
	}
	wg.Wait()

	out := &ExportResult{OutputDirectory: opts.OutputDir, Format: opts.Format, Results: results}
	for _, r := range results {
		if r.Error == "" {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}

	manifest, err := shared.MarshalJSON(out, true)
	if err != nil {
		return out, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	path := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := os.WriteFile(path, manifest, 0644); err != nil {
		return out, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	out.ManifestPath = path

	return out, nil
}

func exportOne(src PlaylistSource, local []models.Track, id string, opts ExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{PlaylistID: id}

	p, err := src.Playlist(id)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.PlaylistName = p.Name

	tracks, err := src.TracksIn(id, local)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Tracks = len(tracks)

	path, err := formatter.WriteExport(&formatter.PlaylistExport{Playlist: p, Tracks: tracks}, opts.Format, opts.OutputDir)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.File = path
	return result
}
