// package formatter renders playlists and track lists to CSV, Markdown, plain text, JSON and YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
	"gopkg.in/yaml.v3"
)

// Supported export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Formats lists every supported export format.
func Formats() []string {
	return []string{FormatCSV, FormatMarkdown, FormatText, FormatJSON, FormatYAML}
}

// PlaylistExport is a playlist with its keys resolved to tracks.
type PlaylistExport struct {
	Playlist models.Playlist `json:"playlist"`
	Tracks   []models.Track  `json:"tracks"`
}

// exportDoc is the YAML document shape.
type exportDoc struct {
	ID     string     `yaml:"id"`
	Name   string     `yaml:"name"`
	Tracks []trackDoc `yaml:"tracks"`
}

type trackDoc struct {
	Title    string `yaml:"title"`
	Artist   string `yaml:"artist"`
	Duration string `yaml:"duration"`
	Provider string `yaml:"provider"`
	URI      string `yaml:"uri"`
}

// ExportToCSV renders columns: Provider, ID, Title, Artist, Duration, URI
func ExportToCSV(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Provider", "ID", "Title", "Artist", "Duration", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.Provider().String(),
			strconv.FormatInt(track.ID(), 10),
			track.Title(),
			track.Artist(),
			shared.FormatDuration(track.DurationMs()),
			track.OriginURI(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a heading, a track count and a numbered track list
func ExportToMarkdown(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s] (%s)\n",
			i+1, track.Artist(), track.Title(), shared.FormatDuration(track.DurationMs()), track.Provider().Label())
	}

	return buf.Bytes(), nil
}

// ExportToText renders a plain numbered list
func ExportToText(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist(), track.Title())
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the export as indented JSON
func ExportToJSON(export *PlaylistExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ExportToYAML renders the export as a YAML document
func ExportToYAML(export *PlaylistExport) ([]byte, error) {
	doc := exportDoc{ID: export.Playlist.ID, Name: export.Playlist.Name, Tracks: make([]trackDoc, 0, len(export.Tracks))}
	for _, track := range export.Tracks {
		doc.Tracks = append(doc.Tracks, trackDoc{
			Title:    track.Title(),
			Artist:   track.Artist(),
			Duration: shared.FormatDuration(track.DurationMs()),
			Provider: track.Provider().String(),
			URI:      track.OriginURI(),
		})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return data, nil
}

// Render dispatches to the exporter for format and returns the data with its file extension.
func Render(export *PlaylistExport, format string) ([]byte, string, error) {
	var (
		data []byte
		ext  string
		err  error
	)

	switch strings.ToLower(format) {
	case FormatCSV:
		data, err = ExportToCSV(export)
		ext = ".csv"
	case FormatMarkdown, "md":
		data, err = ExportToMarkdown(export)
		ext = ".md"
	case FormatText, "text":
		data, err = ExportToText(export)
		ext = ".txt"
	case FormatJSON:
		data, err = ExportToJSON(export)
		ext = ".json"
	case FormatYAML, "yml":
		data, err = ExportToYAML(export)
		ext = ".yaml"
	default:
		return nil, "", fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}

	return data, ext, err
}

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// FileName builds a filesystem-safe base name from the playlist name, falling back to its id.
func FileName(p models.Playlist) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(p.Name), "_"), "_")
	if name == "" {
		return p.ID
	}
	return name
}

// WriteExport renders export in format to {dir}/{name}{ext} and returns the path.
func WriteExport(export *PlaylistExport, format, dir string) (string, error) {
	data, ext, err := Render(export, format)
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, FileName(export.Playlist)+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	return path, nil
}
