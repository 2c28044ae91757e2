package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
	th "github.com/desertthunder/tunepool/internal/testing"
	"gopkg.in/yaml.v3"
)

func sampleExport() *PlaylistExport {
	return &PlaylistExport{
		Playlist: models.Playlist{ID: "pl-1", Name: "Road Trip"},
		Tracks: []models.Track{
			models.NewTrack(186016, "Sunny Day", "Jay", 269000, "https://music.163.com/song/media/outer/url?id=186016.mp3", models.NetEase),
			models.NewTrack(7, "Home, Again", "", 0, "file:///music/home.mp3", models.Local),
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Provider,ID,Title,Artist,Duration,URI\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "NETEASE,186016,Sunny Day,Jay,4:29,") {
			t.Errorf("CSV missing first track, got: %s", output)
		}
		if !strings.Contains(output, `"Home, Again"`) {
			t.Errorf("CSV should quote titles with commas, got: %s", output)
		}
		if !strings.Contains(output, "--:--") {
			t.Errorf("CSV should mark unknown durations, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"# Road Trip", "**Tracks**: 2", "1. Jay - Sunny Day [4:29] (NetEase Cloud Music)", "2. Unknown - Home, Again"} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlist: Road Trip\nTracks: 2\n\n1. Jay - Sunny Day\n") {
			t.Errorf("unexpected text output: %s", output)
		}
	})

	t.Run("ExportToYAML", func(t *testing.T) {
		data, err := ExportToYAML(sampleExport())
		if err != nil {
			t.Fatalf("ExportToYAML failed: %v", err)
		}

		var doc exportDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			t.Fatalf("output is not valid YAML: %v", err)
		}
		if doc.Name != "Road Trip" || len(doc.Tracks) != 2 {
			t.Fatalf("unexpected document %+v", doc)
		}
		if doc.Tracks[0].Provider != "NETEASE" || doc.Tracks[1].URI != "file:///music/home.mp3" {
			t.Errorf("unexpected tracks %+v", doc.Tracks)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		if !strings.Contains(string(data), `"origin_uri": "file:///music/home.mp3"`) {
			t.Errorf("unexpected JSON: %s", data)
		}
	})
}

func TestRender(t *testing.T) {
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			data, ext, err := Render(sampleExport(), format)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if len(data) == 0 || ext == "" {
				t.Errorf("expected data and extension, got %d bytes, %q", len(data), ext)
			}
		})
	}

	t.Run("unsupported format", func(t *testing.T) {
		_, _, err := Render(sampleExport(), "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("writes to the output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")

		path, err := WriteExport(sampleExport(), FormatYAML, dir)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != filepath.Join(dir, "Road_Trip.yaml") {
			t.Errorf("unexpected path %s", path)
		}
		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "name: Road Trip") {
			t.Error("expected YAML content")
		}
	})

	t.Run("falls back to the id for unusable names", func(t *testing.T) {
		if got := FileName(models.Playlist{ID: "abc", Name: "///"}); got != "abc" {
			t.Errorf("expected id fallback, got %q", got)
		}
		if got := FileName(models.Playlist{ID: "abc", Name: "夜曲 / Mix"}); got != "夜曲_Mix" {
			t.Errorf("expected unicode to survive, got %q", got)
		}
	})
}
