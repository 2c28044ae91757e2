// package local enumerates audio files on disk as local tracks.
package local

import (
	"hash/fnv"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/dhowden/tag"
)

// DefaultExtensions are scanned when none are configured.
var DefaultExtensions = []string{".mp3", ".flac", ".m4a", ".ogg", ".wav"}

// Catalog walks a set of root directories and reads tags from matching files.
type Catalog struct {
	roots      []string
	extensions map[string]bool
	logger     *log.Logger
}

// NewCatalog creates a catalog over roots matching extensions (case-insensitive, with leading dot).
func NewCatalog(roots, extensions []string, logger *log.Logger) *Catalog {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}

	return &Catalog{roots: roots, extensions: exts, logger: logger}
}

// Enumerate returns every matching file under the roots, ordered by path.
//
// Unreadable directories and files are skipped; enumeration never fails.
func (c *Catalog) Enumerate() []models.LocalItem {
	var paths []string
	for _, root := range c.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				c.logger.Debug("skipping unreadable path", "path", path, "err", err)
				return nil
			}
			if d.IsDir() || !c.extensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			c.logger.Warn("failed to walk library root", "root", root, "err", err)
		}
	}

	slices.Sort(paths)
	paths = slices.Compact(paths)

	items := make([]models.LocalItem, 0, len(paths))
	for _, p := range paths {
		items = append(items, c.read(p))
	}

	c.logger.Debug("enumerated local library", "count", len(items))
	return items
}

func (c *Catalog) read(path string) models.LocalItem {
	item := models.LocalItem{
		ID:     PathID(path),
		Title:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Artist: models.Unknown,
		URI:    FileURI(path),
	}

	f, err := os.Open(path)
	if err != nil {
		return item
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return item
	}

	if title := strings.TrimSpace(meta.Title()); title != "" {
		item.Title = title
	}
	if artist := strings.TrimSpace(meta.Artist()); artist != "" {
		item.Artist = artist
	}
	return item
}

// PathID derives a stable non-negative id from path.
func PathID(path string) int64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return int64(h.Sum64() & (1<<63 - 1))
}

// FileURI renders an absolute file:// URI for path.
func FileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
