package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

const kugouFixture = `{"status":1,"data":{"info":[
	{"hash":"ABC123","songname":"Moonlight","singername":"Singer","duration":200},
	{"hash":"","songname":"Missing hash","singername":"X","duration":10},
	"not-a-record",
	{"hash":"DEF456","songname":"Second","singername":"Other","duration":"180"}
]}}`

func TestKugouProvider(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		t.Run("parses data.info", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v3/search/song" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.Query().Get("keyword") != "moon" {
					t.Errorf("unexpected keyword %q", r.URL.Query().Get("keyword"))
				}
				w.Write([]byte(kugouFixture))
			}))
			defer srv.Close()

			tracks := NewKugouProvider(testFetcher(srv.Client()), testLogger()).
				Search(context.Background(), endpointFor(models.Kugou, srv), "moon")

			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(tracks))
			}
			if tracks[0].OriginURI() != "https://www.kugou.com/song/#hash=ABC123" {
				t.Errorf("unexpected origin %q", tracks[0].OriginURI())
			}
			if tracks[0].DurationMs() != 200000 {
				t.Errorf("expected 200000ms, got %d", tracks[0].DurationMs())
			}
			if tracks[1].DurationMs() != 180000 {
				t.Errorf("expected string duration to decode, got %d", tracks[1].DurationMs())
			}
			if tracks[0].ID() == tracks[1].ID() {
				t.Error("expected distinct synthetic ids")
			}
		})

		t.Run("malformed body yields empty result", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":`))
			}))
			defer srv.Close()

			tracks := NewKugouProvider(testFetcher(srv.Client()), testLogger()).
				Search(context.Background(), endpointFor(models.Kugou, srv), "moon")
			if len(tracks) != 0 {
				t.Errorf("expected no tracks, got %d", len(tracks))
			}
		})
	})

	t.Run("Resolve", func(t *testing.T) {
		track := models.NewTrack(1, "t", "a", 0, "https://www.kugou.com/song/#hash=ABC123", models.Kugou)

		t.Run("returns the play info url", func(t *testing.T) {
			var hash string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hash = r.URL.Query().Get("hash")
				w.Write([]byte(`{"url":"http://fs.kugou.com/x.mp3","bitRate":128}`))
			}))
			defer srv.Close()

			p := NewKugouProvider(testFetcher(srv.Client()), testLogger())
			p.lookup = srv.URL

			got, err := p.Resolve(context.Background(), models.CatalogEndpoint{}, track)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if hash != "ABC123" {
				t.Errorf("expected hash ABC123, got %q", hash)
			}
			if got != "http://fs.kugou.com/x.mp3" {
				t.Errorf("unexpected url %q", got)
			}
		})

		t.Run("empty url is a resolution failure", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"url":""}`))
			}))
			defer srv.Close()

			p := NewKugouProvider(testFetcher(srv.Client()), testLogger())
			p.lookup = srv.URL

			_, err := p.Resolve(context.Background(), models.CatalogEndpoint{}, track)
			if !errors.Is(err, shared.ErrResolutionFailed) {
				t.Errorf("expected ErrResolutionFailed, got %v", err)
			}
		})

		t.Run("missing hash is a resolution failure", func(t *testing.T) {
			p := NewKugouProvider(testFetcher(nil), testLogger())
			bad := models.NewTrack(1, "t", "a", 0, "https://www.kugou.com/song/", models.Kugou)

			_, err := p.Resolve(context.Background(), models.CatalogEndpoint{}, bad)
			if !errors.Is(err, shared.ErrResolutionFailed) {
				t.Errorf("expected ErrResolutionFailed, got %v", err)
			}
		})
	})
}
