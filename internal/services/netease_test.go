package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

const neteaseFixture = `{"code":200,"result":{"songs":[
	{"id":186016,"name":"Sunny Day","ar":[{"id":1,"name":"Jay"},{"id":2,"name":"Other"}],"dt":269000},
	{"id":0,"name":"Broken"},
	{"id":"33894312","name":"Stringly","ar":[],"dt":"1000"}
]}}`

func TestNetEaseProvider(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		t.Run("parses result.songs", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/cloudsearch" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(neteaseFixture))
			}))
			defer srv.Close()

			tracks := NewNetEaseProvider(testFetcher(srv.Client()), testLogger()).
				Search(context.Background(), endpointFor(models.NetEase, srv), "sunny")

			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(tracks))
			}
			if tracks[0].Artist() != "Jay" {
				t.Errorf("expected first artist Jay, got %q", tracks[0].Artist())
			}
			if tracks[0].DurationMs() != 269000 {
				t.Errorf("expected 269000ms, got %d", tracks[0].DurationMs())
			}
			if tracks[0].OriginURI() != "https://music.163.com/song/media/outer/url?id=186016.mp3" {
				t.Errorf("unexpected origin %q", tracks[0].OriginURI())
			}
			if tracks[1].ID() != 33894312 || tracks[1].Artist() != models.Unknown {
				t.Errorf("unexpected second track %+v", tracks[1])
			}
		})

		t.Run("missing result yields empty slice", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code":-460,"message":"cheating"}`))
			}))
			defer srv.Close()

			tracks := NewNetEaseProvider(testFetcher(srv.Client()), testLogger()).
				Search(context.Background(), endpointFor(models.NetEase, srv), "sunny")
			if len(tracks) != 0 {
				t.Errorf("expected no tracks, got %d", len(tracks))
			}
		})
	})

	t.Run("Resolve", func(t *testing.T) {
		track := models.NewTrack(186016, "t", "a", 0, fmt.Sprintf(neteaseOuterURL, 186016), models.NetEase)

		tests := []struct {
			name string
			body string
			want string
		}{
			{name: "returns data url", body: `{"data":[{"id":186016,"url":"http://m7.music.126.net/a.mp3"}]}`, want: "http://m7.music.126.net/a.mp3"},
			{name: "null url falls back to outer link", body: `{"data":[{"id":186016,"url":null}]}`, want: fmt.Sprintf(neteaseOuterURL, 186016)},
			{name: "empty url falls back to outer link", body: `{"data":[{"id":186016,"url":""}]}`, want: fmt.Sprintf(neteaseOuterURL, 186016)},
			{name: "missing data falls back to outer link", body: `{"code":200}`, want: fmt.Sprintf(neteaseOuterURL, 186016)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if r.URL.Path != "/song/url/v1" {
						t.Errorf("unexpected path %s", r.URL.Path)
					}
					if r.URL.Query().Get("id") != "186016" {
						t.Errorf("unexpected id %q", r.URL.Query().Get("id"))
					}
					w.Write([]byte(tt.body))
				}))
				defer srv.Close()

				got, err := NewNetEaseProvider(testFetcher(srv.Client()), testLogger()).
					Resolve(context.Background(), endpointFor(models.NetEase, srv), track)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("got %q, want %q", got, tt.want)
				}
			})
		}

		t.Run("network failure is returned", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer srv.Close()

			_, err := NewNetEaseProvider(testFetcher(srv.Client()), testLogger()).
				Resolve(context.Background(), endpointFor(models.NetEase, srv), track)
			if !errors.Is(err, shared.ErrProviderUnavailable) {
				t.Errorf("expected ErrProviderUnavailable, got %v", err)
			}
		})
	})
}
