// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package sources

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/nexttrack/internal/logging"
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) (*Catalog, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewCatalog(CatalogOptions{
		BaseURL: srv.URL + "/2.0/",
		APIKey:  "test-key",
	}, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c, srv
}

func TestCatalogTrackTags(t *testing.T) {
	var gotQuery map[string]string
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"method":  q.Get("method"),
			"api_key": q.Get("api_key"),
			"format":  q.Get("format"),
			"artist":  q.Get("artist"),
			"track":   q.Get("track"),
		}
		w.Write([]byte(`{"toptags":{"tag":[{"name":"shoegaze","count":100},{"name":"dream pop","count":60},{"name":""}]}}`))
	})

	tags, err := c.TrackTags(context.Background(), "Slowdive", "Alison")
	if err != nil {
		t.Fatalf("TrackTags: %v", err)
	}
	want := []string{"shoegaze", "dream pop"}
	if len(tags) != len(want) {
		t.Fatalf("got %d tags, want %d: %v", len(tags), len(want), tags)
	}
	for i, tag := range want {
		if tags[i] != tag {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], tag)
		}
	}

	if gotQuery["method"] != "track.gettoptags" {
		t.Errorf("method = %q, want track.gettoptags", gotQuery["method"])
	}
	if gotQuery["api_key"] != "test-key" {
		t.Errorf("api_key = %q, want test-key", gotQuery["api_key"])
	}
	if gotQuery["format"] != "json" {
		t.Errorf("format = %q, want json", gotQuery["format"])
	}
	if gotQuery["artist"] != "Slowdive" || gotQuery["track"] != "Alison" {
		t.Errorf("artist/track = %q/%q", gotQuery["artist"], gotQuery["track"])
	}
}

func TestCatalogSimilarTracks(t *testing.T) {
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		// Match arrives as a string in most deployments.
		w.Write([]byte(`{"similartracks":{"track":[
			{"name":"Vapour Trail","match":"0.85","url":"https://example.com/ride","artist":{"name":"Ride"}},
			{"name":"Sweetness and Light","match":0.7,"artist":{"name":"Lush"}},
			{"name":"","artist":{"name":"Nobody"}}
		]}}`))
	})

	refs, err := c.SimilarTracks(context.Background(), "Slowdive", "Alison", 20)
	if err != nil {
		t.Fatalf("SimilarTracks: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2: %+v", len(refs), refs)
	}
	if refs[0].Artist != "Ride" || refs[0].Name != "Vapour Trail" {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[0].MatchScore != 0.85 {
		t.Errorf("refs[0].MatchScore = %v, want 0.85 (string form)", refs[0].MatchScore)
	}
	if refs[1].MatchScore != 0.7 {
		t.Errorf("refs[1].MatchScore = %v, want 0.7 (number form)", refs[1].MatchScore)
	}
	if refs[0].URL != "https://example.com/ride" {
		t.Errorf("refs[0].URL = %q", refs[0].URL)
	}
}

func TestCatalogTopTracksByTagKeepsBackHalf(t *testing.T) {
	var gotPage, gotLimit string
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("page")
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`{"tracks":{"track":[
			{"name":"T1","artist":{"name":"A1"}},
			{"name":"T2","artist":{"name":"A2"}},
			{"name":"T3","artist":{"name":"A3"}},
			{"name":"T4","artist":{"name":"A4"}},
			{"name":"T5","artist":{"name":"A5"}},
			{"name":"T6","artist":{"name":"A6"}}
		]}}`))
	})

	refs, err := c.TopTracksByTag(context.Background(), "shoegaze", 200, 8)
	if err != nil {
		t.Fatalf("TopTracksByTag: %v", err)
	}
	if gotPage != "8" || gotLimit != "200" {
		t.Errorf("page/limit = %q/%q, want 8/200", gotPage, gotLimit)
	}
	if len(refs) != 3 {
		t.Fatalf("got %d refs, want back half of 6: %+v", len(refs), refs)
	}
	if refs[0].Name != "T4" || refs[2].Name != "T6" {
		t.Errorf("back half = %q..%q, want T4..T6", refs[0].Name, refs[2].Name)
	}
}

func TestCatalogTopTracksByTagFirstPageOmitsParam(t *testing.T) {
	var hasPage bool
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		hasPage = r.URL.Query().Has("page")
		w.Write([]byte(`{"tracks":{"track":[]}}`))
	})

	if _, err := c.TopTracksByTag(context.Background(), "shoegaze", 200, 1); err != nil {
		t.Fatalf("TopTracksByTag: %v", err)
	}
	if hasPage {
		t.Error("page param sent for page 1")
	}
}

func TestCatalogArtistInfo(t *testing.T) {
	c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artist":{"name":"Slowdive",
			"tags":{"tag":[{"name":"shoegaze"},{"name":"dream pop"}]},
			"similar":{"artist":[{"name":"Ride"},{"name":"Lush"}]}}}`))
	})

	info, err := c.ArtistInfo(context.Background(), "slowdive")
	if err != nil {
		t.Fatalf("ArtistInfo: %v", err)
	}
	if info.Name != "Slowdive" {
		t.Errorf("Name = %q, want Slowdive", info.Name)
	}
	if len(info.Tags) != 2 || info.Tags[0] != "shoegaze" {
		t.Errorf("Tags = %v", info.Tags)
	}
	if len(info.Similar) != 2 || info.Similar[0] != "Ride" || info.Similar[1] != "Lush" {
		t.Errorf("Similar = %v", info.Similar)
	}
}

func TestCatalogAPIErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantErr error
	}{
		{
			name:    "unknown artist",
			body:    `{"error":6,"message":"The artist you supplied could not be found"}`,
			status:  http.StatusOK,
			wantErr: ErrNotFound,
		},
		{
			name:    "service offline",
			body:    `{"error":11,"message":"Service Offline"}`,
			status:  http.StatusOK,
			wantErr: ErrUpstream,
		},
		{
			name:    "http 404",
			body:    `not found`,
			status:  http.StatusNotFound,
			wantErr: ErrNotFound,
		},
		{
			name:    "http 500",
			body:    `boom`,
			status:  http.StatusInternalServerError,
			wantErr: ErrUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.TrackTags(context.Background(), "x", "y")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCatalogBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c, err := NewCatalog(CatalogOptions{
		BaseURL:         srv.URL,
		APIKey:          "k",
		BreakerFailures: 2,
	}, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.TrackTags(ctx, "a", "t"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	_, err = c.TrackTags(ctx, "a", "t")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want breaker open", err)
	}
	if calls != 2 {
		t.Errorf("upstream called %d times, want 2", calls)
	}
}

func TestCatalogNotFoundDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":6,"message":"not found"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewCatalog(CatalogOptions{
		BaseURL:         srv.URL,
		APIKey:          "k",
		BreakerFailures: 2,
	}, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := c.TrackTags(ctx, "a", "t"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: err = %v, want %v", i, err, ErrNotFound)
		}
	}
}

func TestNewCatalogValidation(t *testing.T) {
	if _, err := NewCatalog(CatalogOptions{APIKey: "k"}, logging.NewTestLogger(io.Discard)); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := NewCatalog(CatalogOptions{BaseURL: "https://example.com"}, logging.NewTestLogger(io.Discard)); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: `0.85`, want: 0.85},
		{in: `"0.85"`, want: 0.85},
		{in: `""`, want: 0},
		{in: `null`, want: 0},
		{in: `1`, want: 1},
		{in: `"abc"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f flexFloat
			err := f.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalJSON(%s): %v", tt.in, err)
			}
			if float64(f) != tt.want {
				t.Errorf("got %v, want %v", float64(f), tt.want)
			}
		})
	}
}
