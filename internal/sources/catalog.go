// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/nexttrack/internal/recommend"
)

// Catalog error codes for "no such artist/track/tag".
const (
	catalogErrInvalidParams = 6
)

// CatalogOptions configures the tag and similarity catalog client.
type CatalogOptions struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RatePerSecond   float64
	RateBurst       int
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Catalog is the client for the audioscrobbler-compatible tag catalog. It
// backs every live provider interface the engine consumes except track
// metadata and artwork.
type Catalog struct {
	baseURL string
	apiKey  string
	doer    *httpDoer
	logger  zerolog.Logger
}

// NewCatalog builds a catalog client. BaseURL and APIKey are required.
func NewCatalog(opts CatalogOptions, logger zerolog.Logger) (*Catalog, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("sources: catalog base URL is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("sources: catalog API key is required")
	}
	return &Catalog{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		doer: newHTTPDoer(doerSettings{
			Name:            "catalog",
			Timeout:         opts.Timeout,
			RatePerSecond:   opts.RatePerSecond,
			RateBurst:       opts.RateBurst,
			BreakerFailures: opts.BreakerFailures,
			BreakerCooldown: opts.BreakerCooldown,
		}),
		logger: logger.With().Str("component", "catalog").Logger(),
	}, nil
}

func (c *Catalog) params(method string) url.Values {
	v := url.Values{}
	v.Set("method", method)
	v.Set("api_key", c.apiKey)
	v.Set("format", "json")
	v.Set("autocorrect", "1")
	return v
}

func (c *Catalog) get(ctx context.Context, operation string, params url.Values, out any) error {
	var envelope catalogEnvelope
	if err := c.doer.getJSON(ctx, operation, buildURL(c.baseURL, params), &envelope); err != nil {
		return err
	}
	// The catalog signals lookup failures inside a 200 body.
	if envelope.Error != 0 {
		if envelope.Error == catalogErrInvalidParams {
			return ErrNotFound
		}
		c.logger.Warn().
			Str("operation", operation).
			Int("code", envelope.Error).
			Str("message", envelope.Message).
			Msg("catalog API error")
		return fmt.Errorf("catalog: error %d: %s: %w", envelope.Error, envelope.Message, ErrUpstream)
	}
	if err := json.Unmarshal(envelope.raw, out); err != nil {
		return fmt.Errorf("catalog: decode %s response: %w", operation, err)
	}
	return nil
}

// TrackTags implements recommend.TagProvider.
func (c *Catalog) TrackTags(ctx context.Context, artist, track string) ([]string, error) {
	p := c.params("track.gettoptags")
	p.Set("artist", artist)
	p.Set("track", track)

	var body struct {
		TopTags struct {
			Tag []struct {
				Name string `json:"name"`
			} `json:"tag"`
		} `json:"toptags"`
	}
	if err := c.get(ctx, "track_tags", p, &body); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(body.TopTags.Tag))
	for _, t := range body.TopTags.Tag {
		if t.Name != "" {
			tags = append(tags, t.Name)
		}
	}
	return tags, nil
}

// SimilarTracks implements recommend.SimilarTracksProvider.
func (c *Catalog) SimilarTracks(ctx context.Context, artist, track string, limit int) ([]recommend.TrackRef, error) {
	p := c.params("track.getsimilar")
	p.Set("artist", artist)
	p.Set("track", track)
	if limit > 0 {
		p.Set("limit", strconv.Itoa(limit))
	}

	var body struct {
		SimilarTracks struct {
			Track []catalogTrack `json:"track"`
		} `json:"similartracks"`
	}
	if err := c.get(ctx, "similar_tracks", p, &body); err != nil {
		return nil, err
	}
	return toTrackRefs(body.SimilarTracks.Track), nil
}

// TopTracksByTag implements recommend.TagPoolProvider. The catalog orders
// tag pages by listener count, so the front of every page is saturated
// with the same handful of mainstream tracks regardless of tag. Keeping
// the back half of the requested window surfaces the longer tail.
func (c *Catalog) TopTracksByTag(ctx context.Context, tag string, limit, page int) ([]recommend.TrackRef, error) {
	p := c.params("tag.gettoptracks")
	p.Set("tag", tag)
	if limit > 0 {
		p.Set("limit", strconv.Itoa(limit))
	}
	if page > 1 {
		p.Set("page", strconv.Itoa(page))
	}

	var body struct {
		Tracks struct {
			Track []catalogTrack `json:"track"`
		} `json:"tracks"`
	}
	if err := c.get(ctx, "tag_top_tracks", p, &body); err != nil {
		return nil, err
	}

	refs := toTrackRefs(body.Tracks.Track)
	if len(refs) > 1 {
		refs = refs[len(refs)/2:]
	}
	return refs, nil
}

// ArtistInfo implements recommend.ArtistProvider.
func (c *Catalog) ArtistInfo(ctx context.Context, name string) (*recommend.ArtistInfo, error) {
	p := c.params("artist.getinfo")
	p.Set("artist", name)

	var body struct {
		Artist struct {
			Name string `json:"name"`
			Tags struct {
				Tag []struct {
					Name string `json:"name"`
				} `json:"tag"`
			} `json:"tags"`
			Similar struct {
				Artist []struct {
					Name string `json:"name"`
				} `json:"artist"`
			} `json:"similar"`
		} `json:"artist"`
	}
	if err := c.get(ctx, "artist_info", p, &body); err != nil {
		return nil, err
	}

	info := &recommend.ArtistInfo{Name: body.Artist.Name}
	if info.Name == "" {
		info.Name = name
	}
	for _, t := range body.Artist.Tags.Tag {
		if t.Name != "" {
			info.Tags = append(info.Tags, t.Name)
		}
	}
	for _, a := range body.Artist.Similar.Artist {
		if a.Name != "" {
			info.Similar = append(info.Similar, a.Name)
		}
	}
	return info, nil
}

// ArtistTopTracks implements recommend.TopTracksProvider.
func (c *Catalog) ArtistTopTracks(ctx context.Context, artist string, limit int) ([]recommend.TrackRef, error) {
	p := c.params("artist.gettoptracks")
	p.Set("artist", artist)
	if limit > 0 {
		p.Set("limit", strconv.Itoa(limit))
	}

	var body struct {
		TopTracks struct {
			Track []catalogTrack `json:"track"`
		} `json:"toptracks"`
	}
	if err := c.get(ctx, "artist_top_tracks", p, &body); err != nil {
		return nil, err
	}
	return toTrackRefs(body.TopTracks.Track), nil
}

// catalogEnvelope defers full decoding so the error fields the catalog
// smuggles into 200 responses can be checked first.
type catalogEnvelope struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	raw     json.RawMessage
}

func (e *catalogEnvelope) UnmarshalJSON(data []byte) error {
	e.raw = append(e.raw[:0], data...)
	type plain struct {
		Error   int    `json:"error"`
		Message string `json:"message"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	e.Error = p.Error
	e.Message = p.Message
	return nil
}

// catalogTrack is the shared shape of track entries across catalog methods.
// Match arrives as a JSON string in most deployments and as a number in
// some, so it needs a tolerant decoder.
type catalogTrack struct {
	Name   string    `json:"name"`
	URL    string    `json:"url"`
	Match  flexFloat `json:"match"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
}

func toTrackRefs(tracks []catalogTrack) []recommend.TrackRef {
	refs := make([]recommend.TrackRef, 0, len(tracks))
	for _, t := range tracks {
		if t.Name == "" || t.Artist.Name == "" {
			continue
		}
		refs = append(refs, recommend.TrackRef{
			Artist:     t.Artist.Name,
			Name:       t.Name,
			URL:        t.URL,
			MatchScore: float64(t.Match),
		})
	}
	return refs
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		var err error
		s, err = strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("catalog: unquote match value %q: %w", string(data), err)
		}
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("catalog: parse match value %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}
