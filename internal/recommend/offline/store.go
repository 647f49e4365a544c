// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package offline

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/tomtom215/nexttrack/internal/recommend/similarity"
	"github.com/tomtom215/nexttrack/internal/tags"
)

// Store reads the offline catalog database. The database is produced by an
// offline pipeline and holds three tables:
//
//	tracks(track_id, name, artist, tags, popularity_tier, embedding)
//	tag_embeddings(tag, vector)
//	tag_frequencies(tag, count)
//
// Embedding columns are little-endian float32 blobs. The store is only
// used at startup to populate in-memory structures; all query paths of the
// running service read those, never the database.
type Store struct {
	db *sql.DB
}

// OpenStore opens the catalog database read-only.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadCatalog reads every track row and its embedding vector.
func (s *Store) LoadCatalog(ctx context.Context) (*Catalog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT track_id, name, artist, tags, popularity_tier, embedding
		 FROM tracks ORDER BY track_id`)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		tracks []Track
		matrix []similarity.Vector
	)
	for rows.Next() {
		var (
			t       Track
			tagList string
			blob    []byte
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Artist, &tagList, &t.Tier, &blob); err != nil {
			return nil, fmt.Errorf("scan track row: %w", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("track %d embedding: %w", t.ID, err)
		}
		t.Tags = tags.SplitList(tagList)
		tracks = append(tracks, t)
		matrix = append(matrix, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}

	return NewCatalog(tracks, matrix)
}

// Vocabulary is the in-memory tag embedding lookup loaded from the catalog
// database. It implements similarity.Embedder.
type Vocabulary struct {
	vectors map[string]similarity.Vector
	dims    int
}

// Lookup implements similarity.Embedder.
func (v *Vocabulary) Lookup(tag string) (similarity.Vector, bool) {
	vec, ok := v.vectors[tag]
	return vec, ok
}

// Dimensions implements similarity.Embedder.
func (v *Vocabulary) Dimensions() int { return v.dims }

// Size returns the number of tags in the vocabulary.
func (v *Vocabulary) Size() int { return len(v.vectors) }

// LoadVocabulary reads the tag embedding table.
func (s *Store) LoadVocabulary(ctx context.Context) (*Vocabulary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag, vector FROM tag_embeddings`)
	if err != nil {
		return nil, fmt.Errorf("query tag embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	vocab := &Vocabulary{vectors: make(map[string]similarity.Vector)}
	for rows.Next() {
		var (
			tag  string
			blob []byte
		)
		if err := rows.Scan(&tag, &blob); err != nil {
			return nil, fmt.Errorf("scan tag embedding: %w", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("tag %q embedding: %w", tag, err)
		}
		if vocab.dims == 0 {
			vocab.dims = len(vec)
		} else if len(vec) != vocab.dims {
			return nil, fmt.Errorf("tag %q has %d dimensions, want %d", tag, len(vec), vocab.dims)
		}
		vocab.vectors[tag] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag embeddings: %w", err)
	}
	return vocab, nil
}

// Frequencies is the corpus-wide tag occurrence table. It implements
// similarity.FrequencyTable; missing tags count 0.
type Frequencies map[string]int

// Count implements similarity.FrequencyTable.
func (f Frequencies) Count(tag string) int { return f[tag] }

// LoadFrequencies reads the tag frequency table.
func (s *Store) LoadFrequencies(ctx context.Context) (Frequencies, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag, count FROM tag_frequencies`)
	if err != nil {
		return nil, fmt.Errorf("query tag frequencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	freq := make(Frequencies)
	for rows.Next() {
		var (
			tag   string
			count int
		)
		if err := rows.Scan(&tag, &count); err != nil {
			return nil, fmt.Errorf("scan tag frequency: %w", err)
		}
		freq[tag] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag frequencies: %w", err)
	}
	return freq, nil
}
