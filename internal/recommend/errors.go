// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSeeds means the request named no track IDs at all.
	ErrNoSeeds = errors.New("recommend: no seed tracks in request")

	// ErrNotFound is returned by metadata providers when an ID does not
	// exist in the catalog.
	ErrNotFound = errors.New("recommend: track not found")
)

func errMissingProvider(name string) error {
	return fmt.Errorf("recommend: %s provider is required", name)
}
