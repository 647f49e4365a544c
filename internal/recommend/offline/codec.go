// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package offline

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tomtom215/nexttrack/internal/recommend/similarity"
)

// DecodeVector decodes a little-endian float32 blob into a Vector.
func DecodeVector(blob []byte) (similarity.Vector, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	vec := make(similarity.Vector, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = float64(math.Float32frombits(bits))
	}
	return vec, nil
}

// EncodeVector encodes a Vector as a little-endian float32 blob. Used by
// catalog build tooling and tests; the service itself only decodes.
func EncodeVector(vec similarity.Vector) []byte {
	blob := make([]byte, len(vec)*4)
	for i, x := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(float32(x)))
	}
	return blob
}
