// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata, so a single instance serves all requests.
var validate = validator.New()

// maxSeedTracks bounds how many seed track IDs one request may carry.
const maxSeedTracks = 3

// RecommendationsRequest is the validated input for the recommendations
// endpoint, whether it arrives as query parameters or a JSON body.
type RecommendationsRequest struct {
	TrackIDs   []int64 `json:"track_ids" validate:"required,min=1,max=3,dive,gt=0"`
	Popularity string  `json:"popularity" validate:"omitempty,oneof=any known deepcuts obscure"`
	Subgenre   string  `json:"subgenre" validate:"omitempty,max=64"`
}

// SearchRequest is the validated input for the track search endpoint.
type SearchRequest struct {
	Query string `validate:"required,min=1,max=200"`
	Limit int    `validate:"min=1,max=25"`
}

// ValidationError is one field-level validation failure, returned in the
// error details array.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validateRequest runs validator tags against req and converts failures
// into client-friendly field errors.
func validateRequest(req interface{}) []ValidationError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Field: "request", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: validationMessage(fe),
		})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// parseTrackIDs parses the comma-separated track_ids query parameter.
func parseTrackIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid track ID %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
