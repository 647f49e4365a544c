// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Package middleware provides the HTTP middleware shared across API routes:
// request ID propagation and Prometheus instrumentation. CORS and rate
// limiting come straight from the chi ecosystem and need no wrappers here.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/nexttrack/internal/logging"
)

// RequestID assigns each request a unique ID, honoring one supplied by an
// upstream proxy, and threads it through the response header and the
// logging context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
