// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the public-facing HTTP server for the transaction
// pipeline: a health probe, the range-query endpoint, and the Prometheus
// metrics endpoint.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/django-frog/transactions-api/internal/query"
	"github.com/django-frog/transactions-api/internal/telemetry"
	"github.com/django-frog/transactions-api/pkg/keys"
)

// Server handles the HTTP requests for the query service.
type Server struct {
	query *query.Service
}

// NewServer creates and configures a new API server.
func NewServer(q *query.Service) *Server {
	return &Server{query: q}
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", telemetry.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleStats answers GET /stats?from_date=YYYY-MM-DD&to_date=YYYY-MM-DD
// with the per-day deposit/withdrawal totals across the requested range.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	fromRaw := r.URL.Query().Get("from_date")
	toRaw := r.URL.Query().Get("to_date")
	if fromRaw == "" || toRaw == "" {
		http.Error(w, "from_date and to_date are required", http.StatusBadRequest)
		return
	}

	from, err := time.Parse(keys.DayLayout, fromRaw)
	if err != nil {
		http.Error(w, "invalid from_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(keys.DayLayout, toRaw)
	if err != nil {
		http.Error(w, "invalid to_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if to.Before(from) {
		http.Error(w, "from_date must not be after to_date", http.StatusBadRequest)
		return
	}

	result, err := s.query.GetRange(r.Context(), from, to)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": result})
}

// ListenAndServe starts the HTTP server on the specified address in a
// background goroutine and returns at once. The returned channel receives
// the server's exit error once it fails or is shut down via Shutdown.
func (s *Server) ListenAndServe(addr string) (*http.Server, <-chan error) {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	return httpServer, errCh
}

// Shutdown gracefully stops the server with the given timeout.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
