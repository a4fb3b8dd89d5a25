package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/django-frog/transactions-api/internal/coldstore"
	"github.com/django-frog/transactions-api/internal/hotstore"
	"github.com/django-frog/transactions-api/internal/query"
	"github.com/django-frog/transactions-api/pkg/keys"
)

// fakeCollection only backs the hot-path tests in this file; every requested
// range here stays within the hot window, so Find is never actually called.
// It errors rather than returning a nil cursor so a test that accidentally
// takes the cold path fails loudly instead of panicking.
type fakeCollection struct{}

func (f *fakeCollection) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{}, nil
}

func (f *fakeCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return nil, errors.New("fakeCollection: Find not supported")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	hot := hotstore.NewFromClient(client)
	cold := coldstore.New(&fakeCollection{})
	q := query.New(hot, cold, 7, zerolog.Nop())
	return NewServer(q)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleStatsMissingParams(t *testing.T) {
	srv := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatsInvertedRange(t *testing.T) {
	srv := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/stats?from_date=2026-01-05&to_date=2026-01-01", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatsValidRange(t *testing.T) {
	srv := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	// No virtual clock has been set, so the hot boundary falls back to the
	// wall-clock date; today is always hot, keeping this request off the
	// fakeCollection's unsupported Find path.
	today := time.Now().UTC().Format(keys.DayLayout)
	req := httptest.NewRequest(http.MethodGet, "/stats?from_date="+today+"&to_date="+today, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]query.DayTotals `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// No hash was written for today, so the day is omitted, not zero-filled.
	require.Empty(t, body.Data)
}
