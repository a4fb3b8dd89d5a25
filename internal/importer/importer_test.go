package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/django-frog/transactions-api/internal/hotstore"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "transactions.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func newTestStore(t *testing.T) *hotstore.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return hotstore.NewFromClient(client)
}

func TestNewMissingFileFailsFast(t *testing.T) {
	store := newTestStore(t)
	_, err := New("/no/such/file.csv", store, 2, zerolog.Nop())
	require.Error(t, err)
}

func TestRunAppendsAllRows(t *testing.T) {
	csv := "timestamp,type,payment_method,amount,sleep_ms\n" +
		"2026-01-01T00:00:00,deposit,card,10.00,0\n" +
		"2026-01-01T00:00:01,withdrawal,wire,5.00,0\n"
	path := writeCSV(t, csv)
	store := newTestStore(t)

	imp, err := New(path, store, 2, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.EnsureGroup(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, imp.Run(ctx))

	streams, err := store.ReadBatch(ctx, "test-consumer", 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Len(t, streams[0].Messages, 2)
}

func TestRunSkipsInvalidSleepMS(t *testing.T) {
	csv := "timestamp,type,payment_method,amount,sleep_ms\n" +
		"2026-01-01T00:00:00,deposit,card,10.00,notanumber\n" +
		"2026-01-01T00:00:01,withdrawal,wire,5.00,0\n"
	path := writeCSV(t, csv)
	store := newTestStore(t)

	imp, err := New(path, store, 1, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.EnsureGroup(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, imp.Run(ctx))

	streams, err := store.ReadBatch(ctx, "test-consumer", 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Len(t, streams[0].Messages, 1)
	require.Equal(t, "wire", streams[0].Messages[0].Values["payment_method"])
}

func TestRunCancellationStopsEarly(t *testing.T) {
	csv := "timestamp,type,payment_method,amount,sleep_ms\n" +
		"2026-01-01T00:00:00,deposit,card,10.00,60000\n"
	path := writeCSV(t, csv)
	store := newTestStore(t)

	imp, err := New(path, store, 1, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.EnsureGroup(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = imp.Run(ctx)
	require.Error(t, err)
}
