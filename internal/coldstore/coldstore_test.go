package coldstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeCollection is an in-memory stand-in for *mongo.Collection implementing
// just enough upsert-with-$inc and $in-query semantics to exercise Store.
// No in-process MongoDB test double exists in this stack's dependency set,
// so this fake plays that role for unit tests; e2e coverage against a real
// mongod is out of scope here.
type fakeCollection struct {
	docs map[string]bson.M
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: map[string]bson.M{}}
}

func (f *fakeCollection) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	filterM := filter.(bson.M)
	date := filterM["date"].(string)

	doc, ok := f.docs[date]
	if !ok {
		doc = bson.M{
			"date":        date,
			"deposits":    bson.M{},
			"withdrawals": bson.M{},
		}
	}

	updateM := update.(bson.M)
	if inc, ok := updateM["$inc"].(bson.M); ok {
		for field, delta := range inc {
			// field looks like "deposits.card" or "withdrawals.wire".
			section, method := splitField(field)
			m := doc[section].(bson.M)
			cur, _ := m[method].(float64)
			m[method] = cur + delta.(float64)
		}
	}
	if set, ok := updateM["$set"].(bson.M); ok {
		for k, v := range set {
			doc[k] = v
		}
	}

	f.docs[date] = doc
	return &mongo.UpdateResult{UpsertedCount: 1}, nil
}

// Find is not exercised by these unit tests: faking a *mongo.Cursor requires
// a live server-side cursor, so ReadMany's query semantics are left to be
// covered by an integration test against a real mongod.
func (f *fakeCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return nil, errors.New("fakeCollection: Find not supported")
}

func splitField(field string) (section, method string) {
	for i := 0; i < len(field); i++ {
		if field[i] == '.' {
			return field[:i], field[i+1:]
		}
	}
	return field, ""
}

func TestArchiveDaySkipsEmpty(t *testing.T) {
	fc := newFakeCollection()
	store := New(fc)
	err := store.ArchiveDay(context.Background(), "2026-01-01", nil, nil)
	require.NoError(t, err)
	require.Empty(t, fc.docs)
}

func TestArchiveDayUpsertsIncrements(t *testing.T) {
	fc := newFakeCollection()
	store := New(fc)
	ctx := context.Background()

	err := store.ArchiveDay(ctx, "2026-01-01", map[string]float64{"card": 15.55}, nil)
	require.NoError(t, err)

	doc := fc.docs["2026-01-01"]
	deposits := doc["deposits"].(bson.M)
	require.Equal(t, 15.55, deposits["card"])

	// A second archive attempt for the same day is additive ($inc), matching
	// the documented crash-retry semantics.
	err = store.ArchiveDay(ctx, "2026-01-01", map[string]float64{"card": 1.00}, nil)
	require.NoError(t, err)
	doc = fc.docs["2026-01-01"]
	deposits = doc["deposits"].(bson.M)
	require.Equal(t, 16.55, deposits["card"])
}

func TestArchiveDaySeparatesDepositsAndWithdrawals(t *testing.T) {
	fc := newFakeCollection()
	store := New(fc)
	ctx := context.Background()

	err := store.ArchiveDay(ctx, "2026-01-10",
		map[string]float64{"card": 5.00},
		map[string]float64{"wire": 2.00},
	)
	require.NoError(t, err)

	doc := fc.docs["2026-01-10"]
	require.Equal(t, 5.00, doc["deposits"].(bson.M)["card"])
	require.Equal(t, 2.00, doc["withdrawals"].(bson.M)["wire"])
}
