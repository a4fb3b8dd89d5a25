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

// Package coldstore wraps the MongoDB collection the archiver and query
// service use to read and write archived days. Upserts apply atomic
// field-level increments ($inc) so a re-run of an archive cycle for the
// same day is additive rather than overwriting.
package coldstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Day is the projected shape of one archived document.
type Day struct {
	Date        string             `bson:"date"`
	Deposits    map[string]float64 `bson:"deposits"`
	Withdrawals map[string]float64 `bson:"withdrawals"`
}

// Collection is the subset of *mongo.Collection the pipeline needs.
type Collection interface {
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Store is the cold-store adapter used by the archiver (writer) and the
// query service (reader). The process bootstrap builds one Store over one
// *mongo.Collection handle and shares it between both roles; the writer
// and the reader do not get separate clients or handles.
type Store struct {
	col Collection
}

// New wraps an existing collection handle.
func New(col Collection) *Store {
	return &Store{col: col}
}

// Connect dials MongoDB and returns the configured collection, following
// the driver's documented connection-pooling model: one *mongo.Client is
// safe for concurrent use across goroutines.
func Connect(ctx context.Context, uri, database, collection string) (*mongo.Client, *mongo.Collection, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	col := client.Database(database).Collection(collection)
	return client, col, nil
}

// ArchiveDay upserts the $inc update for a single day's deposits and
// withdrawals, rounded to two decimal places by the caller.
func (s *Store) ArchiveDay(ctx context.Context, day string, deposits, withdrawals map[string]float64) error {
	if len(deposits) == 0 && len(withdrawals) == 0 {
		return nil
	}

	inc := bson.M{}
	for method, amount := range deposits {
		inc["deposits."+method] = amount
	}
	for method, amount := range withdrawals {
		inc["withdrawals."+method] = amount
	}

	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"last_updated": time.Now().UTC()},
	}

	_, err := s.col.UpdateOne(ctx, bson.M{"date": day}, update, options.Update().SetUpsert(true))
	return err
}

// ReadMany fetches the deposits/withdrawals for every day in the given set
// in a single query.
func (s *Store) ReadMany(ctx context.Context, days []string) (map[string]Day, error) {
	if len(days) == 0 {
		return map[string]Day{}, nil
	}

	cur, err := s.col.Find(ctx,
		bson.M{"date": bson.M{"$in": days}},
		options.Find().SetProjection(bson.M{"_id": 0, "date": 1, "deposits": 1, "withdrawals": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	result := make(map[string]Day, len(days))
	for cur.Next(ctx) {
		var d Day
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		result[d.Date] = d
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
