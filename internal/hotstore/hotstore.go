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

// Package hotstore wraps the Redis primitives the pipeline needs: hashes,
// sets, pipelines and a consumer-group stream. It is a thin adapter over
// github.com/redis/go-redis/v9 so the rest of the pipeline depends on a
// small interface instead of the full client surface.
package hotstore

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StreamName = "transactions"
	GroupName  = "aggregators"
)

// Store is the subset of *redis.Client operations the pipeline needs.
// Separate *redis.Client instances should back each role (producer,
// consumer, archiver, query) so a blocking XReadGroup call on one
// connection never head-of-line blocks a short hash read on another.
type Store struct {
	client *redis.Client
}

// New builds a Store from connection options.
func New(opt *redis.Options) *Store {
	return &Store{client: redis.NewClient(opt)}
}

// NewFromClient wraps an already-constructed client, which is how tests
// plug in a miniredis-backed client.
func NewFromClient(c *redis.Client) *Store {
	return &Store{client: c}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.client.Close() }

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// EnsureGroup creates the consumer group if it does not already exist,
// starting from the beginning of the stream. A "BUSYGROUP" error (the
// group already exists) is swallowed; any other error propagates.
func (s *Store) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, StreamName, GroupName, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return err
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Append pushes a row of string fields onto the transactions stream and
// returns the server-assigned message id.
func (s *Store) Append(ctx context.Context, fields map[string]interface{}) (string, error) {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: fields,
	}).Result()
}

// ReadBatch blocks for up to block waiting for at most count new messages
// for the given consumer in the aggregators group.
func (s *Store) ReadBatch(ctx context.Context, consumer string, count int64, block time.Duration) ([]redis.XStream, error) {
	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupName,
		Consumer: consumer,
		Streams:  []string{StreamName, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return res, err
}

// Pipeline exposes a raw pipeline for callers (the aggregator, the
// archiver) that need to batch several commands into one round trip.
func (s *Store) Pipeline() redis.Pipeliner {
	return s.client.Pipeline()
}

// Ack acknowledges a message id in the aggregators group.
func (s *Store) Ack(ctx context.Context, messageID string) error {
	return s.client.XAck(ctx, StreamName, GroupName, messageID).Err()
}

// GetVirtualClock reads the system:virtual_clock key. It returns ("", nil)
// if unset.
func (s *Store) GetVirtualClock(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

// TrackedDays returns the members of the tracked-days set.
func (s *Store) TrackedDays(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

// HGetAll reads a hash in full; used by the archiver and query service.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}
