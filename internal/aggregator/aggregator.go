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

// Package aggregator consumes the transactions stream as a consumer-group
// reader and folds each message into the hot store's per-day aggregates. It
// also advances the virtual clock from the timestamps it observes.
package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/django-frog/transactions-api/internal/hotstore"
	"github.com/django-frog/transactions-api/internal/telemetry"
	"github.com/django-frog/transactions-api/internal/transaction"
	"github.com/django-frog/transactions-api/pkg/keys"
)

// Aggregator reads batches of stream messages under a named consumer and
// applies them to the hot aggregates, tracked-days set, and virtual clock in
// one pipelined round trip per batch.
type Aggregator struct {
	Store      *hotstore.Store
	Consumer   string
	BatchSize  int64
	BlockFor   time.Duration
	Log        zerolog.Logger

	clock time.Time
}

// New constructs an Aggregator. BlockFor defaults to 5s and BatchSize to 50
// when given as zero, matching the documented defaults.
func New(store *hotstore.Store, consumer string, batchSize int64, blockFor time.Duration, log zerolog.Logger) *Aggregator {
	if batchSize <= 0 {
		batchSize = 50
	}
	if blockFor <= 0 {
		blockFor = 5 * time.Second
	}
	return &Aggregator{Store: store, Consumer: consumer, BatchSize: batchSize, BlockFor: blockFor, Log: log}
}

// Run loops reading and applying batches until ctx is canceled. On start it
// restores the in-process virtual clock from the hot store. A read timeout
// (no messages within BlockFor) is not an error; it simply loops again. A
// Redis I/O error on the stream read is fatal; a failed pipeline exec for a
// batch is logged, its messages stay un-acked, and the loop goes on.
func (a *Aggregator) Run(ctx context.Context) error {
	if err := a.Store.EnsureGroup(ctx); err != nil {
		return err
	}
	clockRaw, err := a.Store.GetVirtualClock(ctx, keys.VirtualClockKey)
	if err != nil {
		return err
	}
	if clockRaw != "" {
		if ts, err := time.Parse(transaction.TimestampLayout, clockRaw); err == nil {
			a.clock = ts
		}
	}
	a.Log.Info().Str("consumer", a.Consumer).Msg("aggregator started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		streams, err := a.Store.ReadBatch(ctx, a.Consumer, a.BatchSize, a.BlockFor)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			a.Log.Error().Err(err).Msg("aggregator read failed")
			return err
		}
		if len(streams) == 0 {
			continue
		}

		for _, stream := range streams {
			a.applyBatch(ctx, stream.Messages)
		}
	}
}

func (a *Aggregator) applyBatch(ctx context.Context, messages []redis.XMessage) {
	pipe := a.Store.Pipeline()
	applied := 0
	var ackIDs []string
	var maxTS time.Time

	for _, msg := range messages {
		row := make(transaction.Row, len(msg.Values))
		for k, v := range msg.Values {
			row[k] = toString(v)
		}

		rec, err := transaction.ParseRow(row)
		if err != nil {
			a.Log.Warn().Err(err).Str("message_id", msg.ID).Msg("skipping malformed message")
			telemetry.RecordMessageMalformed()
			continue
		}

		day := rec.Day()
		pipe.HIncrByFloat(ctx, keys.AggKey(day, rec.Type), rec.PaymentMethod, transaction.RoundAmount(rec.Amount))
		pipe.SAdd(ctx, keys.TrackedDaysKey, day)

		if rec.Timestamp.After(maxTS) {
			maxTS = rec.Timestamp
		}

		ackIDs = append(ackIDs, msg.ID)
		applied++
	}

	if !maxTS.IsZero() && maxTS.After(a.clock) {
		a.clock = maxTS
		pipe.Set(ctx, keys.VirtualClockKey, maxTS.Format(transaction.TimestampLayout), 0)
		telemetry.SetVirtualClock(maxTS.Unix())
	}

	if len(ackIDs) > 0 {
		pipe.XAck(ctx, hotstore.StreamName, hotstore.GroupName, ackIDs...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		a.Log.Error().Err(err).Msg("aggregator pipeline exec failed")
		return
	}

	telemetry.RecordMessageAggregated(applied)
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
