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

// Package archiver periodically migrates days that have aged out of the hot
// window from Redis hashes into the cold MongoDB store.
package archiver

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/django-frog/transactions-api/internal/coldstore"
	"github.com/django-frog/transactions-api/internal/hotstore"
	"github.com/django-frog/transactions-api/internal/telemetry"
	"github.com/django-frog/transactions-api/internal/transaction"
	"github.com/django-frog/transactions-api/pkg/keys"
)

// Archiver runs on a fixed interval, archiving every tracked day that is
// RetentionDays or more before the virtual clock's current date.
type Archiver struct {
	Hot           *hotstore.Store
	Cold          *coldstore.Store
	Interval      time.Duration
	RetentionDays int
	Log           zerolog.Logger
}

// New constructs an Archiver. Interval defaults to 10s when given as zero.
func New(hot *hotstore.Store, cold *coldstore.Store, interval time.Duration, retentionDays int, log zerolog.Logger) *Archiver {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &Archiver{Hot: hot, Cold: cold, Interval: interval, RetentionDays: retentionDays, Log: log}
}

// Run ticks every Interval and runs one archive cycle per tick, until ctx is
// canceled. A cycle-level error is logged and swallowed: the loop always
// keeps going, retrying on the next tick.
func (ar *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(ar.Interval)
	defer ticker.Stop()

	ar.Log.Info().Dur("interval", ar.Interval).Int("retention_days", ar.RetentionDays).Msg("archiver started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := ar.runCycle(ctx); err != nil {
				ar.Log.Error().Err(err).Msg("archive cycle failed")
				telemetry.RecordArchiveError()
			}
		}
	}
}

// runCycle archives every tracked day on or before the retention boundary
// (virtual clock date minus RetentionDays). It is
// the unit of work invoked once per tick, and is also suitable to call
// directly from tests or an on-demand admin endpoint.
func (ar *Archiver) runCycle(ctx context.Context) error {
	telemetry.RecordArchiveCycle()
	cycleID := uuid.NewString()
	log := ar.Log.With().Str("cycle_id", cycleID).Logger()

	clockRaw, err := ar.Hot.GetVirtualClock(ctx, keys.VirtualClockKey)
	if err != nil {
		return err
	}
	if clockRaw == "" {
		// No data has been aggregated yet; nothing to archive.
		return nil
	}
	virtualNow, err := time.Parse(transaction.TimestampLayout, clockRaw)
	if err != nil {
		return err
	}
	boundary := virtualNow.AddDate(0, 0, -ar.RetentionDays).Format(keys.DayLayout)

	days, err := ar.Hot.TrackedDays(ctx, keys.TrackedDaysKey)
	if err != nil {
		return err
	}

	archived := 0
	for _, day := range days {
		if day > boundary {
			continue
		}
		if err := ar.archiveOneDay(ctx, day); err != nil {
			log.Error().Err(err).Str("day", day).Msg("failed to archive day")
			continue
		}
		archived++
		time.Sleep(10 * time.Millisecond)
	}

	if archived > 0 {
		telemetry.RecordDaysArchived(archived)
		log.Info().Int("days", archived).Msg("archive cycle migrated days to cold store")
	}
	return nil
}

func (ar *Archiver) archiveOneDay(ctx context.Context, day string) error {
	depositsKey := keys.AggKey(day, keys.Deposit)
	withdrawalsKey := keys.AggKey(day, keys.Withdrawal)

	fetch := ar.Hot.Pipeline()
	depositsCmd := fetch.HGetAll(ctx, depositsKey)
	withdrawalsCmd := fetch.HGetAll(ctx, withdrawalsKey)
	if _, err := fetch.Exec(ctx); err != nil {
		return err
	}
	deposits := depositsCmd.Val()
	withdrawals := withdrawalsCmd.Val()

	depositAmounts, err := toAmounts(deposits)
	if err != nil {
		return err
	}
	withdrawalAmounts, err := toAmounts(withdrawals)
	if err != nil {
		return err
	}

	if err := ar.Cold.ArchiveDay(ctx, day, depositAmounts, withdrawalAmounts); err != nil {
		return err
	}

	pipe := ar.Hot.Pipeline()
	pipe.Del(ctx, depositsKey, withdrawalsKey)
	pipe.SRem(ctx, keys.TrackedDaysKey, day)
	_, err = pipe.Exec(ctx)
	return err
}

func toAmounts(fields map[string]string) (map[string]float64, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(fields))
	for method, raw := range fields {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		out[method] = transaction.RoundAmount(v)
	}
	return out, nil
}
