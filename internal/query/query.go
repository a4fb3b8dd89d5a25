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

// Package query answers date-range aggregate lookups by merging the hot
// (Redis) and cold (MongoDB) tiers transparently.
package query

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/django-frog/transactions-api/internal/coldstore"
	"github.com/django-frog/transactions-api/internal/hotstore"
	"github.com/django-frog/transactions-api/internal/telemetry"
	"github.com/django-frog/transactions-api/internal/transaction"
	"github.com/django-frog/transactions-api/pkg/keys"
)

// DayTotals is one calendar day's totals, broken out by payment method.
type DayTotals struct {
	Date        string             `json:"date"`
	Deposits    map[string]float64 `json:"deposits"`
	Withdrawals map[string]float64 `json:"withdrawals"`
}

// Service answers GetRange queries against the hot and cold tiers.
type Service struct {
	Hot     *hotstore.Store
	Cold    *coldstore.Store
	HotDays int
	Log     zerolog.Logger
}

// New constructs a query Service. HotDays defaults to 7 when given as zero.
func New(hot *hotstore.Store, cold *coldstore.Store, hotDays int, log zerolog.Logger) *Service {
	if hotDays <= 0 {
		hotDays = 7
	}
	return &Service{Hot: hot, Cold: cold, HotDays: hotDays, Log: log}
}

// GetRange returns one DayTotals per calendar day in [from, to], inclusive,
// that has data in either tier, merging hot and cold data; days with no data
// are omitted. Days still in the hot window are read from Redis; older days
// are read from MongoDB in one batched query.
func (s *Service) GetRange(ctx context.Context, from, to time.Time) (map[string]DayTotals, error) {
	start := time.Now()
	defer func() { telemetry.ObserveQueryDuration(time.Since(start).Seconds()) }()

	if to.Before(from) {
		return nil, fmt.Errorf("query: invalid range: to (%s) is before from (%s)",
			to.Format(keys.DayLayout), from.Format(keys.DayLayout))
	}

	boundary, err := s.hotBoundary(ctx)
	if err != nil {
		return nil, err
	}

	days := enumerateDays(from, to)
	var hotDays, coldDays []string
	for _, d := range days {
		if d >= boundary {
			hotDays = append(hotDays, d)
		} else {
			coldDays = append(coldDays, d)
		}
	}

	result := make(map[string]DayTotals, len(days))

	if len(coldDays) > 0 {
		cold, err := s.Cold.ReadMany(ctx, coldDays)
		if err != nil {
			return nil, err
		}
		for _, d := range coldDays {
			if doc, ok := cold[d]; ok {
				result[d] = DayTotals{Date: d, Deposits: doc.Deposits, Withdrawals: doc.Withdrawals}
			}
		}
	}

	if len(hotDays) > 0 {
		hot, err := s.readHotDays(ctx, hotDays)
		if err != nil {
			return nil, err
		}
		for d, totals := range hot {
			if len(totals.Deposits) == 0 && len(totals.Withdrawals) == 0 {
				continue
			}
			result[d] = totals
		}
	}

	return result, nil
}

// hotBoundary returns the earliest calendar day still considered hot: the
// virtual clock's date minus the hot window. If the virtual clock hasn't
// been set yet (no data ingested), it logs a warning and uses the
// wall-clock date minus the hot window instead.
func (s *Service) hotBoundary(ctx context.Context) (string, error) {
	clockRaw, err := s.Hot.GetVirtualClock(ctx, keys.VirtualClockKey)
	if err != nil {
		return "", err
	}
	if clockRaw == "" {
		s.Log.Warn().Msg("virtual clock unset; falling back to wall-clock time for hot/cold split")
		return time.Now().UTC().AddDate(0, 0, -s.HotDays).Format(keys.DayLayout), nil
	}
	virtualNow, err := time.Parse(transaction.TimestampLayout, clockRaw)
	if err != nil {
		return "", err
	}
	return virtualNow.AddDate(0, 0, -s.HotDays).Format(keys.DayLayout), nil
}

func (s *Service) readHotDays(ctx context.Context, days []string) (map[string]DayTotals, error) {
	pipe := s.Hot.Pipeline()
	type mapCmd interface {
		Result() (map[string]string, error)
	}
	depositCmds := make(map[string]mapCmd, len(days))
	withdrawalCmds := make(map[string]mapCmd, len(days))

	for _, d := range days {
		depositCmds[d] = pipe.HGetAll(ctx, keys.AggKey(d, keys.Deposit))
		withdrawalCmds[d] = pipe.HGetAll(ctx, keys.AggKey(d, keys.Withdrawal))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	result := make(map[string]DayTotals, len(days))
	for _, d := range days {
		deposits, err := depositCmds[d].Result()
		if err != nil {
			return nil, err
		}
		withdrawals, err := withdrawalCmds[d].Result()
		if err != nil {
			return nil, err
		}
		result[d] = DayTotals{
			Date:        d,
			Deposits:    mustParseAmounts(deposits),
			Withdrawals: mustParseAmounts(withdrawals),
		}
	}
	return result, nil
}

func mustParseAmounts(fields map[string]string) map[string]float64 {
	out := make(map[string]float64, len(fields))
	for method, raw := range fields {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		out[method] = v
	}
	return out
}

func enumerateDays(from, to time.Time) []string {
	var days []string
	cur := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		days = append(days, cur.Format(keys.DayLayout))
		cur = cur.AddDate(0, 0, 1)
	}
	return days
}
