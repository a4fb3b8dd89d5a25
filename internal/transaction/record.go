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

// Package transaction defines the wire shape of a single CSV row / stream
// message and the parsing rules shared by the importer and the aggregator.
package transaction

import (
	"fmt"
	"strconv"
	"time"

	"github.com/django-frog/transactions-api/pkg/keys"
)

// TimestampLayout is the Go reference-time layout matching the CSV's
// "%Y-%m-%dT%H:%M:%S" timestamp column.
const TimestampLayout = "2006-01-02T15:04:05"

// RequiredColumns are the CSV columns the importer and aggregator both
// require to be present in a row / stream message.
var RequiredColumns = []string{"timestamp", "type", "payment_method", "amount", "sleep_ms"}

// Row is the raw field map as read from a CSV line or a stream message.
// Field names and values are always strings: this mirrors the CSV row
// verbatim, before any parsing.
type Row map[string]string

// Record is a parsed transaction, ready to be applied to the hot store.
type Record struct {
	Timestamp     time.Time
	Type          keys.Kind
	PaymentMethod string
	Amount        float64
}

// Day returns the YYYY-MM-DD calendar day of the record's timestamp.
func (r Record) Day() string {
	return r.Timestamp.Format(keys.DayLayout)
}

// ParseRow validates and converts a raw Row into a Record. It returns an
// error naming the first problem found; callers (the aggregator) log and
// skip the message on error rather than propagating it.
func ParseRow(row Row) (Record, error) {
	for _, col := range RequiredColumns {
		if _, ok := row[col]; !ok {
			return Record{}, fmt.Errorf("transaction: missing column %q", col)
		}
	}

	ts, err := time.Parse(TimestampLayout, row["timestamp"])
	if err != nil {
		return Record{}, fmt.Errorf("transaction: invalid timestamp %q: %w", row["timestamp"], err)
	}

	kind := keys.Kind(row["type"])
	if kind != keys.Deposit && kind != keys.Withdrawal {
		return Record{}, fmt.Errorf("transaction: invalid type %q", row["type"])
	}

	method := row["payment_method"]
	if method == "" {
		return Record{}, fmt.Errorf("transaction: empty payment_method")
	}

	amount, err := strconv.ParseFloat(row["amount"], 64)
	if err != nil {
		return Record{}, fmt.Errorf("transaction: invalid amount %q: %w", row["amount"], err)
	}

	return Record{
		Timestamp:     ts,
		Type:          kind,
		PaymentMethod: method,
		Amount:        amount,
	}, nil
}

// ParseSleepMS validates the sleep_ms column as a non-negative integer
// number of milliseconds. The importer skips any row that fails this check.
func ParseSleepMS(row Row) (time.Duration, error) {
	raw, ok := row["sleep_ms"]
	if !ok {
		return 0, fmt.Errorf("transaction: missing column %q", "sleep_ms")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("transaction: invalid sleep_ms %q: %w", raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("transaction: negative sleep_ms %d", n)
	}
	return time.Duration(n) * time.Millisecond, nil
}

// RoundAmount rounds an amount to two decimal places, matching the
// two-fractional-digit convention of the hot and cold stores.
func RoundAmount(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
