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

// Package keys is the single source of truth for the hot-store key schema
// shared by the importer, aggregator, archiver and query service. It is
// part of the wire contract between those components: a change here is a
// change to every component at once, so nothing outside this package should
// construct a hot-store key by hand.
package keys

import "strings"

// Kind is a transaction type. Only the two values below are valid.
type Kind string

const (
	Deposit    Kind = "deposit"
	Withdrawal Kind = "withdrawal"
)

const (
	// aggPrefix namespaces per-day, per-type aggregate hashes.
	aggPrefix = "agg"

	// TrackedDaysKey addresses the set of day strings with at least one
	// live aggregate in the hot store.
	TrackedDaysKey = "system:tracked_days"

	// VirtualClockKey addresses the single ISO-8601 string holding the
	// maximum transaction timestamp ever observed.
	VirtualClockKey = "system:virtual_clock"
)

// DayLayout is the canonical YYYY-MM-DD format used everywhere a day is
// rendered to or parsed from a string key.
const DayLayout = "2006-01-02"

// AggKey returns the hot-store hash key for the given day and transaction
// kind: "agg:{day}:{kind}".
func AggKey(day string, kind Kind) string {
	return aggPrefix + ":" + day + ":" + string(kind)
}

// ParseDay extracts the day component from a key produced by AggKey.
// It panics if key does not have the expected "agg:DAY:KIND" shape, since
// a malformed agg key indicates a programming error in a caller that
// bypassed AggKey.
func ParseDay(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != aggPrefix {
		panic("keys: malformed agg key: " + key)
	}
	return parts[1]
}
