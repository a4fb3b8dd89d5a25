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

// Package importer replays a pre-sorted CSV of transactions onto the hot
// store's stream, honoring each row's declared inter-arrival delay. It is
// the entry point of the pipeline: CSV -> stream.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/django-frog/transactions-api/internal/hotstore"
	"github.com/django-frog/transactions-api/internal/telemetry"
	"github.com/django-frog/transactions-api/internal/transaction"
)

// Importer reads filePath and appends one stream message per row, after
// sleeping for the row's sleep_ms. Concurrency is controlled by Workers
// (B in the design doc); the handoff channel between the single producer
// and the B workers has capacity 2*Workers, which is the pipeline's only
// backpressure mechanism.
type Importer struct {
	FilePath string
	Store    *hotstore.Store
	Workers  int
	Log      zerolog.Logger
}

// New constructs an Importer, failing fast if the CSV file is absent.
func New(filePath string, store *hotstore.Store, workers int, log zerolog.Logger) (*Importer, error) {
	if workers < 1 {
		workers = 1
	}
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("importer: CSV file not found: %s: %w", filePath, err)
	}
	return &Importer{FilePath: filePath, Store: store, Workers: workers, Log: log}, nil
}

// Run reads the file, paces and appends every row, then returns once the
// file is fully drained. It returns ctx.Err() if canceled mid-run.
func (imp *Importer) Run(ctx context.Context) error {
	imp.Log.Info().Str("file", imp.FilePath).Int("workers", imp.Workers).Msg("csv importer started")

	rows := make(chan transaction.Row, imp.Workers*2)

	var wg sync.WaitGroup
	wg.Add(imp.Workers)
	for i := 0; i < imp.Workers; i++ {
		go func(id int) {
			defer wg.Done()
			imp.worker(ctx, id, rows)
		}(i)
	}

	produceErr := imp.produce(ctx, rows)
	close(rows)
	wg.Wait()

	if produceErr != nil {
		imp.Log.Error().Err(produceErr).Msg("csv importer crashed")
		return produceErr
	}
	if ctx.Err() != nil {
		imp.Log.Info().Msg("csv importer cancelled")
		return ctx.Err()
	}

	imp.Log.Info().Msg("csv importer finished successfully")
	return nil
}

func (imp *Importer) produce(ctx context.Context, rows chan<- transaction.Row) error {
	f, err := os.Open(imp.FilePath)
	if err != nil {
		return fmt.Errorf("importer: open %s: %w", imp.FilePath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("importer: read header: %w", err)
	}

	produced := 0
	for {
		values, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("importer: read row %d: %w", produced+1, err)
		}

		row := make(transaction.Row, len(header))
		for i, col := range header {
			if i < len(values) {
				row[col] = values[i]
			}
		}

		select {
		case rows <- row:
			produced++
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	imp.Log.Info().Int("rows", produced).Msg("csv producer finished")
	return nil
}

func (imp *Importer) worker(ctx context.Context, id int, rows <-chan transaction.Row) {
	for row := range rows {
		imp.processRow(ctx, id, row)
		if ctx.Err() != nil {
			return
		}
	}
}

func (imp *Importer) processRow(ctx context.Context, workerID int, row transaction.Row) {
	delay, err := transaction.ParseSleepMS(row)
	if err != nil {
		imp.Log.Warn().Err(err).Interface("row", row).Msg("skipping row with invalid sleep_ms")
		telemetry.RecordRowSkipped()
		return
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}

	fields := make(map[string]interface{}, len(row))
	for k, v := range row {
		fields[k] = v
	}

	if _, err := imp.Store.Append(ctx, fields); err != nil {
		imp.Log.Error().Err(err).Int("worker", workerID).Str("timestamp", row["timestamp"]).
			Msg("failed to push transaction to hot store")
		return
	}
	telemetry.RecordRowImported()
	imp.Log.Debug().Int("worker", workerID).Str("timestamp", row["timestamp"]).Msg("transaction pushed")
}
