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

// Package main is the entry point for the transactions pipeline: it imports
// a sorted CSV of transactions onto a Redis stream, aggregates the stream
// into per-day hot totals, periodically archives aged-out days to MongoDB,
// and serves date-range queries over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/django-frog/transactions-api/internal/aggregator"
	"github.com/django-frog/transactions-api/internal/api"
	"github.com/django-frog/transactions-api/internal/archiver"
	"github.com/django-frog/transactions-api/internal/coldstore"
	"github.com/django-frog/transactions-api/internal/config"
	"github.com/django-frog/transactions-api/internal/hotstore"
	"github.com/django-frog/transactions-api/internal/importer"
	"github.com/django-frog/transactions-api/internal/logging"
	"github.com/django-frog/transactions-api/internal/query"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.LogLevel)
	log.Info().Str("csv_path", cfg.CSVPath).Int("batch_size", cfg.BatchSize).Msg("starting transactions pipeline")

	// Separate Redis clients per role: a blocking XReadGroup call on the
	// aggregator's connection must never head-of-line block the archiver's
	// or the query service's short hash reads.
	opt := &redis.Options{Addr: cfg.Redis.Addr(), Username: cfg.Redis.Username, Password: cfg.Redis.Password}
	producerHot := hotstore.New(opt)
	consumerHot := hotstore.New(opt)
	archiverHot := hotstore.New(opt)
	queryHot := hotstore.New(opt)
	defer producerHot.Close()
	defer consumerHot.Close()
	defer archiverHot.Close()
	defer queryHot.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, mongoCol, err := coldstore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer mongoClient.Disconnect(context.Background())
	cold := coldstore.New(mongoCol)

	imp, err := importer.New(cfg.CSVPath, producerHot, cfg.BatchSize, logging.Component(log, "importer"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize importer")
	}

	agg := aggregator.New(consumerHot, "aggregator-1", int64(cfg.AggregatorBatchSize), 5*time.Second, logging.Component(log, "aggregator"))
	arch := archiver.New(archiverHot, cold, cfg.ArchiveInterval, cfg.RetentionDays, logging.Component(log, "archiver"))
	querySvc := query.New(queryHot, cold, cfg.HotDays, logging.Component(log, "query"))

	apiServer := api.NewServer(querySvc)
	httpServer, httpErrCh := apiServer.ListenAndServe(cfg.HTTPAddr)
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := agg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := arch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := imp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("importer exited with error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutdown signal received")
	case err := <-httpErrCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server crashed")
		}
	case err := <-errCh:
		log.Error().Err(err).Msg("pipeline component crashed")
	}

	cancel()
	if err := api.Shutdown(httpServer, 5*time.Second); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	wg.Wait()

	log.Info().Msg("transactions pipeline stopped")
}
