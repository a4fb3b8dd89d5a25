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

// Package config loads and validates the environment-variable configuration
// for the transactions pipeline. Loading fails fast: a missing required
// variable is a startup error naming the variable, not a silently defaulted
// value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// RedisConfig holds the hot-store connection parameters.
type RedisConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	DecodeResponses bool
}

// Addr returns the host:port form expected by redis.Options.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MongoConfig holds the cold-store connection parameters.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// Config is the fully validated, process-wide configuration.
type Config struct {
	Redis RedisConfig
	Mongo MongoConfig

	CSVPath string

	// BatchSize is the importer's worker concurrency B.
	BatchSize int

	// AggregatorBatchSize is the max number of stream messages read per
	// XReadGroup call.
	AggregatorBatchSize int

	// RetentionDays is the archiver's retention boundary, in days.
	RetentionDays int

	// HotDays is the query service's hot/cold split boundary, in days.
	HotDays int

	// ArchiveInterval is how often the archiver sweeps tracked days.
	ArchiveInterval time.Duration

	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
}

// Load reads configuration from the environment, first attempting to load a
// local .env file for development parity (a missing .env is not an error).
// It returns a descriptive error naming the first missing required variable.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisHost, err := requireEnv("REDIS_HOST")
	if err != nil {
		return nil, err
	}
	mongoURI, err := requireEnv("MONGODB_URI")
	if err != nil {
		return nil, err
	}
	mongoDB, err := requireEnv("MONGODB_DATABASE")
	if err != nil {
		return nil, err
	}
	mongoColl, err := requireEnv("MONGODB_COLLECTION")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Redis: RedisConfig{
			Host:            redisHost,
			Port:            getEnvInt("REDIS_PORT", 6379),
			Username:        os.Getenv("REDIS_USERNAME"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DecodeResponses: getEnvBool("REDIS_DECODE_RESPONSES", true),
		},
		Mongo: MongoConfig{
			URI:        mongoURI,
			Database:   mongoDB,
			Collection: mongoColl,
		},
		CSVPath:              getEnv("CSV_PATH", "sorted_transactions.csv"),
		BatchSize:            getEnvInt("BATCH_SIZE", 10),
		AggregatorBatchSize:  getEnvInt("AGGREGATOR_BATCH_SIZE", 50),
		RetentionDays:        getEnvInt("RETENTION_DAYS", 7),
		HotDays:              getEnvInt("HOT_DAYS", 7),
		ArchiveInterval:      getEnvDuration("ARCHIVE_INTERVAL", 10*time.Second),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:          getEnv("METRICS_ADDR", ""),
	}

	return cfg, nil
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("config: missing required environment variable: %s", name)
	}
	return v, nil
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getEnvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	default:
		return def
	}
}

func getEnvDuration(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
