// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package jobs provides durable job-state persistence and the
// background pipeline runner.
//
// The store is an embedded BadgerDB keyed by job ID. Records carry a
// storage-level TTL, so an expired job reads as not-found, the same
// outcome as an ID that never existed. Each job ID is written by at
// most one active writer, so plain last-writer-wins semantics are
// sufficient: no transactions beyond Badger's own, no optimistic
// locking.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
)

// ErrNotFound is returned when a job ID is unknown or its record has
// expired. Callers must not confuse this with a storage failure.
var ErrNotFound = errors.New("job not found")

// keyPrefix namespaces job records inside the shared database.
const keyPrefix = "job:"

// Store is the durable key/value persistence for job state.
//
// Implementations must support concurrent reads and writes; the
// resolver runs one writer per job ID but many jobs at once.
type Store interface {
	// Put writes a job record, replacing any previous version.
	Put(ctx context.Context, record *datatypes.JobRecord) error

	// Get reads a job record by ID. Returns ErrNotFound for unknown
	// or expired IDs; any other error is a storage failure.
	Get(ctx context.Context, id string) (*datatypes.JobRecord, error)

	// Close releases the underlying database.
	Close() error
}

// Config holds configuration for the badger-backed store.
type Config struct {
	// Path is the directory for database files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// RecordTTL is how long a job record stays readable.
	// Zero disables expiry.
	RecordTTL time.Duration

	// Logger receives BadgerDB's internal log output. If nil,
	// BadgerDB logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable writes and a
// 24-hour record lifetime.
func DefaultConfig() Config {
	return Config{
		SyncWrites: true,
		RecordTTL:  24 * time.Hour,
	}
}

// InMemoryConfig returns a configuration for tests: in-memory mode,
// async writes, no expiry.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore implements Store on an embedded BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// Open creates and opens a badger-backed job store.
//
// The directory is created if it does not exist. The returned store is
// safe for concurrent use; the caller must Close it when done.
func Open(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent job store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create job store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	return &BadgerStore{db: db, ttl: cfg.RecordTTL}, nil
}

// OpenInMemory is a convenience function for tests.
func OpenInMemory() (*BadgerStore, error) {
	return Open(InMemoryConfig())
}

// Put writes a job record. The record's TTL starts over on every
// write, so a long-running pipeline cannot outlive its own record.
func (s *BadgerStore) Put(ctx context.Context, record *datatypes.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job store put %s: %w", record.ID, err)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode job record %s: %w", record.ID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+record.ID), payload)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("job store put %s: %w", record.ID, err)
	}
	return nil
}

// Get reads a job record by ID.
func (s *BadgerStore) Get(ctx context.Context, id string) (*datatypes.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("job store get %s: %w", id, err)
	}

	var record datatypes.JobRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("job store get %s: %w", id, err)
	}
	return &record, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
