// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runstore keeps the local pipeline run history in an embedded
// BadgerDB. The store answers two questions the CLI needs: what
// happened on past runs, and where did the most recent drift report
// land.
//
// Keys are "run:<stamp>"; the stamp's fixed-width layout makes
// lexicographic ordering chronological.
package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Run statuses stored in the history.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when no run matches a lookup.
var ErrNotFound = errors.New("run not found")

const runKeyPrefix = "run:"

// Record is one pipeline run's history entry.
type Record struct {
	ID             string    `json:"id"`
	Stamp          string    `json:"stamp"`
	StartedAt      time.Time `json:"started_at"`
	Status         string    `json:"status"`
	ModelName      string    `json:"model_name,omitempty"`
	TestAccuracy   float64   `json:"test_accuracy,omitempty"`
	DriftDetected  bool      `json:"drift_detected"`
	DriftReportTxt string    `json:"drift_report_txt,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Store is a badger-backed run history.
type Store struct {
	db *badger.DB
}

// Open creates or opens the history database at dir. An empty dir opens
// an in-memory store, which tests use.
func Open(dir string) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	// Badger's own logging is noise next to the pipeline logs.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening run history at %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts or overwrites a run record.
func (s *Store) Put(rec Record) error {
	if rec.Stamp == "" {
		return fmt.Errorf("run record needs a stamp")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(runKeyPrefix+rec.Stamp), data)
	})
}

// Get returns the record for one run stamp.
func (s *Store) Get(stamp string) (Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runKeyPrefix + stamp))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, err
}

// List returns every run record, oldest first.
func (s *Store) List() ([]Record, error) {
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(runKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Latest returns the most recent run record.
func (s *Store) Latest() (Record, error) {
	records, err := s.List()
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, ErrNotFound
	}
	return records[len(records)-1], nil
}

// LatestDriftReport returns the text drift report path of the most
// recent run that produced one.
func (s *Store) LatestDriftReport() (string, error) {
	records, err := s.List()
	if err != nil {
		return "", err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].DriftReportTxt != "" {
			return records[i].DriftReportTxt, nil
		}
	}
	return "", ErrNotFound
}
