// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingestion pulls labeled flow records out of the document
// store, materializes the feature-store CSV, and cuts the seeded
// train/test split every downstream stage consumes.
package ingestion

import (
	"context"
	"math/rand"
	"sort"

	"github.com/netsentry/netsentry/pkg/faults"
	"github.com/netsentry/netsentry/pkg/logging"
	"github.com/netsentry/netsentry/pkg/tabular"
	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/config"
)

// DocumentStore abstracts the raw record source. Implementations return
// one flat field-to-string map per stored document.
type DocumentStore interface {
	ReadAll(ctx context.Context) ([]map[string]string, error)
}

// Ingestor runs the data ingestion stage.
type Ingestor struct {
	store DocumentStore
	cfg   config.Ingestion
	log   *logging.Logger
}

// NewIngestor wires the stage. A nil logger falls back to the process
// default.
func NewIngestor(store DocumentStore, cfg config.Ingestion, log *logging.Logger) *Ingestor {
	if log == nil {
		log = logging.Default()
	}
	return &Ingestor{store: store, cfg: cfg, log: log.With("component", "data_ingestion")}
}

// Run exports the collection into the run's feature store and writes the
// deterministic train/test split. The split is seeded: the same data and
// seed always yield the same partition.
func (i *Ingestor) Run(ctx context.Context, run artifacts.Run) (artifacts.Ingestion, error) {
	docs, err := i.store.ReadAll(ctx)
	if err != nil {
		return artifacts.Ingestion{}, faults.Wrap(faults.KindIngestion, err, "reading document store")
	}
	if len(docs) < 2 {
		return artifacts.Ingestion{}, faults.New(faults.KindIngestion,
			"need at least 2 documents to split, got %d", len(docs))
	}

	frame, err := frameFromDocuments(docs)
	if err != nil {
		return artifacts.Ingestion{}, faults.Wrap(faults.KindIngestion, err, "assembling feature store")
	}
	if err := frame.WriteCSV(run.FeatureStorePath()); err != nil {
		return artifacts.Ingestion{}, faults.Wrap(faults.KindIngestion, err, "writing feature store")
	}

	train, test, err := splitFrame(frame, i.cfg.TestRatio, i.cfg.SplitSeed)
	if err != nil {
		return artifacts.Ingestion{}, faults.Wrap(faults.KindIngestion, err, "splitting dataset")
	}
	if err := train.WriteCSV(run.IngestedTrainPath()); err != nil {
		return artifacts.Ingestion{}, faults.Wrap(faults.KindIngestion, err, "writing train split")
	}
	if err := test.WriteCSV(run.IngestedTestPath()); err != nil {
		return artifacts.Ingestion{}, faults.Wrap(faults.KindIngestion, err, "writing test split")
	}

	i.log.Info("ingestion complete",
		"rows", frame.NumRows(),
		"train_rows", train.NumRows(),
		"test_rows", test.NumRows())

	return artifacts.Ingestion{
		FeatureStorePath: run.FeatureStorePath(),
		TrainPath:        run.IngestedTrainPath(),
		TestPath:         run.IngestedTestPath(),
		RowCount:         frame.NumRows(),
	}, nil
}

// frameFromDocuments builds a rectangular table from possibly sparse
// documents. Columns are the sorted union of every document's fields;
// absent fields become empty cells, which downstream stages treat as
// missing values.
func frameFromDocuments(docs []map[string]string) (*tabular.Frame, error) {
	nameSet := map[string]struct{}{}
	for _, doc := range docs {
		for k := range doc {
			nameSet[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(nameSet))
	for k := range nameSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	cells := make([][]string, len(docs))
	for r, doc := range docs {
		row := make([]string, len(cols))
		for c, name := range cols {
			row[c] = doc[name]
		}
		cells[r] = row
	}
	return tabular.New(cols, cells)
}

// splitFrame shuffles row indices with the given seed and cuts the last
// ratio fraction into the test split.
func splitFrame(frame *tabular.Frame, ratio float64, seed int64) (*tabular.Frame, *tabular.Frame, error) {
	n := frame.NumRows()
	testSize := int(float64(n) * ratio)
	if testSize < 1 {
		testSize = 1
	}
	if testSize >= n {
		testSize = n - 1
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rand.New(rand.NewSource(seed)).Shuffle(n, func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

	train, err := frame.Select(idx[:n-testSize])
	if err != nil {
		return nil, nil, err
	}
	test, err := frame.Select(idx[n-testSize:])
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
