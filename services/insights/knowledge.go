// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package insights

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// DriftInsightClass is the Weaviate class holding past drift incidents.
const DriftInsightClass = "DriftInsight"

// KnowledgeEntry is one stored incident.
type KnowledgeEntry struct {
	RunStamp       string  `json:"runStamp"`
	Summary        string  `json:"summary"`
	Severity       string  `json:"severity"`
	DriftDetected  bool    `json:"driftDetected"`
	Recommendation string  `json:"recommendation"`
	Distance       float64 `json:"-"`
}

// KnowledgeBase stores insights in Weaviate and finds similar past
// incidents by vector proximity. Vectors come from the local hash
// embedder, so no vectorizer module is needed server-side.
type KnowledgeBase struct {
	client   *weaviate.Client
	embedder HashEmbedder
}

// NewKnowledgeBase connects to a Weaviate host, e.g. "localhost:8080".
func NewKnowledgeBase(host string) (*KnowledgeBase, error) {
	client, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: "http"})
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}
	return &KnowledgeBase{client: client}, nil
}

// EnsureSchema creates the DriftInsight class if it does not exist.
// Idempotent.
func (kb *KnowledgeBase) EnsureSchema(ctx context.Context) error {
	_, err := kb.client.Schema().ClassGetter().WithClassName(DriftInsightClass).Do(ctx)
	if err == nil {
		return nil
	}

	class := &models.Class{
		Class:       DriftInsightClass,
		Description: "Model drift incidents and their analysis",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "runStamp", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "summary", DataType: []string{"text"}},
			{Name: "severity", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "driftDetected", DataType: []string{"boolean"}},
			{Name: "recommendation", DataType: []string{"text"}},
		},
	}
	if err := kb.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("creating %s schema: %w", DriftInsightClass, err)
	}
	return nil
}

// Store indexes one insight under its run stamp.
func (kb *KnowledgeBase) Store(ctx context.Context, entry KnowledgeEntry) error {
	if err := kb.EnsureSchema(ctx); err != nil {
		return err
	}

	vector := kb.embedder.Embed(entry.Summary + " " + entry.Recommendation)
	obj := &models.Object{
		Class: DriftInsightClass,
		Properties: map[string]any{
			"runStamp":       entry.RunStamp,
			"summary":        entry.Summary,
			"severity":       entry.Severity,
			"driftDetected":  entry.DriftDetected,
			"recommendation": entry.Recommendation,
		},
		Vector: vector,
	}

	result, err := kb.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx)
	if err != nil {
		return fmt.Errorf("indexing insight for run %s: %w", entry.RunStamp, err)
	}
	for _, r := range result {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("indexing insight for run %s: %s", entry.RunStamp, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// SearchSimilar returns past incidents closest to the query text.
func (kb *KnowledgeBase) SearchSimilar(ctx context.Context, query string, limit int) ([]KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	vector := kb.embedder.Embed(query)

	nearVector := kb.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	fields := []graphql.Field{
		{Name: "runStamp"},
		{Name: "summary"},
		{Name: "severity"},
		{Name: "driftDetected"},
		{Name: "recommendation"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	result, err := kb.client.GraphQL().Get().
		WithClassName(DriftInsightClass).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("similarity search error: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Get"].(map[string]any)
	if !ok {
		return nil, nil
	}
	rows, ok := data[DriftInsightClass].([]any)
	if !ok {
		return nil, nil
	}

	entries := make([]KnowledgeEntry, 0, len(rows))
	for _, raw := range rows {
		props, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		entry := KnowledgeEntry{
			RunStamp:       asString(props["runStamp"]),
			Summary:        asString(props["summary"]),
			Severity:       asString(props["severity"]),
			Recommendation: asString(props["recommendation"]),
		}
		if b, ok := props["driftDetected"].(bool); ok {
			entry.DriftDetected = b
		}
		if add, ok := props["_additional"].(map[string]any); ok {
			if d, ok := add["distance"].(float64); ok {
				entry.Distance = d
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
