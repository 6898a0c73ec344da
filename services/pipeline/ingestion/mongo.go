// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingestion

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore reads flow documents from a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoStore connects and pings the server so a bad URI fails at
// construction, not mid-pipeline.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to document store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging document store: %w", err)
	}
	return &MongoStore{client: client, database: database, collection: collection}, nil
}

// ReadAll fetches every document in the collection as a flat
// field-to-string map. The Mongo object ID never reaches the dataset.
func (s *MongoStore) ReadAll(ctx context.Context) ([]map[string]string, error) {
	coll := s.client.Database(s.database).Collection(s.collection)
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("querying collection %s.%s: %w", s.database, s.collection, err)
	}
	defer cursor.Close(ctx)

	var docs []map[string]string
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		doc := make(map[string]string, len(raw))
		for k, v := range raw {
			if k == "_id" {
				continue
			}
			doc[k] = stringify(v)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating collection %s.%s: %w", s.database, s.collection, err)
	}
	return docs, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int32:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", t)
	}
}
