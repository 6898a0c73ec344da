// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cloudsync mirrors run artifacts and the production model into
// a cloud bucket. Sync is best-effort: the orchestrator logs failures
// and never fails a run over them.
package cloudsync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Syncer mirrors a local directory tree under a remote prefix.
type Syncer interface {
	SyncDir(ctx context.Context, localDir, remotePrefix string) error
}

// GCSSyncer uploads to a Google Cloud Storage bucket.
type GCSSyncer struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSyncer builds a syncer for one bucket. credentialsFile may be
// empty to use ambient application-default credentials.
func NewGCSSyncer(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSSyncer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSSyncer{client: client, bucket: bucket, prefix: prefix}, nil
}

// SyncDir walks localDir and uploads every regular file, preserving the
// directory structure relative to localDir under the remote prefix.
// Uploads are file-level idempotent: rerunning overwrites objects in
// place.
func (s *GCSSyncer) SyncDir(ctx context.Context, localDir, remotePrefix string) error {
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		object := objectName(s.prefix, remotePrefix, rel)
		return s.uploadFile(ctx, path, object)
	})
}

func (s *GCSSyncer) uploadFile(ctx context.Context, localPath, object string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open the local file: %s: %w", localPath, err)
	}
	defer f.Close()

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	w.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to copy local file %s to GCS object %s: %w", localPath, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}
	return nil
}

// Close releases the underlying storage client.
func (s *GCSSyncer) Close() error {
	return s.client.Close()
}

// objectName joins prefix parts with forward slashes regardless of the
// local separator.
func objectName(parts ...string) string {
	var cleaned []string
	for _, p := range parts {
		p = strings.Trim(filepath.ToSlash(p), "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "/")
}
