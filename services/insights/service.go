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
	"strings"

	"github.com/netsentry/netsentry/pkg/logging"
	"github.com/netsentry/netsentry/services/pipeline/drift"
)

// Service glues the generator and the knowledge base into the single
// call the orchestrator makes after the drift stage.
type Service struct {
	gen *Generator
	kb  *KnowledgeBase
	log *logging.Logger
}

// NewService wires the insight path. kb may be nil to skip indexing.
func NewService(gen *Generator, kb *KnowledgeBase, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{gen: gen, kb: kb, log: log.With("component", "insights")}
}

// NotifyDrift analyses the report and indexes the result under the run
// stamp. The insight is logged even when indexing is disabled.
func (s *Service) NotifyDrift(ctx context.Context, runStamp string, report *drift.Report) error {
	insight, err := s.gen.Generate(ctx, report)
	if err != nil {
		return fmt.Errorf("generating insight: %w", err)
	}

	s.log.Info("drift insight",
		"run", runStamp,
		"severity", insight.Severity,
		"explanation", insight.Explanation)

	if s.kb == nil {
		return nil
	}
	entry := KnowledgeEntry{
		RunStamp:       runStamp,
		Summary:        insight.Explanation,
		Severity:       insight.Severity,
		DriftDetected:  report.DriftDetected,
		Recommendation: strings.Join(insight.Recommendations, " "),
	}
	if err := s.kb.Store(ctx, entry); err != nil {
		return fmt.Errorf("indexing insight: %w", err)
	}
	return nil
}
