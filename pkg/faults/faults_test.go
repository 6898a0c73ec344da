// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew_CapturesCallerLocation(t *testing.T) {
	err := New(KindSchemaViolation, "missing column %q", "Result")

	if err.File != "faults_test.go" {
		t.Errorf("File = %q, want faults_test.go", err.File)
	}
	if err.Line == 0 {
		t.Error("Line = 0, want caller line")
	}
	if !strings.Contains(err.Error(), "[schema_violation]") {
		t.Errorf("Error() = %q, missing kind tag", err.Error())
	}
	if !strings.Contains(err.Error(), `missing column "Result"`) {
		t.Errorf("Error() = %q, missing message", err.Error())
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil cause returns nil", func(t *testing.T) {
		if got := Wrap(KindSync, nil, "sync artifacts"); got != nil {
			t.Errorf("Wrap(nil) = %v, want nil", got)
		}
	})

	t.Run("cause is unwrappable", func(t *testing.T) {
		cause := errors.New("bucket unreachable")
		err := Wrap(KindSync, cause, "sync artifacts")

		if !errors.Is(err, cause) {
			t.Error("errors.Is(err, cause) = false, want true")
		}
		if !strings.Contains(err.Error(), "bucket unreachable") {
			t.Errorf("Error() = %q, missing cause", err.Error())
		}
	})

	t.Run("kind survives further wrapping", func(t *testing.T) {
		inner := New(KindDataType, "column %q is not numeric", "ip_length")
		outer := fmt.Errorf("transformation stage: %w", inner)

		if KindOf(outer) != KindDataType {
			t.Errorf("KindOf = %s, want %s", KindOf(outer), KindDataType)
		}
		if !IsKind(outer, KindDataType) {
			t.Error("IsKind(outer, KindDataType) = false, want true")
		}
		if IsKind(outer, KindTraining) {
			t.Error("IsKind(outer, KindTraining) = true, want false")
		}
	})
}

func TestKindOf_PlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("KindOf(plain) = %s, want %s", got, KindInternal)
	}
}
