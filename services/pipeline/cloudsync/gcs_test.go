// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cloudsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	assert.Equal(t, "runs/08_31_2026/model.gob", objectName("runs", "08_31_2026", "model.gob"))
	assert.Equal(t, "a/b", objectName("", "a", "", "b"))
	assert.Equal(t, "a/b/c", objectName("/a/", "b/c"))
	assert.Equal(t, "", objectName("", ""))
}
