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
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// EmbedDim is the fixed width of hashed text vectors.
const EmbedDim = 256

// HashEmbedder turns text into a deterministic feature-hashed vector.
// No external embedding service is involved, so the knowledge base
// works offline; similar reports still land near each other because
// they share tokens.
type HashEmbedder struct{}

// Embed tokenizes, hashes each token into one of EmbedDim buckets with
// a signed count, and L2-normalizes.
func (HashEmbedder) Embed(text string) []float32 {
	vec := make([]float32, EmbedDim)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := sum % EmbedDim
		// The top bit decides the sign, which keeps hash collisions from
		// always reinforcing each other.
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
