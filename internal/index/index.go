// Package index implements in-memory similarity retrieval over one
// embedding variant's chunk vectors. Results must be deterministic across
// runs so that scores are comparable between model variants.
package index

import (
	"fmt"
	"math"
	"sort"
)

// Candidate is one chunk vector eligible for retrieval. Origin tags which
// chunk set the text came from.
type Candidate struct {
	Text   string
	Vector []float32
	Origin string
}

// Match is a retrieval hit with its cosine similarity to the query.
type Match struct {
	Text       string
	Similarity float64
	Origin     string
}

// Cosine returns the cosine similarity of a and b. A zero-norm vector
// (degenerate embedding for empty input) yields 0 rather than an error.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TopK scores every candidate against query, deduplicates by exact text
// keeping the highest-similarity occurrence, and returns the first k in
// strictly descending similarity order. Ties keep original candidate order.
// Fewer than k distinct texts returns all of them.
//
// A dimension mismatch between query and any candidate is a precondition
// violation and aborts the whole call.
func TopK(query []float32, candidates []Candidate, k int) ([]Match, error) {
	matches := make([]Match, 0, len(candidates))
	for i, c := range candidates {
		if len(c.Vector) != len(query) {
			return nil, fmt.Errorf("index: candidate %d dimension %d does not match query dimension %d",
				i, len(c.Vector), len(query))
		}
		matches = append(matches, Match{
			Text:       c.Text,
			Similarity: Cosine(query, c.Vector),
			Origin:     c.Origin,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	seen := make(map[string]struct{}, len(matches))
	unique := matches[:0]
	for _, m := range matches {
		if _, dup := seen[m.Text]; dup {
			continue
		}
		seen[m.Text] = struct{}{}
		unique = append(unique, m)
	}

	if k < 0 {
		k = 0
	}
	if k < len(unique) {
		unique = unique[:k]
	}
	return unique, nil
}
