// Package memoryindex defines the semantic search interface over
// long-term memory. The trigger evaluator queries it for cross-temporal
// echoes of today's activity; when no backend is wired in it degrades
// to Unavailable and the evaluator simply skips that source.
package memoryindex

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no search backend is configured.
var ErrUnavailable = errors.New("memory index unavailable")

// Result is one similarity hit from the index.
type Result struct {
	// ID identifies the stored chunk.
	ID string

	// Text is the matched passage.
	Text string

	// Date is the local calendar date the passage was recorded.
	Date string

	// Distance is the similarity distance; smaller is closer.
	Distance float64
}

// Index searches long-term memory by semantic similarity.
type Index interface {
	// Search returns up to n results for the query, closest first.
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

// Unavailable is the null backend. Every search fails with
// ErrUnavailable.
type Unavailable struct{}

// Search implements Index.
func (Unavailable) Search(context.Context, string, int) ([]Result, error) {
	return nil, ErrUnavailable
}
