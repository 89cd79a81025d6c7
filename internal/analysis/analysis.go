// Package analysis forwards command code snippets to an external
// chat-completion provider and parses its structured review.
package analysis

import (
	"context"
	"errors"
)

// ErrAnalysisFailed indicates the provider call or response parsing failed.
// The wrapped message carries the underlying cause.
var ErrAnalysisFailed = errors.New("analysis failed")

// Report is the structured result of a code analysis.
type Report struct {
	Suggestions []string `json:"suggestions"`
	Security    []string `json:"security"`
	Performance []string `json:"performance"`
}

// Analyzer reviews a code snippet. Implementations must honor context
// cancellation; no retry is performed at this layer.
type Analyzer interface {
	Analyze(ctx context.Context, code string) (*Report, error)
}
