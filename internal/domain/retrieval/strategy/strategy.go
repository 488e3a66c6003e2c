// Package strategy defines the retrieval strategies the orchestrator can run.
package strategy

import "fmt"

// Strategy selects how a retrieval request is executed.
type Strategy string

const (
	// VectorOnly runs the vector ranker alone.
	VectorOnly Strategy = "vector_only"
	// FusedHybrid runs vector and full-text rankers concurrently and fuses
	// them via reciprocal rank fusion.
	FusedHybrid Strategy = "fused_hybrid"
	// GraphBridged consults the knowledge graph first, resolving episodes
	// to stored passages, degrading to FusedHybrid when nothing resolves.
	GraphBridged Strategy = "graph_bridged"
)

// Parse validates a strategy string. Empty input defaults to FusedHybrid.
func Parse(s string) (Strategy, error) {
	switch Strategy(s) {
	case VectorOnly, FusedHybrid, GraphBridged:
		return Strategy(s), nil
	case "":
		return FusedHybrid, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}
