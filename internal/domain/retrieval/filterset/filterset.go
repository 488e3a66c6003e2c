// Package filterset defines the metadata pre-filters applied before scoring.
package filterset

import "fmt"

// Caps keep a single request from building unbounded store queries.
const (
	MaxTopics     = 16
	MaxExcludeIDs = 256
)

// Set is the structured pre-filter for a retrieval request. Filters are
// applied at the store before scoring, never after.
type Set struct {
	domain     string
	sourceType string
	topics     []string
	excludeIDs []string
}

// New validates and creates a filter set.
func New(domain, sourceType string, topics, excludeIDs []string) (Set, error) {
	if len(topics) > MaxTopics {
		return Set{}, fmt.Errorf("too many topic filters (max %d)", MaxTopics)
	}
	if len(excludeIDs) > MaxExcludeIDs {
		return Set{}, fmt.Errorf("too many excluded ids (max %d)", MaxExcludeIDs)
	}
	return Set{domain: domain, sourceType: sourceType, topics: topics, excludeIDs: excludeIDs}, nil
}

// Domain returns the domain filter ("" = any).
func (s Set) Domain() string { return s.domain }

// SourceType returns the source-type filter ("" = any).
func (s Set) SourceType() string { return s.sourceType }

// Topics returns the topic filters; a passage must carry at least one.
func (s Set) Topics() []string { return s.topics }

// ExcludeIDs returns passage ids to drop from results.
func (s Set) ExcludeIDs() []string { return s.excludeIDs }

// IsEmpty reports whether no filter is set.
func (s Set) IsEmpty() bool {
	return s.domain == "" && s.sourceType == "" &&
		len(s.topics) == 0 && len(s.excludeIDs) == 0
}

// WithExcludeIDs returns a copy with additional excluded ids appended.
// Used by the orchestrator's top-up pass.
func (s Set) WithExcludeIDs(ids []string) Set {
	merged := make([]string, 0, len(s.excludeIDs)+len(ids))
	merged = append(merged, s.excludeIDs...)
	merged = append(merged, ids...)
	s.excludeIDs = merged
	return s
}
