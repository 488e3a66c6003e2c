// Package candidate holds the retrievable-unit value objects shared by the
// ranking, fusion, and orchestration layers.
package candidate

// Source identifies which signal produced a candidate.
type Source string

const (
	// SourceVector marks a candidate from the vector (KNN) index.
	SourceVector Source = "vector"
	// SourceFullText marks a candidate from the full-text index.
	SourceFullText Source = "fulltext"
	// SourceGraph marks a candidate resolved from a graph episode.
	SourceGraph Source = "graph"
)

// Candidate is one retrievable passage with a source-specific base score.
// Base scores are not comparable across sources until fused.
type Candidate struct {
	id            string
	documentID    string
	documentTitle string
	text          string
	meta          Metadata
	baseScore     float64
	source        Source
}

// New creates a candidate.
func New(
	id, documentID, documentTitle, text string,
	meta Metadata, baseScore float64, source Source,
) Candidate {
	return Candidate{
		id:            id,
		documentID:    documentID,
		documentTitle: documentTitle,
		text:          text,
		meta:          meta,
		baseScore:     baseScore,
		source:        source,
	}
}

// ID returns the passage identifier.
func (c *Candidate) ID() string { return c.id }

// DocumentID returns the parent document identifier.
func (c *Candidate) DocumentID() string { return c.documentID }

// DocumentTitle returns the parent document title.
func (c *Candidate) DocumentTitle() string { return c.documentTitle }

// Text returns the passage content.
func (c *Candidate) Text() string { return c.text }

// Meta returns the structured metadata.
func (c *Candidate) Meta() Metadata { return c.meta }

// BaseScore returns the source-specific relevance score.
func (c *Candidate) BaseScore() float64 { return c.baseScore }

// Source returns the producing signal.
func (c *Candidate) Source() Source { return c.source }

// WithText returns a copy with replaced passage text. Used by the graph
// bridge to prepend justification context without mutating the original.
func (c Candidate) WithText(text string) Candidate {
	c.text = text
	return c
}

// Ranked is a candidate with a cross-source comparable final score.
// Created per request, never persisted, immutable once returned.
type Ranked struct {
	cand          Candidate
	finalScore    float64
	justification string
}

// NewRanked creates a ranked result.
func NewRanked(c Candidate, finalScore float64, justification string) Ranked {
	return Ranked{cand: c, finalScore: finalScore, justification: justification}
}

// Candidate returns the underlying candidate.
func (r *Ranked) Candidate() Candidate { return r.cand }

// ID returns the underlying passage identifier.
func (r *Ranked) ID() string { return r.cand.id }

// FinalScore returns the cross-source comparable score.
func (r *Ranked) FinalScore() float64 { return r.finalScore }

// Justification returns the graph fact that justified inclusion, if any.
func (r *Ranked) Justification() string { return r.justification }

// Source returns the producing signal of the underlying candidate.
func (r *Ranked) Source() Source { return r.cand.source }
