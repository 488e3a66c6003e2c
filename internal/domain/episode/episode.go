// Package episode holds references produced by the external graph-search
// collaborator. An episode maps one ingested source document in the graph.
package episode

// MaxFactsPerReference caps how many justification facts are carried per
// reference into the generation prompt.
const MaxFactsPerReference = 2

// FactTruncateLen is the per-fact character cap before concatenation.
const FactTruncateLen = 200

// Reference is an opaque pointer from the knowledge graph back to a source
// document, with the short facts that made it relevant.
type Reference struct {
	id    string
	name  string
	facts []string
}

// NewReference creates an episode reference.
func NewReference(id, name string, facts []string) Reference {
	return Reference{id: id, name: name, facts: facts}
}

// ID returns the graph-side episode identifier. May be empty for legacy
// episodes ingested before identifiers were recorded.
func (r *Reference) ID() string { return r.id }

// Name returns the human-readable episode name (usually the source filename
// or document title).
func (r *Reference) Name() string { return r.name }

// Facts returns the justification facts attached to the reference.
func (r *Reference) Facts() []string { return r.facts }

// JustificationText joins up to MaxFactsPerReference facts, each truncated to
// FactTruncateLen characters. Returns "" when the reference carries no facts.
func (r *Reference) JustificationText() string {
	if len(r.facts) == 0 {
		return ""
	}
	out := ""
	for i, f := range r.facts {
		if i >= MaxFactsPerReference {
			break
		}
		if len(f) > FactTruncateLen {
			f = f[:FactTruncateLen]
		}
		if out != "" {
			out += " | "
		}
		out += f
	}
	return out
}
