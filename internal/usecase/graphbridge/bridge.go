// Package graphbridge resolves knowledge-graph episode references back to
// stored passages. Graph relevance is established upstream, so resolved
// passages keep their document order and a fixed high score instead of
// being re-ranked.
package graphbridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/candidate"
	"github.com/seluna-ai/passage/internal/domain/episode"
)

const (
	// DefaultEpisodeLimit caps how many episode references are resolved
	// per request.
	DefaultEpisodeLimit = 5
	// DefaultChunksPerEpisode caps passages taken per resolved episode,
	// ordered by chunk index.
	DefaultChunksPerEpisode = 2

	// graphScore is the fixed score for graph-resolved passages. The graph
	// already vouched for relevance; chunk order carries the rest.
	graphScore = 0.85
)

// graphSearcher is the external graph-search collaborator.
type graphSearcher interface {
	SearchEpisodes(ctx context.Context, query string, limit int) ([]episode.Reference, error)
}

// passageFinder resolves episode references against the passage store.
type passageFinder interface {
	FindByDocumentID(ctx context.Context, documentID string, limit int) ([]candidate.Candidate, error)
	FindByTitle(ctx context.Context, title string, limit int) ([]candidate.Candidate, error)
}

// Bridge maps graph episodes onto stored passages.
type Bridge struct {
	graph            graphSearcher
	passages         passageFinder
	episodeLimit     int
	chunksPerEpisode int
	logger           *zap.Logger
}

// New creates a graph bridge. Non-positive limits fall back to defaults.
func New(graph graphSearcher, passages passageFinder, episodeLimit, chunksPerEpisode int, logger *zap.Logger) *Bridge {
	if episodeLimit <= 0 {
		episodeLimit = DefaultEpisodeLimit
	}
	if chunksPerEpisode <= 0 {
		chunksPerEpisode = DefaultChunksPerEpisode
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		graph:            graph,
		passages:         passages,
		episodeLimit:     episodeLimit,
		chunksPerEpisode: chunksPerEpisode,
		logger:           logger,
	}
}

// Rank queries the graph collaborator and resolves its episode references
// to passages, annotated with the justification facts that made each
// episode relevant. Returns ErrNoGraphResolution when the graph answered
// but nothing mapped to a stored passage; graph transport failures
// propagate as ErrBackendUnavailable for the orchestrator to degrade on.
func (b *Bridge) Rank(ctx context.Context, query string) ([]candidate.Ranked, error) {
	refs, err := b.graph.SearchEpisodes(ctx, query, b.episodeLimit)
	if err != nil {
		return nil, fmt.Errorf("graph search: %w", err)
	}
	if len(refs) == 0 {
		return nil, domain.ErrNoGraphResolution
	}

	if len(refs) > b.episodeLimit {
		refs = refs[:b.episodeLimit]
	}

	var ranked []candidate.Ranked
	for i := range refs {
		ref := &refs[i]

		cands, err := b.resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		if len(cands) == 0 {
			b.logger.Debug("episode resolved to no passages",
				zap.String("episode_id", ref.ID()),
				zap.String("episode_name", ref.Name()))
			continue
		}

		justification := ref.JustificationText()
		for _, c := range cands {
			if justification != "" {
				c = c.WithText("[Related context: " + justification + "]\n\n" + c.Text())
			}
			ranked = append(ranked, candidate.NewRanked(c, graphScore, justification))
		}
	}

	if len(ranked) == 0 {
		b.logger.Info("no episodes resolved to stored passages",
			zap.String("query", query),
			zap.Int("episodes", len(refs)))
		return nil, domain.ErrNoGraphResolution
	}

	return ranked, nil
}

// resolve finds the passages for one episode: exact document-id match
// first, then best-effort title matching. First strategy that returns
// anything wins. Title matching is substring-based and can mismatch on
// short or generic document names; no stronger identifier exists on the
// graph side.
func (b *Bridge) resolve(ctx context.Context, ref *episode.Reference) ([]candidate.Candidate, error) {
	if id := ref.ID(); id != "" {
		cands, err := b.passages.FindByDocumentID(ctx, id, b.chunksPerEpisode)
		if err != nil {
			return nil, fmt.Errorf("resolve episode %q by id: %w", id, err)
		}
		if len(cands) > 0 {
			return cands, nil
		}
	}

	cands, err := b.passages.FindByTitle(ctx, ref.Name(), b.chunksPerEpisode)
	if err != nil {
		return nil, fmt.Errorf("resolve episode %q by title: %w", ref.Name(), err)
	}
	return cands, nil
}
