// Package graph is a narrow HTTP client for the knowledge-graph search
// collaborator. The engine only consumes episode references with facts; the
// graph service owns everything else.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/episode"
)

// Config holds the graph collaborator settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client calls the graph search endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a graph search client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Results []struct {
		Fact     string `json:"fact"`
		Episodes []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"episodes"`
	} `json:"results"`
}

// SearchEpisodes returns episode references for a query, each carrying the
// graph facts that mentioned it. Facts are indexed per episode; an episode
// referenced by several facts appears once with all of them. Any transport
// or status failure maps to ErrBackendUnavailable so the caller can degrade.
func (c *Client) SearchEpisodes(ctx context.Context, query string, limit int) ([]episode.Reference, error) {
	body, err := json.Marshal(searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal graph request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph search: %v: %w", err, domain.ErrBackendUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		sample, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("graph search status %d: %s: %w",
			resp.StatusCode, string(sample), domain.ErrBackendUnavailable)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode graph response: %v: %w", err, domain.ErrBackendUnavailable)
	}

	return collectReferences(parsed), nil
}

// HealthCheck probes the graph endpoint with an empty query.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.SearchEpisodes(ctx, "ping", 1)
	return err
}

// collectReferences indexes facts by episode, preserving first-seen order.
func collectReferences(parsed searchResponse) []episode.Reference {
	type entry struct {
		id    string
		name  string
		facts []string
	}

	var order []string
	byName := make(map[string]*entry)

	for _, res := range parsed.Results {
		for _, ep := range res.Episodes {
			if ep.Name == "" && ep.ID == "" {
				continue
			}
			key := ep.Name
			if key == "" {
				key = ep.ID
			}
			e, ok := byName[key]
			if !ok {
				e = &entry{id: ep.ID, name: ep.Name}
				byName[key] = e
				order = append(order, key)
			}
			if e.id == "" {
				e.id = ep.ID
			}
			if res.Fact != "" {
				e.facts = append(e.facts, res.Fact)
			}
		}
	}

	refs := make([]episode.Reference, 0, len(order))
	for _, key := range order {
		e := byName[key]
		refs = append(refs, episode.NewReference(e.id, e.name, e.facts))
	}
	return refs
}
