// Package rag orchestrates chunking, embedding, retrieval, and answer synthesis.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newsdesk/kiji/internal/chunker"
	"github.com/newsdesk/kiji/internal/embedding"
	"github.com/newsdesk/kiji/internal/models"
	"github.com/newsdesk/kiji/internal/summary"
	"github.com/newsdesk/kiji/internal/vector"
)

// DefaultContextBudget bounds the combined rune length of retrieved chunks
// passed to an answer provider.
const DefaultContextBudget = 6000

// Pipeline wires Chunker -> Embedder -> Index for ingestion and
// Embedder -> Index -> Router for retrieval and answer synthesis. It owns the
// vector index; everything else is injected.
type Pipeline struct {
	chunker       *chunker.Chunker
	embedder      embedding.Embedder
	index         *vector.Index
	router        *summary.Router // optional; Answer fails without it
	contextBudget int
	logger        *zap.Logger
}

// Config holds pipeline construction parameters.
type Config struct {
	ChunkSize     int
	ChunkOverlap  int
	ContextBudget int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRouter attaches a summarization router, enabling Answer.
func WithRouter(r *summary.Router) PipelineOption {
	return func(p *Pipeline) { p.router = r }
}

// WithLogger sets a logger for ingest and retrieval events.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline. Returns models.ErrInvalidChunkConfig for a bad
// chunk size/overlap combination.
func New(cfg Config, embedder embedding.Embedder, index *vector.Index, opts ...PipelineOption) (*Pipeline, error) {
	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	budget := cfg.ContextBudget
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	p := &Pipeline{
		chunker:       ch,
		embedder:      embedder,
		index:         index,
		contextBudget: budget,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Index exposes the owned vector index for snapshotting and status reporting.
func (p *Pipeline) Index() *vector.Index { return p.index }

// AddArticle chunks, embeds, and indexes an article. All-or-nothing: if
// embedding fails, no chunks from the article are inserted. Within one call,
// insertion order matches chunk order through the source text.
func (p *Pipeline) AddArticle(ctx context.Context, article *models.Article) (int, error) {
	chunks := p.chunker.Chunk(article)
	if len(chunks) == 0 {
		return 0, nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed article %s: %w", article.ID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i, ch := range chunks {
		if err := p.index.Insert(ch, vectors[i]); err != nil {
			return 0, fmt.Errorf("index chunk %s: %w", ch.ID, err)
		}
	}
	if p.logger != nil {
		p.logger.Debug("article indexed",
			zap.String("article_id", article.ID),
			zap.Int("chunks", len(chunks)))
	}
	return len(chunks), nil
}

// RemoveArticle drops every indexed chunk belonging to the article and
// returns how many were removed.
func (p *Pipeline) RemoveArticle(articleID string) int {
	removed := p.index.RemoveArticle(articleID)
	if p.logger != nil && removed > 0 {
		p.logger.Debug("article removed from index",
			zap.String("article_id", articleID),
			zap.Int("chunks", removed))
	}
	return removed
}

// Search embeds the query and returns ranked chunks. filters uses the
// metadata-filter semantics of vector.MatchMetadata; nil means no filtering.
func (p *Pipeline) Search(ctx context.Context, query string, topK int, filters map[string]interface{}) (*models.SearchResponse, error) {
	start := time.Now()
	vecs, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for query", len(vecs))
	}
	results, err := p.index.Search(vecs[0], topK, vector.MatchMetadata(filters))
	if err != nil {
		return nil, err
	}
	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query,
	}, nil
}

// Answer retrieves the topK most similar chunks, assembles a bounded context
// window, and synthesizes an answer through the provider router. Sources
// report the article offsets of the chunk text actually included.
func (p *Pipeline) Answer(ctx context.Context, query string, topK int) (*models.Answer, error) {
	if p.router == nil {
		return nil, fmt.Errorf("%w: no summarization providers configured", models.ErrNoProviderAvailable)
	}
	response, err := p.Search(ctx, query, topK, nil)
	if err != nil {
		return nil, err
	}
	contextText, sources := buildContext(response.Results, p.contextBudget)
	result, err := p.router.Answer(ctx, query, contextText)
	if err != nil {
		return nil, err
	}
	return &models.Answer{
		Text:     result.Text,
		Provider: result.Provider,
		Sources:  sources,
	}, nil
}

// buildContext concatenates chunk texts in rank order until budget runes are
// used. When a chunk would overflow the budget it is truncated, not dropped,
// so the highest-similarity content always makes it in.
func buildContext(results []*models.SearchResult, budget int) (string, []models.SourceRef) {
	var sb strings.Builder
	sources := make([]models.SourceRef, 0, len(results))
	remaining := budget
	for _, r := range results {
		if remaining <= 0 {
			break
		}
		runes := []rune(r.Chunk.Text)
		used := len(runes)
		if used > remaining {
			used = remaining
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(string(runes[:used]))
		sources = append(sources, models.SourceRef{
			ArticleID: r.Chunk.ArticleID,
			Start:     r.Chunk.Start,
			End:       r.Chunk.Start + used,
			Score:     r.Score,
		})
		remaining -= used
	}
	return sb.String(), sources
}
