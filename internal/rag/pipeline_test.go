package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/newsdesk/kiji/internal/embedding"
	"github.com/newsdesk/kiji/internal/models"
	"github.com/newsdesk/kiji/internal/summary"
	"github.com/newsdesk/kiji/internal/vector"
)

// failingEmbedder fails after a configurable number of Embed calls.
type failingEmbedder struct {
	*embedding.MockEmbedder
	failNow bool
}

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.failNow {
		return nil, fmt.Errorf("%w: weights missing", models.ErrModelUnavailable)
	}
	return f.MockEmbedder.Embed(ctx, texts)
}

// silentEmbedder returns no vectors regardless of input.
type silentEmbedder struct {
	*embedding.MockEmbedder
}

func (s *silentEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func newPipeline(t *testing.T, opts ...PipelineOption) *Pipeline {
	t.Helper()
	p, err := New(Config{ChunkSize: 40, ChunkOverlap: 10}, embedding.NewMockEmbedder(16), vector.NewIndex(0), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPipeline_AddAndSearch(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	article := &models.Article{
		ID:     "a1",
		Title:  "Go release",
		Body:   strings.Repeat("go compiler news ", 10),
		Source: "hn",
	}
	n, err := p.AddArticle(ctx, article)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 || p.Index().Size() != n {
		t.Fatalf("indexed %d chunks, index size %d", n, p.Index().Size())
	}
	resp, err := p.Search(ctx, "go compiler news", 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	if resp.Results[0].Chunk.ArticleID != "a1" {
		t.Errorf("top result article %s", resp.Results[0].Chunk.ArticleID)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Score > resp.Results[i-1].Score {
			t.Error("results not sorted by descending score")
		}
	}
}

func TestPipeline_SearchWithFilter(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	_, _ = p.AddArticle(ctx, &models.Article{ID: "hn1", Body: strings.Repeat("kubernetes ", 20), Source: "hn"})
	_, _ = p.AddArticle(ctx, &models.Article{ID: "lb1", Body: strings.Repeat("kubernetes ", 20), Source: "lobsters"})
	resp, err := p.Search(ctx, "kubernetes", 10, map[string]interface{}{"source": "hn"})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.Chunk.ArticleID != "hn1" {
			t.Errorf("filter leaked article %s", r.Chunk.ArticleID)
		}
	}
}

func TestPipeline_EmbedFailureInsertsNothing(t *testing.T) {
	emb := &failingEmbedder{MockEmbedder: embedding.NewMockEmbedder(8), failNow: true}
	ix := vector.NewIndex(0)
	p, err := New(Config{ChunkSize: 20, ChunkOverlap: 5}, emb, ix)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.AddArticle(context.Background(), &models.Article{ID: "a1", Body: strings.Repeat("x", 100)})
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("got %v", err)
	}
	if ix.Size() != 0 {
		t.Errorf("index has %d entries after failed embed, want 0", ix.Size())
	}
}

func TestPipeline_SearchEmbedderVectorCountMismatch(t *testing.T) {
	emb := &silentEmbedder{MockEmbedder: embedding.NewMockEmbedder(8)}
	p, err := New(Config{ChunkSize: 20, ChunkOverlap: 5}, emb, vector.NewIndex(0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Search(context.Background(), "query", 3, nil); err == nil {
		t.Fatal("expected error when the embedder returns no vector for the query")
	}
}

func TestPipeline_EmptyArticle(t *testing.T) {
	p := newPipeline(t)
	n, err := p.AddArticle(context.Background(), &models.Article{ID: "empty", Body: ""})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("empty article produced %d chunks", n)
	}
}

func TestPipeline_InvalidChunkConfig(t *testing.T) {
	_, err := New(Config{ChunkSize: 10, ChunkOverlap: 10}, embedding.NewMockEmbedder(8), vector.NewIndex(0))
	if !errors.Is(err, models.ErrInvalidChunkConfig) {
		t.Errorf("got %v, want ErrInvalidChunkConfig", err)
	}
}

// recordingProvider captures the context text it is asked to answer over.
type recordingProvider struct {
	gotContext string
}

func (r *recordingProvider) Name() string                      { return "recorder" }
func (r *recordingProvider) Available(context.Context) bool    { return true }
func (r *recordingProvider) Summarize(ctx context.Context, text string, maxLen int) (*models.Summary, error) {
	return &models.Summary{Text: "s", Provider: r.Name()}, nil
}
func (r *recordingProvider) Answer(ctx context.Context, question, contextText string) (*models.Summary, error) {
	r.gotContext = contextText
	return &models.Summary{Text: "because of the GC changes", Provider: r.Name()}, nil
}

func TestPipeline_AnswerAttributionAndBudget(t *testing.T) {
	rec := &recordingProvider{}
	router := summary.NewRouter([]summary.Descriptor{{Name: "recorder", Provider: rec}})
	emb := embedding.NewMockEmbedder(16)
	p, err := New(Config{ChunkSize: 50, ChunkOverlap: 10, ContextBudget: 70}, emb, vector.NewIndex(0), WithRouter(router))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_, err = p.AddArticle(ctx, &models.Article{ID: "a1", Body: strings.Repeat("golang runtime news update ", 10)})
	if err != nil {
		t.Fatal(err)
	}
	answer, err := p.Answer(ctx, "what changed in the runtime?", 3)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Provider != "recorder" || answer.Text == "" {
		t.Errorf("unexpected answer %+v", answer)
	}
	if len(answer.Sources) == 0 {
		t.Fatal("answer missing source attribution")
	}
	total := 0
	for _, src := range answer.Sources {
		if src.ArticleID != "a1" {
			t.Errorf("source article %s", src.ArticleID)
		}
		if src.End <= src.Start {
			t.Errorf("bad source range [%d,%d)", src.Start, src.End)
		}
		total += src.End - src.Start
	}
	if total > 70 {
		t.Errorf("context used %d runes, budget 70", total)
	}
	// The highest-ranked chunk must be present (possibly truncated), never dropped.
	if len(rec.gotContext) == 0 {
		t.Error("provider received empty context")
	}
}

func TestPipeline_AnswerWithoutRouter(t *testing.T) {
	p := newPipeline(t)
	_, err := p.Answer(context.Background(), "anything", 3)
	if !errors.Is(err, models.ErrNoProviderAvailable) {
		t.Errorf("got %v, want ErrNoProviderAvailable", err)
	}
}

func TestBuildContext_TruncatesNotDrops(t *testing.T) {
	results := []*models.SearchResult{
		{Chunk: &models.Chunk{ArticleID: "a", Text: strings.Repeat("1", 60), Start: 0, End: 60}, Score: 0.9, Rank: 1},
		{Chunk: &models.Chunk{ArticleID: "b", Text: strings.Repeat("2", 60), Start: 0, End: 60}, Score: 0.8, Rank: 2},
	}
	text, sources := buildContext(results, 80)
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2 (second truncated, not dropped)", len(sources))
	}
	if sources[0].End != 60 {
		t.Errorf("first source end %d, want 60", sources[0].End)
	}
	if sources[1].End != 20 {
		t.Errorf("second source end %d, want 20 (truncated to budget)", sources[1].End)
	}
	if !strings.Contains(text, strings.Repeat("2", 20)) || strings.Contains(text, strings.Repeat("2", 21)) {
		t.Error("second chunk not truncated to exactly the remaining budget")
	}
}
