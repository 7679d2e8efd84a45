// Package integration provides cross-package tests over real storage and indices.
package integration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/newsdesk/kiji/internal/embedding"
	"github.com/newsdesk/kiji/internal/extract"
	"github.com/newsdesk/kiji/internal/ingest"
	"github.com/newsdesk/kiji/internal/keyword"
	"github.com/newsdesk/kiji/internal/models"
	"github.com/newsdesk/kiji/internal/rag"
	"github.com/newsdesk/kiji/internal/storage"
	"github.com/newsdesk/kiji/internal/summary"
	"github.com/newsdesk/kiji/internal/vector"
)

type stubProvider struct{}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Summarize(ctx context.Context, text string, maxLen int) (*models.Summary, error) {
	return &models.Summary{Text: "short version", Provider: p.Name(), Confidence: 0.5}, nil
}

func (p *stubProvider) Answer(ctx context.Context, question, contextText string) (*models.Summary, error) {
	return &models.Summary{Text: "grounded answer", Provider: p.Name(), Confidence: 0.5}, nil
}

func (p *stubProvider) Available(ctx context.Context) bool { return true }

func newStack(t *testing.T) (*ingest.Ingestor, *rag.Pipeline, storage.Storage, keyword.KeywordIndex) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })
	embedder := embedding.NewMockEmbedder(4)
	t.Cleanup(func() { _ = embedder.Close() })

	router := summary.NewRouter([]summary.Descriptor{{Name: "stub", Provider: &stubProvider{}, Weight: 1}})
	pipeline, err := rag.New(
		rag.Config{ChunkSize: 10, ChunkOverlap: 2, ContextBudget: 1000},
		embedder, vector.NewIndex(4),
		rag.WithRouter(router),
	)
	if err != nil {
		t.Fatal(err)
	}
	return ingest.NewIngestor(store, kwIndex, pipeline, extract.NewExtractor()), pipeline, store, kwIndex
}

func TestIntegration_IngestSearchAnswerDelete(t *testing.T) {
	ing, pipeline, store, kwIndex := newStack(t)
	ctx := context.Background()

	articles := []*models.ArticleInput{
		{ID: "a1", Title: "ML", Body: "Machine learning systems learn patterns from labeled data."},
		{ID: "a2", Title: "Search", Body: "Semantic retrieval uses embeddings to find similar passages."},
	}
	for _, input := range articles {
		if _, err := ing.Ingest(ctx, input); err != nil {
			t.Fatalf("ingest %s: %v", input.ID, err)
		}
	}

	resp, err := pipeline.Search(ctx, "machine learning", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total < 1 {
		t.Errorf("expected at least 1 result, got %d", resp.Total)
	}

	kwResults, err := kwIndex.Search(ctx, "embeddings", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(kwResults) == 0 || kwResults[0].ID != "a2" {
		t.Errorf("keyword search: want a2 first, got %+v", kwResults)
	}

	answer, err := pipeline.Answer(ctx, "how do systems learn?", 3)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text == "" || answer.Provider != "stub" {
		t.Errorf("unexpected answer: %+v", answer)
	}
	if len(answer.Sources) == 0 {
		t.Error("expected source attributions")
	}

	if err := ing.Delete(ctx, "a1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetArticle(ctx, "a1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("get after delete: %v, want ErrNotFound", err)
	}
	if pipeline.Index().Size() == 0 {
		t.Error("a2 chunks should remain in the vector index")
	}
}

func TestIntegration_VectorSnapshotRoundTrip(t *testing.T) {
	ing, pipeline, _, _ := newStack(t)
	ctx := context.Background()

	if _, err := ing.Ingest(ctx, &models.ArticleInput{
		ID: "snap", Title: "Snapshot", Body: "Index snapshots survive process restarts and reload cleanly.",
	}); err != nil {
		t.Fatal(err)
	}
	size := pipeline.Index().Size()
	if size == 0 {
		t.Fatal("expected chunks in index")
	}

	path := filepath.Join(t.TempDir(), "vectors.json")
	if err := pipeline.Index().Save(path); err != nil {
		t.Fatal(err)
	}
	restored := vector.NewIndex(4)
	if err := restored.Load(path); err != nil {
		t.Fatal(err)
	}
	if restored.Size() != size {
		t.Errorf("restored size %d, want %d", restored.Size(), size)
	}
}
