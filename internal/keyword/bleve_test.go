package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/newsdesk/kiji/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsBody(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	article := &models.Article{
		ID:    "a1",
		Title: "Weekly infrastructure digest",
		Body:  "Cloudflare published a postmortem on the outage. Kubernetes 1.33 also shipped.",
	}
	if err := idx.Index(ctx, article); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "postmortem", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected a hit for term in article body")
	}
	if results[0].ID != "a1" {
		t.Errorf("first result ID = %q, want %q", results[0].ID, "a1")
	}

	// Standard analyzer lowercases, so case-insensitive match works.
	results2, err := idx.Search(ctx, "kubernetes", 10)
	if err != nil {
		t.Fatalf("Search kubernetes: %v", err)
	}
	if len(results2) == 0 {
		t.Fatal("expected case-insensitive match in body")
	}
}

func TestBleveIndex_SearchFindsTitle(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, &models.Article{
		ID:    "a2",
		Title: "Rust borrow checker explained",
		Body:  "A long walkthrough of ownership semantics.",
	}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "borrow", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "a2" {
		t.Fatalf("expected title match for a2, got %v", results)
	}
}

func TestBleveIndex_DeleteAndCount(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for _, a := range []*models.Article{
		{ID: "x1", Body: "quantum networking trial"},
		{ID: "x2", Body: "quantum computing milestone"},
	} {
		if err := idx.Index(ctx, a); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("DocCount = %d, want 2", count)
	}

	if err := idx.Delete(ctx, "x1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	results, err := idx.Search(ctx, "quantum", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.ID == "x1" {
			t.Error("deleted article still returned")
		}
	}
}

func TestBleveIndex_ReindexReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, &models.Article{ID: "r1", Body: "original wording"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, &models.Article{ID: "r1", Body: "revised wording"}); err != nil {
		t.Fatal(err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("DocCount = %d, want 1 after reindex", count)
	}

	results, err := idx.Search(ctx, "original", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Error("stale content still matches after reindex")
	}
}
