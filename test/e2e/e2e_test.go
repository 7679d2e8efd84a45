package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/newsdesk/kiji/internal/config"
	"github.com/newsdesk/kiji/internal/embedding"
	"github.com/newsdesk/kiji/internal/extract"
	"github.com/newsdesk/kiji/internal/ingest"
	"github.com/newsdesk/kiji/internal/keyword"
	"github.com/newsdesk/kiji/internal/models"
	"github.com/newsdesk/kiji/internal/rag"
	"github.com/newsdesk/kiji/internal/server"
	"github.com/newsdesk/kiji/internal/storage"
	"github.com/newsdesk/kiji/internal/summary"
	"github.com/newsdesk/kiji/internal/vector"
	"go.uber.org/zap"
)

const (
	e2eDimensions  = 8
	e2eSearchLimit = 30
)

// cannedProvider answers deterministically so generation endpoints can be
// exercised without a live model server.
type cannedProvider struct{}

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) Summarize(ctx context.Context, text string, maxLen int) (*models.Summary, error) {
	out := text
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return &models.Summary{Text: out, Provider: p.Name(), Confidence: 0.5}, nil
}

func (p *cannedProvider) Answer(ctx context.Context, question, contextText string) (*models.Summary, error) {
	return &models.Summary{Text: "Based on the articles: " + question, Provider: p.Name(), Confidence: 0.5}, nil
}

func (p *cannedProvider) Available(ctx context.Context) bool { return true }

func newE2EServer(t *testing.T) *httptest.Server {
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

	embedder := embedding.NewMockEmbedder(e2eDimensions)
	t.Cleanup(func() { _ = embedder.Close() })

	router := summary.NewRouter([]summary.Descriptor{
		{Name: "canned", Provider: &cannedProvider{}, Weight: 1},
	})

	pipeline, err := rag.New(
		rag.Config{ChunkSize: 64, ChunkOverlap: 8, ContextBudget: 4000},
		embedder, vector.NewIndex(e2eDimensions),
		rag.WithRouter(router),
	)
	if err != nil {
		t.Fatal(err)
	}

	ing := ingest.NewIngestor(store, kwIndex, pipeline, extract.NewExtractor())

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	srv := server.NewServer(pipeline, ing, store, kwIndex, router, cfg, zap.NewNop())

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func ingestCorpus(t *testing.T, ts *httptest.Server, corpus *Corpus) {
	t.Helper()
	for _, input := range corpus.ToArticleInputs() {
		resp := postJSON(t, ts.URL+"/api/v1/articles", input)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("ingest %q: status %d", input.ID, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestE2E_KeywordSearchFindsExpectedArticles(t *testing.T) {
	ts := newE2EServer(t)
	corpus := BuildCorpus()
	ingestCorpus(t, ts, corpus)

	t.Logf("ingested %d articles; running %d query cases", corpus.TotalArticles, corpus.TotalQueries)

	for _, qc := range corpus.Cases {
		t.Run(qc.Description, func(t *testing.T) {
			u := fmt.Sprintf("%s/api/v1/articles/search?q=%s&limit=%d", ts.URL, url.QueryEscape(qc.Query), e2eSearchLimit)
			resp, err := http.Get(u)
			if err != nil {
				t.Fatal(err)
			}
			var out struct {
				Results []struct {
					ID string `json:"id"`
				} `json:"results"`
			}
			decodeBody(t, resp, &out)
			ids := make([]string, len(out.Results))
			for i, r := range out.Results {
				ids[i] = r.ID
			}
			if !containsAny(ids, qc.ExpectedArticleIDs) {
				t.Errorf("query %q: expected one of %v in results, got %v", qc.Query, qc.ExpectedArticleIDs, ids)
			}
		})
	}
}

func TestE2E_SemanticSearchRanksDescending(t *testing.T) {
	ts := newE2EServer(t)
	corpus := BuildCorpus()
	ingestCorpus(t, ts, corpus)

	resp := postJSON(t, ts.URL+"/api/v1/search", &models.SearchQuery{Query: "kernel scheduler latency", TopK: 10})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: status %d", resp.StatusCode)
	}
	var out models.SearchResponse
	decodeBody(t, resp, &out)
	if out.Total == 0 {
		t.Fatal("expected results")
	}
	for i, r := range out.Results {
		if r.Rank != i+1 {
			t.Errorf("result %d has rank %d", i, r.Rank)
		}
		if i > 0 && r.Score > out.Results[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, r.Score, out.Results[i-1].Score)
		}
	}
}

func TestE2E_AskReturnsAnswerWithSources(t *testing.T) {
	ts := newE2EServer(t)
	corpus := BuildCorpus()
	ingestCorpus(t, ts, corpus)

	resp := postJSON(t, ts.URL+"/api/v1/ask", map[string]interface{}{
		"question": "what changed in the kernel scheduler?",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ask: status %d", resp.StatusCode)
	}
	var answer models.Answer
	decodeBody(t, resp, &answer)
	if answer.Text == "" {
		t.Error("empty answer text")
	}
	if answer.Provider != "canned" {
		t.Errorf("provider = %q", answer.Provider)
	}
	if len(answer.Sources) == 0 {
		t.Error("expected source attributions")
	}
}

func TestE2E_SummarizeStoredArticle(t *testing.T) {
	ts := newE2EServer(t)
	corpus := BuildCorpus()
	ingestCorpus(t, ts, corpus)

	id := corpus.Articles[0].ID
	resp := postJSON(t, ts.URL+"/api/v1/articles/"+id+"/summary", map[string]int{"max_length": 60})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summarize: status %d", resp.StatusCode)
	}
	var summaryResult models.Summary
	decodeBody(t, resp, &summaryResult)
	if summaryResult.Text == "" {
		t.Error("empty summary")
	}
	if len(summaryResult.Text) > 60 {
		t.Errorf("summary length %d exceeds requested max", len(summaryResult.Text))
	}
}

func TestE2E_DeleteRemovesFromSearch(t *testing.T) {
	ts := newE2EServer(t)
	corpus := BuildCorpus()
	ingestCorpus(t, ts, corpus)

	id := corpus.Articles[0].ID
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/articles/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}

	getResp, err := http.Get(ts.URL + "/api/v1/articles/" + id)
	if err != nil {
		t.Fatal(err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status %d, want 404", getResp.StatusCode)
	}
}

func TestE2E_ImportDirectoryOfFiles(t *testing.T) {
	dir := t.TempDir()

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer kwIndex.Close()
	embedder := embedding.NewMockEmbedder(e2eDimensions)
	defer embedder.Close()
	pipeline, err := rag.New(rag.Config{ChunkSize: 64, ChunkOverlap: 8}, embedder, vector.NewIndex(e2eDimensions))
	if err != nil {
		t.Fatal(err)
	}
	ing := ingest.NewIngestor(store, kwIndex, pipeline, extract.NewExtractor())

	spool := t.TempDir()
	for i, ext := range SupportedFileExtensions {
		content, err := WriteMinimalFile(ext, fmt.Sprintf("Imported article body number %d with searchable words.", i))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(spool, fmt.Sprintf("article-%d%s", i, ext)), content, 0600); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	n, err := ing.ImportDirectory(ctx, spool, SupportedFileExtensions)
	if err != nil {
		t.Fatalf("ImportDirectory: %v", err)
	}
	if n != len(SupportedFileExtensions) {
		t.Errorf("imported %d files, want %d", n, len(SupportedFileExtensions))
	}
	count, err := store.CountArticles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != int64(len(SupportedFileExtensions)) {
		t.Errorf("stored %d articles, want %d", count, len(SupportedFileExtensions))
	}
}

func containsAny(got []string, expected []string) bool {
	set := make(map[string]bool, len(got))
	for _, id := range got {
		set[id] = true
	}
	for _, id := range expected {
		if set[id] {
			return true
		}
	}
	return false
}
