package e2e

import (
	"testing"
)

func TestBuildCorpus_HasArticlesAndQueries(t *testing.T) {
	c := BuildCorpus()
	if c.TotalArticles == 0 {
		t.Fatal("corpus has no articles")
	}
	if c.TotalQueries == 0 {
		t.Fatal("expected at least one query case")
	}
	for i, qc := range c.Cases {
		if qc.Query == "" {
			t.Errorf("case %d: empty query", i)
		}
		if len(qc.ExpectedArticleIDs) == 0 {
			t.Errorf("case %d: no expected article IDs", i)
		}
	}
}

func TestBuildCorpus_ExpectedArticlesContainQueryPhrase(t *testing.T) {
	c := BuildCorpus()
	byID := make(map[string]NewsArticle)
	for _, a := range c.Articles {
		byID[a.ID] = a
	}
	for _, qc := range c.Cases {
		for _, id := range qc.ExpectedArticleIDs {
			a, ok := byID[id]
			if !ok {
				t.Errorf("expected article ID %q not in corpus", id)
				continue
			}
			if !containsPhrase(a, qc.Query) {
				t.Errorf("article %q (title=%q) does not contain query phrase %q", id, a.Title, qc.Query)
			}
		}
	}
}

func TestCorpus_ToArticleInputs(t *testing.T) {
	c := BuildCorpus()
	inputs := c.ToArticleInputs()
	if len(inputs) != len(c.Articles) {
		t.Fatalf("expected %d inputs, got %d", len(c.Articles), len(inputs))
	}
	for i := range inputs {
		if inputs[i].ID != c.Articles[i].ID {
			t.Errorf("input[%d].ID = %q, want %q", i, inputs[i].ID, c.Articles[i].ID)
		}
		if inputs[i].Body != c.Articles[i].Body {
			t.Errorf("input[%d].Body mismatch", i)
		}
	}
}

func TestContainsPhrase(t *testing.T) {
	tests := []struct {
		article NewsArticle
		phrase  string
		contain bool
	}{
		{NewsArticle{Title: "Kernel", Body: "kernel scheduler latency drops"}, "scheduler latency", true},
		{NewsArticle{Title: "Kernel", Body: "kernel scheduler latency drops"}, "garbage collector", false},
		{NewsArticle{Title: "GPU Supply Chain Update", Body: "lead times are down"}, "gpu supply chain", true},
	}
	for i, tt := range tests {
		if got := containsPhrase(tt.article, tt.phrase); got != tt.contain {
			t.Errorf("test %d: containsPhrase(%q) = %v, want %v", i, tt.phrase, got, tt.contain)
		}
	}
}
