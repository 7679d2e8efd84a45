package models

// SearchResult is a single retrieval hit: a chunk, its cosine similarity to the
// query in [-1, 1], and its 1-based rank. Produced fresh per query; never persisted.
type SearchResult struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// SearchResponse is the response for a retrieval request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}

// Summary is the output of a summarization provider.
type Summary struct {
	Text       string   `json:"text"`
	Keywords   []string `json:"keywords,omitempty"`
	Provider   string   `json:"provider"`
	Confidence float64  `json:"confidence"`
	// Truncated is set when the input exceeded the provider's maximum supported
	// length and was cut before summarization.
	Truncated bool `json:"truncated,omitempty"`
}

// SourceRef attributes part of a generated answer to a chunk of a stored article.
type SourceRef struct {
	ArticleID string  `json:"article_id"`
	Start     int     `json:"start"`
	End       int     `json:"end"`
	Score     float64 `json:"score"`
}

// Answer is a RAG answer synthesized from retrieved context.
type Answer struct {
	Text     string      `json:"text"`
	Provider string      `json:"provider"`
	Sources  []SourceRef `json:"sources"`
}
