package models

// Chunk is a contiguous window of an article body, the unit of embedding and
// retrieval. Offsets are rune positions within the source body, [Start, End).
// Chunks are created during ingestion and never mutated.
type Chunk struct {
	ID        string                 `json:"id"`
	ArticleID string                 `json:"article_id"`
	Text      string                 `json:"text"`
	Start     int                    `json:"start"`
	End       int                    `json:"end"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
