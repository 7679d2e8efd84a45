// Package keyword provides keyword (BM25) indexing and search over articles.
package keyword

import (
	"context"

	"github.com/newsdesk/kiji/internal/models"
)

// KeywordIndex defines keyword search operations over articles.
type KeywordIndex interface {
	Index(ctx context.Context, article *models.Article) error
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of articles in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
