package models

import "fmt"

// SearchQuery represents a retrieval request with optional metadata filters.
type SearchQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	// Filters restricts results to chunks whose metadata matches every entry.
	// The "categories" key matches when the filter value appears in the chunk's
	// category list; other keys require equality.
	Filters map[string]interface{} `json:"filters,omitempty"`
}

// Validate checks the query and applies defaults for unset fields.
func (q *SearchQuery) Validate(defaultTopK, maxTopK int) error {
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}
