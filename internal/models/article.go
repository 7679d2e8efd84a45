// Package models defines core data structures for articles, chunks, queries, and results.
package models

import "time"

// Article represents an ingested news article with metadata.
// Articles are immutable once ingested; the RAG core references them by ID only.
type Article struct {
	ID          string                 `json:"id" db:"id"`
	Title       string                 `json:"title" db:"title"`
	Body        string                 `json:"body" db:"body"`
	Source      string                 `json:"source" db:"source"`
	PublishedAt time.Time              `json:"published_at" db:"published_at"`
	Metadata    map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
}

// ArticleInput is the input for ingesting an article.
type ArticleInput struct {
	ID          string                 `json:"id,omitempty"`
	Title       string                 `json:"title,omitempty"`
	Body        string                 `json:"body"`
	Source      string                 `json:"source,omitempty"`
	PublishedAt time.Time              `json:"published_at,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Metadata keys copied onto chunks at chunk-creation time so that search
// filtering does not need to re-fetch the article.
const (
	MetaKeySource     = "source"
	MetaKeyPublished  = "published_at"
	MetaKeyCategories = "categories"
	MetaKeyTitle      = "title"
)

// ChunkMetadata builds the metadata map a chunk inherits from its parent article.
// Free-form article metadata (categories, keywords) is copied verbatim; source,
// title, and published timestamp are added under well-known keys.
func (a *Article) ChunkMetadata() map[string]interface{} {
	meta := make(map[string]interface{}, len(a.Metadata)+3)
	for k, v := range a.Metadata {
		meta[k] = v
	}
	if a.Source != "" {
		meta[MetaKeySource] = a.Source
	}
	if a.Title != "" {
		meta[MetaKeyTitle] = a.Title
	}
	if !a.PublishedAt.IsZero() {
		meta[MetaKeyPublished] = a.PublishedAt.Format(time.RFC3339)
	}
	return meta
}
