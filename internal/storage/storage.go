// Package storage defines the persistence interface for articles.
package storage

import (
	"context"

	"github.com/newsdesk/kiji/internal/models"
)

// Storage defines article persistence operations.
type Storage interface {
	CreateArticle(ctx context.Context, article *models.Article) error
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	UpdateArticle(ctx context.Context, article *models.Article) error
	DeleteArticle(ctx context.Context, id string) error
	ListArticles(ctx context.Context, offset, limit int) ([]*models.Article, error)

	CountArticles(ctx context.Context) (int64, error)

	Close() error
}
