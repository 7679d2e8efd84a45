package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/newsdesk/kiji/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		title TEXT,
		body TEXT NOT NULL,
		source TEXT,
		published_at TIMESTAMP,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at);
	CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateArticle inserts an article.
func (s *SQLiteStorage) CreateArticle(ctx context.Context, article *models.Article) error {
	metadataJSON, err := json.Marshal(article.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, body, source, published_at, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		article.ID, article.Title, article.Body, article.Source,
		article.PublishedAt, string(metadataJSON), article.CreatedAt,
	)
	return err
}

// GetArticle returns an article by ID.
func (s *SQLiteStorage) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	var article models.Article
	var metadataJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, body, source, published_at, metadata, created_at
		 FROM articles WHERE id = ?`, id,
	).Scan(&article.ID, &article.Title, &article.Body, &article.Source,
		&article.PublishedAt, &metadataJSON, &article.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: article %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &article.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &article, nil
}

// UpdateArticle updates an existing article.
func (s *SQLiteStorage) UpdateArticle(ctx context.Context, article *models.Article) error {
	metadataJSON, err := json.Marshal(article.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE articles SET title = ?, body = ?, source = ?, published_at = ?, metadata = ?
		 WHERE id = ?`,
		article.Title, article.Body, article.Source, article.PublishedAt,
		string(metadataJSON), article.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: article %s", models.ErrNotFound, article.ID)
	}
	return nil
}

// DeleteArticle removes an article by ID.
func (s *SQLiteStorage) DeleteArticle(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: article %s", models.ErrNotFound, id)
	}
	return nil
}

// ListArticles returns articles with offset and limit, newest first.
func (s *SQLiteStorage) ListArticles(ctx context.Context, offset, limit int) ([]*models.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, source, published_at, metadata, created_at
		 FROM articles ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		var article models.Article
		var metadataJSON string
		if err := rows.Scan(&article.ID, &article.Title, &article.Body, &article.Source,
			&article.PublishedAt, &metadataJSON, &article.CreatedAt); err != nil {
			return nil, err
		}
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &article.Metadata)
		}
		articles = append(articles, &article)
	}
	return articles, rows.Err()
}

// CountArticles returns the total number of stored articles.
func (s *SQLiteStorage) CountArticles(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
