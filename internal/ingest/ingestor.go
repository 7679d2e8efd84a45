// Package ingest adds articles to storage, the keyword index, and the
// retrieval pipeline, keeping the three in step.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newsdesk/kiji/internal/extract"
	"github.com/newsdesk/kiji/internal/fileid"
	"github.com/newsdesk/kiji/internal/keyword"
	"github.com/newsdesk/kiji/internal/models"
	"github.com/newsdesk/kiji/internal/rag"
	"github.com/newsdesk/kiji/internal/storage"
)

// ErrEmptyBody is returned when an article has no body text after normalization.
var ErrEmptyBody = errors.New("article body is empty")

// Ingestor coordinates article ingestion across storage, keyword index, and
// the retrieval pipeline.
type Ingestor struct {
	storage   storage.Storage
	keywords  keyword.KeywordIndex
	pipeline  *rag.Pipeline
	extractor *extract.Extractor
	logger    *zap.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IngestorOption {
	return func(in *Ingestor) { in.logger = l }
}

// NewIngestor creates an ingestor with the given dependencies.
// extractor may be nil; when nil, ImportFile treats all files as plain text.
func NewIngestor(
	store storage.Storage,
	keywords keyword.KeywordIndex,
	pipeline *rag.Pipeline,
	extractor *extract.Extractor,
	opts ...IngestorOption,
) *Ingestor {
	in := &Ingestor{
		storage:   store,
		keywords:  keywords,
		pipeline:  pipeline,
		extractor: extractor,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest normalizes, stores, and indexes an article. If embedding or keyword
// indexing fails, the stored record is rolled back so the article is either
// fully ingested or absent everywhere.
func (in *Ingestor) Ingest(ctx context.Context, input *models.ArticleInput) (*models.Article, error) {
	body := Preprocess(input.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	article := &models.Article{
		ID:          input.ID,
		Title:       input.Title,
		Body:        body,
		Source:      input.Source,
		PublishedAt: input.PublishedAt,
		Metadata:    input.Metadata,
	}
	if err := in.storage.CreateArticle(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to store article: %w", err)
	}
	if _, err := in.pipeline.AddArticle(ctx, article); err != nil {
		_ = in.storage.DeleteArticle(ctx, article.ID)
		return nil, fmt.Errorf("failed to index article: %w", err)
	}
	if err := in.keywords.Index(ctx, article); err != nil {
		in.pipeline.RemoveArticle(article.ID)
		_ = in.storage.DeleteArticle(ctx, article.ID)
		return nil, fmt.Errorf("failed to index keywords: %w", err)
	}
	if in.logger != nil {
		in.logger.Debug("article ingested",
			zap.String("article_id", article.ID),
			zap.String("source", article.Source))
	}
	return article, nil
}

// Delete removes an article from storage and both indices.
// Returns models.ErrNotFound if the article does not exist.
func (in *Ingestor) Delete(ctx context.Context, id string) error {
	if err := in.storage.DeleteArticle(ctx, id); err != nil {
		return err
	}
	if err := in.keywords.Delete(ctx, id); err != nil && in.logger != nil {
		in.logger.Warn("keyword delete failed", zap.String("article_id", id), zap.Error(err))
	}
	in.pipeline.RemoveArticle(id)
	if in.logger != nil {
		in.logger.Debug("article deleted", zap.String("article_id", id))
	}
	return nil
}

const (
	metaKeySourcePath  = "source_path"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
)

// ImportFile reads an article file from path and ingests it. JSON files are
// parsed as article input; other formats are extracted to plain text with the
// filename as title. The article ID is derived from the absolute path so
// re-importing updates the same article. Unchanged files (same mtime and
// size) are skipped. If allowedExts is non-empty, the file's extension must
// be in the list (case-insensitive).
func (in *Ingestor) ImportFile(ctx context.Context, path string, allowedExts []string) (*models.Article, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	articleID := fileid.ArticleID(absPath)
	if existing, skip := in.shouldSkipFile(ctx, absPath, articleID, info); skip {
		if in.logger != nil {
			in.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		}
		return existing, nil
	}

	input, err := in.readArticleFile(absPath, ext)
	if err != nil {
		return nil, err
	}
	input.ID = articleID
	if input.Metadata == nil {
		input.Metadata = map[string]interface{}{}
	}
	input.Metadata[metaKeySourcePath] = absPath
	// Stored as strings to avoid JSON float64 precision loss (UnixNano exceeds 53 bits).
	input.Metadata[metaKeySourceMtime] = strconv.FormatInt(info.ModTime().UnixNano(), 10)
	input.Metadata[metaKeySourceSize] = strconv.FormatInt(info.Size(), 10)

	if err := in.Delete(ctx, articleID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("replace existing article: %w", err)
	}
	article, err := in.Ingest(ctx, input)
	if err != nil {
		return nil, err
	}
	if in.logger != nil {
		in.logger.Debug("file imported", zap.String("path", absPath), zap.String("article_id", articleID))
	}
	return article, nil
}

// ImportDirectory walks dir recursively and imports each regular file whose
// extension is in allowedExts (all files when the list is empty). Returns the
// number of files imported and the first error encountered, if any.
func (in *Ingestor) ImportDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are imported.
		finfo, statErr := os.Stat(path)
		if statErr != nil {
			return nil
		}
		if !finfo.Mode().IsRegular() {
			return nil
		}
		if _, importErr := in.ImportFile(ctx, path, allowedExts); importErr != nil {
			return importErr
		}
		n++
		return nil
	})
	return n, err
}

// readArticleFile builds article input from a file. JSON carries structured
// article fields; everything else becomes the body with the filename as title.
func (in *Ingestor) readArticleFile(absPath, ext string) (*models.ArticleInput, error) {
	if ext == ".json" {
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		var input models.ArticleInput
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, fmt.Errorf("parse article JSON: %w", err)
		}
		return &input, nil
	}

	var text string
	var err error
	if in.extractor != nil {
		text, err = in.extractor.Extract(absPath)
	} else {
		var data []byte
		data, err = os.ReadFile(absPath)
		text = string(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	return &models.ArticleInput{
		Title: filepath.Base(absPath),
		Body:  text,
	}, nil
}

// shouldSkipFile reports whether the file is already ingested with the same
// mtime and size, returning the stored article when so.
func (in *Ingestor) shouldSkipFile(ctx context.Context, absPath, articleID string, info os.FileInfo) (*models.Article, bool) {
	article, err := in.storage.GetArticle(ctx, articleID)
	if err != nil || article.Metadata == nil {
		return nil, false
	}
	if article.Metadata[metaKeySourcePath] != absPath {
		return nil, false
	}
	if metadataInt64(article.Metadata, metaKeySourceMtime) != info.ModTime().UnixNano() ||
		metadataInt64(article.Metadata, metaKeySourceSize) != info.Size() {
		return nil, false
	}
	return article, true
}

func metadataInt64(meta map[string]interface{}, key string) int64 {
	s, ok := meta[key].(string)
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}
