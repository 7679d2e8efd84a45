// Package chunker splits article bodies into overlapping character windows.
package chunker

import (
	"fmt"

	"github.com/newsdesk/kiji/internal/models"
)

// Chunker splits text into overlapping windows of runes. Windows advance by
// size-overlap; the final window is truncated to the remaining text.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. size must be positive, overlap non-negative and
// strictly less than size; otherwise models.ErrInvalidChunkConfig is returned.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidChunkConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", models.ErrInvalidChunkConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be less than chunk size %d", models.ErrInvalidChunkConfig, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits the article body into chunks carrying the article's metadata and
// their own [start, end) rune offsets. An empty body yields no chunks.
// Deterministic: identical inputs always produce identical chunk boundaries and IDs.
func (c *Chunker) Chunk(article *models.Article) []*models.Chunk {
	runes := []rune(article.Body)
	if len(runes) == 0 {
		return nil
	}
	meta := article.ChunkMetadata()
	step := c.size - c.overlap
	chunks := make([]*models.Chunk, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, &models.Chunk{
			ID:        fmt.Sprintf("%s_%d", article.ID, len(chunks)),
			ArticleID: article.ID,
			Text:      string(runes[start:end]),
			Start:     start,
			End:       end,
			Metadata:  meta,
		})
		if end >= len(runes) {
			break
		}
	}
	return chunks
}
