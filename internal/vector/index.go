package vector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/newsdesk/kiji/internal/models"
)

// Filter restricts a search to chunks whose metadata satisfies the predicate.
// A nil Filter matches everything.
type Filter func(meta map[string]interface{}) bool

// entry is one (chunk, vector) pair. The index owns the backing storage and is
// the sole mutator; vectors are copied on insert.
type entry struct {
	Chunk  *models.Chunk `json:"chunk"`
	Vector []float32     `json:"vector"`
}

// Index is an append-only in-memory vector index using brute-force cosine
// similarity. Inserts are serialized; searches run concurrently and observe a
// consistent snapshot of the entries present when they acquire the read lock.
type Index struct {
	mu         sync.RWMutex
	dimensions int // fixed by construction, or by the first insert when 0
	entries    []entry
}

// NewIndex creates an index. dimensions may be 0, in which case the first
// inserted vector fixes the dimensionality for the lifetime of the index.
func NewIndex(dimensions int) *Index {
	return &Index{dimensions: dimensions}
}

// Insert appends a (chunk, vector) entry. Returns models.ErrDimensionMismatch
// when the vector's length differs from the index's established dimensionality.
func (ix *Index) Insert(chunk *models.Chunk, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", models.ErrDimensionMismatch)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dimensions == 0 {
		ix.dimensions = len(vec)
	} else if len(vec) != ix.dimensions {
		return fmt.Errorf("%w: got %d, index expects %d", models.ErrDimensionMismatch, len(vec), ix.dimensions)
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	ix.entries = append(ix.entries, entry{Chunk: chunk, Vector: stored})
	return nil
}

// Search returns up to topK results sorted by descending cosine similarity to
// query, ties broken by insertion order. filter may be nil. topK <= 0 returns
// models.ErrInvalidQuery; an empty index returns an empty result list.
func (ix *Index) Search(query []float32, topK int, filter Filter) ([]*models.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidQuery, topK)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.entries) == 0 {
		return []*models.SearchResult{}, nil
	}
	if len(query) != ix.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", models.ErrDimensionMismatch, len(query), ix.dimensions)
	}
	results := make([]*models.SearchResult, 0, len(ix.entries))
	for _, e := range ix.entries {
		if filter != nil && !filter(e.Chunk.Metadata) {
			continue
		}
		results = append(results, &models.SearchResult{
			Chunk: e.Chunk,
			Score: Cosine(query, e.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	for i, r := range results {
		r.Rank = i + 1
	}
	return results, nil
}

// RemoveArticle deletes all entries whose chunk belongs to the given article.
// Returns the number of entries removed. Insertion order of the remaining
// entries is preserved.
func (ix *Index) RemoveArticle(articleID string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	kept := ix.entries[:0]
	removed := 0
	for _, e := range ix.entries {
		if e.Chunk != nil && e.Chunk.ArticleID == articleID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	ix.entries = kept
	return removed
}

// Size returns the number of entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimensions returns the established dimensionality (0 if no vector inserted
// and none was declared at construction).
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimensions
}

type snapshot struct {
	Dimensions int     `json:"dimensions"`
	Entries    []entry `json:"entries"`
}

// Save persists the entry list to path as a JSON snapshot. An empty path is a no-op.
func (ix *Index) Save(path string) error {
	if path == "" {
		return nil
	}
	ix.mu.RLock()
	snap := snapshot{Dimensions: ix.dimensions, Entries: ix.entries}
	data, err := json.Marshal(&snap)
	ix.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal index snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write index snapshot: %w", err)
	}
	return nil
}

// Load replaces the in-memory contents from a snapshot at path. A missing file
// is not an error and leaves the index unchanged. Dimensions must match when
// the index already declared them.
func (ix *Index) Load(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read index snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse index snapshot: %w", err)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dimensions != 0 && snap.Dimensions != 0 && snap.Dimensions != ix.dimensions {
		return fmt.Errorf("%w: snapshot has %d, index expects %d", models.ErrDimensionMismatch, snap.Dimensions, ix.dimensions)
	}
	// A snapshot of an empty index carries no dimensionality and must not
	// clear one declared at construction.
	if snap.Dimensions != 0 {
		ix.dimensions = snap.Dimensions
	}
	ix.entries = snap.Entries
	return nil
}
