// Package fileid provides a deterministic article ID from a file path for imported files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// ArticleID returns a stable article ID for the given absolute path.
// Same path always yields the same ID. Used so re-importing a file updates
// the same article instead of creating a duplicate.
func ArticleID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
