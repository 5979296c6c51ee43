package util

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
)

// ProjectKey names the per-project cache directory: the first 10 hex chars
// of sha1 over the cleaned absolute root.
func ProjectKey(root string) string {
	h := sha1.Sum([]byte(filepath.Clean(root)))
	return hex.EncodeToString(h[:])[:10]
}
