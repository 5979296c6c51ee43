// Package fingerprint computes the content hashes used to detect changed
// files and snippets.
package fingerprint

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Bytes returns the 16 character hex xxHash64 digest of b.
func Bytes(b []byte) string {
	return format(xxhash.Sum64(b))
}

// String is Bytes for string input without the copy.
func String(s string) string {
	return format(xxhash.Sum64String(s))
}

func format(h uint64) string {
	s := strconv.FormatUint(h, 16)
	if len(s) < 16 {
		s = "0000000000000000"[:16-len(s)] + s
	}
	return s
}
