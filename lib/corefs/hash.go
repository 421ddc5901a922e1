package corefs

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Get file hash. Can be used to detect file changes.
// Uses XXH64 algorithm.
func GetFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := xxhash.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// TreeHash returns a single fingerprint over every tracked path and its
// content. Two snapshots have equal tree hashes iff they are identical
// content-for-content.
func (s Snapshot) TreeHash() string {
	hash := xxhash.New()
	for _, path := range sortedKeys(s) {
		// NUL separators keep path/content boundaries unambiguous.
		hash.WriteString(path)
		hash.Write([]byte{0})
		hash.WriteString(s[path])
		hash.Write([]byte{0})
	}
	return hex.EncodeToString(hash.Sum(nil))
}
