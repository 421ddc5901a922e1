package corefs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/phloem-dev/phloem/constants"
	"github.com/phloem-dev/phloem/lib/console"
)

// Last-observed content of every tracked file, keyed by path relative to the
// project root. Owned by a single poll loop; never shared across goroutines.
type Snapshot map[string]string

// Returns true if the given path (relative, slash-separated) should not be
// tracked. The git directory and the project config file are never part of the
// remote document tree.
func ignored(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if part == ".git" {
			return true
		}
	}
	return filepath.Base(relPath) == constants.ProjectFileName
}

// Load the current file tree under rootPath into a fresh snapshot.
//
// File content is decoded lossily: bytes that are not valid UTF-8 are replaced
// rather than reported as errors. Files that cannot be read at all are skipped
// with a warning and do not abort the load.
func Load(rootPath string) (Snapshot, error) {
	snapshot := make(Snapshot)

	err := filepath.Walk(rootPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if ignored(relPath) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			console.Warning("Could not read file \"%s\": %s", relPath, err)
			return nil
		}

		snapshot[relPath] = strings.ToValidUTF8(string(data), "�")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Paths returns all tracked paths in sorted order.
func (s Snapshot) Paths() []string {
	return sortedKeys(s)
}
