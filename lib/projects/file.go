package projects

import (
	"os"
	"path/filepath"
	"strings"
)

// File is a single file in a project working copy. Content is loaded lazily
// on first access and cached until the next pull.
type File struct {
	// Absolute path on disk.
	Path string
	// Path relative to the project root, slash-separated.
	RelativePath string

	content *string
}

// Name returns the filename without its directory path.
func (f *File) Name() string {
	return filepath.Base(f.Path)
}

// IsTex reports whether the file has a .tex extension.
func (f *File) IsTex() bool {
	return strings.EqualFold(filepath.Ext(f.Path), ".tex")
}

// Content returns the file content, reading it from disk on first access.
// Bytes that are not valid UTF-8 are replaced rather than reported as errors.
func (f *File) Content() (string, error) {
	if f.content != nil {
		return *f.content, nil
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}

	content := strings.ToValidUTF8(string(data), "�")
	f.content = &content
	return content, nil
}

// SetContent writes new content to disk and updates the cache.
func (f *File) SetContent(content string) error {
	if err := os.WriteFile(f.Path, []byte(content), 0644); err != nil {
		return err
	}

	f.content = &content
	return nil
}
