package projects

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/phloem-dev/phloem/constants"
	"github.com/phloem-dev/phloem/lib/console"
	"github.com/phloem-dev/phloem/lib/system"
	"github.com/phloem-dev/phloem/lib/vcs"
)

// Syncer is the transport a project syncs through. Satisfied by vcs.Git;
// tests substitute fakes.
type Syncer interface {
	CloneIfAbsent(ctx context.Context) error
	Pull(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	RebasePull(ctx context.Context) error
	AbortRebase(ctx context.Context) error
	Push(ctx context.Context) error
	Head() (string, error)
}

// Project is a handle to a remote project mirrored into a local working copy.
type Project struct {
	// Remote project ID.
	ID string
	// Root of the local working copy.
	RootPath string

	syncer Syncer
	files  []*File
}

// New returns a project handle syncing through the configured git server.
// If localPath is empty, a working copy under the phloem temp directory is
// used so callers can watch projects without choosing a checkout location.
func New(projectID string, localPath string) (*Project, error) {
	if localPath == "" {
		localPath = filepath.Join(system.GetTempDir(), projectID)
	}

	if err := os.MkdirAll(localPath, 0755); err != nil {
		return nil, err
	}

	return NewWithSyncer(projectID, localPath, vcs.NewGit(projectID, localPath)), nil
}

// NewWithSyncer returns a project handle over an explicit transport.
func NewWithSyncer(projectID string, localPath string, syncer Syncer) *Project {
	return &Project{
		ID:       projectID,
		RootPath: localPath,
		syncer:   syncer,
	}
}

// MainFile returns the name of the project's main file.
// Hardcoded due to remote platform limitations.
func (p *Project) MainFile() string {
	return "main.tex"
}

// Files returns all files in the working copy, loading the list on first
// access. The list is invalidated by Pull.
func (p *Project) Files() ([]*File, error) {
	if p.files == nil {
		if err := p.loadFiles(); err != nil {
			return nil, err
		}
	}
	return p.files, nil
}

func (p *Project) loadFiles() error {
	files := []*File{}

	err := filepath.Walk(p.RootPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(p.RootPath, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if filepath.Base(relPath) == constants.ProjectFileName {
			return nil
		}

		files = append(files, &File{Path: path, RelativePath: relPath})
		return nil
	})
	if err != nil {
		return err
	}

	p.files = files
	return nil
}

// GetFile returns the file at the given path relative to the project root,
// or nil if it does not exist.
func (p *Project) GetFile(relPath string) (*File, error) {
	files, err := p.Files()
	if err != nil {
		return nil, err
	}

	relPath = filepath.ToSlash(relPath)
	for _, file := range files {
		if file.RelativePath == relPath {
			return file, nil
		}
	}

	return nil, nil
}

// CreateFile creates a new file (and any parent directories) in the working
// copy with the given content.
func (p *Project) CreateFile(relPath string, content string) (*File, error) {
	relPath = filepath.ToSlash(relPath)
	absPath := filepath.Join(p.RootPath, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, err
	}

	file := &File{Path: absPath, RelativePath: relPath}
	if err := file.SetContent(content); err != nil {
		return nil, err
	}

	if p.files != nil {
		p.files = append(p.files, file)
	}

	return file, nil
}

// DeleteFile removes the file at the given path relative to the project root.
// Returns false if the file does not exist.
func (p *Project) DeleteFile(relPath string) (bool, error) {
	file, err := p.GetFile(relPath)
	if err != nil {
		return false, err
	}
	if file == nil {
		return false, nil
	}

	if err := os.Remove(file.Path); err != nil {
		return false, err
	}

	for i, f := range p.files {
		if f == file {
			p.files = append(p.files[:i], p.files[i+1:]...)
			break
		}
	}

	return true, nil
}

// Pull clones the remote if needed and fast-forwards the working copy to the
// remote head. Idempotent; safe to call when nothing changed upstream.
func (p *Project) Pull(ctx context.Context) error {
	if err := p.syncer.CloneIfAbsent(ctx); err != nil {
		return err
	}

	if err := p.syncer.Pull(ctx); err != nil {
		return err
	}

	// File list is stale after a pull.
	p.files = nil
	return nil
}

// Push commits all local modifications, integrates upstream changes
// rebase-style, then transmits. If integration conflicts, the attempt is
// aborted so the working copy is left exactly as it was, and an error is
// returned; nothing is partially applied.
func (p *Project) Push(ctx context.Context) error {
	if err := p.syncer.CloneIfAbsent(ctx); err != nil {
		return err
	}

	if err := p.syncer.Commit(ctx, constants.CommitMessage); err != nil {
		return err
	}

	if err := p.syncer.RebasePull(ctx); err != nil {
		if abortErr := p.syncer.AbortRebase(ctx); abortErr != nil {
			console.Verbose("Rebase abort: %s", abortErr)
		}
		return err
	}

	return p.syncer.Push(ctx)
}

// Revision returns the opaque identifier of the working copy's current state.
func (p *Project) Revision() (string, error) {
	return p.syncer.Head()
}
