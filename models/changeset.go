package models

// A single modified file within a change set.
type FileChange struct {
	// Path relative to the project root.
	Path string
	// Content at the previous observation.
	OldContent string
	// Content at the current observation.
	NewContent string
}

// Result of diffing the current project tree against the last snapshot.
// Immutable once produced; consumed by event dispatch.
type ChangeSet struct {
	// Files present in both observations with differing content.
	Modified []FileChange
	// Paths present now but not in the snapshot.
	Added []string
	// Paths present in the snapshot but missing now.
	Removed []string
}

// Returns true if no changes were detected.
func (cs ChangeSet) Empty() bool {
	return len(cs.Modified) == 0 && len(cs.Added) == 0 && len(cs.Removed) == 0
}

// Total number of changed paths.
func (cs ChangeSet) Count() int {
	return len(cs.Modified) + len(cs.Added) + len(cs.Removed)
}
