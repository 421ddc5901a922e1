package corefs

import (
	"sort"

	"github.com/phloem-dev/phloem/models"
	"github.com/samber/lo"
	"golang.org/x/exp/maps"
)

func sortedKeys(s Snapshot) []string {
	keys := maps.Keys(s)
	sort.Strings(keys)
	return keys
}

// Classify compares the current file tree against the snapshot and produces
// the set of modified, added and removed paths. The snapshot is updated in
// place so that after the call it equals `current` content-for-content.
//
// Comparison is full-content equality rather than hash-based, so any content
// change is reported and identical content under different paths never
// cross-matches. Paths within each category come out in sorted order.
func Classify(snapshot Snapshot, current Snapshot) models.ChangeSet {
	var cs models.ChangeSet

	for _, path := range sortedKeys(current) {
		newContent := current[path]
		oldContent, tracked := snapshot[path]

		if !tracked {
			cs.Added = append(cs.Added, path)
			snapshot[path] = newContent
			continue
		}

		if oldContent != newContent {
			cs.Modified = append(cs.Modified, models.FileChange{
				Path:       path,
				OldContent: oldContent,
				NewContent: newContent,
			})
			snapshot[path] = newContent
		}
	}

	removed := lo.Filter(maps.Keys(snapshot), func(path string, _ int) bool {
		_, ok := current[path]
		return !ok
	})
	sort.Strings(removed)
	for _, path := range removed {
		delete(snapshot, path)
	}
	cs.Removed = removed

	return cs
}
