package watch

import (
	"fmt"
	"time"

	"github.com/phloem-dev/phloem/lib/projects"
	"github.com/phloem-dev/phloem/models"
)

// Kind of project event a listener can be registered for.
type EventKind string

const (
	// The remote project advanced to a new revision.
	EventChange EventKind = "change"
	// A poll cycle pulled new commits into the working copy.
	EventPull EventKind = "pull"
	// A listener pushed local changes to the remote.
	EventPush EventKind = "push"
)

// ParseEventKind converts a CLI string into an event kind.
func ParseEventKind(s string) (EventKind, error) {
	switch EventKind(s) {
	case EventChange, EventPull, EventPush:
		return EventKind(s), nil
	}
	return "", fmt.Errorf("unknown event kind %q (expected change, pull or push)", s)
}

// Event is delivered to listener callbacks. The project handle is current as
// of the pull that produced the event.
type Event struct {
	Kind EventKind
	// Handle to the up-to-date project.
	Project *projects.Project
	// Diff against the previous observation. May be empty when only project
	// metadata or history changed.
	Changes models.ChangeSet
	// Revision identifier after the pull.
	Revision string
}

// Callback runs when an event fires. The returned boolean requests a push
// after the cycle's callbacks complete; it only takes effect for listeners
// registered with Options.Push.
type Callback func(Event) (bool, error)

// Options for a listener registration.
type Options struct {
	// Push local changes after a callback cycle in which any callback
	// returned true.
	Push bool
	// Base polling interval. Defaults to the configured default interval.
	Interval time.Duration
	// Multiplicative back-off factor applied after quiescent cycles.
	// Zero disables back-off and keeps the interval constant.
	Falloff float64
}
