package watch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lucsky/cuid"
	"github.com/phloem-dev/phloem/constants"
	"github.com/phloem-dev/phloem/lib/console"
	"github.com/phloem-dev/phloem/lib/projects"
)

// listener is one registration: an event kind, a project, a callback and its
// options.
type listener struct {
	id       string
	seq      uint64
	kind     EventKind
	project  *projects.Project
	callback Callback
	opts     Options
	// Poll loop driving this listener. Nil for passive (pull/push) listeners,
	// which are invoked from other listeners' loops.
	loop *loop
}

// loop is one poll goroutine over a working copy. All change listeners
// registered over the same project handle share a loop, so their callbacks
// run sequentially in registration order and the cycle pushes at most once.
type loop struct {
	project *projects.Project
	cancel  context.CancelFunc
	done    chan struct{}

	mu        sync.Mutex
	listeners []*listener
}

func (lp *loop) snapshotListeners() []*listener {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	out := make([]*listener, len(lp.listeners))
	copy(out, lp.listeners)
	return out
}

// Registry tracks event listeners and owns their poll loops. Construct one at
// the process entry point and pass it by reference; there is no package-level
// instance.
type Registry struct {
	mu        sync.Mutex
	nextSeq   uint64
	listeners map[string]*listener
	loops     map[*projects.Project]*loop
}

func NewRegistry() *Registry {
	return &Registry{
		listeners: make(map[string]*listener),
		loops:     make(map[*projects.Project]*loop),
	}
}

// Register adds a listener for the given event kind on a project and returns
// its id for later unregistration.
//
// Change listeners start a poll loop over the project's working copy. If a
// loop is already running for the same project handle, the callback joins it
// instead (the first registration's interval and falloff stay in effect).
// Pull and push listeners are passive: they never poll, and fire when some
// loop on the same project pulls new commits or pushes.
func (r *Registry) Register(kind EventKind, project *projects.Project, callback Callback, opts Options) (string, error) {
	if project == nil {
		return "", errors.New("project is required")
	}
	if callback == nil {
		return "", errors.New("callback is required")
	}

	l := &listener{
		id:       cuid.New(),
		kind:     kind,
		project:  project,
		callback: callback,
		opts:     opts,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l.seq = r.nextSeq
	r.nextSeq++

	if kind == EventChange {
		lp, ok := r.loops[project]
		if !ok {
			ctx, cancel := context.WithCancel(context.Background())
			lp = &loop{
				project: project,
				cancel:  cancel,
				done:    make(chan struct{}),
			}
			r.loops[project] = lp
			go r.run(ctx, lp, opts)
		}

		lp.mu.Lock()
		lp.listeners = append(lp.listeners, l)
		lp.mu.Unlock()
		l.loop = lp
	}

	r.listeners[l.id] = l
	return l.id, nil
}

// Unregister removes a listener. When the last change listener on a loop is
// removed, the loop is stopped with a bounded wait. Returns false if the id
// is unknown.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	l, ok := r.listeners[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.listeners, id)

	var stop *loop
	if lp := l.loop; lp != nil {
		lp.mu.Lock()
		for i, candidate := range lp.listeners {
			if candidate == l {
				lp.listeners = append(lp.listeners[:i], lp.listeners[i+1:]...)
				break
			}
		}
		empty := len(lp.listeners) == 0
		lp.mu.Unlock()

		if empty {
			delete(r.loops, lp.project)
			stop = lp
		}
	}
	r.mu.Unlock()

	if stop != nil {
		stopLoop(stop, constants.StopTimeout)
	}
	return true
}

// Close stops every poll loop, waiting up to timeout for each to observe
// cancellation. Loops stuck in a transport call are abandoned.
func (r *Registry) Close(timeout time.Duration) {
	r.mu.Lock()
	loops := make([]*loop, 0, len(r.loops))
	for _, lp := range r.loops {
		loops = append(loops, lp)
	}
	r.loops = make(map[*projects.Project]*loop)
	r.listeners = make(map[string]*listener)
	r.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for _, lp := range loops {
		lp.cancel()
	}
	for _, lp := range loops {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		if !stopWait(lp, remaining) {
			console.Warning("Poll loop for project %s did not stop in time; abandoning", lp.project.ID)
		}
	}
}

func stopLoop(lp *loop, timeout time.Duration) {
	lp.cancel()
	if !stopWait(lp, timeout) {
		console.Warning("Poll loop for project %s did not stop in time; abandoning", lp.project.ID)
	}
}

func stopWait(lp *loop, timeout time.Duration) bool {
	select {
	case <-lp.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// notify runs passive listeners matching the event's kind and project.
// A push requested by a passive listener is performed immediately but never
// re-notifies, so pushes cannot cascade.
func (r *Registry) notify(ctx context.Context, kind EventKind, event Event) {
	r.mu.Lock()
	matched := make([]*listener, 0)
	for _, l := range r.listeners {
		if l.loop == nil && l.kind == kind && l.project.ID == event.Project.ID {
			matched = append(matched, l)
		}
	}
	r.mu.Unlock()

	// Registration order.
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	event.Kind = kind
	for _, l := range matched {
		push, err := invoke(l.callback, event)
		if err != nil {
			console.ErrorPrint("Listener %s callback failed: %s", l.id, err)
			continue
		}
		if push && l.opts.Push {
			if err := event.Project.Push(ctx); err != nil {
				console.ErrorPrint("Push for listener %s failed: %s", l.id, err)
			}
		}
	}
}
