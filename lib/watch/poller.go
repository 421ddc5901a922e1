package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/phloem-dev/phloem/lib/console"
	"github.com/phloem-dev/phloem/lib/corefs"
)

// run drives one poll loop until its context is cancelled:
// sleep, pull, compare revisions, classify, dispatch, optionally push.
//
// Pull and classification failures are logged and treated as quiescent
// cycles; nothing in a cycle can crash the loop.
func (r *Registry) run(ctx context.Context, lp *loop, opts Options) {
	defer close(lp.done)

	project := lp.project
	sched := newSchedule(opts.Interval, opts.Falloff, 0)

	// Initial sync establishes the diff baseline.
	if err := project.Pull(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		console.ErrorPrint("Initial pull for project %s failed: %s", project.ID, err)
	}

	snapshot, err := corefs.Load(project.RootPath)
	if err != nil {
		console.Warning("Could not load snapshot for project %s: %s", project.ID, err)
		snapshot = corefs.Snapshot{}
	}

	lastRevision, err := project.Revision()
	if err != nil {
		console.Warning("Could not read revision for project %s: %s", project.ID, err)
	}

	for {
		if !sleepCtx(ctx, sched.Interval()) {
			return
		}

		if err := project.Pull(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			console.ErrorPrint("Pull for project %s failed: %s", project.ID, err)
			sched.Backoff()
			continue
		}

		revision, err := project.Revision()
		if err != nil {
			console.ErrorPrint("Could not read revision for project %s: %s", project.ID, err)
			sched.Backoff()
			continue
		}

		// Revision comparison is the cheap "anything new?" check; the full
		// diff only runs when it says yes.
		if revision == lastRevision {
			sched.Backoff()
			continue
		}
		lastRevision = revision

		current, err := corefs.Load(project.RootPath)
		if err != nil {
			console.ErrorPrint("Could not load file tree for project %s: %s", project.ID, err)
			sched.Backoff()
			continue
		}
		changes := corefs.Classify(snapshot, current)

		event := Event{
			Kind:     EventChange,
			Project:  project,
			Changes:  changes,
			Revision: revision,
		}

		r.notify(ctx, EventPull, event)

		// Run every callback before deciding to push, so a cycle pushes at
		// most once no matter how many listeners requested it.
		pushWanted := false
		for _, l := range lp.snapshotListeners() {
			push, err := invoke(l.callback, event)
			if err != nil {
				console.ErrorPrint("Listener %s callback failed: %s", l.id, err)
				continue
			}
			if push && l.opts.Push {
				pushWanted = true
			}
		}

		if pushWanted {
			if err := project.Push(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				console.ErrorPrint("Push for project %s failed: %s", project.ID, err)
			} else {
				r.notify(ctx, EventPush, event)
			}
		}

		sched.Reset()
	}
}

// invoke runs a callback, converting panics into errors so a misbehaving
// callback cannot take the loop down.
func invoke(callback Callback, event Event) (push bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			push = false
			err = fmt.Errorf("callback panic: %v", rec)
		}
	}()

	return callback(event)
}

// sleepCtx sleeps for d, returning early with false if the context is
// cancelled first. Cancellation latency is bounded by timer delivery, not by
// the poll interval.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
