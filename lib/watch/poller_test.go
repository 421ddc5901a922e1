package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/phloem-dev/phloem/lib/projects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSyncer simulates a remote: staged file writes and a revision bump are
// applied atomically by the next Pull.
type fakeSyncer struct {
	mu       sync.Mutex
	dir      string
	revision string
	pending  func()
	pullErr  error
	pulls    int
	pushes   int
}

func newFakeSyncer(dir string, revision string) *fakeSyncer {
	return &fakeSyncer{dir: dir, revision: revision}
}

// stage queues file contents and a new revision for the next pull.
func (f *fakeSyncer) stage(revision string, files map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = func() {
		for relPath, content := range files {
			path := filepath.Join(f.dir, filepath.FromSlash(relPath))
			os.MkdirAll(filepath.Dir(path), 0755)
			os.WriteFile(path, []byte(content), 0644)
		}
		f.revision = revision
	}
}

func (f *fakeSyncer) setPullErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pullErr = err
}

func (f *fakeSyncer) pullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulls
}

func (f *fakeSyncer) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes
}

func (f *fakeSyncer) CloneIfAbsent(ctx context.Context) error { return nil }

func (f *fakeSyncer) Pull(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	if f.pullErr != nil {
		return f.pullErr
	}
	if f.pending != nil {
		f.pending()
		f.pending = nil
	}
	return nil
}

func (f *fakeSyncer) Commit(ctx context.Context, message string) error { return nil }
func (f *fakeSyncer) RebasePull(ctx context.Context) error             { return nil }
func (f *fakeSyncer) AbortRebase(ctx context.Context) error            { return nil }

func (f *fakeSyncer) Push(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	return nil
}

func (f *fakeSyncer) Head() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revision, nil
}

func waitFor(t *testing.T, condition func() bool, msg string) {
	t.Helper()
	require.Eventually(t, condition, 5*time.Second, 5*time.Millisecond, msg)
}

func testProject(t *testing.T) (*projects.Project, *fakeSyncer) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tex"), []byte("A"), 0644))
	syncer := newFakeSyncer(dir, "r1")
	return projects.NewWithSyncer("proj1", dir, syncer), syncer
}

func shortOpts() Options {
	return Options{Interval: 10 * time.Millisecond}
}

func TestChangeDispatch(t *testing.T) {
	project, syncer := testProject(t)
	registry := NewRegistry()
	defer registry.Close(time.Second)

	events := make(chan Event, 16)
	_, err := registry.Register(EventChange, project, func(e Event) (bool, error) {
		events <- e
		return false, nil
	}, shortOpts())
	require.NoError(t, err)

	// Let the baseline pull land before staging the remote change.
	waitFor(t, func() bool { return syncer.pullCount() >= 1 }, "initial pull")
	syncer.stage("r2", map[string]string{"main.tex": "B", "notes.tex": "x"})

	select {
	case event := <-events:
		assert.Equal(t, EventChange, event.Kind)
		assert.Equal(t, "r2", event.Revision)
		assert.Same(t, project, event.Project)
		require.Len(t, event.Changes.Modified, 1)
		assert.Equal(t, "main.tex", event.Changes.Modified[0].Path)
		assert.Equal(t, "A", event.Changes.Modified[0].OldContent)
		assert.Equal(t, "B", event.Changes.Modified[0].NewContent)
		assert.Equal(t, []string{"notes.tex"}, event.Changes.Added)
		assert.Empty(t, event.Changes.Removed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event dispatched")
	}

	// Unchanged revision must not fire again.
	select {
	case <-events:
		t.Fatal("event dispatched without a revision change")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPushAfterAllCallbacks(t *testing.T) {
	project, syncer := testProject(t)
	registry := NewRegistry()
	defer registry.Close(time.Second)

	var mu sync.Mutex
	var order []string
	record := func(step string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, step)
	}

	opts := Options{Push: true, Interval: 10 * time.Millisecond}
	_, err := registry.Register(EventChange, project, func(e Event) (bool, error) {
		record("first")
		return false, nil
	}, opts)
	require.NoError(t, err)
	_, err = registry.Register(EventChange, project, func(e Event) (bool, error) {
		record("second")
		return true, nil
	}, opts)
	require.NoError(t, err)

	waitFor(t, func() bool { return syncer.pullCount() >= 1 }, "initial pull")
	syncer.stage("r2", map[string]string{"main.tex": "B"})

	waitFor(t, func() bool { return syncer.pushCount() == 1 }, "push after callbacks")

	// Give the loop time to (incorrectly) push again.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, syncer.pushCount())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestCallbackErrorMeansNoPush(t *testing.T) {
	project, syncer := testProject(t)
	registry := NewRegistry()
	defer registry.Close(time.Second)

	_, err := registry.Register(EventChange, project, func(e Event) (bool, error) {
		return true, errors.New("boom")
	}, Options{Push: true, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	waitFor(t, func() bool { return syncer.pullCount() >= 1 }, "initial pull")
	syncer.stage("r2", map[string]string{"main.tex": "B"})

	waitFor(t, func() bool { return syncer.pullCount() >= 3 }, "loop keeps polling")
	assert.Equal(t, 0, syncer.pushCount())
}

func TestCallbackPanicRecovered(t *testing.T) {
	project, syncer := testProject(t)
	registry := NewRegistry()
	defer registry.Close(time.Second)

	var calls int
	var mu sync.Mutex
	survived := make(chan struct{}, 1)
	_, err := registry.Register(EventChange, project, func(e Event) (bool, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			panic("boom")
		}
		survived <- struct{}{}
		return false, nil
	}, Options{Push: true, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	waitFor(t, func() bool { return syncer.pullCount() >= 1 }, "initial pull")
	syncer.stage("r2", map[string]string{"main.tex": "B"})

	// First dispatch panics; the loop must keep running and deliver the next
	// change to the same callback.
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, "panicking dispatch")
	syncer.stage("r3", map[string]string{"main.tex": "C"})

	select {
	case <-survived:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not survive callback panic")
	}
	assert.Equal(t, 0, syncer.pushCount())
}

func TestPullFailureIsQuiescent(t *testing.T) {
	project, syncer := testProject(t)
	registry := NewRegistry()
	defer registry.Close(time.Second)

	events := make(chan Event, 16)
	_, err := registry.Register(EventChange, project, func(e Event) (bool, error) {
		events <- e
		return false, nil
	}, shortOpts())
	require.NoError(t, err)

	waitFor(t, func() bool { return syncer.pullCount() >= 1 }, "initial pull")
	syncer.setPullErr(errors.New("network down"))

	// Loop keeps cycling without dispatching or dying.
	waitFor(t, func() bool { return syncer.pullCount() >= 4 }, "loop keeps polling through pull failures")
	select {
	case <-events:
		t.Fatal("event dispatched while pulls were failing")
	default:
	}

	// Recovery: next successful pull with a new revision dispatches.
	syncer.setPullErr(nil)
	syncer.stage("r2", map[string]string{"main.tex": "B"})

	select {
	case event := <-events:
		assert.Equal(t, "r2", event.Revision)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not recover from pull failures")
	}
}

func TestCloseIsPrompt(t *testing.T) {
	project, syncer := testProject(t)
	registry := NewRegistry()

	_, err := registry.Register(EventChange, project, func(e Event) (bool, error) {
		return false, nil
	}, Options{Interval: time.Hour})
	require.NoError(t, err)

	// Close must interrupt the hour-long sleep, not wait it out.
	waitFor(t, func() bool { return syncer.pullCount() >= 1 }, "initial pull")
	start := time.Now()
	registry.Close(5 * time.Second)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUnregisterStopsLoop(t *testing.T) {
	project, syncer := testProject(t)
	registry := NewRegistry()
	defer registry.Close(time.Second)

	id, err := registry.Register(EventChange, project, func(e Event) (bool, error) {
		return false, nil
	}, shortOpts())
	require.NoError(t, err)

	waitFor(t, func() bool { return syncer.pullCount() >= 1 }, "initial pull")
	assert.True(t, registry.Unregister(id))
	assert.False(t, registry.Unregister(id))

	pulls := syncer.pullCount()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, pulls, syncer.pullCount())
}

func TestPassiveListenersNotified(t *testing.T) {
	project, syncer := testProject(t)
	registry := NewRegistry()
	defer registry.Close(time.Second)

	kinds := make(chan EventKind, 16)
	passive := func(e Event) (bool, error) {
		kinds <- e.Kind
		return false, nil
	}
	_, err := registry.Register(EventPull, project, passive, Options{})
	require.NoError(t, err)
	_, err = registry.Register(EventPush, project, passive, Options{})
	require.NoError(t, err)

	_, err = registry.Register(EventChange, project, func(e Event) (bool, error) {
		return true, nil
	}, Options{Push: true, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	waitFor(t, func() bool { return syncer.pullCount() >= 1 }, "initial pull")
	syncer.stage("r2", map[string]string{"main.tex": "B"})

	waitFor(t, func() bool { return syncer.pushCount() == 1 }, "change listener push")

	received := map[EventKind]bool{}
	timeout := time.After(5 * time.Second)
	for len(received) < 2 {
		select {
		case kind := <-kinds:
			received[kind] = true
		case <-timeout:
			t.Fatalf("passive listeners not notified, got %v", received)
		}
	}
	assert.True(t, received[EventPull])
	assert.True(t, received[EventPush])
}
