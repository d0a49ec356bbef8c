package task

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestSingleTaskSlot(t *testing.T) {
	m := NewManager(zap.NewNop())

	h, err := m.Start("search")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := m.Start("generate"); !errors.Is(err, ErrTaskRunning) {
		t.Fatalf("second start must return ErrTaskRunning, got %v", err)
	}

	h.Finish(nil)
	if m.Busy() {
		t.Fatal("slot must be free after Finish")
	}
	if _, err := m.Start("generate"); err != nil {
		t.Fatalf("start after finish: %v", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	m := NewManager(zap.NewNop())

	if s := m.Status(); s.State != StateIdle {
		t.Fatalf("initial state: %s", s.State)
	}

	h, _ := m.Start("search")
	h.SetProgress(40, "scraping page 2")
	h.Log("found 12 jobs")

	s := m.Status()
	if s.State != StateRunning || s.Progress != 40 || s.Message != "scraping page 2" {
		t.Fatalf("running snapshot: %+v", s)
	}
	if len(s.Logs) != 1 || s.Logs[0] != "found 12 jobs" {
		t.Fatalf("logs: %v", s.Logs)
	}

	h.Finish(errors.New("browser crashed"))
	s = m.Status()
	if s.State != StateFailed || s.Error != "browser crashed" || s.FinishedAt == nil {
		t.Fatalf("failed snapshot: %+v", s)
	}

	h2, _ := m.Start("generate")
	h2.Finish(nil)
	s = m.Status()
	if s.State != StateDone || s.Progress != 100 {
		t.Fatalf("done snapshot: %+v", s)
	}
}

func TestProgressClampAndStaleHandle(t *testing.T) {
	m := NewManager(zap.NewNop())
	h, _ := m.Start("search")
	h.SetProgress(250, "")
	if s := m.Status(); s.Progress != 100 {
		t.Fatalf("progress must clamp to 100, got %d", s.Progress)
	}
	h.Finish(nil)

	// A handle from a finished task must not touch the next one.
	h2, _ := m.Start("generate")
	h.SetProgress(5, "stale")
	if s := m.Status(); s.Progress == 5 || s.Message == "stale" {
		t.Fatalf("stale handle leaked into new task: %+v", s)
	}
	h2.Finish(nil)
}

func TestNotifierReceivesChanges(t *testing.T) {
	m := NewManager(zap.NewNop())

	var mu sync.Mutex
	var states []State
	m.SetNotifier(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	h, _ := m.Start("search")
	h.SetProgress(50, "halfway")
	h.Finish(nil)

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 3 || states[0] != StateRunning || states[2] != StateDone {
		t.Fatalf("notifications: %v", states)
	}
}

func TestConcurrentStartOnlyOneWins(t *testing.T) {
	m := NewManager(zap.NewNop())

	var wg sync.WaitGroup
	var ok int32
	var mu sync.Mutex
	var handles []*Handle
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h, err := m.Start("search"); err == nil {
				mu.Lock()
				ok++
				handles = append(handles, h)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 1 {
		t.Fatalf("%d concurrent starts succeeded, want exactly 1", ok)
	}
	handles[0].Finish(nil)
}
