package task

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTaskRunning means a background task is already active; the tool runs
// exactly one at a time.
var ErrTaskRunning = errors.New("a task is already running")

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Snapshot is an immutable copy of a task's state, safe to serialize.
type Snapshot struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	State      State      `json:"state"`
	Progress   int        `json:"progress"`
	Message    string     `json:"message"`
	Logs       []string   `json:"logs"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Notifier receives a snapshot after every visible change. The websocket
// hub plugs in here.
type Notifier func(Snapshot)

// Manager owns the single task slot.
type Manager struct {
	mu      sync.Mutex
	current *task
	last    *task
	notify  Notifier
	log     *zap.Logger
}

type task struct {
	id         string
	kind       string
	state      State
	progress   int
	message    string
	logs       []string
	err        error
	startedAt  time.Time
	finishedAt *time.Time
}

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{log: log}
}

// SetNotifier registers the change listener. Call before Start.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	m.notify = n
	m.mu.Unlock()
}

// Handle is the API a running task uses to report progress.
type Handle struct {
	m  *Manager
	id string
}

// Start claims the task slot. A second Start while a task runs returns
// ErrTaskRunning.
func (m *Manager) Start(kind string) (*Handle, error) {
	m.mu.Lock()
	if m.current != nil {
		m.mu.Unlock()
		return nil, ErrTaskRunning
	}
	t := &task{
		id:        uuid.NewString(),
		kind:      kind,
		state:     StateRunning,
		startedAt: time.Now().UTC(),
	}
	m.current = t
	snap := t.snapshot()
	notify := m.notify
	m.mu.Unlock()

	m.log.Info("task started", zap.String("task_id", t.id), zap.String("kind", kind))
	if notify != nil {
		notify(snap)
	}
	return &Handle{m: m, id: t.id}, nil
}

// Busy reports whether a task currently holds the slot.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Status returns the running task if any, else the most recently finished
// one, else an idle snapshot.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current.snapshot()
	}
	if m.last != nil {
		return m.last.snapshot()
	}
	return Snapshot{State: StateIdle}
}

// SetProgress updates progress (clamped 0-100) and the status line.
func (h *Handle) SetProgress(progress int, message string) {
	if h == nil {
		return
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	h.m.update(h.id, func(t *task) {
		t.progress = progress
		if message != "" {
			t.message = message
		}
	})
}

// Log appends a line to the task log.
func (h *Handle) Log(line string) {
	if h == nil || line == "" {
		return
	}
	h.m.update(h.id, func(t *task) {
		t.logs = append(t.logs, line)
	})
}

// Finish releases the slot. A nil error marks the task done, otherwise
// failed.
func (h *Handle) Finish(err error) {
	if h == nil {
		return
	}
	m := h.m
	m.mu.Lock()
	t := m.current
	if t == nil || t.id != h.id {
		m.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	t.finishedAt = &now
	t.err = err
	if err != nil {
		t.state = StateFailed
	} else {
		t.state = StateDone
		t.progress = 100
	}
	m.last = t
	m.current = nil
	snap := t.snapshot()
	notify := m.notify
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("task failed", zap.String("task_id", t.id), zap.Error(err))
	} else {
		m.log.Info("task done", zap.String("task_id", t.id))
	}
	if notify != nil {
		notify(snap)
	}
}

func (m *Manager) update(id string, fn func(*task)) {
	m.mu.Lock()
	t := m.current
	if t == nil || t.id != id {
		m.mu.Unlock()
		return
	}
	fn(t)
	snap := t.snapshot()
	notify := m.notify
	m.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}

func (t *task) snapshot() Snapshot {
	logs := make([]string, len(t.logs))
	copy(logs, t.logs)
	s := Snapshot{
		ID:         t.id,
		Kind:       t.kind,
		State:      t.state,
		Progress:   t.progress,
		Message:    t.message,
		Logs:       logs,
		StartedAt:  t.startedAt,
		FinishedAt: t.finishedAt,
	}
	if t.err != nil {
		s.Error = t.err.Error()
	}
	return s
}
