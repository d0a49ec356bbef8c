package ws

import (
	"encoding/json"
	"sync/atomic"

	"autocv/internal/task"
)

// TaskEvent is the wire shape pushed to dashboard clients.
type TaskEvent struct {
	Type string        `json:"type"`
	Task task.Snapshot `json:"task"`
}

var defaultHub atomic.Pointer[Hub]

func SetDefaultHub(h *Hub) {
	defaultHub.Store(h)
}

// NotifyTask broadcasts a task snapshot to every connected client. Safe to
// call before a hub exists; it just does nothing then.
func NotifyTask(snap task.Snapshot) {
	h := defaultHub.Load()
	if h == nil {
		return
	}
	b, err := json.Marshal(TaskEvent{Type: "task_update", Task: snap})
	if err != nil {
		return
	}
	h.Broadcast(b)
}
