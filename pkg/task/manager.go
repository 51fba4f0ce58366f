package task

import (
	"sync"

	"github.com/core-tools/hsu-kernel-go/pkg/exclusive"
)

// TaskManager is the ready queue. Insertion places zero-pass tasks at the
// traversal front and everything else at the back; selection scans for the
// minimum (round, pass) key, first occurrence winning exact ties. With both
// rules together, the most recently inserted zero-pass task wins among
// minimal-key ties, a deterministic tie-break rather than an accidental one.
//
// Selection is O(n) per dispatch. Live task counts are small and the scan is
// auditable; no secondary index is kept.
type TaskManager struct {
	queue *exclusive.Cell[[]*Task]
}

func NewTaskManager() *TaskManager {
	return &TaskManager{queue: exclusive.NewCell([]*Task{})}
}

// Add inserts a task into the ready queue.
func (m *TaskManager) Add(t *Task) {
	front := t.PassIsZero()
	guard := m.queue.Access()
	defer guard.Release()
	q := guard.Get()
	if front {
		*q = append([]*Task{t}, *q...)
	} else {
		*q = append(*q, t)
	}
}

// Fetch removes and returns the ready task with the minimum scheduling key,
// or nil if the queue is empty.
func (m *TaskManager) Fetch() *Task {
	guard := m.queue.Access()
	defer guard.Release()
	q := guard.Get()
	if len(*q) == 0 {
		return nil
	}
	best := 0
	bestKey := (*q)[0].SchedKey()
	for i := 1; i < len(*q); i++ {
		if key := (*q)[i].SchedKey(); key.Less(bestKey) {
			best = i
			bestKey = key
		}
	}
	t := (*q)[best]
	*q = append((*q)[:best], (*q)[best+1:]...)
	return t
}

// Len returns the number of ready tasks.
func (m *TaskManager) Len() int {
	guard := m.queue.Access()
	defer guard.Release()
	return len(*guard.Get())
}

// Contains reports whether a task with the given pid is queued.
func (m *TaskManager) Contains(pid Pid) bool {
	guard := m.queue.Access()
	defer guard.Release()
	for _, t := range *guard.Get() {
		if t.pid == pid {
			return true
		}
	}
	return false
}

// The process-wide ready queue, lazily constructed on first use and alive
// for the kernel's entire run. One executor issues Add/Fetch at a time; the
// exclusive cell inside TaskManager turns any violation into a panic rather
// than silent corruption. Parallel dispatch would need a real concurrent
// queue here.
var (
	defaultManager     *TaskManager
	defaultManagerOnce sync.Once
)

// Default returns the global ready queue.
func Default() *TaskManager {
	defaultManagerOnce.Do(func() {
		defaultManager = NewTaskManager()
	})
	return defaultManager
}

// AddTask enqueues a task on the global ready queue.
func AddTask(t *Task) {
	Default().Add(t)
}

// FetchTask dequeues the next task from the global ready queue.
func FetchTask() *Task {
	return Default().Fetch()
}
