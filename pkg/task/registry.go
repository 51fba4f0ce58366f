package task

import (
	"github.com/core-tools/hsu-kernel-go/pkg/exclusive"
)

// The task registry backs the weak side of the process tree: a child holds
// its parent as a pid handle and resolves it here, so the only owning
// references are the parent→child ones. An entry exists from task creation
// until the task is reaped.

var (
	pids     = NewPidAllocator()
	registry = exclusive.NewCell(map[Pid]*Task{})
)

// Lookup resolves a pid to its live task.
func Lookup(pid Pid) (*Task, bool) {
	guard := registry.Access()
	defer guard.Release()
	t, ok := (*guard.Get())[pid]
	return t, ok
}

func register(t *Task) {
	guard := registry.Access()
	defer guard.Release()
	(*guard.Get())[t.pid] = t
}

// Unregister removes a reaped task from the registry and releases its pid.
// After this no lookup can reach the task; the caller holds the last
// reference.
func Unregister(t *Task) {
	guard := registry.Access()
	delete(*guard.Get(), t.pid)
	guard.Release()
	pids.Dealloc(t.pid)
}
