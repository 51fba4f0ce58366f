package task

import (
	"sync"

	"github.com/core-tools/hsu-kernel-go/pkg/errors"
)

// Pid identifies a task. A pid is never reused while any reference to its
// task survives: it is returned to the allocator only when the task is
// reaped and unregistered.
type Pid uint64

// NoPid marks the absent parent of the root task.
const NoPid Pid = ^Pid(0)

// PidAllocator hands out pids, recycling released ones.
type PidAllocator struct {
	mutex    sync.Mutex
	next     Pid
	recycled []Pid
	live     map[Pid]struct{}
}

func NewPidAllocator() *PidAllocator {
	return &PidAllocator{live: make(map[Pid]struct{})}
}

func (a *PidAllocator) Alloc() Pid {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	var pid Pid
	if n := len(a.recycled); n > 0 {
		pid = a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
	} else {
		pid = a.next
		a.next++
	}
	a.live[pid] = struct{}{}
	return pid
}

// Dealloc releases a pid. Releasing a pid that is not live signals a broken
// ownership contract and panics.
func (a *PidAllocator) Dealloc(pid Pid) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if _, ok := a.live[pid]; !ok {
		panic(errors.NewInternalError("pid released twice", nil).WithContext("pid", uint64(pid)))
	}
	delete(a.live, pid)
	a.recycled = append(a.recycled, pid)
}
