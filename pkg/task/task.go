// Package task implements the process control block, the stride-scheduling
// ready queue and the run-loop bookkeeping around them.
package task

import (
	"github.com/core-tools/hsu-kernel-go/pkg/errors"
	"github.com/core-tools/hsu-kernel-go/pkg/exclusive"
	"github.com/core-tools/hsu-kernel-go/pkg/loader"
	"github.com/core-tools/hsu-kernel-go/pkg/mm"
	"github.com/core-tools/hsu-kernel-go/pkg/timer"
)

// Status is a task's lifecycle state. Zombie is terminal.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusZombie
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusZombie:
		return "zombie"
	}
	return "unknown"
}

// Inner is the mutable interior of a task, reached only through the task's
// exclusive-access cell.
type Inner struct {
	Status    Status
	MemorySet *mm.MemorySet
	TrapCx    *TrapContext
	Parent    Pid // weak back-reference; NoPid for the root task
	Children  []*Task
	ExitCode  int32
	Info      Info
}

// Task is one process control block. The pid is immutable; everything else
// lives behind the exclusive-access cell.
type Task struct {
	pid    Pid
	frames *mm.FrameAllocator
	inner  *exclusive.Cell[Inner]
}

// New creates a fresh task from a program image: new address space, trap
// context at the image entry, default accounting. The task starts with no
// parent; fork and spawn link it into the tree.
func New(img *loader.ProgramImage, frames *mm.FrameAllocator, clock timer.Clock) (*Task, error) {
	ms, stackTop, err := img.Build(frames)
	if err != nil {
		return nil, err
	}
	info := NewInfo()
	info.RecordStart(clock)
	t := &Task{
		pid:    pids.Alloc(),
		frames: frames,
		inner: exclusive.NewCell(Inner{
			Status:    StatusReady,
			MemorySet: ms,
			TrapCx:    NewTrapContext(img.Entry, stackTop),
			Parent:    NoPid,
			Info:      info,
		}),
	}
	register(t)
	return t, nil
}

// Pid returns the task's immutable pid.
func (t *Task) Pid() Pid {
	return t.pid
}

// Access acquires the task's mutable interior. The guard must be released
// before acquiring the same task again on any path.
func (t *Task) Access() *exclusive.Guard[Inner] {
	return t.inner.Access()
}

// IsZombie reports whether the task has exited.
func (t *Task) IsZombie() bool {
	guard := t.Access()
	defer guard.Release()
	return guard.Get().Status == StatusZombie
}

// PassIsZero reports whether the task's stride accumulator is at the origin,
// which grants it the front-of-queue tie-break on insertion.
func (t *Task) PassIsZero() bool {
	guard := t.Access()
	defer guard.Release()
	return guard.Get().Info.Priority.Pass == 0
}

// SchedKey snapshots the scheduling key for queue ordering.
func (t *Task) SchedKey() Priority {
	guard := t.Access()
	defer guard.Release()
	return guard.Get().Info.Priority
}

// Fork produces a state-preserving duplicate of the task: address space and
// trap context copied, accounting carried over, new pid, linked as a child.
// The caller adjusts the child's trap context so fork reads as 0 there.
func (t *Task) Fork() (*Task, error) {
	guard := t.Access()
	defer guard.Release()
	inner := guard.Get()

	child := &Task{
		pid:    pids.Alloc(),
		frames: t.frames,
		inner: exclusive.NewCell(Inner{
			Status:    StatusReady,
			MemorySet: inner.MemorySet.Clone(),
			TrapCx:    inner.TrapCx.Clone(),
			Parent:    t.pid,
			Info:      inner.Info,
		}),
	}
	register(child)
	inner.Children = append(inner.Children, child)
	return child, nil
}

// AdoptChild links an already-created task (spawn) as a child of t.
func (t *Task) AdoptChild(child *Task) {
	childGuard := child.Access()
	childGuard.Get().Parent = t.pid
	childGuard.Release()

	guard := t.Access()
	defer guard.Release()
	guard.Get().Children = append(guard.Get().Children, child)
}

// Exec replaces the task's address space and trap context with a fresh load
// of the image. Pid, parent and children are untouched; the start timestamp
// resets.
func (t *Task) Exec(img *loader.ProgramImage, clock timer.Clock) error {
	ms, stackTop, err := img.Build(t.frames)
	if err != nil {
		return err
	}
	guard := t.Access()
	defer guard.Release()
	inner := guard.Get()
	inner.MemorySet.Release()
	inner.MemorySet = ms
	inner.TrapCx = NewTrapContext(img.Entry, stackTop)
	inner.Info.RecordStart(clock)
	return nil
}

// RecordStart stamps the start of the current program image.
func (t *Task) RecordStart(clock timer.Clock) {
	guard := t.Access()
	defer guard.Release()
	guard.Get().Info.RecordStart(clock)
}

// SetPriority updates the scheduling weight. The accumulated pass and round
// are kept: fairness is relative to history, not reset on re-prioritization.
func (t *Task) SetPriority(weight int64) error {
	if weight < MinWeight {
		return errors.NewValidationError("weight below minimum", nil).
			WithContext("weight", weight).
			WithContext("min", MinWeight)
	}
	guard := t.Access()
	defer guard.Release()
	guard.Get().Info.Priority.Weight = uint64(weight)
	return nil
}
