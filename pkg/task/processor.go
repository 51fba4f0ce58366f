package task

import (
	"github.com/core-tools/hsu-kernel-go/pkg/errors"
	"github.com/core-tools/hsu-kernel-go/pkg/logging"
	"github.com/core-tools/hsu-kernel-go/pkg/timer"
)

// Processor tracks the task currently granted the executor and implements
// the run-loop side of the scheduling contract: fetch the minimal-key ready
// task, transition it to Running, charge one stride step. The actual
// register switch is the trap layer's concern, not modeled here.
type Processor struct {
	manager *TaskManager
	clock   timer.Clock
	logger  logging.Logger
	root    *Task
	current *Task
}

func NewProcessor(manager *TaskManager, clock timer.Clock, logger logging.Logger) *Processor {
	return &Processor{
		manager: manager,
		clock:   clock,
		logger:  logger,
	}
}

// Manager returns the ready queue this processor drains.
func (p *Processor) Manager() *TaskManager {
	return p.manager
}

// SetRoot records the root task, the reparenting target for orphans.
func (p *Processor) SetRoot(t *Task) {
	p.root = t
}

func (p *Processor) Root() *Task {
	return p.root
}

// Current returns the task holding the executor, or nil when idle.
func (p *Processor) Current() *Task {
	return p.current
}

// Schedule takes the next ready task, marks it Running and charges one
// stride step to its scheduling key. Returns nil when the queue is empty.
func (p *Processor) Schedule() *Task {
	t := p.manager.Fetch()
	if t == nil {
		return nil
	}
	guard := t.Access()
	inner := guard.Get()
	inner.Status = StatusRunning
	inner.Info.Priority.UpdatePass()
	pass, round := inner.Info.Priority.Pass, inner.Info.Priority.Round
	guard.Release()

	p.current = t
	p.logger.Debugf("Scheduled task, pid: %d, pass: %d, round: %d", t.Pid(), pass, round)
	return t
}

// SuspendCurrent re-enters the current task into the ready queue; the caller
// yielded cooperatively.
func (p *Processor) SuspendCurrent() {
	t := p.takeCurrent()
	guard := t.Access()
	guard.Get().Status = StatusReady
	guard.Release()
	p.manager.Add(t)
}

// ExitCurrent marks the current task Zombie, records its exit code,
// reparents its children to the root task and releases its address space.
// The zombie stays linked under its parent until reaped.
func (p *Processor) ExitCurrent(code int32) {
	t := p.takeCurrent()

	guard := t.Access()
	inner := guard.Get()
	inner.Status = StatusZombie
	inner.ExitCode = code
	children := inner.Children
	inner.Children = nil
	released := inner.MemorySet.Release()
	guard.Release()

	if len(children) > 0 {
		if p.root == nil || p.root == t {
			panic(errors.NewInternalError("no reparenting target for orphans", nil).
				WithContext("pid", uint64(t.Pid())))
		}
		for _, child := range children {
			childGuard := child.Access()
			childGuard.Get().Parent = p.root.Pid()
			childGuard.Release()
		}
		rootGuard := p.root.Access()
		rootGuard.Get().Children = append(rootGuard.Get().Children, children...)
		rootGuard.Release()
	}

	p.logger.Debugf("Task exited, pid: %d, code: %d, orphans: %d, frames_released: %d",
		t.Pid(), code, len(children), released)
}

func (p *Processor) takeCurrent() *Task {
	t := p.current
	if t == nil {
		panic(errors.NewInternalError("no current task on executor", nil))
	}
	p.current = nil
	return t
}
