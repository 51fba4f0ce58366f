// Package syscall implements the process-management syscall surface: the
// dispatcher and the handlers for lifecycle, accounting and address-space
// mutation calls. Handlers return result codes; the dispatcher counts the
// invocation and writes the code back into the caller's trap context.
package syscall

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/core-tools/hsu-kernel-go/pkg/errors"
	"github.com/core-tools/hsu-kernel-go/pkg/loader"
	"github.com/core-tools/hsu-kernel-go/pkg/logging"
	"github.com/core-tools/hsu-kernel-go/pkg/mm"
	"github.com/core-tools/hsu-kernel-go/pkg/task"
	"github.com/core-tools/hsu-kernel-go/pkg/timer"
	"github.com/core-tools/hsu-kernel-go/pkg/tracing"
)

// MaxPathLen bounds program names read from user memory.
const MaxPathLen = 256

// Handler binds the syscall surface to its collaborators: the processor
// (current task + run-loop transitions), the program loader and the clock.
type Handler struct {
	processor *task.Processor
	images    *loader.Registry
	frames    *mm.FrameAllocator
	clock     timer.Clock
	logger    logging.Logger
}

func NewHandler(processor *task.Processor, images *loader.Registry, frames *mm.FrameAllocator, clock timer.Clock, logger logging.Logger) *Handler {
	return &Handler{
		processor: processor,
		images:    images,
		frames:    frames,
		clock:     clock,
		logger:    logger,
	}
}

// Dispatch routes one syscall for the current task. It increments the
// caller's invocation counter exactly once, runs the handler, and writes the
// result into the caller's trap context return register — except for exit,
// which never returns to its caller.
func (h *Handler) Dispatch(ctx context.Context, id uint64, args [3]uint64) int64 {
	t := h.current()

	guard := t.Access()
	guard.Get().Info.RecordSyscall(id)
	guard.Release()

	_, span := tracing.StartSpan(ctx, "syscall."+Name(id),
		attribute.Int64("pid", int64(t.Pid())),
		attribute.Int64("syscall.id", int64(id)),
	)

	var ret int64
	exited := false
	switch id {
	case SyscallExit:
		h.Exit(int32(args[0]))
		exited = true
	case SyscallYield:
		ret = h.Yield()
	case SyscallGetPid:
		ret = h.GetPid()
	case SyscallFork:
		ret = h.Fork()
	case SyscallExec:
		ret = h.Exec(args[0])
	case SyscallSpawn:
		ret = h.Spawn(args[0])
	case SyscallWaitPid:
		ret = h.WaitPid(int64(args[0]), args[1])
	case SyscallGetTime:
		ret = h.GetTime(args[0], args[1])
	case SyscallTaskInfo:
		ret = h.TaskInfo(args[0])
	case SyscallSetPriority:
		ret = h.SetPriority(int64(args[0]))
	case SyscallMMap:
		ret = h.MMap(args[0], args[1], args[2])
	case SyscallMUnmap:
		ret = h.MUnmap(args[0], args[1])
	default:
		h.logger.Warnf("Unsupported syscall, id: %d, pid: %d", id, t.Pid())
		ret = errors.ResultError
	}

	span.SetAttributes(attribute.Int64("syscall.ret", ret))
	tracing.EndSpan(span, nil)

	if !exited {
		guard := t.Access()
		guard.Get().TrapCx.SetReturn(ret)
		guard.Release()
	}
	return ret
}

func (h *Handler) current() *task.Task {
	t := h.processor.Current()
	if t == nil {
		panic(errors.NewInternalError("syscall dispatched with no current task", nil))
	}
	return t
}
