package syscall

import (
	"github.com/core-tools/hsu-kernel-go/pkg/errors"
	"github.com/core-tools/hsu-kernel-go/pkg/mm"
	"github.com/core-tools/hsu-kernel-go/pkg/task"
	"github.com/core-tools/hsu-kernel-go/pkg/timer"
)

// Exit marks the caller Zombie with the given code and yields the executor
// permanently. It never returns a value to the caller.
func (h *Handler) Exit(code int32) {
	h.logger.Debugf("Application exited with code %d", code)
	h.processor.ExitCurrent(code)
}

// Yield re-enters the caller into the ready queue and gives up the executor.
func (h *Handler) Yield() int64 {
	h.processor.SuspendCurrent()
	return errors.ResultOK
}

// GetPid returns the caller's pid.
func (h *Handler) GetPid() int64 {
	return int64(h.current().Pid())
}

// Fork duplicates the caller. The parent observes the child's pid; the
// child's trap context is adjusted so fork reads as 0 on its path.
func (h *Handler) Fork() int64 {
	t := h.current()
	child, err := t.Fork()
	if err != nil {
		h.logger.Errorf("Fork failed, pid: %d: %v", t.Pid(), err)
		return errors.SyscallResult(err)
	}

	// the child resumes straight out of the syscall; its return reads 0
	guard := child.Access()
	guard.Get().TrapCx.SetReturn(0)
	guard.Release()

	h.processor.Manager().Add(child)
	return int64(child.Pid())
}

// Exec replaces the caller's program image in place. The caller's pid and
// process-tree links are preserved; on success execution resumes at the new
// entry point.
func (h *Handler) Exec(pathPtr uint64) int64 {
	t := h.current()
	path, err := h.readPath(t, pathPtr)
	if err != nil {
		return errors.SyscallResult(err)
	}
	img, ok := h.images.Resolve(path)
	if !ok {
		h.logger.Warnf("Exec target not found, path: %s, pid: %d", path, t.Pid())
		return errors.ResultError
	}
	if err := t.Exec(img, h.clock); err != nil {
		return errors.SyscallResult(err)
	}
	t.RecordStart(h.clock)
	return errors.ResultOK
}

// Spawn builds a fresh task from a named image (no address-space copy of the
// caller), links it as a child and enqueues it Ready. Returns the new pid.
func (h *Handler) Spawn(pathPtr uint64) int64 {
	t := h.current()
	path, err := h.readPath(t, pathPtr)
	if err != nil {
		return errors.SyscallResult(err)
	}
	img, ok := h.images.Resolve(path)
	if !ok {
		h.logger.Warnf("Spawn target not found, path: %s, pid: %d", path, t.Pid())
		return errors.ResultError
	}

	child, err := task.New(img, h.frames, h.clock)
	if err != nil {
		return errors.SyscallResult(err)
	}
	t.AdoptChild(child)
	h.processor.Manager().Add(child)
	return int64(child.Pid())
}

// WaitPid reaps exactly one zombie child matching the filter (a specific pid
// or -1 for any) and writes its exit code through the caller's address
// space. Returns the reaped pid; -1 if no child matches the filter at all;
// -2 if a matching child exists but has not exited yet.
func (h *Handler) WaitPid(pid int64, exitCodePtr uint64) int64 {
	t := h.current()
	guard := t.Access()
	defer guard.Release()
	inner := guard.Get()

	matches := func(c *task.Task) bool {
		return pid == -1 || task.Pid(pid) == c.Pid()
	}

	anyMatch := false
	for _, c := range inner.Children {
		if matches(c) {
			anyMatch = true
			break
		}
	}
	if !anyMatch {
		return errors.SyscallResult(errors.NewNoSuchChildError("no child matches filter", nil).
			WithContext("pid", pid))
	}

	for i, c := range inner.Children {
		// brief exclusive access to the child; the parent's own guard stays
		// held, the two cells are distinct
		if !matches(c) || !c.IsZombie() {
			continue
		}
		inner.Children = append(inner.Children[:i], inner.Children[i+1:]...)
		task.Unregister(c)
		if h.processor.Manager().Contains(c.Pid()) {
			panic(errors.NewInternalError("reaped child still on ready queue", nil).
				WithContext("pid", uint64(c.Pid())))
		}
		childGuard := c.Access()
		code := childGuard.Get().ExitCode
		childGuard.Release()
		if err := writeExitCode(inner.MemorySet.Token(), mm.VirtAddr(exitCodePtr), code); err != nil {
			return errors.SyscallResult(err)
		}
		return int64(c.Pid())
	}
	return errors.SyscallResult(errors.NewNotYetExitedError("matching child still running", nil).
		WithContext("pid", pid))
}

// GetTime writes the current monotonic reading as {seconds, microseconds}
// through the caller's address space. The timezone argument is reserved.
func (h *Handler) GetTime(ptr, _ uint64) int64 {
	t := h.current()
	guard := t.Access()
	defer guard.Release()

	us := h.clock.NowMicros()
	tv := TimeVal{
		Sec:  us / timer.MicrosPerSecond,
		Usec: us % timer.MicrosPerSecond,
	}
	if err := guard.Get().MemorySet.Token().WriteBytes(mm.VirtAddr(ptr), encodeTimeVal(tv)); err != nil {
		return errors.SyscallResult(err)
	}
	return errors.ResultOK
}

// TaskInfo writes the caller's status, syscall counters and elapsed time
// since program start through the caller's address space.
func (h *Handler) TaskInfo(ptr uint64) int64 {
	t := h.current()
	guard := t.Access()
	defer guard.Release()
	inner := guard.Get()

	ti := TaskInfo{
		Status:       uint32(inner.Status),
		SyscallTimes: inner.Info.SyscallTimes,
		TimeMs:       inner.Info.ElapsedMs(h.clock),
	}
	if err := inner.MemorySet.Token().WriteBytes(mm.VirtAddr(ptr), encodeTaskInfo(ti)); err != nil {
		return errors.SyscallResult(err)
	}
	return errors.ResultOK
}

// SetPriority updates the caller's scheduling weight and echoes it back.
// Weights below 2 are rejected.
func (h *Handler) SetPriority(weight int64) int64 {
	if err := h.current().SetPriority(weight); err != nil {
		return errors.SyscallResult(err)
	}
	return weight
}

// MMap maps [start, start+len) into the caller's address space with the
// access requested by the 3-bit port field. Fails without partial effect on
// malformed port bits, a misaligned start, or any already-mapped page.
func (h *Handler) MMap(start, length, port uint64) int64 {
	perm, err := mm.PermissionFromPort(port)
	if err != nil {
		return errors.SyscallResult(err)
	}
	startVA := mm.VirtAddr(start)
	if !startVA.Aligned() {
		return errors.SyscallResult(errors.NewValidationError("mmap start not page-aligned", nil).
			WithContext("start", start))
	}

	t := h.current()
	guard := t.Access()
	defer guard.Release()
	if err := guard.Get().MemorySet.InsertFramedArea(startVA, startVA+mm.VirtAddr(length), perm); err != nil {
		return errors.SyscallResult(err)
	}
	return errors.ResultOK
}

// MUnmap unmaps [start, start+len). Every page in range must be mapped and
// owned by the map syscall; otherwise nothing is unmapped.
func (h *Handler) MUnmap(start, length uint64) int64 {
	startVA := mm.VirtAddr(start)
	if !startVA.Aligned() {
		return errors.SyscallResult(errors.NewValidationError("munmap start not page-aligned", nil).
			WithContext("start", start))
	}

	t := h.current()
	guard := t.Access()
	defer guard.Release()
	if err := guard.Get().MemorySet.RemoveFramedArea(startVA, startVA+mm.VirtAddr(length)); err != nil {
		return errors.SyscallResult(err)
	}
	return errors.ResultOK
}

func (h *Handler) readPath(t *task.Task, ptr uint64) (string, error) {
	guard := t.Access()
	defer guard.Release()
	return guard.Get().MemorySet.Token().ReadCString(mm.VirtAddr(ptr), MaxPathLen)
}
