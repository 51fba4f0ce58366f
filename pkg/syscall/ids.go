package syscall

// Syscall identifiers, following the RISC-V Linux numbering the original ABI
// uses. The counter table in task.Info is indexed by these.
const (
	SyscallExit        = 93
	SyscallYield       = 124
	SyscallSetPriority = 140
	SyscallGetTime     = 169
	SyscallGetPid      = 172
	SyscallMUnmap      = 215
	SyscallFork        = 220
	SyscallExec        = 221
	SyscallMMap        = 222
	SyscallWaitPid     = 260
	SyscallSpawn       = 400
	SyscallTaskInfo    = 410
)

var syscallNames = map[uint64]string{
	SyscallExit:        "exit",
	SyscallYield:       "yield",
	SyscallSetPriority: "set_priority",
	SyscallGetTime:     "get_time",
	SyscallGetPid:      "getpid",
	SyscallMUnmap:      "munmap",
	SyscallFork:        "fork",
	SyscallExec:        "exec",
	SyscallMMap:        "mmap",
	SyscallWaitPid:     "waitpid",
	SyscallSpawn:       "spawn",
	SyscallTaskInfo:    "task_info",
}

// Name returns the symbolic name of a syscall id.
func Name(id uint64) string {
	if name, ok := syscallNames[id]; ok {
		return name
	}
	return "unknown"
}
