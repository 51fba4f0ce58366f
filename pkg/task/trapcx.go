package task

import (
	"github.com/core-tools/hsu-kernel-go/pkg/mm"
)

const (
	// NumRegs is the size of the general register file snapshot.
	NumRegs = 32
	// RegSP is the stack pointer register index.
	RegSP = 2
	// RegA0 is the first argument / return value register index. Syscall
	// results are written back here.
	RegA0 = 10
)

// TrapContext is the CPU-visible register snapshot used to enter and resume
// a task. It is replaced wholesale on exec and spawn.
type TrapContext struct {
	Regs  [NumRegs]uint64
	Entry mm.VirtAddr
}

// NewTrapContext builds a context resuming at entry with the given user
// stack pointer.
func NewTrapContext(entry, sp mm.VirtAddr) *TrapContext {
	cx := &TrapContext{Entry: entry}
	cx.Regs[RegSP] = uint64(sp)
	return cx
}

func (cx *TrapContext) Clone() *TrapContext {
	clone := *cx
	return &clone
}

// SetReturn writes a syscall result into the return register.
func (cx *TrapContext) SetReturn(v int64) {
	cx.Regs[RegA0] = uint64(v)
}

// ReturnValue reads the return register.
func (cx *TrapContext) ReturnValue() int64 {
	return int64(cx.Regs[RegA0])
}
