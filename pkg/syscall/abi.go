package syscall

import (
	"encoding/binary"

	"github.com/core-tools/hsu-kernel-go/pkg/mm"
	"github.com/core-tools/hsu-kernel-go/pkg/task"
)

// User-visible record layouts. Both are written through address-space
// translation as little-endian fixed layouts; user programs read them at the
// documented offsets.

// TimeVal is the get_time output record.
type TimeVal struct {
	Sec  uint64
	Usec uint64
}

const timeValSize = 16

func encodeTimeVal(tv TimeVal) []byte {
	buf := make([]byte, timeValSize)
	binary.LittleEndian.PutUint64(buf[0:], tv.Sec)
	binary.LittleEndian.PutUint64(buf[8:], tv.Usec)
	return buf
}

// TaskInfo is the task_info output record: status code, the full syscall
// counter table and elapsed milliseconds since the program image started.
type TaskInfo struct {
	Status       uint32
	SyscallTimes [task.MaxSyscallNum]uint32
	TimeMs       uint64
}

const taskInfoSize = 4 + 4*task.MaxSyscallNum + 8

func encodeTaskInfo(ti TaskInfo) []byte {
	buf := make([]byte, taskInfoSize)
	binary.LittleEndian.PutUint32(buf[0:], ti.Status)
	for i, v := range ti.SyscallTimes {
		binary.LittleEndian.PutUint32(buf[4+4*i:], v)
	}
	binary.LittleEndian.PutUint64(buf[4+4*task.MaxSyscallNum:], ti.TimeMs)
	return buf
}

func writeExitCode(token mm.Token, addr mm.VirtAddr, code int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(code))
	return token.WriteBytes(addr, buf[:])
}
