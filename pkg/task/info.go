package task

import (
	"math"

	"github.com/core-tools/hsu-kernel-go/pkg/timer"
)

const (
	// MaxSyscallNum bounds the syscall counter table.
	MaxSyscallNum = 500

	// MinWeight is the smallest accepted scheduling weight.
	MinWeight = 2
	// DefaultWeight is the weight of a freshly created task.
	DefaultWeight = 16
	// BigStride is the stride numerator; a task's pass grows by
	// BigStride/weight per scheduling turn, so larger weight means slower
	// pass growth and a larger CPU share.
	BigStride uint64 = 1 << 28
)

// Priority is the stride-scheduling key. Ordering is lexicographic on
// (Round, Pass) ascending; the smallest key runs next. Round is the
// wraparound epoch: it increments whenever Pass overflows, preserving total
// order under unbounded run time.
type Priority struct {
	Weight uint64
	Pass   uint64
	Round  uint32
}

func NewPriority() Priority {
	return Priority{Weight: DefaultWeight}
}

// UpdatePass charges one scheduling turn.
func (p *Priority) UpdatePass() {
	step := BigStride / p.Weight
	if p.Pass > math.MaxUint64-step {
		p.Round++
	}
	p.Pass += step
}

// Less orders keys by (Round, Pass) ascending.
func (p Priority) Less(other Priority) bool {
	if p.Round != other.Round {
		return p.Round < other.Round
	}
	return p.Pass < other.Pass
}

// Info is the per-task accounting record: syscall invocation counters, the
// start timestamp of the current program image, and the scheduling key.
type Info struct {
	SyscallTimes [MaxSyscallNum]uint32
	StartTimeMs  uint64
	Priority     Priority
}

func NewInfo() Info {
	return Info{Priority: NewPriority()}
}

// RecordStart stamps the start of the current program image.
func (i *Info) RecordStart(clock timer.Clock) {
	i.StartTimeMs = clock.NowMicros() / timer.MicrosPerMilli
}

// RecordSyscall counts one dispatched syscall. Out-of-table ids are ignored.
func (i *Info) RecordSyscall(id uint64) {
	if id < MaxSyscallNum {
		i.SyscallTimes[id]++
	}
}

// ElapsedMs returns milliseconds since the current program image started.
func (i *Info) ElapsedMs(clock timer.Clock) uint64 {
	return clock.NowMicros()/timer.MicrosPerMilli - i.StartTimeMs
}
