package task

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/core-tools/hsu-kernel-go/pkg/timer"
)

func TestUpdatePassStep(t *testing.T) {
	p := NewPriority()
	assert.Equal(t, uint64(DefaultWeight), p.Weight)
	assert.Equal(t, uint64(0), p.Pass)

	p.UpdatePass()
	assert.Equal(t, BigStride/DefaultWeight, p.Pass)
	assert.Equal(t, uint32(0), p.Round)

	p.Weight = 2
	p.UpdatePass()
	assert.Equal(t, BigStride/DefaultWeight+BigStride/2, p.Pass)
}

func TestUpdatePassOverflowBumpsRound(t *testing.T) {
	p := Priority{Weight: MinWeight, Pass: math.MaxUint64 - 10}

	p.UpdatePass()
	assert.Equal(t, uint32(1), p.Round)
	// pass wraps modulo 2^64
	assert.Equal(t, BigStride/MinWeight-11, p.Pass)
}

func TestPriorityLess(t *testing.T) {
	a := Priority{Round: 0, Pass: 100}
	b := Priority{Round: 0, Pass: 200}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))

	// round dominates pass
	wrapped := Priority{Round: 1, Pass: 0}
	huge := Priority{Round: 0, Pass: math.MaxUint64}
	assert.True(t, huge.Less(wrapped))
	assert.False(t, wrapped.Less(huge))
}

func TestRecordSyscallBounds(t *testing.T) {
	info := NewInfo()
	info.RecordSyscall(124)
	info.RecordSyscall(124)
	info.RecordSyscall(93)
	assert.Equal(t, uint32(2), info.SyscallTimes[124])
	assert.Equal(t, uint32(1), info.SyscallTimes[93])

	// out-of-table ids are dropped, not a panic
	info.RecordSyscall(MaxSyscallNum)
	info.RecordSyscall(100000)
}

func TestElapsedMs(t *testing.T) {
	clock := timer.NewManualClock()
	clock.Advance(5_000)

	info := NewInfo()
	info.RecordStart(clock)
	assert.Equal(t, uint64(5), info.StartTimeMs)
	assert.Equal(t, uint64(0), info.ElapsedMs(clock))

	clock.Advance(2_500)
	assert.Equal(t, uint64(2), info.ElapsedMs(clock))

	info.RecordStart(clock)
	assert.Equal(t, uint64(0), info.ElapsedMs(clock))
}
