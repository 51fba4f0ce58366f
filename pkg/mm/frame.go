package mm

import (
	"sync"
)

// Frame is one page of simulated physical storage. Frames are zero-filled on
// allocation, matching what user programs may assume about fresh mappings.
type Frame struct {
	Data []byte
}

// FrameAllocator hands out page frames and keeps allocation accounting. The
// storage itself is garbage collected; the counters exist so the kernel can
// report and assert on frame usage.
type FrameAllocator struct {
	mutex     sync.Mutex
	allocated uint64
	released  uint64
}

func NewFrameAllocator() *FrameAllocator {
	return &FrameAllocator{}
}

func (a *FrameAllocator) Alloc() *Frame {
	a.mutex.Lock()
	a.allocated++
	a.mutex.Unlock()
	return &Frame{Data: make([]byte, PageSize)}
}

func (a *FrameAllocator) Dealloc(f *Frame) {
	if f == nil {
		return
	}
	f.Data = nil
	a.mutex.Lock()
	a.released++
	a.mutex.Unlock()
}

// InUse returns the number of frames allocated and not yet released.
func (a *FrameAllocator) InUse() uint64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.allocated - a.released
}
