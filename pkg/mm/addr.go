// Package mm models a process address space: page-granular virtual memory
// with framed backing storage, atomic map/unmap of ranges, and translated
// access to user pointers. Physical frames are simulated as page-sized byte
// slices handed out by a FrameAllocator.
package mm

const (
	PageBits = 12
	PageSize = 1 << PageBits
)

// VirtAddr is a user-space virtual address.
type VirtAddr uint64

// VirtPageNum is a virtual page number (address >> PageBits).
type VirtPageNum uint64

func (a VirtAddr) Aligned() bool {
	return a&(PageSize-1) == 0
}

// FloorPage returns the page containing the address.
func (a VirtAddr) FloorPage() VirtPageNum {
	return VirtPageNum(a >> PageBits)
}

// CeilPage returns the first page at or above the address.
func (a VirtAddr) CeilPage() VirtPageNum {
	return VirtPageNum((uint64(a) + PageSize - 1) >> PageBits)
}

func (a VirtAddr) PageOffset() uint64 {
	return uint64(a) & (PageSize - 1)
}

func (n VirtPageNum) Addr() VirtAddr {
	return VirtAddr(uint64(n) << PageBits)
}
