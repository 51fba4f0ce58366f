package mm

import (
	"github.com/core-tools/hsu-kernel-go/pkg/errors"
)

// PageKind records which mechanism owns a mapped page. Only framed pages
// (created by the map syscall) may be removed by the unmap syscall; image and
// stack pages belong to the loaded program.
type PageKind int

const (
	PageKindImage PageKind = iota
	PageKindStack
	PageKindFramed
)

type mappedPage struct {
	frame *Frame
	perm  Permission
	kind  PageKind
}

// MemorySet is one process's virtual address space: a page-granular mapping
// table over simulated physical frames. It is not internally synchronized;
// it is owned by a task and reached only through the task's exclusive access.
type MemorySet struct {
	pages  map[VirtPageNum]*mappedPage
	frames *FrameAllocator
}

func NewMemorySet(frames *FrameAllocator) *MemorySet {
	return &MemorySet{
		pages:  make(map[VirtPageNum]*mappedPage),
		frames: frames,
	}
}

// MappedPages returns the number of mapped pages.
func (ms *MemorySet) MappedPages() int {
	return len(ms.pages)
}

// IsMapped reports whether the page containing addr is mapped.
func (ms *MemorySet) IsMapped(addr VirtAddr) bool {
	_, ok := ms.pages[addr.FloorPage()]
	return ok
}

// InsertFramedArea maps [start, end) with freshly allocated frames. The end
// address is rounded up to a page boundary. The call fails without partial
// effect if any page in the range is already mapped.
func (ms *MemorySet) InsertFramedArea(start, end VirtAddr, perm Permission) error {
	return ms.insertArea(start, end, perm, PageKindFramed, nil)
}

// InsertImageArea maps a program segment at start, copying data into fresh
// frames and zero-filling up to size bytes.
func (ms *MemorySet) InsertImageArea(start VirtAddr, size uint64, perm Permission, data []byte) error {
	if uint64(len(data)) > size {
		size = uint64(len(data))
	}
	return ms.insertArea(start, start+VirtAddr(size), perm, PageKindImage, data)
}

// InsertStackArea maps a user stack occupying [top-size, top).
func (ms *MemorySet) InsertStackArea(top VirtAddr, size uint64) error {
	return ms.insertArea(top-VirtAddr(size), top, PermRead|PermWrite|PermUser, PageKindStack, nil)
}

func (ms *MemorySet) insertArea(start, end VirtAddr, perm Permission, kind PageKind, data []byte) error {
	first := start.FloorPage()
	last := end.CeilPage()
	for vpn := first; vpn < last; vpn++ {
		if _, exists := ms.pages[vpn]; exists {
			return errors.NewConflictError("page already mapped", nil).
				WithContext("addr", uint64(vpn.Addr()))
		}
	}
	for vpn := first; vpn < last; vpn++ {
		ms.pages[vpn] = &mappedPage{
			frame: ms.frames.Alloc(),
			perm:  perm,
			kind:  kind,
		}
	}
	if len(data) > 0 {
		// data copy cannot fail: the pages were just mapped
		if err := ms.Token().WriteBytes(start, data); err != nil {
			panic(errors.NewInternalError("fresh image area not writable", err))
		}
	}
	return nil
}

// RemoveFramedArea unmaps every page of [start, end) and releases its frames.
// Every page in the range must be mapped and owned by the framed-mapping
// mechanism; otherwise the call fails without partial effect.
func (ms *MemorySet) RemoveFramedArea(start, end VirtAddr) error {
	first := start.FloorPage()
	last := end.CeilPage()
	for vpn := first; vpn < last; vpn++ {
		page, exists := ms.pages[vpn]
		if !exists {
			return errors.NewNotFoundError("page not mapped", nil).
				WithContext("addr", uint64(vpn.Addr()))
		}
		if page.kind != PageKindFramed {
			return errors.NewValidationError("page not owned by map syscall", nil).
				WithContext("addr", uint64(vpn.Addr()))
		}
	}
	for vpn := first; vpn < last; vpn++ {
		ms.frames.Dealloc(ms.pages[vpn].frame)
		delete(ms.pages, vpn)
	}
	return nil
}

// Clone deep-copies the address space, frame contents included.
func (ms *MemorySet) Clone() *MemorySet {
	clone := NewMemorySet(ms.frames)
	for vpn, page := range ms.pages {
		frame := ms.frames.Alloc()
		copy(frame.Data, page.frame.Data)
		clone.pages[vpn] = &mappedPage{
			frame: frame,
			perm:  page.perm,
			kind:  page.kind,
		}
	}
	return clone
}

// Release unmaps everything and returns the frames released.
func (ms *MemorySet) Release() int {
	released := len(ms.pages)
	for vpn, page := range ms.pages {
		ms.frames.Dealloc(page.frame)
		delete(ms.pages, vpn)
	}
	return released
}
