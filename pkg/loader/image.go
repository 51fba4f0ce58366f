// Package loader resolves program names to executable images and builds
// fresh address spaces from them.
package loader

import (
	"github.com/core-tools/hsu-kernel-go/pkg/errors"
	"github.com/core-tools/hsu-kernel-go/pkg/mm"
)

const (
	// DefaultStackTop places the user stack well above typical image bases.
	DefaultStackTop = mm.VirtAddr(0x8000_0000)
	// DefaultStackSize is two pages.
	DefaultStackSize = uint64(2 * mm.PageSize)
)

// Segment is one mapped region of a program image.
type Segment struct {
	Start mm.VirtAddr
	Size  uint64 // mapped size; zero-filled beyond len(Data)
	Perm  mm.Permission
	Data  []byte
}

// ProgramImage is a named executable image: segments, entry point and user
// stack geometry. Images are immutable once registered.
type ProgramImage struct {
	Name      string
	Entry     mm.VirtAddr
	Segments  []Segment
	StackTop  mm.VirtAddr
	StackSize uint64
}

// Build creates a fresh address space from the image and returns it together
// with the initial stack pointer.
func (img *ProgramImage) Build(frames *mm.FrameAllocator) (*mm.MemorySet, mm.VirtAddr, error) {
	ms := mm.NewMemorySet(frames)
	for _, seg := range img.Segments {
		size := seg.Size
		if size == 0 {
			size = uint64(len(seg.Data))
		}
		if err := ms.InsertImageArea(seg.Start, size, seg.Perm, seg.Data); err != nil {
			return nil, 0, errors.NewProcessError("failed to map image segment", err).
				WithContext("image", img.Name).
				WithContext("start", uint64(seg.Start))
		}
	}
	stackTop := img.StackTop
	if stackTop == 0 {
		stackTop = DefaultStackTop
	}
	stackSize := img.StackSize
	if stackSize == 0 {
		stackSize = DefaultStackSize
	}
	if err := ms.InsertStackArea(stackTop, stackSize); err != nil {
		return nil, 0, errors.NewProcessError("failed to map user stack", err).
			WithContext("image", img.Name)
	}
	return ms, stackTop, nil
}

// Validate checks the image shape before registration.
func (img *ProgramImage) Validate() error {
	if img.Name == "" {
		return errors.NewValidationError("image name cannot be empty", nil)
	}
	if len(img.Segments) == 0 {
		return errors.NewValidationError("image has no segments", nil).WithContext("image", img.Name)
	}
	for _, seg := range img.Segments {
		if seg.Size != 0 && seg.Size < uint64(len(seg.Data)) {
			return errors.NewValidationError("segment size smaller than payload", nil).
				WithContext("image", img.Name).
				WithContext("start", uint64(seg.Start))
		}
	}
	return nil
}
