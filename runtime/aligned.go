package runtime

// This file defines AlignedBuffer, host memory aligned for back-ends that require it, modelled after mm_malloc.

import (
	"unsafe"

	"github.com/gomlx/exceptions"
)

// BufferAlignment is the default alignment of host memory shared with back-ends.
const BufferAlignment = 64

// AlignedBuffer is a block of host memory whose first byte is aligned.
//
// It over-allocates a Go slice and slices it at the first aligned address. The Go garbage collector
// doesn't move heap allocations, so the alignment holds for the lifetime of the buffer.
type AlignedBuffer struct {
	allocated []byte
	data      []byte
	alignment uintptr
}

// NewAlignedBuffer allocates size bytes (at least 1) aligned to alignment, which must be a power of 2.
// The memory is filled with 0s.
func NewAlignedBuffer(size, alignment uintptr) *AlignedBuffer {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		exceptions.Panicf("NewAlignedBuffer: alignment must be a power of 2, got %d", alignment)
	}
	size = max(size, 1)
	allocated := make([]byte, size+alignment)
	offset := uintptr(unsafe.Pointer(unsafe.SliceData(allocated))) % alignment
	if offset != 0 {
		offset = alignment - offset
	}
	return &AlignedBuffer{
		allocated: allocated,
		data:      allocated[offset : offset+size : offset+size],
		alignment: alignment,
	}
}

// Bytes returns the aligned memory. It is shared with the buffer.
func (b *AlignedBuffer) Bytes() []byte { return b.data }

// Size in bytes of the aligned memory.
func (b *AlignedBuffer) Size() int { return len(b.data) }

// Alignment the buffer was created with.
func (b *AlignedBuffer) Alignment() uintptr { return b.alignment }

// Pointer to the first (aligned) byte.
func (b *AlignedBuffer) Pointer() unsafe.Pointer { return unsafe.Pointer(unsafe.SliceData(b.data)) }
