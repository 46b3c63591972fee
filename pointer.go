package indexer

import (
	"fmt"
	"unsafe"

	"github.com/rawbytedev/indexer/raw"
)

// Pointer is a non-owning reference to externally managed memory.
// Position and Limit are counted in elements of ElemSize bytes from
// Address; the indexer views [Position, Limit).
type Pointer interface {
	Address() unsafe.Pointer
	Position() int64
	Limit() int64
	ElemSize() int64
}

// Memory is a Pointer over a caller-owned byte slice. It keeps the slice
// reachable but never frees or grows it.
type Memory struct {
	data     []byte
	width    int64
	position int64
	limit    int64
}

// NewMemory views buf as one-byte elements, covering all of it.
func NewMemory(buf []byte) *Memory {
	m, _ := NewMemoryWidth(buf, 1)
	return m
}

// NewMemoryWidth views buf as elements of width bytes. Trailing bytes that
// do not fill a whole element are outside the limit.
func NewMemoryWidth(buf []byte, width int64) (*Memory, error) {
	if width <= 0 {
		return nil, fmt.Errorf("element width %d: %w", width, ErrBadPosition)
	}
	return &Memory{data: buf, width: width, limit: int64(len(buf)) / width}, nil
}

// NewSliceMemory aliases a typed slice as Memory without copying.
func NewSliceMemory[T raw.Element](s []T) *Memory {
	width := raw.ElemSize[T]()
	var buf []byte
	if len(s) > 0 {
		buf = unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), int64(len(s))*width)
	}
	return &Memory{data: buf, width: width, limit: int64(len(s))}
}

// Address returns the start of the backing slice, or nil when it is empty.
func (m *Memory) Address() unsafe.Pointer {
	if len(m.data) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(m.data))
}

// Position and Limit bound the window, in elements.
func (m *Memory) Position() int64 { return m.position }
func (m *Memory) Limit() int64    { return m.limit }

// ElemSize returns the element width in bytes.
func (m *Memory) ElemSize() int64 { return m.width }

// Capacity returns how many whole elements the backing slice holds.
func (m *Memory) Capacity() int64 { return int64(len(m.data)) / m.width }

// SetPosition moves the start of the window. It must not pass the limit.
func (m *Memory) SetPosition(n int64) error {
	if n < 0 || n > m.limit {
		return fmt.Errorf("position %d with limit %d: %w", n, m.limit, ErrBadPosition)
	}
	m.position = n
	return nil
}

// SetLimit moves the end of the window, between position and capacity.
func (m *Memory) SetLimit(n int64) error {
	if n < m.position || n > m.Capacity() {
		return fmt.Errorf("limit %d with position %d capacity %d: %w", n, m.position, m.Capacity(), ErrBadPosition)
	}
	m.limit = n
	return nil
}
