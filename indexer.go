// Package indexer provides strided, multi-dimensional views over raw memory.
//
// A RawIndexer maps index tuples onto a flat element range starting at a
// base address. Only the final composed flat index is checked against the
// element bound; the per-dimension components are not validated on their
// own, so a negative or oversized component is accepted as long as the
// composed offset lands inside the view.
//
// The indexer never owns the memory it reads. It holds the Pointer it was
// built from until Release, after which every access fails with
// ErrUseAfterRelease. There is no internal synchronization.
package indexer

import (
	"fmt"
	"unsafe"

	"github.com/rawbytedev/indexer/internal/common"
	"github.com/rawbytedev/indexer/raw"
)

// Element is the set of scalar types an indexer can be instantiated for.
type Element = raw.Element

// RawIndexer is a strided view of T values over a Pointer.
type RawIndexer[T Element] struct {
	shape   Shape
	acc     raw.Accessor[T]
	pointer Pointer
	width   int64
	base    unsafe.Pointer // address of element Position()
	size    int64          // Limit() - Position()
}

// New returns a one-dimensional indexer spanning [Position, Limit) of p.
func New[T Element](p Pointer) (*RawIndexer[T], error) {
	if p == nil {
		return nil, ErrNilPointer
	}
	return NewWithStrides[T](p, []int64{p.Limit() - p.Position()}, oneStride)
}

// NewWithSizes returns an indexer with row-major strides derived from sizes.
func NewWithSizes[T Element](p Pointer, sizes ...int64) (*RawIndexer[T], error) {
	return NewWithStrides[T](p, sizes, Strides(sizes))
}

// NewWithStrides returns an indexer with explicit sizes and strides.
func NewWithStrides[T Element](p Pointer, sizes, strides []int64) (*RawIndexer[T], error) {
	return NewWithAccessor[T](p, sizes, strides, raw.Default[T]())
}

// NewWithAccessor is NewWithStrides with a caller-chosen scalar accessor.
// A nil strides slice selects the row-major default.
func NewWithAccessor[T Element](p Pointer, sizes, strides []int64, acc raw.Accessor[T]) (*RawIndexer[T], error) {
	if p == nil {
		return nil, ErrNilPointer
	}
	width := raw.ElemSize[T]()
	if p.ElemSize() != width {
		return nil, fmt.Errorf("pointer width %d, element width %d: %w", p.ElemSize(), width, ErrElemSize)
	}
	shape, err := NewShape(sizes, strides)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = raw.Default[T]()
	}
	size := p.Limit() - p.Position()
	base := p.Address()
	if base != nil && size > 0 {
		base = common.Add(base, p.Position()*width)
	}
	return &RawIndexer[T]{
		shape:   shape,
		acc:     acc,
		pointer: p,
		width:   width,
		base:    base,
		size:    size,
	}, nil
}

// Pointer returns the memory reference the indexer reads, or nil after Release.
func (x *RawIndexer[T]) Pointer() Pointer { return x.pointer }

// Release drops the reference to the memory. The memory itself is left to
// its owner.
func (x *RawIndexer[T]) Release() {
	x.pointer = nil
	x.base = nil
}

// Shape returns the sizes and strides the indexer was built with.
func (x *RawIndexer[T]) Shape() Shape { return x.shape }

// Rank returns the number of dimensions.
func (x *RawIndexer[T]) Rank() int { return x.shape.Rank() }

// Sizes and Strides return copies of the shape's slices.
func (x *RawIndexer[T]) Sizes() []int64   { return x.shape.Sizes() }
func (x *RawIndexer[T]) Strides() []int64 { return x.shape.Strides() }

// Size returns the number of addressable elements.
func (x *RawIndexer[T]) Size() int64 { return x.size }

// Rows, Cols and Channels return the first three extents, or -1.
func (x *RawIndexer[T]) Rows() int64     { return x.shape.Size(0) }
func (x *RawIndexer[T]) Cols() int64     { return x.shape.Size(1) }
func (x *RawIndexer[T]) Channels() int64 { return x.shape.Size(2) }

// Index composes indices with the strides. See Shape.Index.
func (x *RawIndexer[T]) Index(indices ...int64) (int64, error) {
	return x.shape.Index(indices...)
}

// check validates that flat elements [i, i+n) are addressable. It runs
// before every load and store.
func (x *RawIndexer[T]) check(method string, i, n int64) error {
	if x.pointer == nil {
		return fmt.Errorf("RawIndexer.%s: %w", method, ErrUseAfterRelease)
	}
	if i < 0 || i >= x.size || n > x.size-i {
		return indexErrorf(method, i, x.size, ErrIndexOutOfBounds)
	}
	return nil
}

func (x *RawIndexer[T]) addr(i int64) unsafe.Pointer {
	return common.Add(x.base, i*x.width)
}

// need fails with ErrShapeMismatch when a method composing with the first
// rank strides is called on a view of lower rank.
func (x *RawIndexer[T]) need(method string, rank int) error {
	if x.shape.Rank() < rank {
		return fmt.Errorf("RawIndexer.%s needs rank %d, view has %d: %w", method, rank, x.shape.Rank(), ErrShapeMismatch)
	}
	return nil
}

// Get reads the element at flat index i.
func (x *RawIndexer[T]) Get(i int64) (T, error) {
	if err := x.check("Get", i, 1); err != nil {
		var zero T
		return zero, err
	}
	return x.acc.Load(x.addr(i)), nil
}

// Get2 reads the element at i*strides[0] + j.
func (x *RawIndexer[T]) Get2(i, j int64) (T, error) {
	if err := x.need("Get2", 1); err != nil {
		var zero T
		return zero, err
	}
	return x.Get(i*x.shape.strides[0] + j)
}

// Get3 reads the element at i*strides[0] + j*strides[1] + k.
func (x *RawIndexer[T]) Get3(i, j, k int64) (T, error) {
	if err := x.need("Get3", 2); err != nil {
		var zero T
		return zero, err
	}
	return x.Get(i*x.shape.strides[0] + j*x.shape.strides[1] + k)
}

// GetIndices reads the element at Index(indices...).
func (x *RawIndexer[T]) GetIndices(indices []int64) (T, error) {
	index, err := x.Index(indices...)
	if err != nil {
		var zero T
		return zero, err
	}
	return x.Get(index)
}

// GetBulk copies length consecutive elements starting at row i into
// b[offset:offset+length]. It is equivalent to length calls of Get with the
// flat index advanced by one each time.
func (x *RawIndexer[T]) GetBulk(i int64, b []T, offset, length int) error {
	if err := x.need("GetBulk", 1); err != nil {
		return err
	}
	return x.getRange("GetBulk", i*x.shape.strides[0], b, offset, length)
}

// GetBulk2 is GetBulk starting at (i, j).
func (x *RawIndexer[T]) GetBulk2(i, j int64, b []T, offset, length int) error {
	if err := x.need("GetBulk2", 2); err != nil {
		return err
	}
	return x.getRange("GetBulk2", i*x.shape.strides[0]+j*x.shape.strides[1], b, offset, length)
}

// GetBulkIndices is GetBulk starting at Index(indices...).
func (x *RawIndexer[T]) GetBulkIndices(indices []int64, b []T, offset, length int) error {
	index, err := x.Index(indices...)
	if err != nil {
		return err
	}
	return x.getRange("GetBulkIndices", index, b, offset, length)
}

// Put writes v at flat index i.
func (x *RawIndexer[T]) Put(i int64, v T) error {
	if err := x.check("Put", i, 1); err != nil {
		return err
	}
	x.acc.Store(x.addr(i), v)
	return nil
}

// Put2 writes v at i*strides[0] + j.
func (x *RawIndexer[T]) Put2(i, j int64, v T) error {
	if err := x.need("Put2", 1); err != nil {
		return err
	}
	return x.Put(i*x.shape.strides[0]+j, v)
}

// Put3 writes v at i*strides[0] + j*strides[1] + k.
func (x *RawIndexer[T]) Put3(i, j, k int64, v T) error {
	if err := x.need("Put3", 2); err != nil {
		return err
	}
	return x.Put(i*x.shape.strides[0]+j*x.shape.strides[1]+k, v)
}

// PutIndices writes v at Index(indices...).
func (x *RawIndexer[T]) PutIndices(indices []int64, v T) error {
	index, err := x.Index(indices...)
	if err != nil {
		return err
	}
	return x.Put(index, v)
}

// PutBulk writes b[offset:offset+length] to consecutive elements starting
// at row i. Nothing is written if any target element is out of bounds.
func (x *RawIndexer[T]) PutBulk(i int64, b []T, offset, length int) error {
	if err := x.need("PutBulk", 1); err != nil {
		return err
	}
	return x.putRange("PutBulk", i*x.shape.strides[0], b, offset, length)
}

// PutBulk2 is PutBulk starting at (i, j).
func (x *RawIndexer[T]) PutBulk2(i, j int64, b []T, offset, length int) error {
	if err := x.need("PutBulk2", 2); err != nil {
		return err
	}
	return x.putRange("PutBulk2", i*x.shape.strides[0]+j*x.shape.strides[1], b, offset, length)
}

// PutBulkIndices is PutBulk starting at Index(indices...).
func (x *RawIndexer[T]) PutBulkIndices(indices []int64, b []T, offset, length int) error {
	index, err := x.Index(indices...)
	if err != nil {
		return err
	}
	return x.putRange("PutBulkIndices", index, b, offset, length)
}

func (x *RawIndexer[T]) window(method string, start int64, b []T, offset, length int) error {
	if offset < 0 || length < 0 || offset > len(b)-length {
		return fmt.Errorf("RawIndexer.%s offset=%d length=%d len=%d: %w", method, offset, length, len(b), ErrBufferRange)
	}
	if length == 0 {
		if x.pointer == nil {
			return fmt.Errorf("RawIndexer.%s: %w", method, ErrUseAfterRelease)
		}
		return nil
	}
	return x.check(method, start, int64(length))
}

func (x *RawIndexer[T]) getRange(method string, start int64, b []T, offset, length int) error {
	if err := x.window(method, start, b, offset, length); err != nil {
		return err
	}
	for n := 0; n < length; n++ {
		b[offset+n] = x.acc.Load(x.addr(start + int64(n)))
	}
	return nil
}

func (x *RawIndexer[T]) putRange(method string, start int64, b []T, offset, length int) error {
	if err := x.window(method, start, b, offset, length); err != nil {
		return err
	}
	for n := 0; n < length; n++ {
		x.acc.Store(x.addr(start+int64(n)), b[offset+n])
	}
	return nil
}

func (x *RawIndexer[T]) String() string {
	return fmt.Sprintf("RawIndexer[%s] size=%d %s", x.typeName(), x.size, x.shape)
}

func (x *RawIndexer[T]) typeName() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}
