package indexer

import (
	"fmt"
	"strings"
)

// oneStride is the stride set of the implicit single-dimension view.
var oneStride = []int64{1}

// Strides returns row-major strides for sizes: the last dimension has
// stride 1 and every other dimension the product of the sizes after it.
// An empty shape yields an empty stride slice.
func Strides(sizes []int64) []int64 {
	strides := make([]int64, len(sizes))
	if len(sizes) == 0 {
		return strides
	}
	strides[len(sizes)-1] = 1
	for i := len(sizes) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * sizes[i+1]
	}
	return strides
}

// Shape is an immutable sizes/strides pair.
type Shape struct {
	sizes   []int64
	strides []int64
}

// NewShape copies sizes and strides into a Shape. A nil strides slice
// selects the row-major default.
func NewShape(sizes, strides []int64) (Shape, error) {
	for d, n := range sizes {
		if n < 0 {
			return Shape{}, fmt.Errorf("size[%d]=%d: %w", d, n, ErrBadShape)
		}
	}
	if strides == nil {
		strides = Strides(sizes)
	}
	if len(sizes) != len(strides) {
		return Shape{}, fmt.Errorf("%d sizes, %d strides: %w", len(sizes), len(strides), ErrShapeMismatch)
	}
	return Shape{sizes: clone(sizes), strides: clone(strides)}, nil
}

func clone(s []int64) []int64 {
	out := make([]int64, len(s))
	copy(out, s)
	return out
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s.sizes) }

// Sizes returns a copy of the per-dimension extents.
func (s Shape) Sizes() []int64 { return clone(s.sizes) }

// Strides returns a copy of the per-dimension element strides.
func (s Shape) Strides() []int64 { return clone(s.strides) }

// Size returns the extent of dimension d, or -1 past the rank.
func (s Shape) Size(d int) int64 {
	if d < 0 || d >= len(s.sizes) {
		return -1
	}
	return s.sizes[d]
}

// Stride returns the stride of dimension d. ok is false past the rank,
// where no stride exists; any int64, -1 included, is a valid stride.
func (s Shape) Stride(d int) (stride int64, ok bool) {
	if d < 0 || d >= len(s.strides) {
		return 0, false
	}
	return s.strides[d], true
}

// Len returns the number of logical elements, the product of the sizes.
func (s Shape) Len() int64 {
	n := int64(1)
	for _, v := range s.sizes {
		n *= v
	}
	return n
}

// Index composes indices into a flat element offset. Components are not
// range checked on their own; only the caller's final check against the
// element bound applies, so components may cancel each other out.
func (s Shape) Index(indices ...int64) (int64, error) {
	if len(indices) > len(s.strides) {
		return 0, fmt.Errorf("%d indices for rank %d: %w", len(indices), len(s.strides), ErrShapeMismatch)
	}
	var index int64
	for d, i := range indices {
		index += i * s.strides[d]
	}
	return index, nil
}

func (s Shape) String() string {
	var b strings.Builder
	b.WriteString("sizes=")
	writeInts(&b, s.sizes)
	b.WriteString(" strides=")
	writeInts(&b, s.strides)
	return b.String()
}

func writeInts(b *strings.Builder, v []int64) {
	b.WriteByte('[')
	for i, n := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "%d", n)
	}
	b.WriteByte(']')
}
