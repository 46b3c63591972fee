package indexer

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfBounds is returned when a composed flat index falls outside [0, size).
	ErrIndexOutOfBounds = errors.New("indexer: index out of bounds")

	// ErrUseAfterRelease is returned by any access made after Release.
	ErrUseAfterRelease = errors.New("indexer: use after release")

	// ErrShapeMismatch is returned when sizes and strides differ in length,
	// or when a call supplies more indices than the shape has dimensions.
	ErrShapeMismatch = errors.New("indexer: shape mismatch")

	// ErrBadShape is returned for a negative dimension size.
	ErrBadShape = errors.New("indexer: negative dimension size")

	// ErrBufferRange is returned when a bulk offset/length pair does not fit
	// the caller's slice.
	ErrBufferRange = errors.New("indexer: offset/length outside buffer")

	// ErrNilPointer is returned when an indexer is built on a nil Pointer.
	ErrNilPointer = errors.New("indexer: nil pointer")

	// ErrElemSize is returned when a Pointer's element width differs from T's.
	ErrElemSize = errors.New("indexer: pointer element width does not match indexer")

	// ErrBadPosition is returned for a Memory window outside its slice.
	ErrBadPosition = errors.New("indexer: position/limit outside memory")
)

// indexErrorf wraps err with the method name and the offending flat index.
func indexErrorf(method string, i, size int64, err error) error {
	return fmt.Errorf("RawIndexer.%s(%d) size=%d: %w", method, i, size, err)
}
