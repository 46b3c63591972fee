// Package raw holds the scalar load/store primitives the indexers are built on.
//
// Nothing in this package checks addresses: callers are responsible for
// pointing p at ElemSize valid bytes before calling Load or Store.
package raw

import (
	"encoding/binary"
	"reflect"
	"slices"
	"unsafe"

	"github.com/rawbytedev/indexer/internal/common"
)

// Element lists the fixed-width scalar types an accessor can move.
type Element interface {
	~bool |
		~int8 | ~uint8 | ~int16 | ~uint16 |
		~int32 | ~uint32 | ~int64 | ~uint64 |
		~float32 | ~float64
}

// Accessor reads and writes one T at an absolute address.
type Accessor[T Element] interface {
	Load(p unsafe.Pointer) T
	Store(p unsafe.Pointer, v T)
}

// ElemSize returns the byte width of T.
func ElemSize[T Element]() int64 {
	return int64(common.SizeOf[T]())
}

// Default returns the accessor the indexers use when none is given:
// Bool for boolean kinds, Native for everything else.
func Default[T Element]() Accessor[T] {
	if reflect.TypeFor[T]().Kind() == reflect.Bool {
		return Bool[T]{}
	}
	return Native[T]{}
}

// Bool treats any non-zero byte as true and stores 0 or 1.
// It never materialises a bool from a byte other than 0 or 1.
type Bool[T Element] struct{}

func (Bool[T]) Load(p unsafe.Pointer) T {
	b := *(*byte)(p) != 0
	return *(*T)(unsafe.Pointer(&b))
}

func (Bool[T]) Store(p unsafe.Pointer, v T) {
	if *(*bool)(unsafe.Pointer(&v)) {
		*(*byte)(p) = 1
	} else {
		*(*byte)(p) = 0
	}
}

// Native loads and stores in host byte order. Unaligned addresses are
// tolerated on the 64-bit little-endian targets Go supports.
type Native[T Element] struct{}

func (Native[T]) Load(p unsafe.Pointer) T     { return *(*T)(p) }
func (Native[T]) Store(p unsafe.Pointer, v T) { *(*T)(p) = v }

// LittleEndian moves values in little-endian byte order regardless of the
// host, for memory shared through files or snapshots.
type LittleEndian[T Element] struct{}

func (LittleEndian[T]) Load(p unsafe.Pointer) T {
	var v T
	switch unsafe.Sizeof(v) {
	case 1:
		if reflect.TypeFor[T]().Kind() == reflect.Bool {
			return Bool[T]{}.Load(p)
		}
		x := *(*uint8)(p)
		v = *(*T)(unsafe.Pointer(&x))
	case 2:
		x := binary.LittleEndian.Uint16(common.Bytes(p, 2))
		v = *(*T)(unsafe.Pointer(&x))
	case 4:
		x := binary.LittleEndian.Uint32(common.Bytes(p, 4))
		v = *(*T)(unsafe.Pointer(&x))
	case 8:
		x := binary.LittleEndian.Uint64(common.Bytes(p, 8))
		v = *(*T)(unsafe.Pointer(&x))
	}
	return v
}

func (LittleEndian[T]) Store(p unsafe.Pointer, v T) {
	switch unsafe.Sizeof(v) {
	case 1:
		if reflect.TypeFor[T]().Kind() == reflect.Bool {
			Bool[T]{}.Store(p, v)
			return
		}
		*(*uint8)(p) = *(*uint8)(unsafe.Pointer(&v))
	case 2:
		binary.LittleEndian.PutUint16(common.Bytes(p, 2), *(*uint16)(unsafe.Pointer(&v)))
	case 4:
		binary.LittleEndian.PutUint32(common.Bytes(p, 4), *(*uint32)(unsafe.Pointer(&v)))
	case 8:
		binary.LittleEndian.PutUint64(common.Bytes(p, 8), *(*uint64)(unsafe.Pointer(&v)))
	}
}

// hostLittle reports whether the host stores integers little-endian.
var hostLittle = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// ToLittleEndian appends src to dst with every width-byte element in
// little-endian order. On little-endian hosts it is a plain copy.
func ToLittleEndian(dst, src []byte, width int64) []byte {
	n := len(dst)
	dst = append(dst, src...)
	if hostLittle || width <= 1 {
		return dst
	}
	out := dst[n:]
	w := int(width)
	for i := 0; i+w <= len(out); i += w {
		slices.Reverse(out[i : i+w])
	}
	return dst
}
