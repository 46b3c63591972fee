// Package common holds the unsafe and varint helpers shared by the indexer
// packages.
package common

import (
	"reflect"
	"unsafe"
)

// FixedSize returns the byte width for fixed-size primitive kinds.
func FixedSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}

// SizeOf returns the byte width of T, or -1 when T is not a fixed-size primitive.
func SizeOf[T any]() int {
	return FixedSize(reflect.TypeFor[T]().Kind())
}

// Add returns base advanced by off bytes.
func Add(base unsafe.Pointer, off int64) unsafe.Pointer {
	return unsafe.Add(base, off)
}

// Bytes aliases n bytes starting at base without copying.
func Bytes(base unsafe.Pointer, n int) []byte {
	if base == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(base), n)
}

// WriteVarUintTo appends varint-encoded x to dst using a small stack scratch.
func WriteVarUintTo(dst []byte, x uint64) []byte {
	var scratch [10]byte
	i := 0
	for x >= 0x80 {
		scratch[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	scratch[i] = byte(x)
	i++
	return append(dst, scratch[:i]...)
}

// WriteVarIntTo appends the zig-zag varint encoding of x to dst.
func WriteVarIntTo(dst []byte, x int64) []byte {
	return WriteVarUintTo(dst, uint64(x<<1)^uint64(x>>63))
}

// ReadVarUint decodes a varint from b returning value and bytes consumed.
// A zero byte count means b ended before the varint did.
func ReadVarUint(b []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, c := range b {
		if i == 10 {
			return 0, 0
		}
		x |= uint64(c&0x7F) << s
		if c&0x80 == 0 {
			return x, i + 1
		}
		s += 7
	}
	return 0, 0
}

// ReadVarInt decodes a zig-zag varint written by WriteVarIntTo.
func ReadVarInt(b []byte) (int64, int) {
	u, n := ReadVarUint(b)
	return int64(u>>1) ^ -int64(u&1), n
}
