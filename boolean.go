package indexer

// BooleanRawIndexer reads and writes one-byte booleans; any non-zero byte
// reads as true.
type BooleanRawIndexer = RawIndexer[bool]

type (
	ByteRawIndexer   = RawIndexer[int8]
	UByteRawIndexer  = RawIndexer[uint8]
	ShortRawIndexer  = RawIndexer[int16]
	UShortRawIndexer = RawIndexer[uint16]
	IntRawIndexer    = RawIndexer[int32]
	UIntRawIndexer   = RawIndexer[uint32]
	LongRawIndexer   = RawIndexer[int64]
	ULongRawIndexer  = RawIndexer[uint64]
	FloatRawIndexer  = RawIndexer[float32]
	DoubleRawIndexer = RawIndexer[float64]
)

// NewBooleanRawIndexer views all of p as a one-dimensional boolean array.
func NewBooleanRawIndexer(p Pointer) (*BooleanRawIndexer, error) {
	return New[bool](p)
}

// NewBooleanRawIndexerSizes views p with the given sizes and row-major strides.
func NewBooleanRawIndexerSizes(p Pointer, sizes ...int64) (*BooleanRawIndexer, error) {
	return NewWithSizes[bool](p, sizes...)
}

// NewBooleanRawIndexerStrides views p with explicit sizes and strides.
func NewBooleanRawIndexerStrides(p Pointer, sizes, strides []int64) (*BooleanRawIndexer, error) {
	return NewWithStrides[bool](p, sizes, strides)
}
