// Package snapshot frames the shape and contents of an indexer's memory
// into a checksummed blob, optionally zstd-compressed, and restores it.
//
// Frame layout (little-endian):
//
//	magic   uint32  "IDX1"
//	version uint16
//	flags   uint16
//	width   byte    element width in bytes
//	rank    varint
//	sizes   varint * rank
//	strides zig-zag varint * rank
//	rawLen  varint  uncompressed payload length
//	dataLen varint
//	data    [dataLen]byte
//	crc     uint32  IEEE, over every byte before it
//
// Element data is stored little-endian whatever the host order, and
// Restore reads it back through raw.LittleEndian.
package snapshot

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/rawbytedev/indexer"
	"github.com/rawbytedev/indexer/internal/common"
	"github.com/rawbytedev/indexer/raw"
)

const (
	MagicV1   = 0x31584449 // "IDX1"
	VersionV1 = 1

	FlagZstd = 0x0001

	fixedHeaderSize = 9
	crcSize         = 4
	maxPrealloc     = 1 << 26
)

var (
	ErrBadMagic           = errors.New("snapshot: bad magic")
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	ErrChecksum           = errors.New("snapshot: checksum mismatch")
	ErrTruncated          = errors.New("snapshot: truncated frame")
	ErrBadWidth           = errors.New("snapshot: bad element width")
	ErrTooLarge           = errors.New("snapshot: payload too large")
	ErrTrailingData       = errors.New("snapshot: bytes after payload")
)

// MaxDataLen caps the uncompressed payload Decode accepts.
var MaxDataLen uint64 = 1 << 32

// Options controls encoding.
type Options struct {
	// Zstd compresses the payload.
	Zstd bool
	// Level is the zstd encoder level; zero selects SpeedDefault.
	Level zstd.EncoderLevel
}

// Snapshot is a decoded frame.
type Snapshot struct {
	Version uint16
	Flags   uint16
	Width   int64
	Shape   indexer.Shape
	Data    []byte
}

// Encode snapshots the elements x views, from its pointer's position to its limit.
func Encode[T indexer.Element](x *indexer.RawIndexer[T], opts Options) ([]byte, error) {
	p := x.Pointer()
	if p == nil {
		return nil, errors.Wrap(indexer.ErrUseAfterRelease, "snapshot")
	}
	return EncodePointer(p, x.Shape(), opts)
}

// EncodePointer snapshots [Position, Limit) of p together with shape.
func EncodePointer(p indexer.Pointer, shape indexer.Shape, opts Options) ([]byte, error) {
	width := p.ElemSize()
	if width <= 0 || width > 0xFF {
		return nil, errors.Wrapf(ErrBadWidth, "width %d", width)
	}
	n := (p.Limit() - p.Position()) * width
	var data []byte
	if base := p.Address(); base != nil && n > 0 {
		data = raw.ToLittleEndian(nil, common.Bytes(common.Add(base, p.Position()*width), int(n)), width)
	}

	flags := uint16(0)
	payload := data
	if opts.Zstd {
		level := opts.Level
		if level == 0 {
			level = zstd.SpeedDefault
		}
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd encoder")
		}
		payload = enc.EncodeAll(data, nil)
		enc.Close()
		flags |= FlagZstd
	}

	sizes, strides := shape.Sizes(), shape.Strides()
	buf := make([]byte, fixedHeaderSize, fixedHeaderSize+len(payload)+10*(2*len(sizes)+3)+crcSize)
	binary.LittleEndian.PutUint32(buf[0:], MagicV1)
	binary.LittleEndian.PutUint16(buf[4:], VersionV1)
	binary.LittleEndian.PutUint16(buf[6:], flags)
	buf[8] = byte(width)
	buf = common.WriteVarUintTo(buf, uint64(len(sizes)))
	for _, s := range sizes {
		buf = common.WriteVarUintTo(buf, uint64(s))
	}
	for _, s := range strides {
		buf = common.WriteVarIntTo(buf, s)
	}
	buf = common.WriteVarUintTo(buf, uint64(len(data)))
	buf = common.WriteVarUintTo(buf, uint64(len(payload)))
	buf = append(buf, payload...)
	return binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf)), nil
}

// Decode parses and verifies a frame. Data never aliases frame.
func Decode(frame []byte) (*Snapshot, error) {
	if len(frame) < fixedHeaderSize+crcSize {
		return nil, ErrTruncated
	}
	if binary.LittleEndian.Uint32(frame[0:]) != MagicV1 {
		return nil, ErrBadMagic
	}
	body := frame[:len(frame)-crcSize]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(frame[len(body):]) {
		return nil, ErrChecksum
	}
	s := &Snapshot{
		Version: binary.LittleEndian.Uint16(frame[4:]),
		Flags:   binary.LittleEndian.Uint16(frame[6:]),
		Width:   int64(frame[8]),
	}
	if s.Version != VersionV1 {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", s.Version)
	}
	if s.Width == 0 {
		return nil, ErrBadWidth
	}

	r := reader{b: body, pos: fixedHeaderSize}
	rank := r.uvarint()
	if rank > uint64(len(body)) {
		return nil, ErrTruncated
	}
	sizes := make([]int64, rank)
	for i := range sizes {
		sizes[i] = int64(r.uvarint())
	}
	strides := make([]int64, rank)
	for i := range strides {
		strides[i] = r.varint()
	}
	rawLen := r.uvarint()
	payload := r.bytes(r.uvarint())
	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(body) {
		return nil, errors.Wrapf(ErrTrailingData, "%d bytes", len(body)-r.pos)
	}
	if rawLen > MaxDataLen {
		return nil, errors.Wrapf(ErrTooLarge, "%d bytes, limit %d", rawLen, MaxDataLen)
	}
	shape, err := indexer.NewShape(sizes, strides)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot shape")
	}
	s.Shape = shape

	if s.Flags&FlagZstd != 0 {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(max(rawLen, 1)))
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd decoder")
		}
		defer dec.Close()
		s.Data, err = dec.DecodeAll(payload, make([]byte, 0, min(rawLen, maxPrealloc)))
		if err != nil {
			return nil, errors.Wrap(err, "decompressing payload")
		}
	} else {
		if uint64(len(payload)) != rawLen {
			return nil, errors.Wrapf(ErrTruncated, "payload %d bytes, header says %d", len(payload), rawLen)
		}
		s.Data = append([]byte(nil), payload...)
	}
	if uint64(len(s.Data)) != rawLen {
		return nil, errors.Wrapf(ErrTruncated, "payload %d bytes, header says %d", len(s.Data), rawLen)
	}
	return s, nil
}

// Memory returns the snapshot data as indexer memory.
func (s *Snapshot) Memory() (*indexer.Memory, error) {
	return indexer.NewMemoryWidth(s.Data, s.Width)
}

// Restore builds an indexer of T over the snapshot's data with its shape,
// reading elements in the frame's little-endian order.
func Restore[T indexer.Element](s *Snapshot) (*indexer.RawIndexer[T], error) {
	mem, err := s.Memory()
	if err != nil {
		return nil, err
	}
	return indexer.NewWithAccessor[T](mem, s.Shape.Sizes(), s.Shape.Strides(), raw.LittleEndian[T]{})
}

type reader struct {
	b   []byte
	pos int
	err error
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := common.ReadVarUint(r.b[r.pos:])
	if n == 0 {
		r.err = ErrTruncated
		return 0
	}
	r.pos += n
	return v
}

func (r *reader) varint() int64 {
	if r.err != nil {
		return 0
	}
	v, n := common.ReadVarInt(r.b[r.pos:])
	if n == 0 {
		r.err = ErrTruncated
		return 0
	}
	r.pos += n
	return v
}

func (r *reader) bytes(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.b)-r.pos) {
		r.err = ErrTruncated
		return nil
	}
	out := r.b[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out
}
