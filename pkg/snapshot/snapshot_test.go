package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/indexer"
	"github.com/rawbytedev/indexer/internal/common"
)

func grid(t *testing.T) (*indexer.BooleanRawIndexer, []byte) {
	buf := make([]byte, 12)
	x, err := indexer.NewBooleanRawIndexerSizes(indexer.NewMemory(buf), 3, 4)
	require.NoError(t, err)
	require.NoError(t, x.Put2(0, 1, true))
	require.NoError(t, x.Put2(2, 3, true))
	return x, buf
}

func TestRoundTrip(t *testing.T) {
	for _, opts := range []Options{{}, {Zstd: true}} {
		x, buf := grid(t)
		frame, err := Encode(x, opts)
		require.NoError(t, err)

		s, err := Decode(frame)
		require.NoError(t, err)
		require.Equal(t, uint16(VersionV1), s.Version)
		require.Equal(t, opts.Zstd, s.Flags&FlagZstd != 0)
		require.Equal(t, int64(1), s.Width)
		require.Equal(t, []int64{3, 4}, s.Shape.Sizes())
		require.Equal(t, []int64{4, 1}, s.Shape.Strides())
		require.Equal(t, buf, s.Data)

		y, err := Restore[bool](s)
		require.NoError(t, err)
		v, err := y.Get2(2, 3)
		require.NoError(t, err)
		require.True(t, v)

		// the restored data is a copy
		require.NoError(t, y.Put2(1, 1, true))
		require.Equal(t, byte(0), buf[5])
	}
}

func TestNegativeStrides(t *testing.T) {
	data := []int16{1, 2, 3, 4}
	x, err := indexer.NewWithStrides[int16](indexer.NewSliceMemory(data), []int64{2, 2}, []int64{-2, 1})
	require.NoError(t, err)
	frame, err := Encode(x, Options{Zstd: true})
	require.NoError(t, err)

	s, err := Decode(frame)
	require.NoError(t, err)
	require.Equal(t, int64(2), s.Width)
	require.Equal(t, []int64{-2, 1}, s.Shape.Strides())
	y, err := Restore[int16](s)
	require.NoError(t, err)
	v, err := y.Get(3)
	require.NoError(t, err)
	require.Equal(t, int16(4), v)
}

func TestWindowOnly(t *testing.T) {
	buf := []byte{9, 1, 0, 1, 9}
	mem := indexer.NewMemory(buf)
	require.NoError(t, mem.SetLimit(4))
	require.NoError(t, mem.SetPosition(1))
	x, err := indexer.NewBooleanRawIndexer(mem)
	require.NoError(t, err)
	frame, err := Encode(x, Options{})
	require.NoError(t, err)
	s, err := Decode(frame)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 1}, s.Data)
}

func TestCorruption(t *testing.T) {
	x, _ := grid(t)
	frame, err := Encode(x, Options{})
	require.NoError(t, err)

	bad := bytes.Clone(frame)
	bad[len(bad)-6] ^= 0xFF
	_, err = Decode(bad)
	require.ErrorIs(t, err, ErrChecksum)

	bad = bytes.Clone(frame)
	bad[0] = 'X'
	_, err = Decode(bad)
	require.ErrorIs(t, err, ErrBadMagic)

	_, err = Decode(frame[:5])
	require.ErrorIs(t, err, ErrTruncated)
}

func TestEncodeReleased(t *testing.T) {
	x, _ := grid(t)
	x.Release()
	_, err := Encode(x, Options{})
	require.ErrorIs(t, err, indexer.ErrUseAfterRelease)
}

func TestRestoreWrongType(t *testing.T) {
	x, _ := grid(t)
	frame, err := Encode(x, Options{})
	require.NoError(t, err)
	s, err := Decode(frame)
	require.NoError(t, err)
	_, err = Restore[uint32](s)
	require.ErrorIs(t, err, indexer.ErrElemSize)
}

// buildFrame assembles a one-dimensional width-1 frame by hand, with extra
// bytes between the payload and the checksum.
func buildFrame(flags uint16, rawLen uint64, payload, extra []byte) []byte {
	buf := binary.LittleEndian.AppendUint32(nil, MagicV1)
	buf = binary.LittleEndian.AppendUint16(buf, VersionV1)
	buf = binary.LittleEndian.AppendUint16(buf, flags)
	buf = append(buf, 1)
	buf = common.WriteVarUintTo(buf, 1)
	buf = common.WriteVarUintTo(buf, rawLen)
	buf = common.WriteVarIntTo(buf, 1)
	buf = common.WriteVarUintTo(buf, rawLen)
	buf = common.WriteVarUintTo(buf, uint64(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, extra...)
	return binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
}

func TestBuildFrameMatchesEncode(t *testing.T) {
	data := []byte{1, 0, 1}
	x, err := indexer.NewBooleanRawIndexer(indexer.NewMemory(data))
	require.NoError(t, err)
	frame, err := Encode(x, Options{})
	require.NoError(t, err)
	require.Equal(t, buildFrame(0, 3, data, nil), frame)
}

func TestDecompressedSizeIsBounded(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	payload := enc.EncodeAll(make([]byte, 8<<20), nil)
	require.NoError(t, enc.Close())

	_, err = Decode(buildFrame(FlagZstd, 4, payload, nil))
	require.Error(t, err)
	require.True(t, errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded), err.Error())

	// The same frame with an honest length decodes.
	s, err := Decode(buildFrame(FlagZstd, 8<<20, payload, nil))
	require.NoError(t, err)
	require.Len(t, s.Data, 8<<20)

	old := MaxDataLen
	MaxDataLen = 1 << 20
	defer func() { MaxDataLen = old }()
	_, err = Decode(buildFrame(FlagZstd, 8<<20, payload, nil))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestRawLengthMismatch(t *testing.T) {
	_, err := Decode(buildFrame(0, 4, []byte{1, 0, 1}, nil))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestTrailingData(t *testing.T) {
	_, err := Decode(buildFrame(0, 3, []byte{1, 0, 1}, []byte{0xFF}))
	require.ErrorIs(t, err, ErrTrailingData)
}

func TestLittleEndianPayload(t *testing.T) {
	data := []uint16{0x0102, 0xA0B0}
	x, err := indexer.New[uint16](indexer.NewSliceMemory(data))
	require.NoError(t, err)
	frame, err := Encode(x, Options{})
	require.NoError(t, err)
	s, err := Decode(frame)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, 0x01, 0xB0, 0xA0}, s.Data)

	y, err := Restore[uint16](s)
	require.NoError(t, err)
	v, err := y.Get(1)
	require.NoError(t, err)
	require.Equal(t, uint16(0xA0B0), v)
}

func BenchmarkEncodeZstd(b *testing.B) {
	buf := make([]byte, 1<<16)
	for i := range buf {
		buf[i] = byte(i % 7 % 2)
	}
	x, _ := indexer.NewBooleanRawIndexerSizes(indexer.NewMemory(buf), 256, 256)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Encode(x, Options{Zstd: true})
	}
}
