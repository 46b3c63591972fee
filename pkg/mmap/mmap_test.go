//go:build linux || darwin || freebsd

package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/indexer"
)

func TestRegionIndexerPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.bin")
	before := Count()

	r, err := Open(path, 6, 1, true)
	require.NoError(t, err)
	require.Equal(t, before+1, Count())
	require.Equal(t, int64(6), r.Limit())

	x, err := indexer.NewBooleanRawIndexerSizes(r, 2, 3)
	require.NoError(t, err)
	require.NoError(t, x.Put2(1, 2, true))
	require.NoError(t, x.Put2(0, 0, true))
	require.NoError(t, r.Sync())
	x.Release()
	require.NoError(t, r.Close())
	require.Equal(t, before, Count())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 0, 0, 0, 1}, data)
}

func TestReadOnlyRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.bin")
	require.NoError(t, os.WriteFile(path, []byte{0, 2, 0, 0}, 0o644))

	r, err := Open(path, 0, 1, false)
	require.NoError(t, err)
	defer r.Close()
	require.False(t, r.Writable())
	require.NoError(t, r.Sync())

	x, err := indexer.NewBooleanRawIndexer(r)
	require.NoError(t, err)
	v, err := x.Get(1)
	require.NoError(t, err)
	require.True(t, v)
	_, err = x.Get(4)
	require.ErrorIs(t, err, indexer.ErrIndexOutOfBounds)
}

func TestWideElements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.bin")
	r, err := Open(path, 10, 4, true)
	require.NoError(t, err)
	require.Equal(t, int64(2), r.Limit())

	x, err := NewIndexer[uint32](r, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, x.Sizes())
	require.NoError(t, x.Put(1, 0xCAFEBABE))
	v, err := x.Get(1)
	require.NoError(t, err)
	require.Equal(t, uint32(0xCAFEBABE), v)
	x.Release()
	require.NoError(t, r.Close())

	// The file holds little-endian elements on every host.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0, 0xBE, 0xBA, 0xFE, 0xCA, 0, 0}, data)
}

func TestNewIndexerShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.bin")
	require.NoError(t, os.WriteFile(path, []byte{0, 0, 0, 7, 0, 0}, 0o644))
	r, err := Open(path, 0, 1, false)
	require.NoError(t, err)
	defer r.Close()

	x, err := NewIndexer[bool](r, []int64{3, 2}, []int64{1, 3})
	require.NoError(t, err)
	v, err := x.GetIndices([]int64{0, 1})
	require.NoError(t, err)
	require.True(t, v)

	_, err = NewIndexer[bool](r, []int64{2, 3}, []int64{1})
	require.ErrorIs(t, err, indexer.ErrShapeMismatch)
}

func TestEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	r, err := Open(path, 0, 1, false)
	require.NoError(t, err)
	require.Nil(t, r.Address())
	require.Equal(t, int64(0), r.Limit())
	require.NoError(t, r.Close())
}

func TestMaxMapCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limit.bin")
	require.NoError(t, os.WriteFile(path, []byte{0}, 0o644))

	old := MaxMapCount
	MaxMapCount = Count()
	defer func() { MaxMapCount = old }()

	_, err := Open(path, 0, 1, false)
	require.ErrorIs(t, err, ErrMaxMapCountReached)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bin"), 0, 1, false)
	require.Error(t, err)
	_, err = Open("unused", 0, 0, false)
	require.ErrorIs(t, err, ErrBadWidth)
}
