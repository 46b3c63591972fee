//go:build linux || darwin || freebsd

// Package mmap maps files into memory and exposes the mapping as an
// indexer.Pointer, imposing a process-wide limit on live mappings.
package mmap

import (
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/rawbytedev/indexer"
	"github.com/rawbytedev/indexer/raw"
)

// mapCount is the number of live regions.
var mapCount atomic.Uint64

var (
	ErrMaxMapCountReached = errors.New("maximum map count reached")
	ErrBadWidth           = errors.New("element width must be positive")
)

// MaxMapCount bounds the live regions of the process. It stays under the
// kernel's per-process map limit so other mappings still fit.
var MaxMapCount uint64 = 60000

// Count returns the number of live mappings.
func Count() uint64 { return mapCount.Load() }

// Region is a mapped file viewed as elements of a fixed width. It owns the
// mapping; indexers built on it only borrow it.
type Region struct {
	path     string
	data     []byte
	width    int64
	writable bool
}

// Open maps path. When writable and the file is shorter than size bytes it
// is grown first; a size of 0 maps the file as it is.
func Open(path string, size int64, width int64, writable bool) (*Region, error) {
	if width <= 0 {
		return nil, ErrBadWidth
	}
	flag, prot := os.O_RDONLY, unix.PROT_READ
	if writable {
		flag, prot = os.O_RDWR|os.O_CREATE, unix.PROT_READ|unix.PROT_WRITE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "statting file")
	}
	length := fi.Size()
	if writable && size > length {
		if err := f.Truncate(size); err != nil {
			return nil, errors.Wrapf(err, "growing %s to %d bytes", path, size)
		}
		length = size
	}

	r := &Region{path: path, width: width, writable: writable}
	if length == 0 {
		return r, nil
	}
	data, err := mmap(int(f.Fd()), int(length), prot)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping %s", path)
	}
	r.data = data
	return r, nil
}

// reserve claims one slot of MaxMapCount for a new mapping.
func reserve() error {
	if mapCount.Add(1) > MaxMapCount {
		mapCount.Add(^uint64(0))
		return ErrMaxMapCountReached
	}
	return nil
}

// mmap maps length bytes of fd, holding a slot for as long as the mapping lives.
func mmap(fd int, length int, prot int) ([]byte, error) {
	if err := reserve(); err != nil {
		return nil, err
	}
	data, err := unix.Mmap(fd, 0, length, prot, unix.MAP_SHARED)
	if err != nil {
		mapCount.Add(^uint64(0))
		return nil, err
	}
	return data, nil
}

// munmap unmaps b and gives its slot back.
func munmap(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return err
	}
	mapCount.Add(^uint64(0))
	return nil
}

// Address returns the start of the mapping, or nil when nothing is mapped.
func (r *Region) Address() unsafe.Pointer {
	if len(r.data) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(r.data))
}

// Position is always 0: a region views its whole mapping.
func (r *Region) Position() int64 { return 0 }

// Limit returns how many whole elements the mapping holds.
func (r *Region) Limit() int64 { return int64(len(r.data)) / r.width }

// ElemSize returns the element width given to Open.
func (r *Region) ElemSize() int64 { return r.width }

// Writable reports whether the mapping accepts stores.
func (r *Region) Writable() bool { return r.writable }

// NewIndexer views r with the given sizes and strides, moving elements in
// little-endian order so files are portable across hosts. Nil sizes view
// the whole mapping as one dimension; nil strides are row-major.
func NewIndexer[T indexer.Element](r *Region, sizes, strides []int64) (*indexer.RawIndexer[T], error) {
	if sizes == nil {
		sizes = []int64{r.Limit()}
	}
	return indexer.NewWithAccessor[T](r, sizes, strides, raw.LittleEndian[T]{})
}

// Sync flushes a writable mapping to its file.
func (r *Region) Sync() error {
	if !r.writable || len(r.data) == 0 {
		return nil
	}
	return errors.Wrap(unix.Msync(r.data, unix.MS_SYNC), "msync")
}

// Close unmaps the region. Indexers still referring to it must be released
// first; the region reports an empty range afterwards.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	if err := munmap(r.data); err != nil {
		return errors.Wrapf(err, "unmapping %s", r.path)
	}
	r.data = nil
	return nil
}
