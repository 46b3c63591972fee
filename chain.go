package indexer

// Chain wraps an indexer so calls can be chained. The first error is kept
// and every later call becomes a no-op; check Err at the end.
//
//	err := x.Chain().Put2(0, 1, true).Put2(1, 2, true).Get2(1, 2, &v).Err()
type Chain[T Element] struct {
	x   *RawIndexer[T]
	err error
}

// Chain returns a chaining wrapper around x.
func (x *RawIndexer[T]) Chain() *Chain[T] {
	return &Chain[T]{x: x}
}

// Err returns the first error seen by the chain.
func (c *Chain[T]) Err() error { return c.err }

// Indexer returns the wrapped indexer.
func (c *Chain[T]) Indexer() *RawIndexer[T] { return c.x }

func (c *Chain[T]) do(f func() error) *Chain[T] {
	if c.err == nil {
		c.err = f()
	}
	return c
}

func (c *Chain[T]) get(dst *T, f func() (T, error)) *Chain[T] {
	return c.do(func() error {
		v, err := f()
		if err == nil && dst != nil {
			*dst = v
		}
		return err
	})
}

// Get stores x.Get(i) in dst.
func (c *Chain[T]) Get(i int64, dst *T) *Chain[T] {
	return c.get(dst, func() (T, error) { return c.x.Get(i) })
}

// Get2 stores x.Get2(i, j) in dst.
func (c *Chain[T]) Get2(i, j int64, dst *T) *Chain[T] {
	return c.get(dst, func() (T, error) { return c.x.Get2(i, j) })
}

// Get3 stores x.Get3(i, j, k) in dst.
func (c *Chain[T]) Get3(i, j, k int64, dst *T) *Chain[T] {
	return c.get(dst, func() (T, error) { return c.x.Get3(i, j, k) })
}

// GetIndices stores x.GetIndices(indices) in dst.
func (c *Chain[T]) GetIndices(indices []int64, dst *T) *Chain[T] {
	return c.get(dst, func() (T, error) { return c.x.GetIndices(indices) })
}

// GetBulk, GetBulk2 and GetBulkIndices fill b as the indexer methods do.
func (c *Chain[T]) GetBulk(i int64, b []T, offset, length int) *Chain[T] {
	return c.do(func() error { return c.x.GetBulk(i, b, offset, length) })
}

func (c *Chain[T]) GetBulk2(i, j int64, b []T, offset, length int) *Chain[T] {
	return c.do(func() error { return c.x.GetBulk2(i, j, b, offset, length) })
}

func (c *Chain[T]) GetBulkIndices(indices []int64, b []T, offset, length int) *Chain[T] {
	return c.do(func() error { return c.x.GetBulkIndices(indices, b, offset, length) })
}

// Put, Put2, Put3 and PutIndices store one element.
func (c *Chain[T]) Put(i int64, v T) *Chain[T] {
	return c.do(func() error { return c.x.Put(i, v) })
}

func (c *Chain[T]) Put2(i, j int64, v T) *Chain[T] {
	return c.do(func() error { return c.x.Put2(i, j, v) })
}

func (c *Chain[T]) Put3(i, j, k int64, v T) *Chain[T] {
	return c.do(func() error { return c.x.Put3(i, j, k, v) })
}

func (c *Chain[T]) PutIndices(indices []int64, v T) *Chain[T] {
	return c.do(func() error { return c.x.PutIndices(indices, v) })
}

// PutBulk, PutBulk2 and PutBulkIndices store b as the indexer methods do.
func (c *Chain[T]) PutBulk(i int64, b []T, offset, length int) *Chain[T] {
	return c.do(func() error { return c.x.PutBulk(i, b, offset, length) })
}

func (c *Chain[T]) PutBulk2(i, j int64, b []T, offset, length int) *Chain[T] {
	return c.do(func() error { return c.x.PutBulk2(i, j, b, offset, length) })
}

func (c *Chain[T]) PutBulkIndices(indices []int64, b []T, offset, length int) *Chain[T] {
	return c.do(func() error { return c.x.PutBulkIndices(indices, b, offset, length) })
}
