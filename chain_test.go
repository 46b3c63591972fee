package indexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	x, buf := newBool(t, 6, 2, 3)
	var a, b bool
	err := x.Chain().
		Put2(0, 1, true).
		Put3(1, 0, 2, true).
		Get2(0, 1, &a).
		GetIndices([]int64{1, 2}, &b).
		Err()
	require.NoError(t, err)
	require.True(t, a)
	require.True(t, b)
	require.Equal(t, []byte{0, 1, 0, 0, 0, 1}, buf)
}

func TestChainStopsAtFirstError(t *testing.T) {
	x, buf := newBool(t, 4)
	var v bool
	c := x.Chain().
		Put(0, true).
		Put(9, true).
		Put(1, true).
		Get(0, &v)
	require.ErrorIs(t, c.Err(), ErrIndexOutOfBounds)
	require.False(t, v)
	require.Equal(t, []byte{1, 0, 0, 0}, buf)
	require.Same(t, x, c.Indexer())
}

func TestChainBulk(t *testing.T) {
	x, _ := newBool(t, 6, 2, 3)
	out := make([]bool, 3)
	err := x.Chain().
		PutBulk(1, []bool{true, false, true}, 0, 3).
		GetBulk(1, out, 0, 3).
		PutBulk2(0, 0, []bool{true}, 0, 1).
		PutBulkIndices([]int64{0, 1}, []bool{true}, 0, 1).
		Err()
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true}, out)

	row := make([]bool, 3)
	require.NoError(t, x.Chain().GetBulk2(0, 0, row, 0, 3).Err())
	require.Equal(t, []bool{true, true, false}, row)
	require.NoError(t, x.Chain().GetBulkIndices([]int64{0}, row, 0, 3).Err())
	require.Equal(t, []bool{true, true, false}, row)
	var v bool
	require.NoError(t, x.Chain().PutIndices([]int64{0, 2}, true).Get3(0, 0, 2, &v).Err())
	require.True(t, v)
}

func TestChainAfterRelease(t *testing.T) {
	x, _ := newBool(t, 4)
	x.Release()
	require.ErrorIs(t, x.Chain().Put(0, true).Err(), ErrUseAfterRelease)
}
