package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeepFirst(t *testing.T) {
	first, second := errors.New("first"), errors.New("second")

	var err error
	keepFirst(&err, nil)
	require.NoError(t, err)
	keepFirst(&err, second)
	require.Same(t, second, err)

	err = first
	keepFirst(&err, second)
	require.Same(t, first, err)
}

func TestCloseIntoTwice(t *testing.T) {
	v := &view{File: filepath.Join(t.TempDir(), "bools"), Sizes: "2"}
	r, x, err := v.open(true)
	require.NoError(t, err)

	var got error
	v.closeInto(r, x, &got)
	require.NoError(t, got)

	// A released, unmapped view closes cleanly again.
	v.closeInto(r, x, &got)
	require.NoError(t, got)
}

func TestSpan(t *testing.T) {
	v := &view{File: filepath.Join(t.TempDir(), "bools"), Sizes: "2,2", Strides: "4,1"}
	r, x, err := v.open(true)
	require.NoError(t, err)
	require.Equal(t, int64(6), r.Limit())
	require.NoError(t, v.closeView(r, x))
}
