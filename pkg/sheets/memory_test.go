package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProviderResolve(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(false)
	p.AddWorksheet("book", "first")
	p.AddWorksheet("book", "second")

	sh, err := p.Worksheet(ctx, "book", "")
	require.NoError(t, err)
	assert.Equal(t, "first", sh.Title())

	sh, err = p.Worksheet(ctx, "book", "second")
	require.NoError(t, err)
	assert.Equal(t, "second", sh.Title())

	_, err = p.Worksheet(ctx, "book", "third")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = p.Worksheet(ctx, "other", "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryProviderCreate(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(true)
	sh, err := p.Worksheet(ctx, "book", "")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", sh.Title())
	sh, err = p.Worksheet(ctx, "book", "eval")
	require.NoError(t, err)
	assert.Equal(t, "eval", sh.Title())
}

func TestMemorySheetExtent(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(true)
	sh, err := p.Worksheet(ctx, "book", "")
	require.NoError(t, err)

	n, err := sh.Extent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, sh.WriteRange(ctx, 2, 1, []interface{}{"a", "b"}))
	require.NoError(t, sh.WriteRange(ctx, 5, 1, []interface{}{"c"}))
	require.NoError(t, sh.WriteRange(ctx, 9, 2, []interface{}{nil, ""}))

	n, err = sh.Extent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = sh.Extent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = sh.Extent(ctx, 0)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(sh.WriteRange(ctx, 0, 1, []interface{}{1}), ErrTransport))
}

func TestMemorySheetAppendAndClear(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(true)
	sh, err := p.Worksheet(ctx, "book", "")
	require.NoError(t, err)

	require.NoError(t, sh.WriteRange(ctx, 3, 4, []interface{}{"x"}))
	require.NoError(t, sh.AppendRow(ctx, []interface{}{"a", int64(2)}))
	assert.Equal(t, []interface{}{"a", int64(2)}, p.Row("book", "", 4, 1, 2))

	require.NoError(t, sh.Clear(ctx))
	assert.Nil(t, p.Cell("book", "", 4, 1))
	assert.Nil(t, p.Cell("book", "", 3, 4))
}

func TestMemorySheetNilKeepsCell(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(true)
	sh, err := p.Worksheet(ctx, "book", "")
	require.NoError(t, err)

	require.NoError(t, sh.WriteRange(ctx, 1, 1, []interface{}{"a", "b", "c"}))
	require.NoError(t, sh.WriteRange(ctx, 1, 1, []interface{}{nil, "", "z"}))
	assert.Equal(t, []interface{}{"a", nil, "z"}, p.Row("book", "", 1, 1, 3))
}
