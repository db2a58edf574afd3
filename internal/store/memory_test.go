package store

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.Put(ctx, "input/report.pdf", "application/pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	r, err := m.Get(ctx, "input/report.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "pdf bytes", string(data))

	ct, ok := m.ContentType("input/report.pdf")
	require.True(t, ok)
	assert.Equal(t, "application/pdf", ct)
}

func TestMemory_HeadDistinguishesNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// Absent object: the distinguished (false, nil) outcome, never an error.
	ok, err := m.Head(ctx, "output/missing.md")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put(ctx, "output/report.md", "text/markdown; charset=utf-8", strings.NewReader("# R")))
	ok, err = m.Head(ctx, "output/report.md")
	require.NoError(t, err)
	assert.True(t, ok)

	// A forced transport failure must not look like not-found.
	boom := errors.New("connection reset")
	m.Fail("head", boom)
	_, err = m.Head(ctx, "output/report.md")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestMemory_GetNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "input/a.pdf", "application/pdf", strings.NewReader("x")))
	require.NoError(t, m.Delete(ctx, "input/a.pdf"))
	ok, err := m.Head(ctx, "input/a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("permission denied")))
	assert.True(t, IsNotFound(ErrNotFound))
}
