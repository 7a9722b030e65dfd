package memstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	blob, err := s.Put(ctx, "materials/c1/notes.txt", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "materials/c1/notes.txt", blob.Key)
	assert.Equal(t, "memory://materials/c1/notes.txt", blob.URL)
	assert.EqualValues(t, 5, blob.Size)

	data, ok := s.Get(blob.Key)
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, blob.Key))
	require.NoError(t, s.Delete(ctx, blob.Key), "deleting twice is not an error")
	_, ok = s.Get(blob.Key)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}
