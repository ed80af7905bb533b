package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k/a/b", []byte("abc"), ""))

	obj, err := s.Get(ctx, "k/a/b")
	require.NoError(t, err)
	obj.Body[0] = 'X'

	again, err := s.Get(ctx, "k/a/b")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again.Body)
	items, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "k/a/b", items[0].Key)
}
