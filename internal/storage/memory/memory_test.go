package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotlinhustle/power-split/internal/storage"
)

func TestBlobStore(t *testing.T) {
	ctx := context.Background()
	m := NewBlobStore()

	data, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)

	blob := []byte("v1")
	require.NoError(t, m.Save(ctx, "k", blob))
	blob[0] = 'x'

	data, err = m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	boom := errors.New("disk full")
	m.FailWith(boom)
	assert.ErrorIs(t, m.Save(ctx, "k", nil), boom)
	m.FailWith(nil)

	require.NoError(t, m.Delete(ctx, "k"))
	data, err = m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRemoteStore(t *testing.T) {
	ctx := context.Background()
	m := NewRemoteStore()

	require.NoError(t, m.Save(ctx, "k", []byte("a"), storage.SaveOptions{InsertOnly: true}))
	assert.ErrorIs(t, m.Save(ctx, "k", []byte("b"), storage.SaveOptions{InsertOnly: true}), storage.ErrConflict)
	require.NoError(t, m.Save(ctx, "k", []byte("c"), storage.SaveOptions{}))

	rec, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "c", string(rec.Data))
	assert.Equal(t, []Save{
		{Key: "k", Data: []byte("a"), InsertOnly: true},
		{Key: "k", Data: []byte("c")},
	}, m.Saves())
}
