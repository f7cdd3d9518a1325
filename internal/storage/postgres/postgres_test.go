package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotlinhustle/power-split/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POWERSPLIT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POWERSPLIT_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	table := fmt.Sprintf("apartments_test_%d", time.Now().UnixNano())
	store, err := Open(ctx, dsn, table)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+table)
		store.Close()
	})
	return store
}

func TestOpenRejectsBadTable(t *testing.T) {
	_, err := Open(context.Background(), "postgres://localhost/db", "bad; drop")
	assert.Error(t, err)

	_, err = Open(context.Background(), "", "")
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec, err := store.Load(ctx, "power-split")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Save(ctx, "power-split", []byte(`{"tariffDay": 5}`), storage.SaveOptions{InsertOnly: true}))

	err = store.Save(ctx, "power-split", []byte(`{}`), storage.SaveOptions{InsertOnly: true})
	assert.ErrorIs(t, err, storage.ErrConflict)

	require.NoError(t, store.Save(ctx, "power-split", []byte(`{"tariffDay": 6}`), storage.SaveOptions{}))

	rec, err = store.Load(ctx, "power-split")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.JSONEq(t, `{"tariffDay": 6}`, string(rec.Data))
	assert.False(t, rec.UpdatedAt.IsZero())
}
