package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvquery/kvquery"
	"github.com/kvquery/kvquery/store"
)

func filesSchema() kvquery.StoreSchema {
	return kvquery.StoreSchema{
		Name:           "files",
		PrimaryKeyPath: "pk",
		Indices: map[string]kvquery.IndexSchema{
			"group": {Name: "group", Path: "group"},
		},
	}
}

func seedMemStore(t *testing.T) *store.MemStore {
	t.Helper()
	s := store.NewMemStore(filesSchema())
	records := []kvquery.Record{
		{"pk": "a", "group": "x", "value": kvquery.Record{"title": "alpha"}},
		{"pk": "b", "group": "y", "value": kvquery.Record{"title": "beta"}},
		{"pk": "c", "group": "x", "value": kvquery.Record{"title": "gamma"}},
	}
	for _, r := range records {
		require.NoError(t, s.Put(r))
	}
	return s
}

func drain(t *testing.T, ctx context.Context, c store.Cursor) []string {
	t.Helper()
	var pks []string
	for {
		require.NoError(t, c.Advance(ctx))
		if c.Done() {
			break
		}
		pks = append(pks, string(c.CurrentPrimaryKey()))
	}
	return pks
}

func TestMemStorePrimaryKeyCursorUnbounded(t *testing.T) {
	s := seedMemStore(t)
	ctx := context.Background()

	cur, err := s.OpenPrimaryKeyCursor(ctx, store.Range{Kind: store.Unbounded})
	require.NoError(t, err)
	defer cur.Close()

	pks := drain(t, ctx, cur)
	assert.Equal(t, []string{
		string(store.EncodePrimaryKey("a")),
		string(store.EncodePrimaryKey("b")),
		string(store.EncodePrimaryKey("c")),
	}, pks)
}

func TestMemStoreIndexCursorOrdersByPrimaryKeyWithinValue(t *testing.T) {
	s := seedMemStore(t)
	ctx := context.Background()

	cur, err := s.OpenIndexCursor(ctx, "group", store.Range{Kind: store.Unbounded})
	require.NoError(t, err)
	defer cur.Close()

	var groups []string
	for {
		require.NoError(t, cur.Advance(ctx))
		if cur.Done() {
			break
		}
		groups = append(groups, cur.CurrentValue()["group"].(string))
	}
	assert.Equal(t, []string{"x", "x", "y"}, groups)
}

func TestMemStoreReadMiss(t *testing.T) {
	s := seedMemStore(t)
	ctx := context.Background()

	record, found, err := s.Read(ctx, store.EncodePrimaryKey("missing"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, record)
}

func TestMemStorePutReplacesExistingIndexEntry(t *testing.T) {
	s := seedMemStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(kvquery.Record{"pk": "a", "group": "y", "value": kvquery.Record{"title": "alpha2"}}))

	cur, err := s.OpenIndexCursor(ctx, "group", store.Range{Kind: store.Unbounded})
	require.NoError(t, err)
	defer cur.Close()

	pks := drain(t, ctx, cur)
	require.Len(t, pks, 3)

	record, found, err := s.Read(ctx, store.EncodePrimaryKey("a"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "y", record["group"])
}

func TestMemStoreCancelledContext(t *testing.T) {
	s := seedMemStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.OpenPrimaryKeyCursor(ctx, store.Range{Kind: store.Unbounded})
	require.Error(t, err)
	assert.True(t, kvquery.IsKind(err, kvquery.KindCancelled))
}
