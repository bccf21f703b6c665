package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvquery/kvquery"
	"github.com/kvquery/kvquery/store"
)

func newTestBadgerStore(t *testing.T) *store.BadgerStore {
	t.Helper()
	dir, err := os.MkdirTemp("", "kvquery-badger-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := store.NewBadgerStore(dir, filesSchema())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerStorePutAndRead(t *testing.T) {
	s := newTestBadgerStore(t)
	ctx := context.Background()

	record := kvquery.Record{"pk": "a", "group": "x", "value": kvquery.Record{"title": "alpha"}}
	require.NoError(t, s.Put(ctx, record))

	got, found, err := s.Read(ctx, store.EncodePrimaryKey("a"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "x", got["group"])
}

func TestBadgerStoreIndexCursorOrdersByPrimaryKeyWithinValue(t *testing.T) {
	s := newTestBadgerStore(t)
	ctx := context.Background()

	for _, r := range []kvquery.Record{
		{"pk": "a", "group": "x"},
		{"pk": "b", "group": "y"},
		{"pk": "c", "group": "x"},
	} {
		require.NoError(t, s.Put(ctx, r))
	}

	cur, err := s.OpenIndexCursor(ctx, "group", store.Range{Kind: store.Unbounded})
	require.NoError(t, err)
	defer cur.Close()

	var pks []string
	for {
		require.NoError(t, cur.Advance(ctx))
		if cur.Done() {
			break
		}
		pks = append(pks, string(cur.CurrentPrimaryKey()))
	}
	require.Equal(t, []string{
		string(store.EncodePrimaryKey("a")),
		string(store.EncodePrimaryKey("c")),
		string(store.EncodePrimaryKey("b")),
	}, pks)
}

func TestBadgerStorePrimaryKeyCursorPrefixBound(t *testing.T) {
	s := newTestBadgerStore(t)
	ctx := context.Background()

	for _, r := range []kvquery.Record{
		{"pk": "a1"}, {"pk": "a2"}, {"pk": "b1"},
	} {
		require.NoError(t, s.Put(ctx, r))
	}

	prefix := store.EncodePrimaryKey("a")
	cur, err := s.OpenPrimaryKeyCursor(ctx, store.Range{
		Kind: store.Bounded,
		Lo:   prefix,
		Hi:   store.PrefixUpperBound(prefix),
	})
	require.NoError(t, err)
	defer cur.Close()

	var count int
	for {
		require.NoError(t, cur.Advance(ctx))
		if cur.Done() {
			break
		}
		count++
	}
	require.Equal(t, 2, count)
}

func TestBadgerStoreUnknownIndex(t *testing.T) {
	s := newTestBadgerStore(t)
	ctx := context.Background()

	_, err := s.OpenIndexCursor(ctx, "nope", store.Range{Kind: store.Unbounded})
	require.Error(t, err)
	require.True(t, kvquery.IsKind(err, kvquery.KindInvalidArgument))
}
