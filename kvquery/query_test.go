package kvquery_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvquery/kvquery"
	"github.com/kvquery/kvquery/store"
)

func filesSchema() kvquery.Schema {
	return kvquery.Schema{
		Stores: map[string]kvquery.StoreSchema{
			"files": {
				Name:           "files",
				PrimaryKeyPath: "pk",
				Indices: map[string]kvquery.IndexSchema{
					"group": {Name: "group", Path: "group"},
				},
			},
		},
	}
}

func seedRecords() []kvquery.Record {
	return []kvquery.Record{
		{"pk": "a", "group": "aaa", "value": kvquery.Record{"title": "a"}},
		{"pk": "aa", "group": "aaa", "value": kvquery.Record{"title": "aa"}},
		{"pk": "aaa", "group": "aaa", "value": kvquery.Record{"title": "aaa"}},
		{"pk": "bbb", "group": "bbb", "value": kvquery.Record{"title": "bbb"}},
		{"pk": "ccc", "group": "bbb", "value": kvquery.Record{"title": "ccc"}},
	}
}

// backend pairs a store.Handle with a teardown func, so the scenario
// table below runs unmodified against both MemStore and BadgerStore —
// proving the "same answers in both environments" requirement (§6).
type backend struct {
	name    string
	handle  store.Handle
	cleanup func()
}

func backends(t *testing.T) []backend {
	t.Helper()

	mem := store.NewMemStore(filesSchema().Stores["files"])
	for _, r := range seedRecords() {
		require.NoError(t, mem.Put(r))
	}

	dir, err := os.MkdirTemp("", "kvquery-query-test-*")
	require.NoError(t, err)
	badger, err := store.NewBadgerStore(dir, filesSchema().Stores["files"])
	require.NoError(t, err)
	ctx := context.Background()
	for _, r := range seedRecords() {
		require.NoError(t, badger.Put(ctx, r))
	}

	return []backend{
		{name: "MemStore", handle: mem, cleanup: func() {}},
		{name: "BadgerStore", handle: badger, cleanup: func() { badger.Close(); os.RemoveAll(dir) }},
	}
}

func keyStrings(keys []kvquery.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.(string)
	}
	return out
}

func TestQueryScenarioTable(t *testing.T) {
	type scenario struct {
		name   string
		params map[string]string
		want   []string
	}

	scenarios := []scenario{
		{"1 pk equality", map[string]string{"pk": "aaa"}, []string{"aaa"}},
		{"2 pk prefix", map[string]string{"pk$prefix": "a"}, []string{"a", "aa", "aaa"}},
		{"3 pk from", map[string]string{"pk$from": "aaa"}, []string{"aaa", "bbb", "ccc"}},
		{"4 pk to", map[string]string{"pk$to": "bbb"}, []string{"a", "aa", "aaa", "bbb"}},
		{"5 index equality", map[string]string{"group": "aaa"}, []string{"a", "aa", "aaa"}},
		{"6 index prefix", map[string]string{"group$prefix": "aa"}, []string{"a", "aa", "aaa"}},
		{"7 scan equality", map[string]string{"value.title": "aaa"}, []string{"aaa"}},
		{"8 scan prefix", map[string]string{"value.title$prefix": "aa"}, []string{"aa", "aaa"}},
		{"9 pk and index, both match", map[string]string{"pk": "aaa", "group": "aaa"}, []string{"aaa"}},
		{"10 pk and index, disjoint", map[string]string{"pk": "aaa", "group": "bbb"}, []string{}},
		{"11 pk from and index", map[string]string{"pk$from": "a", "group": "bbb"}, []string{"bbb", "ccc"}},
		{"12 prefix with limit", map[string]string{"pk$prefix": "a", "$limit": "2"}, []string{"a", "aa"}},
		{"13 prefix with from", map[string]string{"pk$prefix": "a", "$from": "1"}, []string{"aa", "aaa"}},
		{"14 or join", map[string]string{"pk": "aaa", "group": "bbb", "$join": "or"}, []string{"aaa", "bbb", "ccc"}},
	}

	for _, b := range backends(t) {
		b := b
		defer b.cleanup()

		for _, sc := range scenarios {
			t.Run(b.name+"/"+sc.name, func(t *testing.T) {
				stores := kvquery.StaticStores{"files": b.handle}
				res, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string(copyParams(sc.params, map[string]string{"$format": "keys"})))
				require.NoError(t, err)
				assert.Equal(t, sc.want, keyStrings(res.Keys))
			})
		}
	}
}

func copyParams(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func TestQueryNullQueryYieldsEmptyResultRegardlessOfFormat(t *testing.T) {
	for _, b := range backends(t) {
		defer b.cleanup()
		stores := kvquery.StaticStores{"files": b.handle}

		for _, format := range []string{"records", "keys", "lookup"} {
			res, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string{"$format": format})
			require.NoError(t, err)
			assert.Empty(t, res.Records)
			assert.Empty(t, res.Keys)
			assert.Empty(t, res.Lookup)
		}
	}
}

func TestQueryUnknownStoreIsSchemaMismatch(t *testing.T) {
	for _, b := range backends(t) {
		defer b.cleanup()
		stores := kvquery.StaticStores{"files": b.handle}

		_, err := kvquery.Query(context.Background(), filesSchema(), stores, "nope", map[string]string{"pk": "aaa"})
		require.Error(t, err)
		assert.True(t, kvquery.IsKind(err, kvquery.KindSchemaMismatch))
	}
}

func TestQueryLookupKeySetMatchesDefaultList(t *testing.T) {
	for _, b := range backends(t) {
		defer b.cleanup()
		stores := kvquery.StaticStores{"files": b.handle}

		keysRes, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string{"group": "aaa", "$format": "keys"})
		require.NoError(t, err)
		lookupRes, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string{"group": "aaa", "$format": "lookup"})
		require.NoError(t, err)

		assert.ElementsMatch(t, keyStrings(keysRes.Keys), lookupKeySet(lookupRes.Lookup))
	}
}

func lookupKeySet(lookup map[string]kvquery.Record) []string {
	out := make([]string, 0, len(lookup))
	for k := range lookup {
		out = append(out, k)
	}
	return out
}

func TestQueryAndResultIsSubsetOfOrResult(t *testing.T) {
	for _, b := range backends(t) {
		defer b.cleanup()
		stores := kvquery.StaticStores{"files": b.handle}

		andRes, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string{"pk$from": "a", "group": "bbb", "$format": "keys"})
		require.NoError(t, err)
		orRes, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string{"pk$from": "a", "group": "bbb", "$join": "or", "$format": "keys"})
		require.NoError(t, err)

		orSet := map[string]bool{}
		for _, k := range orRes.Keys {
			orSet[k.(string)] = true
		}
		for _, k := range andRes.Keys {
			assert.True(t, orSet[k.(string)])
		}
	}
}

func TestQueryFromToPairingCommutes(t *testing.T) {
	for _, b := range backends(t) {
		defer b.cleanup()
		stores := kvquery.StaticStores{"files": b.handle}

		r1, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string{"pk$from": "aaa", "pk$to": "ccc", "$format": "keys"})
		require.NoError(t, err)
		r2, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string{"pk$to": "ccc", "pk$from": "aaa", "$format": "keys"})
		require.NoError(t, err)

		assert.Equal(t, r1.Keys, r2.Keys)
	}
}

func TestQueryRepeatedRunsAreIdempotent(t *testing.T) {
	for _, b := range backends(t) {
		defer b.cleanup()
		stores := kvquery.StaticStores{"files": b.handle}

		r1, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string{"group": "aaa", "$format": "keys"})
		require.NoError(t, err)
		r2, err := kvquery.Query(context.Background(), filesSchema(), stores, "files", map[string]string{"group": "aaa", "$format": "keys"})
		require.NoError(t, err)

		assert.Equal(t, r1.Keys, r2.Keys)
	}
}
