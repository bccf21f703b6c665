// Package result turns an ordered, deduplicated primary-key list into
// the requested output shape — records, keys, or a lookup map — and
// applies $orderBy where requested (§4.5).
package result

import (
	"context"
	"sort"

	"github.com/kvquery/kvquery"
	"github.com/kvquery/kvquery/store"
)

// Materialize reads keys' records (as needed by format/orderBy) and
// builds the Result the query entry point returns.
func Materialize(ctx context.Context, handle store.Handle, keys [][]byte, format kvquery.Format, orderBy string) (kvquery.Result, error) {
	switch format {
	case kvquery.FormatKeys:
		return materializeKeys(ctx, handle, keys, orderBy)
	case kvquery.FormatLookup:
		return materializeLookup(ctx, handle, keys)
	default:
		return materializeRecords(ctx, handle, keys, orderBy)
	}
}

func materializeRecords(ctx context.Context, handle store.Handle, keys [][]byte, orderBy string) (kvquery.Result, error) {
	records, err := readAll(ctx, handle, keys)
	if err != nil {
		return kvquery.Result{}, err
	}
	if orderBy != "" {
		sortRecords(records, orderBy)
	}
	return kvquery.Result{Kind: kvquery.ResultRecords, Records: records}, nil
}

func materializeKeys(ctx context.Context, handle store.Handle, keys [][]byte, orderBy string) (kvquery.Result, error) {
	if orderBy == "" {
		return kvquery.Result{Kind: kvquery.ResultKeys, Keys: toKeyValues(keys)}, nil
	}

	// $orderBy with $format=keys still needs each record read to find
	// the sort value, then reorders the key list to match (§4.2).
	records, err := readAll(ctx, handle, keys)
	if err != nil {
		return kvquery.Result{}, err
	}

	type pair struct {
		key    []byte
		record kvquery.Record
	}
	pairs := make([]pair, len(keys))
	for i := range keys {
		pairs[i] = pair{key: keys[i], record: records[i]}
	}

	path := kvquery.ParsePath(orderBy)
	sort.SliceStable(pairs, func(i, j int) bool {
		vi, _ := path.Resolve(pairs[i].record)
		vj, _ := path.Resolve(pairs[j].record)
		return kvquery.CompareValues(vi, vj) < 0
	})

	ordered := make([]kvquery.Key, len(pairs))
	for i, p := range pairs {
		ordered[i] = rawKeyValue(p.key)
	}
	return kvquery.Result{Kind: kvquery.ResultKeys, Keys: ordered}, nil
}

func materializeLookup(ctx context.Context, handle store.Handle, keys [][]byte) (kvquery.Result, error) {
	records, err := readAll(ctx, handle, keys)
	if err != nil {
		return kvquery.Result{}, err
	}

	lookup := make(map[string]kvquery.Record, len(keys))
	for i, key := range keys {
		lookup[keyString(key)] = records[i]
	}
	return kvquery.Result{Kind: kvquery.ResultLookup, Lookup: lookup}, nil
}

func readAll(ctx context.Context, handle store.Handle, keys [][]byte) ([]kvquery.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return handle.ReadAll(ctx, keys)
}

// sortRecords orders records in place by the dotted path orderBy,
// using the same natural ordering (absent last) CompareValues defines.
func sortRecords(records []kvquery.Record, orderBy string) {
	path := kvquery.ParsePath(orderBy)
	sort.SliceStable(records, func(i, j int) bool {
		vi, _ := path.Resolve(records[i])
		vj, _ := path.Resolve(records[j])
		return kvquery.CompareValues(vi, vj) < 0
	})
}

// rawKeyValue and keyString decode an encoded primary key back to a
// displayable Value/string. The evaluator never needs the type tag
// once a key is about to leave as a result, only the value it encodes.
func rawKeyValue(key []byte) kvquery.Key {
	if len(key) == 0 {
		return nil
	}
	v, err := kvquery.DecodeValue(kvquery.ValueType(key[0]), key[1:])
	if err != nil {
		return string(key)
	}
	return v
}

func keyString(key []byte) string {
	v := rawKeyValue(key)
	if s, ok := v.(string); ok {
		return s
	}
	return kvquery.FormatKeyString(v)
}

func toKeyValues(keys [][]byte) []kvquery.Key {
	out := make([]kvquery.Key, len(keys))
	for i, k := range keys {
		out[i] = rawKeyValue(k)
	}
	return out
}
