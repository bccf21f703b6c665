package store

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/kvquery/kvquery"
)

// indexEntry is one row of a secondary index: the composite
// value+primary-key byte key MemStore keeps sorted, alongside the
// primary key it resolves to (kept decoded to avoid re-splitting it on
// every read).
type indexEntry struct {
	key []byte
	pk  []byte
}

// MemStore is the client-side emulation backend: a store.Handle backed
// entirely by sorted in-memory slices. It exists to prove the evaluator
// gives identical answers whether the records live in a local client
// cache (MemStore) or a server-side BadgerStore — §6 of the
// specification. Grounded on the teacher's own layered-index design
// (one sorted structure per index) but simplified to plain slices
// since this store never needs the teacher's MVCC/transaction log.
type MemStore struct {
	mu     sync.RWMutex
	schema kvquery.StoreSchema

	// pk is sorted by encoded primary key.
	pk []pkEntry
	// indices maps index name to its sorted entries.
	indices map[string][]indexEntry
}

type pkEntry struct {
	key    []byte
	record kvquery.Record
}

// NewMemStore creates an empty in-memory store for the given schema.
func NewMemStore(schema kvquery.StoreSchema) *MemStore {
	return &MemStore{
		schema:  schema,
		indices: make(map[string][]indexEntry, len(schema.Indices)),
	}
}

func (s *MemStore) PrimaryKeyPath() string { return s.schema.PrimaryKeyPath }

func (s *MemStore) IndexNames() []string {
	names := make([]string, 0, len(s.schema.Indices))
	for name := range s.schema.Indices {
		names = append(names, name)
	}
	return names
}

// Put inserts or replaces a record, keeping the primary-key slice and
// every declared index sorted. Not part of store.Handle — it is how
// callers and tests seed a MemStore.
func (s *MemStore) Put(record kvquery.Record) error {
	pkPath := kvquery.ParsePath(s.schema.PrimaryKeyPath)
	pkValue, ok := pkPath.Resolve(record)
	if !ok {
		return kvquery.InvalidArgument("Put", "record missing primary key path %q", s.schema.PrimaryKeyPath)
	}
	pk := EncodePrimaryKey(pkValue)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(pk)

	i := sort.Search(len(s.pk), func(i int) bool { return bytes.Compare(s.pk[i].key, pk) >= 0 })
	s.pk = append(s.pk, pkEntry{})
	copy(s.pk[i+1:], s.pk[i:])
	s.pk[i] = pkEntry{key: pk, record: record}

	for name, idx := range s.schema.Indices {
		path := kvquery.ParsePath(idx.Path)
		v, present := path.Resolve(record)
		if !present {
			continue
		}
		entry := indexEntry{key: EncodeIndexEntryKey(v, pk), pk: pk}
		entries := s.indices[name]
		j := sort.Search(len(entries), func(j int) bool { return bytes.Compare(entries[j].key, entry.key) >= 0 })
		entries = append(entries, indexEntry{})
		copy(entries[j+1:], entries[j:])
		entries[j] = entry
		s.indices[name] = entries
	}
	return nil
}

// removeLocked deletes any existing row (and its index entries) for pk.
// Callers must hold s.mu.
func (s *MemStore) removeLocked(pk []byte) {
	i := sort.Search(len(s.pk), func(i int) bool { return bytes.Compare(s.pk[i].key, pk) >= 0 })
	if i >= len(s.pk) || !bytes.Equal(s.pk[i].key, pk) {
		return
	}
	old := s.pk[i].record
	s.pk = append(s.pk[:i], s.pk[i+1:]...)

	for name, idx := range s.schema.Indices {
		path := kvquery.ParsePath(idx.Path)
		v, present := path.Resolve(old)
		if !present {
			continue
		}
		key := EncodeIndexEntryKey(v, pk)
		entries := s.indices[name]
		j := sort.Search(len(entries), func(j int) bool { return bytes.Compare(entries[j].key, key) >= 0 })
		if j < len(entries) && bytes.Equal(entries[j].key, key) {
			s.indices[name] = append(entries[:j], entries[j+1:]...)
		}
	}
}

func (s *MemStore) Read(ctx context.Context, key []byte) (kvquery.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, kvquery.CancelledErr("Read", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.pk), func(i int) bool { return bytes.Compare(s.pk[i].key, key) >= 0 })
	if i >= len(s.pk) || !bytes.Equal(s.pk[i].key, key) {
		return nil, false, nil
	}
	return s.pk[i].record, true, nil
}

func (s *MemStore) ReadAll(ctx context.Context, keys [][]byte) ([]kvquery.Record, error) {
	out := make([]kvquery.Record, len(keys))
	for i, key := range keys {
		record, found, err := s.Read(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			out[i] = record
		}
	}
	return out, nil
}

func (s *MemStore) OpenPrimaryKeyCursor(ctx context.Context, r Range) (Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, kvquery.CancelledErr("OpenPrimaryKeyCursor", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]pkEntry, len(s.pk))
	copy(snapshot, s.pk)
	return &memPKCursor{entries: snapshot, r: r, pos: -1}, nil
}

func (s *MemStore) OpenIndexCursor(ctx context.Context, name string, r Range) (Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, kvquery.CancelledErr("OpenIndexCursor", err)
	}
	if _, ok := s.schema.Indices[name]; !ok {
		return nil, kvquery.InvalidArgument("OpenIndexCursor", "unknown index %q", name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.indices[name]
	snapshot := make([]indexEntry, len(entries))
	copy(snapshot, entries)
	return &memIndexCursor{store: s, entries: snapshot, r: r, pos: -1}, nil
}

func (s *MemStore) Close() error { return nil }

// inRange applies a Range's Lo/Hi/HiExclusive bounds to a candidate key.
func inRange(r Range, key []byte) (belowLo, aboveHi bool) {
	if r.Lo != nil && bytes.Compare(key, r.Lo) < 0 {
		belowLo = true
	}
	if r.Hi != nil {
		cmp := bytes.Compare(key, r.Hi)
		if r.HiExclusive && cmp >= 0 {
			aboveHi = true
		}
		if !r.HiExclusive && cmp > 0 {
			aboveHi = true
		}
	}
	return
}

// memPKCursor walks a snapshot of the primary-key slice, skipping
// entries below r.Lo and stopping at the first entry beyond r.Hi.
type memPKCursor struct {
	entries []pkEntry
	r       Range
	pos     int
	done    bool
}

func (c *memPKCursor) CurrentKey() []byte           { return c.entries[c.pos].key }
func (c *memPKCursor) CurrentPrimaryKey() []byte    { return c.entries[c.pos].key }
func (c *memPKCursor) CurrentValue() kvquery.Record { return c.entries[c.pos].record }
func (c *memPKCursor) Done() bool                   { return c.done }

func (c *memPKCursor) Advance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return kvquery.CancelledErr("Cursor.Advance", err)
	}
	if c.done {
		return nil
	}
	for {
		c.pos++
		if c.pos >= len(c.entries) {
			c.done = true
			return nil
		}
		below, above := inRange(c.r, c.entries[c.pos].key)
		if above {
			c.done = true
			return nil
		}
		if below {
			continue
		}
		return nil
	}
}

func (c *memPKCursor) Close() error { return nil }

// memIndexCursor walks a snapshot of one index's sorted entries,
// resolving each entry's record from the store on demand.
type memIndexCursor struct {
	store   *MemStore
	entries []indexEntry
	r       Range
	pos     int
	done    bool
	record  kvquery.Record
}

func (c *memIndexCursor) CurrentKey() []byte           { return c.entries[c.pos].key }
func (c *memIndexCursor) CurrentPrimaryKey() []byte    { return c.entries[c.pos].pk }
func (c *memIndexCursor) CurrentValue() kvquery.Record { return c.record }
func (c *memIndexCursor) Done() bool                   { return c.done }

func (c *memIndexCursor) Advance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return kvquery.CancelledErr("Cursor.Advance", err)
	}
	if c.done {
		return nil
	}
	for {
		c.pos++
		if c.pos >= len(c.entries) {
			c.done = true
			return nil
		}
		below, above := inRange(c.r, c.entries[c.pos].key)
		if above {
			c.done = true
			return nil
		}
		if below {
			continue
		}
		record, found, err := c.store.Read(ctx, c.entries[c.pos].pk)
		if err != nil {
			return err
		}
		if !found {
			return kvquery.InternalErr("Cursor.Advance", "index entry points at missing record")
		}
		c.record = record
		return nil
	}
}

func (c *memIndexCursor) Close() error { return nil }
