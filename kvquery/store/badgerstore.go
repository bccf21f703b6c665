package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kvquery/kvquery"
)

// dataPrefix namespaces primary-key rows; indexPrefix namespaces one
// secondary index's entries. A single Badger database backs every store
// opened against it, so every key this store writes carries one of
// these tags first — adapted from the teacher's NewBadgerStore, which
// tags every key with a 1-byte IndexType instead (EAVT/AEVT/AVET/...).
var dataPrefix = []byte{0x01}

func indexPrefix(name string) []byte {
	return concatBytes([]byte{0x02}, []byte(name), []byte{separator})
}

// BadgerStore is the server-side persistence backend: a store.Handle
// implemented over a BadgerDB database, proving the evaluator produces
// the same answers against a real disk-backed store as it does against
// MemStore. Adapted directly from the teacher's BadgerStore, repointed
// from datom indices (EAVT/AVET/...) to this store's record/index keys.
type BadgerStore struct {
	db     *badger.DB
	schema kvquery.StoreSchema
}

// NewBadgerStore opens (or creates) a BadgerDB database at path for the
// given store schema. Option tuning mirrors the teacher's: generous
// memtable/cache sizing for a read-heavy query workload, conflict
// detection disabled since this store never runs concurrent
// read-write transactions against the same keys.
func NewBadgerStore(path string, schema kvquery.StoreSchema) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.MemTableSize = 128 << 20
	opts.BlockCacheSize = 256 << 20
	opts.IndexCacheSize = 100 << 20
	opts.DetectConflicts = false
	opts.NumCompactors = 4
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, kvquery.StoreErr("NewBadgerStore", fmt.Errorf("open badger: %w", err))
	}

	return &BadgerStore{db: db, schema: schema}, nil
}

func (s *BadgerStore) PrimaryKeyPath() string { return s.schema.PrimaryKeyPath }

func (s *BadgerStore) IndexNames() []string {
	names := make([]string, 0, len(s.schema.Indices))
	for name := range s.schema.Indices {
		names = append(names, name)
	}
	return names
}

// Put writes a record, maintaining every declared secondary index.
// Not part of store.Handle (the evaluator never mutates data) — it is
// how callers and tests seed a BadgerStore, the same role the teacher's
// Assert plays for its BadgerStore.
func (s *BadgerStore) Put(ctx context.Context, record kvquery.Record) error {
	if err := ctx.Err(); err != nil {
		return kvquery.CancelledErr("Put", err)
	}

	pkPath := kvquery.ParsePath(s.schema.PrimaryKeyPath)
	pkValue, ok := pkPath.Resolve(record)
	if !ok {
		return kvquery.InvalidArgument("Put", "record missing primary key path %q", s.schema.PrimaryKeyPath)
	}
	pk := EncodePrimaryKey(pkValue)

	raw, err := encodeRecord(record)
	if err != nil {
		return kvquery.InternalErr("Put", "encode record: %v", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if item, err := txn.Get(concatBytes(dataPrefix, pk)); err == nil {
			var old kvquery.Record
			if err := item.Value(func(val []byte) (derr error) { old, derr = decodeRecord(val); return derr }); err != nil {
				return err
			}
			for name, idx := range s.schema.Indices {
				if v, present := kvquery.ParsePath(idx.Path).Resolve(old); present {
					if err := txn.Delete(concatBytes(indexPrefix(name), EncodeIndexEntryKey(v, pk))); err != nil {
						return err
					}
				}
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(concatBytes(dataPrefix, pk), raw); err != nil {
			return err
		}
		for name, idx := range s.schema.Indices {
			path := kvquery.ParsePath(idx.Path)
			v, present := path.Resolve(record)
			if !present {
				continue
			}
			key := concatBytes(indexPrefix(name), EncodeIndexEntryKey(v, pk))
			if err := txn.Set(key, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) Read(ctx context.Context, key []byte) (kvquery.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, kvquery.CancelledErr("Read", err)
	}

	var record kvquery.Record
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(concatBytes(dataPrefix, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			record, err = decodeRecord(val)
			return err
		})
	})
	if err != nil {
		return nil, false, kvquery.StoreErr("Read", err)
	}
	return record, found, nil
}

func (s *BadgerStore) ReadAll(ctx context.Context, keys [][]byte) ([]kvquery.Record, error) {
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

func (s *BadgerStore) OpenPrimaryKeyCursor(ctx context.Context, r Range) (Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, kvquery.CancelledErr("OpenPrimaryKeyCursor", err)
	}
	return s.openCursor(r, dataPrefix, false)
}

func (s *BadgerStore) OpenIndexCursor(ctx context.Context, name string, r Range) (Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, kvquery.CancelledErr("OpenIndexCursor", err)
	}
	if _, ok := s.schema.Indices[name]; !ok {
		return nil, kvquery.InvalidArgument("OpenIndexCursor", "unknown index %q", name)
	}
	return s.openCursor(r, indexPrefix(name), true)
}

func (s *BadgerStore) openCursor(r Range, prefix []byte, isIndex bool) (Cursor, error) {
	txn := s.db.NewTransaction(false)

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = !isIndex
	opts.PrefetchSize = 256
	it := txn.NewIterator(opts)

	seek := append([]byte{}, prefix...)
	if r.Lo != nil {
		seek = concatBytes(prefix, r.Lo)
	}

	var hi []byte
	if r.Hi != nil {
		hi = concatBytes(prefix, r.Hi)
	} else {
		hi = PrefixUpperBound(prefix)
	}

	return &badgerCursor{
		store:       s,
		txn:         txn,
		it:          it,
		prefix:      prefix,
		seek:        seek,
		hi:          hi,
		hiExclusive: r.Hi == nil || r.HiExclusive,
		isIndex:     isIndex,
	}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerCursor implements store.Cursor over one BadgerDB iterator,
// adapted from the teacher's BadgerIterator (Seek/Next/Valid driving a
// start/end byte-range scan) but yielding decoded records and, for
// index cursors, the primary key recovered from the composite entry key.
type badgerCursor struct {
	store       *BadgerStore
	txn         *badger.Txn
	it          *badger.Iterator
	prefix      []byte
	seek        []byte
	hi          []byte
	hiExclusive bool
	isIndex     bool

	started bool
	done    bool

	curKey   []byte
	curPK    []byte
	curValue kvquery.Record
}

func (c *badgerCursor) CurrentKey() []byte                { return c.curKey }
func (c *badgerCursor) CurrentPrimaryKey() []byte         { return c.curPK }
func (c *badgerCursor) CurrentValue() kvquery.Record      { return c.curValue }
func (c *badgerCursor) Done() bool                        { return c.done }

func (c *badgerCursor) Advance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return kvquery.CancelledErr("Cursor.Advance", err)
	}
	if c.done {
		return nil
	}

	if !c.started {
		c.it.Seek(c.seek)
		c.started = true
	} else {
		c.it.Next()
	}

	if !c.it.Valid() {
		c.done = true
		return nil
	}

	item := c.it.Item()
	fullKey := item.KeyCopy(nil)

	cmp := bytes.Compare(fullKey, c.hi)
	if (c.hiExclusive && cmp >= 0) || (!c.hiExclusive && cmp > 0) {
		c.done = true
		return nil
	}

	rawKey := fullKey[len(c.prefix):]
	c.curKey = rawKey

	if c.isIndex {
		pk := SplitIndexEntryKey(rawKey)
		c.curPK = pk
		record, found, err := c.store.Read(ctx, pk)
		if err != nil {
			return err
		}
		if !found {
			return kvquery.InternalErr("Cursor.Advance", "index entry points at missing record")
		}
		c.curValue = record
		return nil
	}

	c.curPK = rawKey
	return item.Value(func(val []byte) error {
		record, err := decodeRecord(val)
		if err != nil {
			return err
		}
		c.curValue = record
		return nil
	})
}

func (c *badgerCursor) Close() error {
	c.it.Close()
	c.txn.Discard()
	return nil
}
