// Package store defines the abstract record-store collaborator contract
// (§6 of the specification) and two concrete implementations: an
// in-memory emulation (MemStore, client-side) and a BadgerDB-backed
// store (BadgerStore, server-side persistence).
package store

import (
	"bytes"
	"context"

	"github.com/kvquery/kvquery"
)

// BoundKind tags which shape of Range this is, matching the five shapes
// the specification names: unbounded, lower-bounded, upper-bounded,
// bounded, singleton.
type BoundKind int

const (
	Unbounded BoundKind = iota
	LowerBounded
	UpperBounded
	Bounded
	Singleton
)

// Range is a key range over encoded ([]byte) keys. Lo/Hi are nil when
// that side is open. Both bounds are inclusive unless HiExclusive is
// set, which happens whenever Hi was built by PrefixUpperBound (prefix
// predicates, index equality, and index upper bounds) so that bound
// doesn't itself match. Singleton ranges have Lo == Hi and Kind == Singleton.
type Range struct {
	Kind        BoundKind
	Lo, Hi      []byte
	HiExclusive bool
}

// IsUnbounded returns whether this range has no bounds on either side.
func (r Range) IsUnbounded() bool { return r.Kind == Unbounded }

// Contains reports whether key falls within the range.
func (r Range) Contains(key []byte) bool {
	if r.Lo != nil && bytes.Compare(key, r.Lo) < 0 {
		return false
	}
	if r.Hi != nil {
		cmp := bytes.Compare(key, r.Hi)
		if r.HiExclusive && cmp >= 0 {
			return false
		}
		if !r.HiExclusive && cmp > 0 {
			return false
		}
	}
	return true
}

// Handle is the store collaborator contract the evaluator depends on.
// Every method takes a context so callers can cancel at a suspension
// point (§5); this is enriched from the rest of the example pack (the
// teacher's own Store interface predates context.Context entirely — see
// DESIGN.md).
type Handle interface {
	// PrimaryKeyPath is the dotted path the primary key is extracted from.
	PrimaryKeyPath() string
	// IndexNames lists the declared secondary indices.
	IndexNames() []string

	// OpenPrimaryKeyCursor opens a cursor over the primary-key ordering,
	// restricted to r.
	OpenPrimaryKeyCursor(ctx context.Context, r Range) (Cursor, error)
	// OpenIndexCursor opens a cursor over the named secondary index,
	// restricted to r. The cursor still yields primary keys on each
	// tick — the index key itself is never surfaced to the caller.
	OpenIndexCursor(ctx context.Context, name string, r Range) (Cursor, error)

	// Read fetches one record by its encoded primary key.
	Read(ctx context.Context, key []byte) (kvquery.Record, bool, error)
	// ReadAll fetches many records by encoded primary key, preserving order;
	// a missing key yields a nil record at that position.
	ReadAll(ctx context.Context, keys [][]byte) ([]kvquery.Record, error)

	// Close releases the store handle.
	Close() error
}

// Cursor is a stateful iterator over a contiguous key range of the
// store or an index. It starts positioned before the first entry;
// Advance must be called once before the first CurrentKey/CurrentValue
// read.
type Cursor interface {
	// CurrentKey is the raw (possibly index) key the cursor currently points at.
	CurrentKey() []byte
	// CurrentPrimaryKey is the encoded primary key of the current row.
	CurrentPrimaryKey() []byte
	// CurrentValue is the current row's record.
	CurrentValue() kvquery.Record
	// Advance moves to the next entry in range. Done() reports whether
	// the cursor is exhausted after the call.
	Advance(ctx context.Context) error
	// Done reports whether the cursor has been exhausted.
	Done() bool
	// Close releases the cursor's resources (transaction/iterator).
	Close() error
}
