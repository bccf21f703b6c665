package cursor

import (
	"context"

	"github.com/kvquery/kvquery"
	"github.com/kvquery/kvquery/store"
)

// Driver is what the merge coordinator advances: the primary key and
// record of the cursor's current row, completion status, and an
// async advance — the same shape as store.Cursor, trimmed to what the
// coordinator actually reads (it never needs a Scan cursor's raw,
// possibly-skipped index/PK key).
type Driver interface {
	CurrentPrimaryKey() []byte
	CurrentValue() kvquery.Record
	Advance(ctx context.Context) error
	Done() bool
	Close() error
}

// Open opens the store-level cursor(s) a Plan calls for: a direct
// store.Cursor for PK/Index plans, or a primary-key sweep wrapped in a
// row filter for Scan plans (§4.3's "Scan cursors emit the primary key
// only when match(record) holds; otherwise they auto-advance internally").
func Open(ctx context.Context, handle store.Handle, plan Plan) (Driver, error) {
	switch plan.Source {
	case SourcePK:
		c, err := handle.OpenPrimaryKeyCursor(ctx, plan.Range)
		if err != nil {
			return nil, err
		}
		return c, nil

	case SourceIndex:
		c, err := handle.OpenIndexCursor(ctx, plan.IndexName, plan.Range)
		if err != nil {
			return nil, err
		}
		return c, nil

	case SourceScan:
		inner, err := handle.OpenPrimaryKeyCursor(ctx, store.Range{Kind: store.Unbounded})
		if err != nil {
			return nil, err
		}
		return &scanDriver{inner: inner, match: plan.Match}, nil

	default:
		return nil, kvquery.InternalErr("cursor.Open", "unrecognized source kind %v", plan.Source)
	}
}

// scanDriver wraps a full primary-key cursor, auto-advancing past rows
// that don't satisfy the scan's row predicate so the coordinator only
// ever observes matching rows.
type scanDriver struct {
	inner store.Cursor
	match func(kvquery.Record) bool
}

func (d *scanDriver) CurrentPrimaryKey() []byte    { return d.inner.CurrentPrimaryKey() }
func (d *scanDriver) CurrentValue() kvquery.Record { return d.inner.CurrentValue() }
func (d *scanDriver) Done() bool                   { return d.inner.Done() }
func (d *scanDriver) Close() error                 { return d.inner.Close() }

func (d *scanDriver) Advance(ctx context.Context) error {
	for {
		if err := d.inner.Advance(ctx); err != nil {
			return err
		}
		if d.inner.Done() {
			return nil
		}
		if d.match(d.inner.CurrentValue()) {
			return nil
		}
	}
}
