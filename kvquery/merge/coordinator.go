// Package merge implements the multi-cursor merge-join coordinator —
// the algorithmic heart of the evaluator (§4.4): it synchronizes
// several primary-key-ordered cursors and emits the ordered,
// deduplicated key sequence that satisfies the and/or join predicate.
package merge

import (
	"bytes"
	"context"
	"sort"

	"github.com/kvquery/kvquery"
	"github.com/kvquery/kvquery/cursor"
)

// Options configures one run: the join mode and the $from/$to/$limit
// paging controls.
type Options struct {
	Join  kvquery.JoinMode
	From  *uint64
	To    *uint64
	Limit *uint64

	// OnStep, if set, is called once per coordinator step with whether
	// the step produced a deduplicated join match (which $from may still
	// keep out of the result) and that key, nil when there was none —
	// the hook the CLI's -verbose mode uses to surface join/step events
	// without the coordinator itself depending on the annotation package.
	OnStep func(emitted bool, key []byte)
}

// Run drives cursors under the single-step protocol of §4.4 and
// returns the ordered, deduplicated primary keys that satisfy the join,
// honoring $from/$to/$limit and terminating early when possible. Every
// cursor is closed on every return path, including error and
// cancellation — cursors are scoped to this call (§5). Every cursor
// must yield primary keys in ascending byte order: both the and-mode
// lowest-cursor advance and the or-mode previous-key dedup rely on it,
// and Run does not check it.
func Run(ctx context.Context, cursors []cursor.Driver, opts Options) ([][]byte, error) {
	defer func() {
		for _, c := range cursors {
			c.Close()
		}
	}()

	if len(cursors) == 0 {
		return nil, nil
	}

	for _, c := range cursors {
		if err := c.Advance(ctx); err != nil {
			return nil, err
		}
	}

	var result [][]byte
	var prevKey []byte
	var n uint64

	for {
		match, advance, terminate := step(cursors, opts.Join, prevKey)
		if terminate {
			return result, nil
		}

		if opts.OnStep != nil {
			opts.OnStep(match != nil, match)
		}

		if match != nil {
			n++
			if opts.From == nil || n > *opts.From {
				result = append(result, match)
			}
			prevKey = match

			if opts.To != nil && n > *opts.To {
				return result, nil
			}
			if opts.Limit != nil && uint64(len(result)) == *opts.Limit {
				return result, nil
			}
		}

		if len(advance) == 0 {
			return result, nil
		}
		for _, c := range advance {
			if err := ctx.Err(); err != nil {
				return nil, kvquery.CancelledErr("merge.Run", err)
			}
			if err := c.Advance(ctx); err != nil {
				return nil, err
			}
		}
	}
}

// step computes one iteration's candidate match and the set of cursors
// to advance next, per the and/or rules of §4.4. prevKey is the last
// key passed through the dedup check, not necessarily the last key
// actually included in the result (an out-of-$from key still updates it,
// so the same primary key is never re-candidated on the following step).
func step(cursors []cursor.Driver, mode kvquery.JoinMode, prevKey []byte) (match []byte, advance []cursor.Driver, terminate bool) {
	switch mode {
	case kvquery.JoinOr:
		live := make([]cursor.Driver, 0, len(cursors))
		for _, c := range cursors {
			if !c.Done() {
				live = append(live, c)
			}
		}
		if len(live) == 0 {
			return nil, nil, true
		}
		sortByKey(live)

		lowest := live[0].CurrentPrimaryKey()
		for _, c := range live {
			if bytes.Equal(c.CurrentPrimaryKey(), lowest) {
				advance = append(advance, c)
			}
		}
		if prevKey != nil && bytes.Equal(lowest, prevKey) {
			return nil, advance, false
		}
		return lowest, advance, false

	case kvquery.JoinAnd:
		for _, c := range cursors {
			if c.Done() {
				return nil, nil, true
			}
		}

		ordered := make([]cursor.Driver, len(cursors))
		copy(ordered, cursors)
		sortByKey(ordered)

		lowest := ordered[0].CurrentPrimaryKey()
		allSame := true
		for _, c := range ordered {
			if !bytes.Equal(c.CurrentPrimaryKey(), lowest) {
				allSame = false
				break
			}
		}

		if !allSame {
			return nil, []cursor.Driver{ordered[0]}, false
		}
		if prevKey != nil && bytes.Equal(lowest, prevKey) {
			return nil, ordered, false
		}
		return lowest, ordered, false

	default:
		return nil, nil, true
	}
}

func sortByKey(cursors []cursor.Driver) {
	sort.Slice(cursors, func(i, j int) bool {
		return bytes.Compare(cursors[i].CurrentPrimaryKey(), cursors[j].CurrentPrimaryKey()) < 0
	})
}
