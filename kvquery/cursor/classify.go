// Package cursor classifies predicates into concrete execution
// strategies (§4.3) and drives the resulting cursors (§4.4's
// per-cursor half of the merge-join protocol).
package cursor

import (
	"fmt"
	"strings"

	"github.com/kvquery/kvquery"
	"github.com/kvquery/kvquery/store"
)

// SourceKind names the three cursor strategies the classifier picks
// between — a tagged variant rather than a class hierarchy, per
// DESIGN NOTES.
type SourceKind int

const (
	SourcePK SourceKind = iota
	SourceIndex
	SourceScan
)

func (k SourceKind) String() string {
	switch k {
	case SourcePK:
		return "pk"
	case SourceIndex:
		return "index"
	case SourceScan:
		return "scan"
	default:
		return "unknown"
	}
}

// Plan is the classifier's decision for one predicate. PK/Index plans
// carry the concrete key Range to scan; Scan plans carry the
// in-memory Match predicate and sweep every primary key.
type Plan struct {
	Predicate kvquery.Predicate
	Source    SourceKind
	IndexName string
	Range     store.Range
	Match     func(kvquery.Record) bool
}

// Classify picks PK / declared-index / scan for pred against schema —
// primary key if the target matches the PK path, a declared index if
// the target names one, otherwise a full scan filtered at each row by
// the path resolver (§4.2's source-classification rule).
func Classify(schema kvquery.StoreSchema, pred kvquery.Predicate) (Plan, error) {
	if pred.Target == schema.PrimaryKeyPath {
		r, err := predicateRange(pred, false)
		if err != nil {
			return Plan{}, err
		}
		return Plan{Predicate: pred, Source: SourcePK, Range: r}, nil
	}

	if _, ok := schema.Indices[pred.Target]; ok {
		r, err := predicateRange(pred, true)
		if err != nil {
			return Plan{}, err
		}
		return Plan{Predicate: pred, Source: SourceIndex, IndexName: pred.Target, Range: r}, nil
	}

	path := kvquery.ParsePath(pred.Target)
	return Plan{Predicate: pred, Source: SourceScan, Match: scanMatcher(path, pred)}, nil
}

// predicateRange builds the concrete byte Range for a PK or Index
// predicate. Index ranges bound only the value component of the
// composite entry key — see keyenc.go's EncodePrimaryKey/IndexValuePrefix
// doc comments for why a bare value prefix, not the full composite key,
// is the correct bound on both sides.
func predicateRange(pred kvquery.Predicate, isIndex bool) (store.Range, error) {
	switch pred.Kind {
	case kvquery.PredEqual:
		if isIndex {
			lo := store.IndexValuePrefix(pred.Value)
			return store.Range{Kind: store.Bounded, Lo: lo, Hi: store.PrefixUpperBound(lo), HiExclusive: true}, nil
		}
		key := store.EncodePrimaryKey(pred.Value)
		return store.Range{Kind: store.Singleton, Lo: key, Hi: key}, nil

	case kvquery.PredPrefix:
		// Prefix is always matched as a string, per the open-question
		// decision in DESIGN.md: non-string PK/index values simply never
		// match a prefix predicate (the store's key comparator is total,
		// but a TypeString-tagged bound sorts in its own partition).
		lo := store.EncodePrimaryKey(kvquery.String(pred.Prefix))
		return store.Range{Kind: store.Bounded, Lo: lo, Hi: store.PrefixUpperBound(lo), HiExclusive: true}, nil

	case kvquery.PredRange:
		r := store.Range{Kind: rangeKind(pred.Lo, pred.Hi)}
		if pred.Lo != nil {
			r.Lo = store.EncodePrimaryKey(*pred.Lo)
		}
		if pred.Hi != nil {
			if isIndex {
				r.Hi = store.PrefixUpperBound(store.IndexValuePrefix(*pred.Hi))
				r.HiExclusive = true
			} else {
				r.Hi = store.EncodePrimaryKey(*pred.Hi)
			}
		}
		return r, nil

	default:
		return store.Range{}, kvquery.InternalErr("cursor.Classify", "unrecognized predicate kind %v", pred.Kind)
	}
}

func rangeKind(lo, hi *kvquery.Value) store.BoundKind {
	switch {
	case lo != nil && hi != nil:
		return store.Bounded
	case lo != nil:
		return store.LowerBounded
	case hi != nil:
		return store.UpperBounded
	default:
		return store.Unbounded
	}
}

// scanMatcher builds the per-row predicate a Scan cursor filters with,
// resolving path against each candidate record.
func scanMatcher(path kvquery.Path, pred kvquery.Predicate) func(kvquery.Record) bool {
	switch pred.Kind {
	case kvquery.PredEqual:
		return func(r kvquery.Record) bool {
			v, ok := path.Resolve(r)
			return ok && kvquery.CompareValues(v, pred.Value) == 0
		}

	case kvquery.PredPrefix:
		// The reference scanner coerces to string before startsWith;
		// kept as-is per the open-question decision in DESIGN.md.
		return func(r kvquery.Record) bool {
			v, ok := path.Resolve(r)
			if !ok {
				return false
			}
			return strings.HasPrefix(fmt.Sprint(v), pred.Prefix)
		}

	case kvquery.PredRange:
		return func(r kvquery.Record) bool {
			v, ok := path.Resolve(r)
			if !ok {
				return false
			}
			if pred.Lo != nil && kvquery.CompareValues(v, *pred.Lo) < 0 {
				return false
			}
			if pred.Hi != nil && kvquery.CompareValues(v, *pred.Hi) > 0 {
				return false
			}
			return true
		}

	default:
		return func(kvquery.Record) bool { return false }
	}
}
