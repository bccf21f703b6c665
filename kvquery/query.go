package kvquery

import (
	"context"
	"time"

	"github.com/kvquery/kvquery/annotate"
	"github.com/kvquery/kvquery/cursor"
	"github.com/kvquery/kvquery/merge"
	"github.com/kvquery/kvquery/parser"
	"github.com/kvquery/kvquery/result"
	"github.com/kvquery/kvquery/store"
)

// Stores resolves a named store to an open handle; the query entry
// point is handed one rather than opening stores itself, since store
// lifecycle (which backend, which path) is the caller's concern.
type Stores interface {
	Open(ctx context.Context, name string) (store.Handle, error)
}

// Query is the evaluator's entry point (§4.6): validate the schema has
// storeName, parse params into predicates/controls, classify and open
// one cursor per predicate, run the merge-join, and materialize the
// requested result shape. An empty predicate list (the null query)
// short-circuits to an empty result without opening any cursor,
// regardless of $format. Query never collects annotation events; use
// QueryWithCollector for the CLI's -verbose path.
func Query(ctx context.Context, schema Schema, stores Stores, storeName string, params map[string]string) (Result, error) {
	return QueryWithCollector(ctx, schema, stores, storeName, params, nil)
}

// QueryWithCollector is Query plus a *annotate.Collector: when non-nil,
// every stage of evaluation (param parsing, cursor classification and
// opening, each join step, materialization) is recorded as a timed
// annotate.Event, mirroring the teacher's annotated-execution-context
// approach at the granularity this evaluator's shorter pipeline needs.
// A nil collector costs nothing beyond the extra nil check per call.
func QueryWithCollector(ctx context.Context, schema Schema, stores Stores, storeName string, params map[string]string, collector *annotate.Collector) (Result, error) {
	queryStart := time.Now()
	add := func(name string, start time.Time, data map[string]interface{}) {
		if collector != nil {
			collector.AddTiming(name, start, data)
		}
	}

	add(annotate.QueryInvoked, queryStart, map[string]interface{}{"params": params, "store": storeName})

	storeSchema, ok := schema.Stores[storeName]
	if !ok {
		err := SchemaMismatchErr("QueryWithCollector", storeName)
		add(annotate.ErrorStore, queryStart, map[string]interface{}{"error": err})
		return Result{}, err
	}

	parseStart := time.Now()
	predicates, controls, err := parser.ParseParams(params)
	if err != nil {
		add(annotate.ErrorParsing, parseStart, map[string]interface{}{"error": err})
		return Result{}, err
	}
	add(annotate.PredicateParsed, parseStart, map[string]interface{}{
		"predicate.count": len(predicates),
		"join":            controls.Join,
	})
	add(annotate.ControlsValidated, parseStart, map[string]interface{}{
		"format": controls.Format,
		"limit":  controls.Limit,
	})

	if len(predicates) == 0 {
		res := nullResult(controls.Format)
		add(annotate.QueryComplete, queryStart, map[string]interface{}{"keys.count": 0})
		return res, nil
	}

	handle, err := stores.Open(ctx, storeName)
	if err != nil {
		werr := StoreErr("QueryWithCollector", err)
		add(annotate.ErrorStore, queryStart, map[string]interface{}{"error": werr})
		return Result{}, werr
	}
	// Query never closes handle: per §5, a store handle may serve many
	// concurrent queries, so its lifecycle belongs to Stores, not to any
	// one call. Only the cursors this call opened are scoped to it.

	drivers := make([]cursor.Driver, 0, len(predicates))
	for _, pred := range predicates {
		classifyStart := time.Now()
		plan, err := cursor.Classify(storeSchema, pred)
		if err != nil {
			add(annotate.ErrorParsing, classifyStart, map[string]interface{}{"error": err})
			return Result{}, err
		}
		add(annotate.CursorClassified, classifyStart, map[string]interface{}{
			"target": plan.Predicate.Target,
			"source": plan.Source,
			"mode":   plan.Predicate.Kind,
		})

		openStart := time.Now()
		d, err := cursor.Open(ctx, handle, plan)
		if err != nil {
			for _, opened := range drivers {
				opened.Close()
			}
			add(annotate.ErrorStore, openStart, map[string]interface{}{"error": err})
			return Result{}, err
		}
		add(annotate.CursorOpened, openStart, map[string]interface{}{"target": plan.Predicate.Target})
		drivers = append(drivers, d)
	}

	joinStart := time.Now()
	var emitted, steps int
	keys, err := merge.Run(ctx, drivers, merge.Options{
		Join:  controls.Join,
		From:  controls.From,
		To:    controls.To,
		Limit: controls.Limit,
		OnStep: func(didEmit bool, key []byte) {
			steps++
			if didEmit {
				emitted++
			}
			add(annotate.JoinStep, joinStart, map[string]interface{}{"emit": didEmit, "advanced": steps})
		},
	})
	if err != nil {
		add(annotate.ErrorStore, joinStart, map[string]interface{}{"error": err})
		return Result{}, err
	}
	add(annotate.JoinDone, joinStart, map[string]interface{}{"keys.count": len(keys)})

	materializeStart := time.Now()
	add(annotate.MaterializeBegin, materializeStart, map[string]interface{}{
		"keys.count": len(keys),
		"format":     controls.Format,
	})
	res, err := result.Materialize(ctx, handle, keys, controls.Format, controls.OrderBy)
	if err != nil {
		add(annotate.ErrorInternal, materializeStart, map[string]interface{}{"error": err})
		return Result{}, err
	}
	add(annotate.MaterializeComplete, materializeStart, nil)
	add(annotate.QueryComplete, queryStart, map[string]interface{}{"keys.count": len(keys)})

	return res, nil
}

// StaticStores is the simplest Stores implementation: a fixed set of
// already-open handles keyed by name, never closed by Query itself
// (Query only closes the cursors it opened — callers that hand in a
// StaticStores own the handles and close them once, after all queries
// are done).
type StaticStores map[string]store.Handle

func (s StaticStores) Open(ctx context.Context, name string) (store.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, CancelledErr("StaticStores.Open", err)
	}
	handle, ok := s[name]
	if !ok {
		return nil, SchemaMismatchErr("StaticStores.Open", name)
	}
	return handle, nil
}

func nullResult(format Format) Result {
	switch format {
	case FormatKeys:
		return Result{Kind: ResultKeys}
	case FormatLookup:
		return Result{Kind: ResultLookup, Lookup: map[string]Record{}}
	default:
		return Result{Kind: ResultRecords}
	}
}
