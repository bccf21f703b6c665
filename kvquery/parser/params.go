// Package parser turns a URL-encoded parameter map (or query string)
// into the evaluator's normalized predicate list and control set
// (§4.2), pairing same-target $from/$to parameters into one range
// predicate and validating every control value.
package parser

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/kvquery/kvquery"
)

// rangeAccum collects the from/to halves of one target's range
// predicate as they're encountered in arbitrary order, adapted from
// the teacher's operator-dispatch switch in predicate_parser.go but
// reworked for net/url's flat key=value wire format instead of EDN
// s-expressions.
type rangeAccum struct {
	lo, hi *string
}

// ParseQueryString decodes a raw URL query string and parses it.
// net/url.ParseQuery collects every value of a duplicate key; only the
// last one is kept here — matching the wire-format spec's "duplicate
// keys take the last occurrence" rule.
func ParseQueryString(query string) ([]kvquery.Predicate, kvquery.Controls, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, kvquery.Controls{}, kvquery.InvalidArgument("parser.ParseQueryString", "malformed query string: %v", err)
	}
	raw := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		raw[k] = vs[len(vs)-1]
	}
	return ParseParams(raw)
}

// ParseParams parses an already-decoded parameter map into predicates
// and controls. An empty map returns an empty predicate list and
// default controls — the null-query case the query entry point
// short-circuits on (§4.2).
func ParseParams(raw map[string]string) ([]kvquery.Predicate, kvquery.Controls, error) {
	controls := kvquery.Controls{Join: kvquery.JoinAnd, Format: kvquery.FormatRecords}
	var predicates []kvquery.Predicate
	ranges := make(map[string]*rangeAccum)

	for key, value := range raw {
		if strings.HasPrefix(key, "$") {
			if err := applyControl(&controls, key[1:], value); err != nil {
				return nil, kvquery.Controls{}, err
			}
			continue
		}

		target, op := splitTarget(key)
		switch op {
		case "value":
			predicates = append(predicates, kvquery.Predicate{Target: target, Kind: kvquery.PredEqual, Value: value})
		case "prefix":
			predicates = append(predicates, kvquery.Predicate{Target: target, Kind: kvquery.PredPrefix, Prefix: value})
		case "from":
			accumFor(ranges, target).lo = strPtr(value)
		case "to":
			accumFor(ranges, target).hi = strPtr(value)
		default:
			return nil, kvquery.Controls{}, kvquery.InvalidArgument("parser.ParseParams", "unknown operator %q on %q", op, target)
		}
	}

	if controls.From != nil && controls.To != nil && *controls.To < *controls.From {
		return nil, kvquery.Controls{}, kvquery.InvalidArgument("parser.ParseParams", "$to (%d) must be >= $from (%d)", *controls.To, *controls.From)
	}

	for target, acc := range ranges {
		pred := kvquery.Predicate{Target: target, Kind: kvquery.PredRange}
		if acc.lo != nil {
			v := kvquery.Value(*acc.lo)
			pred.Lo = &v
		}
		if acc.hi != nil {
			v := kvquery.Value(*acc.hi)
			pred.Hi = &v
		}
		predicates = append(predicates, pred)
	}

	// Map iteration order is random; sort for deterministic output. Order
	// carries no semantic weight — conjunction/disjunction are
	// order-independent (§8) — this is purely for reproducible callers.
	sort.Slice(predicates, func(i, j int) bool {
		if predicates[i].Target != predicates[j].Target {
			return predicates[i].Target < predicates[j].Target
		}
		return predicates[i].Kind < predicates[j].Kind
	})

	return predicates, controls, nil
}

func applyControl(controls *kvquery.Controls, name, value string) error {
	switch name {
	case "join":
		switch value {
		case "and":
			controls.Join = kvquery.JoinAnd
		case "or":
			controls.Join = kvquery.JoinOr
		default:
			return kvquery.InvalidArgument("parser.ParseParams", "invalid $join value %q", value)
		}
	case "from":
		n, err := parseNonNegative(value)
		if err != nil {
			return kvquery.InvalidArgument("parser.ParseParams", "invalid $from value %q: %v", value, err)
		}
		controls.From = &n
	case "to":
		n, err := parseNonNegative(value)
		if err != nil {
			return kvquery.InvalidArgument("parser.ParseParams", "invalid $to value %q: %v", value, err)
		}
		controls.To = &n
	case "limit":
		n, err := parseNonNegative(value)
		if err != nil {
			return kvquery.InvalidArgument("parser.ParseParams", "invalid $limit value %q: %v", value, err)
		}
		controls.Limit = &n
	case "format":
		switch value {
		case "records":
			controls.Format = kvquery.FormatRecords
		case "keys":
			controls.Format = kvquery.FormatKeys
		case "lookup":
			controls.Format = kvquery.FormatLookup
		default:
			return kvquery.InvalidArgument("parser.ParseParams", "invalid $format value %q", value)
		}
	case "orderBy":
		controls.OrderBy = value
	default:
		return kvquery.InvalidArgument("parser.ParseParams", "unknown control parameter %q", "$"+name)
	}
	return nil
}

func accumFor(ranges map[string]*rangeAccum, target string) *rangeAccum {
	acc, ok := ranges[target]
	if !ok {
		acc = &rangeAccum{}
		ranges[target] = acc
	}
	return acc
}

func splitTarget(key string) (target, op string) {
	if idx := strings.IndexByte(key, '$'); idx >= 0 {
		return key[:idx], key[idx+1:]
	}
	return key, "value"
}

func parseNonNegative(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func strPtr(s string) *string { return &s }
