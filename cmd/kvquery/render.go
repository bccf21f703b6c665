package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/kvquery/kvquery"
)

// renderRecords formats a []kvquery.Record as a markdown table, one
// column per distinct top-level path across all records plus "pk".
func renderRecords(pkPath string, records []kvquery.Record) string {
	if len(records) == 0 {
		return "_No rows_"
	}

	colSet := map[string]bool{}
	for _, r := range records {
		for k := range r {
			colSet[k] = true
		}
	}
	delete(colSet, pkPath)
	columns := append([]string{pkPath}, sortedKeys(colSet)...)

	tableString := &strings.Builder{}
	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(columns)

	for _, r := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = formatValue(r[col])
		}
		table.Append(row)
	}
	table.Render()

	fmt.Fprintf(tableString, "\n_%d rows_\n", len(records))
	return tableString.String()
}

// renderLookup formats a $format=lookup result as a markdown table of
// key/record pairs, keys sorted for deterministic CLI output.
func renderLookup(pkPath string, lookup map[string]kvquery.Record) string {
	if len(lookup) == 0 {
		return "_No rows_"
	}

	keys := make([]string, 0, len(lookup))
	for k := range lookup {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]kvquery.Record, len(keys))
	for i, k := range keys {
		records[i] = lookup[k]
	}
	return renderRecords(pkPath, records)
}

// renderKeys formats a $format=keys result as a plain JSON array,
// since a single-column table adds no value over the array itself.
func renderKeys(keys []kvquery.Key) string {
	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = kvquery.FormatKeyString(k)
	}
	out, err := json.Marshal(strs)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(out)
}

func formatValue(val interface{}) string {
	if val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%.2f", v)
	case bool:
		return fmt.Sprintf("%t", v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case []byte:
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
