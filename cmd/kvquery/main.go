package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kvquery/kvquery"
	"github.com/kvquery/kvquery/annotate"
	"github.com/kvquery/kvquery/store"
)

func main() {
	var dbPath string
	var interactive bool
	var help bool
	var verbose bool
	var queryStr string
	var memOnly bool

	flag.StringVar(&dbPath, "db", "", "database path")
	flag.BoolVar(&interactive, "i", false, "interactive mode")
	flag.BoolVar(&help, "h", false, "show help")
	flag.BoolVar(&verbose, "verbose", false, "verbose mode (show query annotations)")
	flag.StringVar(&queryStr, "query", "", "run a single query and exit, e.g. 'pk$prefix=a&$limit=10'")
	flag.BoolVar(&memOnly, "mem", false, "use an in-memory store instead of opening -db")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [database_path]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A key-value record query evaluator with persistent storage.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -mem -i                     # Interactive mode, in-memory demo store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -db /path/to/db -i          # Interactive mode, persistent store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mem -verbose -query 'pk$prefix=a'  # Single query with annotations\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	if dbPath == "" && flag.NArg() > 0 {
		dbPath = flag.Arg(0)
	}
	if dbPath == "" {
		dbPath = "kvquery.db"
	}

	schema := demoSchema()

	var handle store.Handle
	if memOnly {
		handle = loadDemoData(store.NewMemStore(schema.Stores["files"]))
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			log.Fatalf("database does not exist: %s (use -mem for an in-memory demo store)", dbPath)
		}
		bs, err := store.NewBadgerStore(dbPath, schema.Stores["files"])
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer bs.Close()
		handle = bs
	}

	stores := kvquery.StaticStores{"files": handle}

	var collector *annotate.Collector
	if verbose {
		formatter := annotate.NewOutputFormatter(os.Stderr)
		collector = annotate.NewCollector(formatter.Handle)
	}

	if queryStr != "" {
		if !runQuery(schema, stores, collector, queryStr, true) {
			os.Exit(1)
		}
		return
	}
	if interactive {
		runInteractive(schema, stores, collector)
		return
	}

	fmt.Println("Use -i for interactive mode or -query to run a single query.")
	flag.Usage()
}

// demoSchema describes the "files" store used by the demo/interactive
// modes: a primary key path, a "group" secondary index, and an
// unindexed "value.title" path reachable only by scan.
func demoSchema() kvquery.Schema {
	return kvquery.Schema{
		Stores: map[string]kvquery.StoreSchema{
			"files": {
				Name:           "files",
				PrimaryKeyPath: "pk",
				Indices: map[string]kvquery.IndexSchema{
					"group": {Name: "group", Path: "group"},
				},
			},
		},
	}
}

func loadDemoData(s *store.MemStore) *store.MemStore {
	records := []kvquery.Record{
		{"pk": "a", "group": "aaa", "value": kvquery.Record{"title": "a"}},
		{"pk": "aa", "group": "aaa", "value": kvquery.Record{"title": "aa"}},
		{"pk": "aaa", "group": "aaa", "value": kvquery.Record{"title": "aaa"}},
		{"pk": "bbb", "group": "bbb", "value": kvquery.Record{"title": "bbb"}},
		{"pk": "ccc", "group": "bbb", "value": kvquery.Record{"title": "ccc"}},
	}
	for _, r := range records {
		if err := s.Put(r); err != nil {
			log.Fatalf("failed to seed demo store: %v", err)
		}
	}
	return s
}

func runInteractive(schema kvquery.Schema, stores kvquery.StaticStores, collector *annotate.Collector) {
	fmt.Println("=== kvquery interactive mode ===")
	fmt.Println("Commands:")
	fmt.Println("  .help             - Show help")
	fmt.Println("  .exit             - Exit")
	fmt.Println("  <param=value&...> - Run a query against the \"files\" store")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ".exit":
			return
		case line == ".help":
			fmt.Println("Enter URL-encoded query params, e.g. pk$prefix=a&$limit=10")
		default:
			runQuery(schema, stores, collector, line, false)
		}
	}
}

// runQuery decodes one raw URL-encoded query string, evaluates it
// against the "files" store, and prints the result in the shape its
// own $format control requested. printHeader additionally echoes the
// query text first, the shape -query mode uses.
func runQuery(schema kvquery.Schema, stores kvquery.StaticStores, collector *annotate.Collector, queryStr string, printHeader bool) bool {
	if printHeader {
		fmt.Printf("Query: %s\n\n", queryStr)
	}

	values, err := url.ParseQuery(queryStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		return false
	}
	params := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			params[k] = vs[len(vs)-1]
		}
	}

	start := time.Now()
	res, err := kvquery.QueryWithCollector(context.Background(), schema, stores, "files", params, collector)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		return false
	}

	pkPath := schema.Stores["files"].PrimaryKeyPath
	switch res.Kind {
	case kvquery.ResultKeys:
		fmt.Println(renderKeys(res.Keys))
	case kvquery.ResultLookup:
		fmt.Print(renderLookup(pkPath, res.Lookup))
	default:
		fmt.Print(renderRecords(pkPath, res.Records))
	}
	fmt.Printf("(%.3fms)\n", float64(elapsed.Microseconds())/1000.0)
	return true
}
