// Command-line entry point for the NOTAM parser.
//
// Input is a bulletin: free text holding any number of NOTAMs, one after
// another, as served by briefing systems. Notices without coordinates are
// dropped; -stats reports how many.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"notam_parser/internal/extractor"
	"notam_parser/internal/geometry"
	"notam_parser/internal/observability"
	"notam_parser/internal/state"
	"notam_parser/internal/storage"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "notam_parser - commands:")
	fmt.Fprintln(w, "  decode   - decode a bulletin and output records")
	fmt.Fprintln(w, "  debug    - show per-notice parser traces")
	fmt.Fprintln(w, "  store    - decode a bulletin into a SQLite database")
	fmt.Fprintln(w, "  search   - query a SQLite database")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  notam_parser decode -input bulletin.txt [-output out.json] [-format json|geojson|render] [-pretty] [-stats] [-workers N]")
	fmt.Fprintln(w, "  notam_parser debug  -input bulletin.txt [-id A1234/25]")
	fmt.Fprintln(w, "  notam_parser store  -input bulletin.txt [-db notams.db]")
	fmt.Fprintln(w, "  notam_parser search [-db notams.db] [-q \"DANGER AREA\"] [-active 2025-01-15T00:00:00Z] [-limit N]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - Input defaults to stdin.")
	fmt.Fprintln(w, "  - search without -q or -active prints the whole store.")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "decode":
		runDecode(os.Args[2:])
	case "debug":
		runDebug(os.Args[2:])
	case "store":
		runStore(os.Args[2:])
	case "search":
		runSearch(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	inPath := fs.String("input", "", "Input bulletin file (default: stdin)")
	outPath := fs.String("output", "", "Output file (default: stdout)")
	format := fs.String("format", "json", "Output format: json, geojson or render")
	simplify := fs.Float64("simplify", 0, "GeoJSON polygon simplification tolerance in degrees")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	showStats := fs.Bool("stats", false, "Print basic counters to stderr")
	workers := fs.Int("workers", 0, "Parallel notice workers (default: GOMAXPROCS)")
	logLevel := fs.String("log-level", "warn", "Log level for decoder diagnostics")
	_ = fs.Parse(args)

	text := readInput(*inPath)
	logger := observability.NewLogger(observability.LogConfig{Level: *logLevel, Format: "text"})

	start := time.Now()
	res := extractor.New(extractor.Options{Workers: *workers, Logger: logger}).Decode(text)
	elapsed := time.Since(start)

	var out any
	switch *format {
	case "json":
		out = res.Records
	case "geojson":
		out = geometry.FeatureCollection(res.Records, geometry.GeoJSONOptions{SimplifyTolerance: *simplify})
	case "render":
		out = state.Build(res.Records)
	default:
		fmt.Fprintf(os.Stderr, "Unknown format: %s\n", *format)
		os.Exit(2)
	}

	writeOutput(*outPath, out, *pretty)

	if *showStats {
		fmt.Fprintf(os.Stderr,
			"stats: notices=%d records=%d polygons=%d dropped=%d elapsed=%s\n",
			res.Notices, len(res.Records), res.Polygons(), len(res.Dropped), elapsed.Round(time.Microsecond),
		)
		if len(res.Dropped) > 0 {
			fmt.Fprintf(os.Stderr, "dropped: %s\n", strings.Join(res.Dropped, " "))
		}
	}
}

func runDebug(args []string) {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	inPath := fs.String("input", "", "Input bulletin file (default: stdin)")
	id := fs.String("id", "", "Only trace the notice with this id")
	_ = fs.Parse(args)

	text := readInput(*inPath)
	traces := extractor.New(extractor.Options{Workers: 1}).Trace(text)

	if *id != "" {
		want := strings.ToUpper(*id)
		filtered := traces[:0]
		for _, t := range traces {
			if t.ID == want {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) == 0 {
			fmt.Fprintf(os.Stderr, "No notice %s in input\n", want)
			os.Exit(1)
		}
		traces = filtered
	}

	writeOutput("", traces, true)
}

func runStore(args []string) {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	inPath := fs.String("input", "", "Input bulletin file (default: stdin)")
	dbPath := fs.String("db", "notams.db", "SQLite database path")
	_ = fs.Parse(args)

	text := readInput(*inPath)
	db := openStore(*dbPath)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	res := extractor.New(extractor.Options{}).Decode(text)
	batchID, err := db.SaveRecords(ctx, res.Records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to store records: %v\n", err)
		os.Exit(1)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read stats: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("batch %s: stored %d records from %d notices (%d dropped)\n",
		batchID, len(res.Records), res.Notices-len(res.Dropped), len(res.Dropped))
	fmt.Printf("database: notices=%d records=%d polygons=%d\n", stats.Notices, stats.Records, stats.Polygons)
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	dbPath := fs.String("db", "notams.db", "SQLite database path")
	query := fs.String("q", "", "Full-text query over notice text")
	active := fs.String("active", "", "Only records in force at this RFC3339 instant")
	limit := fs.Int("limit", 100, "Maximum records")
	pretty := fs.Bool("pretty", true, "Pretty-print JSON output")
	_ = fs.Parse(args)

	if *query != "" && *active != "" {
		fmt.Fprintln(os.Stderr, "Use either -q or -active, not both")
		os.Exit(2)
	}

	db := openStore(*dbPath)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	var err error
	var out any
	switch {
	case *query != "":
		out, err = db.Search(ctx, *query, *limit)
	case *active != "":
		at, perr := time.Parse(time.RFC3339, *active)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "Invalid -active: %v\n", perr)
			os.Exit(2)
		}
		out, err = db.ActiveAt(ctx, at, *limit)
	default:
		out, err = db.All(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	writeOutput("", out, *pretty)
}

func openStore(path string) *storage.SQLiteDB {
	db, err := storage.OpenSQLite(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	return db
}

func readInput(path string) string {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	b, err := io.ReadAll(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Input read error: %v\n", err)
		os.Exit(1)
	}
	return string(b)
}

func writeOutput(path string, v any, pretty bool) {
	var wout io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		wout = f
	}

	enc, err := marshalJSON(v, pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
		os.Exit(1)
	}
	_, _ = wout.Write(enc)
	if wout == os.Stdout {
		_, _ = wout.Write([]byte("\n"))
	}
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
