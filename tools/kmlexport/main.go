// Package main provides a tool to export decoded NOTAM records to KML format.
// KML (Keyhole Markup Language) files can be viewed in Google Earth, Google Maps, and
// other mapping applications.
//
// Records come either from a bulletin file, decoded on the fly, or from a
// SQLite store written by "notam_parser store".
package main

import (
	"context"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"notam_parser/internal/extractor"
	"notam_parser/internal/notam"
	"notam_parser/internal/storage"
)

func main() {
	input := flag.String("input", "", "Bulletin file to decode ('-' for stdin)")
	dbPath := flag.String("db", "", "SQLite database to export instead of a bulletin")
	activeAt := flag.String("active", "", "With -db, only records in force at this RFC3339 instant")
	output := flag.String("output", "", "Output KML file (default: stdout)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	records, err := loadRecords(*input, *dbPath, *activeAt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading records: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "No records found matching criteria\n")
		os.Exit(0)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Exporting %d records to KML\n", len(records))
	}

	// Generate KML.
	kml := generateKML(records, time.Now().UTC())

	// Marshal to XML.
	xmlData, err := xml.MarshalIndent(kml, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating KML: %v\n", err)
		os.Exit(1)
	}

	// Add XML header.
	xmlOutput := xml.Header + string(xmlData)

	// Write output.
	if *output != "" {
		if err := os.WriteFile(*output, []byte(xmlOutput), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", *output)
		}
	} else {
		fmt.Println(xmlOutput)
	}
}

func loadRecords(input, dbPath, activeAt string) ([]notam.Record, error) {
	switch {
	case input != "" && dbPath != "":
		return nil, fmt.Errorf("use either -input or -db")

	case dbPath != "":
		db, err := storage.OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = db.Close() }()

		ctx := context.Background()
		if activeAt == "" {
			return db.All(ctx)
		}
		at, err := time.Parse(time.RFC3339, activeAt)
		if err != nil {
			return nil, fmt.Errorf("invalid -active: %w", err)
		}
		return db.ActiveAt(ctx, at, 10000)

	case input != "":
		var r io.Reader = os.Stdin
		if input != "-" {
			f, err := os.Open(input)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return extractor.ParseBulletin(string(b)), nil
	}
	return nil, fmt.Errorf("one of -input or -db is required")
}
