// Package main provides a tool to export stored NOTAM records from the
// PostgreSQL database to CSV, one row per vertex:
// id,seq,shape,vertex,lat,lon,radius_nm,start,end,permanent,icao_codes
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"notam_parser/internal/notam"
	"notam_parser/internal/patterns"
	"notam_parser/internal/storage"
)

func main() {
	// PostgreSQL connection flags.
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "notam", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDB := flag.String("pg-db", "notam", "PostgreSQL database")

	icao := flag.String("icao", "", "Only notices listing this location indicator")
	activeAt := flag.String("active", "", "Only records in force at this RFC3339 instant (default: now)")
	limit := flag.Int("limit", 10000, "Maximum number of records")
	output := flag.String("output", "", "Output CSV file (default: stdout)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	ctx := context.Background()

	pg, err := storage.OpenPostgres(ctx, storage.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		User:     *pgUser,
		Password: *pgPassword,
		Database: *pgDB,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = pg.Close() }()

	var records []notam.Record
	if *icao != "" {
		records, err = pg.ByLocation(ctx, strings.ToUpper(*icao), *limit)
	} else {
		at := time.Now().UTC()
		if *activeAt != "" {
			if at, err = time.Parse(time.RFC3339, *activeAt); err != nil {
				fmt.Fprintf(os.Stderr, "Invalid -active: %v\n", err)
				os.Exit(1)
			}
		}
		records, err = pg.ActiveAt(ctx, at, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying records: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Exporting %d records\n", len(records))
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	if err := writeCSV(w, records); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		os.Exit(1)
	}
}

var header = []string{"id", "seq", "shape", "vertex", "lat", "lon", "radius_nm", "start", "end", "permanent", "icao_codes"}

// writeCSV writes one row per vertex. seq numbers the records of a notice.
func writeCSV(w io.Writer, records []notam.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	seq := 0
	for i, rec := range records {
		if i > 0 && records[i-1].ID == rec.ID {
			seq++
		} else {
			seq = 0
		}

		shape := "point"
		if rec.IsPolygon {
			shape = "polygon"
		}

		for v, c := range rec.Coordinates {
			radius := ""
			if c.HasRadius() {
				radius = strconv.FormatFloat(patterns.RadiusToNM(*c.Radius, c.RadiusUnit), 'f', 3, 64)
			}
			row := []string{
				rec.ID,
				strconv.Itoa(seq),
				shape,
				strconv.Itoa(v),
				strconv.FormatFloat(c.Lat, 'f', 6, 64),
				strconv.FormatFloat(c.Lon, 'f', 6, 64),
				radius,
				formatTime(rec.StartDate),
				formatTime(rec.EndDate),
				strconv.FormatBool(rec.Permanent),
				strings.Join(rec.ICAOCodes, " "),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
