// Package extractor assembles geolocated records from NOTAM bulletins.
// It is storage-agnostic and never fails on malformed input: notices that
// yield no coordinates are dropped.
package extractor

import (
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"notam_parser/internal/geometry"
	"notam_parser/internal/notam"
	_ "notam_parser/internal/parsers" // Register all parsers.
	"notam_parser/internal/patterns"
	"notam_parser/internal/registry"
)

// Options configures a Decoder.
type Options struct {
	// Workers bounds per-notice parallelism. Zero uses GOMAXPROCS; one
	// decodes sequentially.
	Workers int

	// Logger receives debug records for dropped notices. Nil discards.
	Logger *slog.Logger

	// Registry dispatches notices to parsers. Nil uses the default registry.
	Registry *registry.Registry
}

// Decoder turns bulletin text into records.
type Decoder struct {
	workers int
	logger  *slog.Logger
	reg     *registry.Registry
}

// New creates a Decoder.
func New(opts Options) *Decoder {
	d := &Decoder{
		workers: opts.Workers,
		logger:  opts.Logger,
		reg:     opts.Registry,
	}
	if d.workers <= 0 {
		d.workers = runtime.GOMAXPROCS(0)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.reg == nil {
		d.reg = registry.Default()
	}
	d.reg.Sort()
	return d
}

// Result is the outcome of decoding one bulletin.
type Result struct {
	Records []notam.Record `json:"records"`
	Notices int            `json:"notices"`           // Notices found by segmentation.
	Dropped []string       `json:"dropped,omitempty"` // Ids of notices without coordinates.
}

// Polygons counts polygon records.
func (r *Result) Polygons() int {
	n := 0
	for _, rec := range r.Records {
		if rec.IsPolygon {
			n++
		}
	}
	return n
}

// ParseBulletin decodes a bulletin with default options.
func ParseBulletin(text string) []notam.Record {
	return New(Options{}).Parse(text)
}

// Parse decodes a bulletin and returns its records in source order.
func (d *Decoder) Parse(text string) []notam.Record {
	return d.Decode(text).Records
}

// Decode segments the bulletin sequentially, then processes notices in
// parallel. Records keep the order in which notices first appear.
func (d *Decoder) Decode(text string) *Result {
	notices := notam.Segment(text)
	perNotice := make([][]notam.Record, len(notices))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i := range notices {
		g.Go(func() error {
			perNotice[i] = d.ParseNotice(notices[i])
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Notices: len(notices)}
	for i, recs := range perNotice {
		if len(recs) == 0 {
			res.Dropped = append(res.Dropped, notices[i].ID)
			continue
		}
		res.Records = append(res.Records, recs...)
	}
	return res
}

// ParseNotice decodes one notice into zero or more records.
func (d *Decoder) ParseNotice(n notam.Notice) []notam.Record {
	if n.Sections == nil {
		n.Sections = notam.ParseSections(n.Body)
	}

	ex := d.reg.Dispatch(&n)
	if ex.Empty() {
		d.logger.Debug("notice has no coordinates", "id", n.ID)
		return nil
	}

	validity := notam.ParseValidity(n.Sections, n.Body)
	icao := patterns.ExtractICAOCodes(n.Sections[notam.SectionA])

	records := make([]notam.Record, 0, len(ex.Shapes))
	for _, s := range ex.Shapes {
		coords := s.Coordinates
		if s.Polygon {
			coords = geometry.Normalize(coords)
		}
		records = append(records, notam.Record{
			ID:          n.ID,
			FullContent: n.Content,
			Coordinates: coords,
			ICAOCodes:   icao,
			IsPolygon:   s.Polygon,
			StartDate:   validity.Start,
			EndDate:     validity.End,
			Permanent:   validity.Permanent,
			Estimated:   validity.Estimated,
		})
	}

	d.logger.Debug("notice decoded",
		"id", n.ID,
		"parser", ex.Extractor,
		"records", len(records),
	)
	return records
}

// NoticeTrace is the parser trace of one notice.
type NoticeTrace struct {
	ID     string                  `json:"id"`
	Traces []*registry.TraceResult `json:"traces"`
}

// Trace runs every parser against each notice in the bulletin with tracing.
func (d *Decoder) Trace(text string) []NoticeTrace {
	var out []NoticeTrace
	for _, n := range notam.Segment(text) {
		n.Sections = notam.ParseSections(n.Body)
		out = append(out, NoticeTrace{ID: n.ID, Traces: d.reg.Trace(&n)})
	}
	return out
}
