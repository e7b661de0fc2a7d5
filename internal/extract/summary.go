package extract

import (
	"log/slog"

	"github.com/ironsheep/mark-extract/internal/detection"
)

// Summary counts what a run found and what it could not resolve.
type Summary struct {
	Pages             int `json:"pages" yaml:"pages"`
	PageErrors        int `json:"page_errors" yaml:"page_errors"`
	PagesWithoutMarks int `json:"pages_without_marks" yaml:"pages_without_marks"`
	Circles           int `json:"circles" yaml:"circles"`
	Crosses           int `json:"crosses" yaml:"crosses"`
	Discarded         int `json:"discarded" yaml:"discarded"`
	TableRejected     int `json:"table_rejected" yaml:"table_rejected"`
	Records           int `json:"records" yaml:"records"`
	RangeRecords      int `json:"range_records" yaml:"range_records"`
	TokenErrors       int `json:"token_errors" yaml:"token_errors"`
	Unmatched         int `json:"unmatched" yaml:"unmatched"`

	// Unresolved counts records with at least one unresolved field.
	Unresolved      int `json:"unresolved" yaml:"unresolved"`
	UnresolvedMonth int `json:"unresolved_month" yaml:"unresolved_month"`
}

// Summarize tallies results.
func Summarize(results []PageResult) Summary {
	var s Summary
	for _, r := range results {
		s.Pages++
		if r.Err != nil || r.Error != "" {
			s.PageErrors++
			continue
		}
		if len(r.Marks) == 0 {
			s.PagesWithoutMarks++
		}
		for _, m := range r.Marks {
			switch m.Kind {
			case detection.Circle:
				s.Circles++
			case detection.Cross:
				s.Crosses++
			}
		}
		s.Discarded += r.Discarded
		s.TableRejected += r.TableRejected
		s.Unmatched += r.Unmatched
		if r.TokenError != "" {
			s.TokenErrors++
		}
		for _, rec := range r.Records {
			s.Records++
			if rec.Kind == KindRange {
				s.RangeRecords++
			}
			if !rec.Complete() {
				s.Unresolved++
			}
			if !rec.Month.Resolved {
				s.UnresolvedMonth++
			}
		}
	}
	return s
}

// LogValue groups the counts for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pages", s.Pages),
		slog.Int("page_errors", s.PageErrors),
		slog.Int("pages_without_marks", s.PagesWithoutMarks),
		slog.Int("circles", s.Circles),
		slog.Int("crosses", s.Crosses),
		slog.Int("discarded", s.Discarded),
		slog.Int("table_rejected", s.TableRejected),
		slog.Int("records", s.Records),
		slog.Int("range_records", s.RangeRecords),
		slog.Int("token_errors", s.TokenErrors),
		slog.Int("unmatched", s.Unmatched),
		slog.Int("unresolved", s.Unresolved),
	)
}

// AllRecords concatenates the records of results in page order.
func AllRecords(results []PageResult) []Record {
	var out []Record
	for _, r := range results {
		out = append(out, r.Records...)
	}
	return out
}
