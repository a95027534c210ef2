// Package dates turns the free-form, inconsistently formatted Date
// headers found in mail exports into calendar timestamps.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// zoneAbbrevs is the closed set of timezone abbreviations stripped
// before parsing. The abbreviations are ambiguous and the generic
// parsers reject them; stripping is a pure text substitution, not a
// timezone conversion, so the resulting timestamp is naive.
var zoneAbbrevs = []string{
	"PST", "PDT",
	"MST", "MDT",
	"CST", "CDT",
	"EST", "EDT",
	"GMT", "UTC",
}

// layouts covers the formats the export producer is known to emit,
// tried before falling back to a general free-form parse.
var layouts = []string{
	"January 2, 2006 at 15:04:05",
	"January 2, 2006 at 3:04:05 PM",
	"Jan 2, 2006 at 15:04:05",
	"Mon, Jan 2, 2006 at 3:04 PM",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04:05",
	"January 2, 2006",
	"1/2/2006",
}

// ParseError reports a date string that could not be normalized. It
// carries the original raw value and the underlying parser error.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse date %q: %v", e.Raw, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Normalize converts a free-form date string into a tz-naive timestamp.
// Known timezone abbreviations are stripped first. If the cleaned string
// still fails to parse and encodes the producer's hour-24 bug
// ("at 24:MM:SS" meaning midnight of the next day), the clock is
// rewritten to 00 and one calendar day is added. That repair is the only
// heuristic applied; anything else unparseable returns a ParseError.
// The result depends only on the input string, never on locale or the
// system clock.
func Normalize(raw string) (time.Time, error) {
	cleaned := stripZones(raw)

	t, err := parseFreeform(cleaned)
	if err == nil {
		return t, nil
	}

	if strings.Contains(cleaned, "at 24:") {
		repaired := strings.ReplaceAll(cleaned, "at 24:", "at 00:")
		if t, rerr := parseFreeform(repaired); rerr == nil {
			return t.AddDate(0, 0, 1), nil
		}
	}

	return time.Time{}, &ParseError{Raw: raw, Cause: err}
}

// FileDate formats a timestamp the way filenames expect it.
func FileDate(t time.Time) string {
	return t.Format("2006 01 02")
}

func stripZones(raw string) string {
	cleaned := raw
	for _, tz := range zoneAbbrevs {
		cleaned = strings.ReplaceAll(cleaned, " "+tz, "")
		cleaned = strings.ReplaceAll(cleaned, tz, "")
	}
	return strings.TrimSpace(cleaned)
}

func parseFreeform(s string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseAny(s)
}
