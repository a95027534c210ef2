// Package order arranges message fragments chronologically by their
// Date header.
package order

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mailarc/mailarc/dates"
)

// ErrNoDate marks a fragment without a Date header before the first
// blank line.
var ErrNoDate = errors.New("no Date field found")

type datedFragment struct {
	at   time.Time
	text string
}

// ByDate sorts fragments ascending by normalized Date header using a
// stable sort, so ties keep their original relative order. Fragments
// whose date is missing or unparseable are never dropped: they follow
// the dated fragments in their original relative order, one warning
// each. The undated count is returned for diagnostics.
func ByDate(fragments []string, logger *slog.Logger) (sorted []string, undated int) {
	var dated []datedFragment
	var tail []string

	for _, fragment := range fragments {
		at, err := Timestamp(fragment)
		if err != nil {
			if logger != nil {
				logger.Warn("fragment without usable date moved to end", "err", err)
			}
			tail = append(tail, fragment)
			continue
		}
		dated = append(dated, datedFragment{at: at, text: fragment})
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].at.Before(dated[j].at)
	})

	sorted = make([]string, 0, len(fragments))
	for _, d := range dated {
		sorted = append(sorted, d.text)
	}
	sorted = append(sorted, tail...)

	return sorted, len(tail)
}

// Timestamp extracts and normalizes the Date header of a fragment
// without running the full header parse. Only lines before the first
// blank line are considered.
func Timestamp(fragment string) (time.Time, error) {
	for _, line := range strings.Split(fragment, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			break
		}
		if value, ok := strings.CutPrefix(line, "Date: "); ok {
			return dates.Normalize(value)
		}
	}
	return time.Time{}, ErrNoDate
}
