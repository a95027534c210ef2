package stats

import (
	"fmt"
	"sort"
)

type EventType string

const (
	EventTypeScanned   EventType = "scanned"
	EventTypeRejected  EventType = "rejected"
	EventTypeWritten   EventType = "written"
	EventTypeDuplicate EventType = "duplicate"
	EventTypeUndated   EventType = "undated"
	EventTypeError     EventType = "error"
)

type Event struct {
	Type     EventType
	Sender   string
	Filename string
	Err      error
}

type Summary struct {
	Scanned    int
	Rejected   int
	Written    int
	Duplicates int
	Undated    int
	Errors     int
	LastError  error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"scanned", s.Scanned,
		"rejected", s.Rejected,
		"written", s.Written,
		"duplicates", s.Duplicates,
		"undated", s.Undated,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector accumulates events. The pipeline is single-threaded; the
// collector is not safe for concurrent use.
type Collector struct {
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Record(evt Event) {
	switch evt.Type {
	case EventTypeScanned:
		c.summary.Scanned++
	case EventTypeRejected:
		c.summary.Rejected++
	case EventTypeWritten:
		c.summary.Written++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeUndated:
		c.summary.Undated++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	return c.summary
}

// PrettyPrintTop prints the top N most frequent items in a map.
func PrettyPrintTop(m map[string]int, limit int) {
	type pair struct {
		Key   string
		Value int
	}

	var pairs []pair
	for k, v := range m {
		pairs = append(pairs, pair{k, v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Value > pairs[j].Value
	})

	for i := 0; i < limit && i < len(pairs); i++ {
		fmt.Printf("%d. %s (%d)\n", i+1, pairs[i].Key, pairs[i].Value)
	}
}
