// Package chart renders a per-sender timeline of an archive as a
// stacked bar chart.
package chart

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/mailarc/mailarc/header"
	"github.com/mailarc/mailarc/order"
)

// Chart holds message timestamps grouped by sender address.
type Chart struct {
	data map[string][]time.Time
}

// New extracts sender and date from every fragment. Fragments without a
// usable sender or date are counted and skipped; a chart tolerates gaps
// the archiver itself would surface.
func New(fragments []string, logger *slog.Logger) *Chart {
	data := make(map[string][]time.Time)
	skipped := 0

	for _, fragment := range fragments {
		address := sender(fragment)
		if address == "" {
			skipped++
			continue
		}
		at, err := order.Timestamp(fragment)
		if err != nil {
			skipped++
			continue
		}
		data[address] = append(data[address], at)
	}

	if skipped > 0 && logger != nil {
		logger.Warn("fragments without sender or date skipped", "skipped", skipped)
	}
	return &Chart{data: data}
}

// Render writes the chart as a self-contained HTML document.
func (c *Chart) Render(w io.Writer) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWonderland,
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type: "slider",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: true, Type: "scroll",
			Orient: "horizontal",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{
				Show:     true,
				Rotate:   90,
				FontSize: "12",
				Inside:   true,
				Interval: "0",
			},
		}),
	)

	labels, perYear := c.dataset()
	bar.SetXAxis(labels)

	lo, hi := c.yearSpan()
	for year := lo; year <= hi; year++ {
		bar.AddSeries(fmt.Sprint(year), perYear[year]).SetSeriesOptions(
			charts.WithBarChartOpts(opts.BarChart{Stack: "stack"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Opacity: 0.5}),
		)
	}
	return bar.Render(w)
}

// Senders reports how many distinct senders the chart covers.
func (c *Chart) Senders() int {
	return len(c.data)
}

// yearSpan derives the year range from the data itself so rendering
// never depends on the system clock.
func (c *Chart) yearSpan() (lo, hi int) {
	var min, max time.Time
	for _, times := range c.data {
		for _, t := range times {
			if min.IsZero() || t.Before(min) {
				min = t
			}
			if max.IsZero() || t.After(max) {
				max = t
			}
		}
	}
	return min.Year(), max.Year()
}

// dataset orders senders by total message count and buckets their
// messages per year.
func (c *Chart) dataset() (labels []string, perYear map[int][]opts.BarData) {
	totals := make(map[string]int, len(c.data))
	for address, times := range c.data {
		labels = append(labels, address)
		totals[address] = len(times)
	}
	sort.Slice(labels, func(i, j int) bool {
		if totals[labels[i]] != totals[labels[j]] {
			return totals[labels[i]] < totals[labels[j]]
		}
		return labels[i] < labels[j]
	})

	lo, hi := c.yearSpan()
	perYear = make(map[int][]opts.BarData)
	for _, address := range labels {
		counts := make(map[int]int)
		for _, t := range c.data[address] {
			counts[t.Year()]++
		}
		for year := lo; year <= hi; year++ {
			perYear[year] = append(perYear[year], opts.BarData{Value: counts[year]})
		}
	}
	return labels, perYear
}

// sender pulls the address off the From header without a full parse.
func sender(fragment string) string {
	for _, line := range strings.Split(fragment, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			break
		}
		if value, ok := strings.CutPrefix(line, "From: "); ok {
			return header.FindAddress(value)
		}
	}
	return ""
}
