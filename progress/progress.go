package progress

import (
	"github.com/pterm/pterm"

	"github.com/mailarc/mailarc/stats"
)

// Bar tracks message processing on the operator's terminal.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	enabled bool
}

// New creates a progress bar over the pending fragment count. The bar
// is only shown at the "info" log level; other levels keep the terminal
// free for log output.
func New(total int, logLevel string) *Bar {
	enabled := logLevel == "info" && total > 0

	bar := &Bar{
		total:   total,
		enabled: enabled,
	}

	if enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Archiving messages").
			Start()
		bar.pb = pb

		pterm.Info.Printf("Messages pending: %d\n", total)
		pterm.Println()
	}

	return bar
}

// Update advances the bar based on the event type.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	switch evt.Type {
	case stats.EventTypeWritten, stats.EventTypeDuplicate, stats.EventTypeRejected:
		b.pb.Increment()
		if evt.Sender != "" {
			display := evt.Sender
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			b.pb.UpdateTitle("Archiving: " + display)
		}
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the bar without forcing it to 100%; an aborted batch
// legitimately leaves messages pending.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}
	_, _ = b.pb.Stop()
}

// Summary prints the end-of-run statistics underneath the bar.
func (b *Bar) Summary(s stats.Summary) {
	if !b.enabled {
		return
	}

	pterm.Println()
	pterm.DefaultSection.Println("Summary")
	pterm.Info.Printf("Scanned: %d\n", s.Scanned)
	pterm.Info.Printf("Written: %d\n", s.Written)
	pterm.Info.Printf("Identical (skipped): %d\n", s.Duplicates)
	pterm.Info.Printf("Rejected: %d\n", s.Rejected)
	pterm.Info.Printf("Undated: %d\n", s.Undated)
	pterm.Info.Printf("Errors: %d\n", s.Errors)
	if s.LastError != nil {
		pterm.Error.Printf("Last error: %v\n", s.LastError)
	}
}
