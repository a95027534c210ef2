// Package runner drives the interactive archiving pipeline: split,
// sort, then drain the pending set batch by batch.
package runner

import (
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mailarc/mailarc/blob"
	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/console"
	"github.com/mailarc/mailarc/contacts"
	"github.com/mailarc/mailarc/dates"
	"github.com/mailarc/mailarc/header"
	"github.com/mailarc/mailarc/order"
	"github.com/mailarc/mailarc/progress"
	"github.com/mailarc/mailarc/stats"
	"github.com/mailarc/mailarc/writer"
)

// Console is the operator capability the runner depends on. All
// blocking prompts go through it; console.ErrQuit from any method
// aborts the current batch without losing written progress.
type Console interface {
	SelectBatchSize() (int, error)
	ConfirmAdd(address string) (bool, error)
	ClassifySender(address string) (string, error)
	SelectFolder(base string) (string, error)
	PromptDate(raw string) (string, error)
	ShowMessage(fragment string)
}

// disposition describes what happened to one fragment.
type disposition int

const (
	// dispArchived: written or identical file found; leaves the pending set.
	dispArchived disposition = iota
	// dispRejected: mandatory header fields missing; stays pending,
	// consumes a batch slot.
	dispRejected
	// dispSkipped: operator declined to add the sender; stays pending,
	// consumes no slot.
	dispSkipped
	// dispErrored: recoverable filesystem trouble; stays pending,
	// consumes a batch slot.
	dispErrored
)

type Runner struct {
	cfg       config.Config
	logger    *slog.Logger
	book      *contacts.Book
	console   Console
	collector *stats.Collector
	bar       *progress.Bar
}

func New(cfg config.Config, book *contacts.Book, cons Console, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		logger:    logger,
		book:      book,
		console:   cons,
		collector: stats.NewCollector(),
	}
}

// Summary reports the accumulated run statistics.
func (r *Runner) Summary() stats.Summary {
	return r.collector.Snapshot()
}

// Run executes the pipeline until the pending set drains, the operator
// quits, or a fatal error occurs. The contact directory and the
// remaining-fragment artifact are persisted after every completed batch
// and once more on the way out, so an interruption loses at most the
// in-flight batch.
func (r *Runner) Run() error {
	since := time.Now()

	fragments, err := r.loadFragments()
	if err != nil {
		return err
	}

	sorted, undated := order.ByDate(fragments, r.logger)
	for i := 0; i < undated; i++ {
		r.collector.Record(stats.Event{Type: stats.EventTypeUndated})
	}
	r.logger.Info("messages sorted by date, oldest first", "pending", len(sorted), "undated", undated)

	r.bar = progress.New(len(sorted), r.cfg.LogLevel)

	processed := make([]string, 0, len(sorted))
	persist := func() error {
		if err := r.book.Save(r.cfg.ContactsPath); err != nil {
			return err
		}
		return blob.Save(r.cfg.InputPath, blob.Remaining(sorted, processed), r.cfg.Delimiter)
	}

	var fatal error
	idx := 0

outer:
	for idx < len(sorted) {
		batch, err := r.console.SelectBatchSize()
		if err != nil {
			if errors.Is(err, console.ErrQuit) {
				break
			}
			fatal = err
			break
		}

		for batch > 0 && idx < len(sorted) {
			fragment := sorted[idx]

			disp, err := r.process(fragment)
			if err != nil {
				if errors.Is(err, console.ErrQuit) {
					r.logger.Info("operator quit, aborting batch")
					break outer
				}
				fatal = err
				break outer
			}

			idx++
			switch disp {
			case dispArchived:
				processed = append(processed, fragment)
				batch--
			case dispRejected, dispErrored:
				batch--
			case dispSkipped:
				// Sender was not added; the message waits for a later run.
			}
		}

		if err := persist(); err != nil {
			fatal = err
			break
		}
	}

	if err := persist(); err != nil && fatal == nil {
		fatal = err
	}

	summary := r.collector.Snapshot()
	r.bar.Stop()
	r.bar.Summary(summary)

	attrs := append(summary.LogAttrs(), "duration", time.Since(since))
	if fatal != nil {
		r.logger.Error("archiving failed", append(attrs, "err", fatal)...)
		return fatal
	}
	r.logger.Info("archiving finished", attrs...)
	return nil
}

// loadFragments reads the pending set. An mbox input is converted once
// into the export artifact so the drain lifecycle works off one path.
func (r *Runner) loadFragments() ([]string, error) {
	if r.cfg.MboxPath != "" {
		fragments, err := blob.ReadMbox(r.cfg.MboxPath)
		if err != nil {
			return nil, err
		}
		if err := blob.Save(r.cfg.InputPath, fragments, r.cfg.Delimiter); err != nil {
			return nil, err
		}
		r.logger.Info("mbox converted to export artifact",
			"mbox", r.cfg.MboxPath, "input", r.cfg.InputPath, "messages", len(fragments))
		return fragments, nil
	}
	return blob.Load(r.cfg.InputPath, r.cfg.Delimiter)
}

func (r *Runner) process(fragment string) (disposition, error) {
	r.record(stats.Event{Type: stats.EventTypeScanned})

	msg, err := header.Parse(fragment)
	if err != nil {
		var rejected *header.RejectedError
		if errors.As(err, &rejected) {
			r.logger.Warn("fragment rejected, left pending",
				"missing", rejected.Missing, "preview", rejected.Preview)
			r.record(stats.Event{Type: stats.EventTypeRejected})
			return dispRejected, nil
		}
		return dispErrored, err
	}

	address := header.FindAddress(msg.From)
	r.logger.Info("processing message", "from", address, "subject", msg.Subject)

	entry, known := r.book.Resolve(address)
	if !known {
		entry, known, err = r.classify(fragment, address)
		if err != nil {
			return dispErrored, err
		}
		if !known {
			r.logger.Info("sender not added, message left pending", "from", address)
			return dispSkipped, nil
		}
	}

	dateString, err := r.fileDate(msg.Date)
	if err != nil {
		return dispErrored, err
	}

	outcome, err := writer.Write(entry.Path, entry.Name, dateString, fragment, r.logger)
	if err != nil {
		r.record(stats.Event{Type: stats.EventTypeError, Sender: address, Err: err})
		if errors.Is(err, writer.ErrSuffixesExhausted) {
			// Naming-scheme capacity violation: needs operator attention,
			// never overwrite or drop data.
			return dispErrored, err
		}
		r.logger.Error("write failed, message left pending", "from", address, "err", err)
		return dispErrored, nil
	}

	switch outcome.Status {
	case writer.StatusWritten:
		r.logger.Info("message archived", "file", outcome.Filename)
		r.record(stats.Event{Type: stats.EventTypeWritten, Sender: address, Filename: outcome.Filename})
	case writer.StatusAlreadyPresent:
		r.logger.Info("identical file already exists", "file", outcome.Filename)
		r.record(stats.Event{Type: stats.EventTypeDuplicate, Sender: address, Filename: outcome.Filename})
	}
	return dispArchived, nil
}

// classify walks an unknown sender through the add/categorize/folder
// prompts. known=false means the operator declined.
func (r *Runner) classify(fragment, address string) (entry contacts.Entry, known bool, err error) {
	r.console.ShowMessage(fragment)

	add, err := r.console.ConfirmAdd(address)
	if err != nil || !add {
		return contacts.Entry{}, false, err
	}

	category, err := r.console.ClassifySender(address)
	if err != nil {
		return contacts.Entry{}, false, err
	}

	base := filepath.Join(r.cfg.SavePath, r.cfg.Categories[category])
	folder, err := r.console.SelectFolder(base)
	if err != nil {
		return contacts.Entry{}, false, err
	}

	entry = contacts.Entry{
		// The display name is the destination folder's name.
		Name:     filepath.Base(folder),
		Path:     folder,
		LastUsed: dates.FileDate(time.Now()),
	}
	r.book.Register(address, entry)
	r.logger.Info("sender registered", "from", address, "category", category, "path", folder)
	return entry, true, nil
}

// fileDate normalizes the Date header into filename form, falling back
// to an operator prompt when normalization fails.
func (r *Runner) fileDate(raw string) (string, error) {
	at, err := dates.Normalize(raw)
	if err == nil {
		return dates.FileDate(at), nil
	}
	r.logger.Warn("date normalization failed", "err", err)
	return r.console.PromptDate(raw)
}

func (r *Runner) record(evt stats.Event) {
	r.collector.Record(evt)
	if r.bar != nil {
		r.bar.Update(evt)
	}
}
