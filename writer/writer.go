// Package writer persists messages to per-contact text files with a
// deterministic, collision-free naming scheme.
package writer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrSuffixesExhausted indicates more than MaxSuffixes same-day messages
// for one display name. It must propagate: silently overwriting or
// dropping data is never acceptable.
var ErrSuffixesExhausted = errors.New("exhausted all filename suffixes (more than 702 messages on one day)")

// Status describes what Write did.
type Status int

const (
	// StatusWritten means the content was written to a new file.
	StatusWritten Status = iota
	// StatusAlreadyPresent means an identical file already existed and
	// nothing was written.
	StatusAlreadyPresent
)

// Outcome reports the resolved filename and whether a write happened.
type Outcome struct {
	Filename string
	Status   Status
}

func (o Outcome) String() string {
	if o.Status == StatusAlreadyPresent {
		return fmt.Sprintf("identical file already exists: %q", o.Filename)
	}
	return fmt.Sprintf("saved as %q", o.Filename)
}

// Write stores content under dir as "<name> <date><suffix> email.txt",
// creating dir (and parents) if needed. The bare name is tried first;
// on collision the suffix sequence advances until a free slot or an
// identical existing file is found. Re-running with the same inputs
// resolves to the same filename without duplicating data. Existing
// files that cannot be read count as "different content" so the run can
// continue; running out of suffixes returns ErrSuffixesExhausted.
func Write(dir, name, dateString, content string, logger *slog.Logger) (Outcome, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Outcome{}, fmt.Errorf("create directory %q: %w", dir, err)
	}

	// Substitute invalid byte sequences up front so the bytes written
	// and the bytes compared on a later run are the same.
	content = strings.ToValidUTF8(content, string(utf8.RuneError))

	seq := Suffixes()
	for {
		suffix, ok := seq.Next()
		if !ok {
			return Outcome{}, ErrSuffixesExhausted
		}

		filename := fmt.Sprintf("%s %s%s email.txt", name, dateString, suffix)
		path := filepath.Join(dir, filename)

		existing, err := readExisting(path, logger)
		switch {
		case errors.Is(err, os.ErrNotExist):
			if werr := os.WriteFile(path, []byte(content), 0o644); werr != nil {
				return Outcome{}, fmt.Errorf("write %q: %w", filename, werr)
			}
			return Outcome{Filename: filename, Status: StatusWritten}, nil
		case err != nil:
			// Unreadable existing file: assume different content and
			// try the next suffix instead of aborting the run.
			continue
		case existing == content:
			return Outcome{Filename: filename, Status: StatusAlreadyPresent}, nil
		}
	}
}

// readExisting reads a candidate file for the content comparison.
// Invalid byte sequences are substituted rather than propagated;
// historical archives contain non-standard bytes.
func readExisting(path string, logger *slog.Logger) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && logger != nil {
			logger.Warn("cannot read existing file, assuming different content", "path", path, "err", err)
		}
		return "", err
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), nil
}
