// Package blob splits a concatenated mail export into message fragments
// and serializes the unprocessed remainder back to disk.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	mboxlib "github.com/emersion/go-mbox"
)

// Split divides a raw export blob into message fragments on the delimiter
// byte. No escaping or quoting is supported; the delimiter is a control
// byte that does not occur in legitimate message text. Splitting an empty
// blob yields a single empty fragment, which keeps Join the exact inverse.
func Split(raw string, delim byte) []string {
	return strings.Split(raw, string(delim))
}

// Join reassembles fragments into the delimiter-joined blob format.
// Join(Split(raw, d), d) == raw for every raw and d.
func Join(fragments []string, delim byte) string {
	return strings.Join(fragments, string(delim))
}

// Remaining returns the fragments from all that have not been processed.
// Membership is by exact content equality, so byte-identical duplicates
// are interchangeable: processing one copy removes every copy.
func Remaining(all, processed []string) []string {
	if len(processed) == 0 {
		remaining := make([]string, len(all))
		copy(remaining, all)
		return remaining
	}

	done := make(map[string]struct{}, len(processed))
	for _, fragment := range processed {
		done[fragment] = struct{}{}
	}

	remaining := make([]string, 0, len(all))
	for _, fragment := range all {
		if _, ok := done[fragment]; !ok {
			remaining = append(remaining, fragment)
		}
	}
	return remaining
}

// Load reads the export artifact in full and splits it into fragments.
func Load(path string, delim byte) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return Split(string(raw), delim), nil
}

// Save persists the pending fragments back to the export artifact. An
// empty sequence deletes the artifact instead of writing an empty file:
// a missing artifact means the export was fully drained, an untouched
// one means it was never processed.
func Save(path string, fragments []string, delim byte) error {
	if len(fragments) == 0 {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete drained export: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, []byte(Join(fragments, delim)), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ReadMbox converts an mbox archive into the fragment sequence Split
// produces, so mbox input feeds the same pipeline as an export blob.
// The "From " envelope line is dropped; each fragment carries headers,
// the blank separator line and the body verbatim.
func ReadMbox(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)

	var fragments []string
	for idx := 0; ; idx++ {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fragments, nil
			}
			return nil, fmt.Errorf("mbox message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return nil, fmt.Errorf("mbox message %d read: %w", idx, err)
		}

		fragments = append(fragments, string(raw))
	}
}
