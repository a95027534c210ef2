// Package header parses one message fragment into its structured fields.
package header

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// previewLimit caps the raw-fragment preview attached to a rejection.
const previewLimit = 200

var (
	mandatoryFields = []string{"From", "Subject", "Date"}
	knownFields     = []string{"From", "Subject", "Date", "To", "Reply-To"}

	addressPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+`)
)

// Message is the structured view over a fragment. From, Subject and Date
// are mandatory; To and ReplyTo default to the empty string. Body holds
// the lines after the header/body separator verbatim, without re-joining,
// so per-line trailing whitespace survives.
type Message struct {
	From    string
	Subject string
	Date    string
	To      string
	ReplyTo string
	Body    []string
}

// RejectedError reports a fragment whose mandatory header fields are
// incomplete. The fragment stays in the pending set; it is skipped for
// this run only.
type RejectedError struct {
	Missing []string
	Preview string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("missing required fields %v in fragment %q", e.Missing, e.Preview)
}

// Parse scans header lines from the start of the fragment until the first
// blank line. A line starting with a known field prefix sets that field,
// overwriting any earlier value: repeated headers resolve last-one-wins.
// Everything after the blank separator is the body. If any mandatory
// field is missing the fragment is rejected with the missing names and a
// truncated preview.
func Parse(fragment string) (Message, error) {
	lines := strings.Split(fragment, "\n")

	var msg Message
	seen := make(map[string]bool, len(mandatoryFields))

	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t\r")
		if line == "" {
			break
		}

		for _, field := range knownFields {
			prefix := field + ": "
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			value := line[len(prefix):]
			switch field {
			case "From":
				msg.From = value
			case "Subject":
				msg.Subject = value
			case "Date":
				msg.Date = value
			case "To":
				msg.To = value
			case "Reply-To":
				msg.ReplyTo = value
			}
			seen[field] = true
		}
	}

	var missing []string
	for _, field := range mandatoryFields {
		if !seen[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Message{}, &RejectedError{Missing: missing, Preview: preview(fragment)}
	}

	if i < len(lines) {
		i++ // skip the blank separator line
	}
	msg.Body = lines[i:]

	return msg, nil
}

// FindAddress extracts the first mail address from a header line,
// lowercased. Returns the empty string when no address is present.
func FindAddress(line string) string {
	match := addressPattern.FindString(line)
	return strings.ToLower(match)
}

// CleanForDisplay normalizes line endings and blanks non-printable
// characters so a raw fragment can be shown on the operator's terminal.
// Newlines and tabs survive.
func CleanForDisplay(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			return r
		}
		return ' '
	}, text)
}

func preview(fragment string) string {
	p := fragment
	if len(p) > previewLimit {
		// Back the cut up to a rune boundary so truncation never splits
		// a multi-byte sequence.
		cut := previewLimit
		for cut > 0 && !utf8.RuneStart(p[cut]) {
			cut--
		}
		p = p[:cut]
	}
	return strings.ReplaceAll(p, "\n", `\n`)
}
