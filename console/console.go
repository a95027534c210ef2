// Package console implements the operator prompts on the terminal. The
// core pipeline packages never prompt; everything interactive funnels
// through here.
package console

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/mailarc/mailarc/header"
)

// ErrQuit is returned when the operator quits at any prompt. The caller
// aborts the current batch without losing already-written progress.
var ErrQuit = errors.New("operator requested quit")

const quitOption = "Quit"

// Terminal prompts the operator via pterm interactive components.
type Terminal struct {
	keyChoices map[string]string
}

// New builds a Terminal over the key-to-category table.
func New(keyChoices map[string]string) *Terminal {
	return &Terminal{keyChoices: keyChoices}
}

// SelectBatchSize asks how many messages to process next. Zero means
// quit.
func (t *Terminal) SelectBatchSize() (int, error) {
	for {
		raw, err := pterm.DefaultInteractiveTextInput.
			Show("Number of messages to process (0 to quit)")
		if err != nil {
			return 0, err
		}

		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			pterm.Println("Enter a non-negative number.")
			continue
		}
		if n == 0 {
			return 0, ErrQuit
		}
		return n, nil
	}
}

// ConfirmAdd asks whether an unknown sender should be added to the
// contact directory.
func (t *Terminal) ConfirmAdd(address string) (bool, error) {
	return pterm.DefaultInteractiveConfirm.
		Show(fmt.Sprintf("Sender %q is not known. Add to contacts?", address))
}

// ClassifySender asks the operator to place a sender into one of the
// configured categories.
func (t *Terminal) ClassifySender(address string) (string, error) {
	options := make([]string, 0, len(t.keyChoices)+1)
	byOption := make(map[string]string, len(t.keyChoices))
	for key, category := range t.keyChoices {
		option := fmt.Sprintf("%s (%s)", category, key)
		options = append(options, option)
		byOption[option] = category
	}
	sort.Strings(options)
	options = append(options, quitOption)

	choice, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		Show("Classify " + address)
	if err != nil {
		return "", err
	}
	if choice == quitOption {
		return "", ErrQuit
	}
	return byOption[choice], nil
}

// SelectFolder asks for the destination folder, pre-filled with the
// category default.
func (t *Terminal) SelectFolder(base string) (string, error) {
	folder, err := pterm.DefaultInteractiveTextInput.
		WithDefaultValue(base).
		Show("Destination folder")
	if err != nil {
		return "", err
	}
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return base, nil
	}
	return folder, nil
}

// PromptDate asks the operator to supply a filename date for a message
// whose Date header could not be normalized. The reply must be in
// "YYYY MM DD" form; "q" quits.
func (t *Terminal) PromptDate(raw string) (string, error) {
	pterm.Warning.Printfln("Date not recognized: %q", raw)
	for {
		reply, err := pterm.DefaultInteractiveTextInput.
			Show("Enter date as YYYY MM DD (q to quit)")
		if err != nil {
			return "", err
		}

		reply = strings.TrimSpace(reply)
		if strings.EqualFold(reply, "q") {
			return "", ErrQuit
		}
		if _, err := time.Parse("2006 01 02", reply); err != nil {
			pterm.Println("Try again, for example: 2008 07 18")
			continue
		}
		return reply, nil
	}
}

// ShowMessage displays a fragment so the operator can judge the sender.
func (t *Terminal) ShowMessage(fragment string) {
	pterm.DefaultBox.
		WithTitle("Message").
		Println(header.CleanForDisplay(fragment))
}
