package runner

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/console"
	"github.com/mailarc/mailarc/contacts"
)

type fakeConsole struct {
	batches   []int
	addReply  bool
	category  string
	dateReply string
	shown     int
}

func (f *fakeConsole) SelectBatchSize() (int, error) {
	if len(f.batches) == 0 {
		return 0, console.ErrQuit
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func (f *fakeConsole) ConfirmAdd(string) (bool, error) {
	return f.addReply, nil
}

func (f *fakeConsole) ClassifySender(string) (string, error) {
	if f.category == "" {
		return "", console.ErrQuit
	}
	return f.category, nil
}

func (f *fakeConsole) SelectFolder(base string) (string, error) {
	return base, nil
}

func (f *fakeConsole) PromptDate(string) (string, error) {
	if f.dateReply == "" {
		return "", console.ErrQuit
	}
	return f.dateReply, nil
}

func (f *fakeConsole) ShowMessage(string) { f.shown++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) (config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		InputPath:    filepath.Join(dir, "export.txt"),
		SavePath:     filepath.Join(dir, "people"),
		ContactsPath: filepath.Join(dir, "contacts.yaml"),
		Delimiter:    config.DefaultDelimiter,
		LogLevel:     "error",
		Categories:   config.DefaultCategories(),
		KeyChoices:   config.DefaultKeyChoices(),
	}
	return cfg, dir
}

func writeExport(t *testing.T, path string, fragments ...string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(fragments, "\x0c")), 0o644); err != nil {
		t.Fatal(err)
	}
}

func message(from, subject, date, body string) string {
	return "From: " + from + "\nSubject: " + subject + "\nDate: " + date + "\n\n" + body
}

func TestRunArchivesKnownSenders(t *testing.T) {
	cfg, dir := testConfig(t)

	aliceDir := filepath.Join(dir, "people", "Friends", "Alice")
	book := contacts.NewBook()
	book.Register("alice@example.com", contacts.Entry{
		Name: "Alice", Path: aliceDir, LastUsed: "2020 01 01",
	})

	older := message("alice@example.com", "first", "January 1, 2019", "older body")
	newer := message("alice@example.com", "second", "March 1, 2020", "newer body")
	writeExport(t, cfg.InputPath, newer, older)

	cons := &fakeConsole{batches: []int{5}}
	r := New(cfg, book, cons, testLogger())
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, want := range []string{
		"Alice 2019 01 01 email.txt",
		"Alice 2020 03 01 email.txt",
	} {
		if _, err := os.Stat(filepath.Join(aliceDir, want)); err != nil {
			t.Errorf("expected archived file %q: %v", want, err)
		}
	}

	// Fully drained: the export artifact must be gone.
	if _, err := os.Stat(cfg.InputPath); !os.IsNotExist(err) {
		t.Errorf("export artifact should be deleted after draining, stat err = %v", err)
	}

	if _, err := os.Stat(cfg.ContactsPath); err != nil {
		t.Errorf("contact directory should be saved: %v", err)
	}

	s := r.Summary()
	if s.Written != 2 || s.Scanned != 2 {
		t.Errorf("summary = %+v, want 2 scanned / 2 written", s)
	}
}

func TestRunQuitBeforeFirstBatchKeepsEverythingPending(t *testing.T) {
	cfg, _ := testConfig(t)

	frag := message("alice@example.com", "s", "January 1, 2019", "body")
	writeExport(t, cfg.InputPath, frag)

	cons := &fakeConsole{} // quits at the first batch prompt
	r := New(cfg, contacts.NewBook(), cons, testLogger())
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		t.Fatalf("export artifact should survive an immediate quit: %v", err)
	}
	if string(data) != frag {
		t.Errorf("artifact content changed: %q", data)
	}
}

func TestRunRejectedFragmentStaysPending(t *testing.T) {
	cfg, dir := testConfig(t)

	bobDir := filepath.Join(dir, "people", "Professional", "Bob")
	book := contacts.NewBook()
	book.Register("bob@example.com", contacts.Entry{Name: "Bob", Path: bobDir, LastUsed: "2020 01 01"})

	rejected := "Subject: no sender or date\n\nbody"
	good := message("bob@example.com", "fine", "March 1, 2020", "body")
	writeExport(t, cfg.InputPath, rejected, good)

	cons := &fakeConsole{batches: []int{5}}
	r := New(cfg, book, cons, testLogger())
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		t.Fatalf("artifact should still hold the rejected fragment: %v", err)
	}
	if string(data) != rejected {
		t.Errorf("artifact = %q, want only the rejected fragment", data)
	}

	s := r.Summary()
	if s.Rejected != 1 || s.Written != 1 {
		t.Errorf("summary = %+v, want 1 rejected / 1 written", s)
	}
}

func TestRunUnknownSenderDeclined(t *testing.T) {
	cfg, _ := testConfig(t)

	frag := message("stranger@example.com", "hi", "March 1, 2020", "body")
	writeExport(t, cfg.InputPath, frag)

	cons := &fakeConsole{batches: []int{5}, addReply: false}
	r := New(cfg, contacts.NewBook(), cons, testLogger())
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if cons.shown != 1 {
		t.Errorf("message shown %d times, want 1", cons.shown)
	}
	data, err := os.ReadFile(cfg.InputPath)
	if err != nil || string(data) != frag {
		t.Errorf("declined sender's message must stay pending: %q, %v", data, err)
	}
	if s := r.Summary(); s.Written != 0 {
		t.Errorf("summary = %+v, want nothing written", s)
	}
}

func TestRunUnknownSenderClassified(t *testing.T) {
	cfg, dir := testConfig(t)

	frag := message("newfriend@example.com", "hello", "July 18, 2008 at 14:48:37 PDT", "body")
	writeExport(t, cfg.InputPath, frag)

	cons := &fakeConsole{batches: []int{1}, addReply: true, category: "Friend"}
	book := contacts.NewBook()
	r := New(cfg, book, cons, testLogger())
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// SelectFolder echoed the category default, so the display name is
	// the subfolder name.
	wantFile := filepath.Join(dir, "people", "Friends", "Friends 2008 07 18 email.txt")
	if _, err := os.Stat(wantFile); err != nil {
		t.Errorf("expected archived file at %q: %v", wantFile, err)
	}

	entry, ok := book.Resolve("newfriend@example.com")
	if !ok {
		t.Fatal("sender should be registered")
	}
	if entry.Name != "Friends" || entry.Path != filepath.Join(dir, "people", "Friends") {
		t.Errorf("registered entry = %+v", entry)
	}

	loaded, err := contacts.Load(cfg.ContactsPath)
	if err != nil {
		t.Fatalf("persisted contacts unreadable: %v", err)
	}
	if _, ok := loaded.Resolve("newfriend@example.com"); !ok {
		t.Error("registered sender missing from the saved contact directory")
	}
}

func TestRunPromptsForUnparseableDate(t *testing.T) {
	cfg, dir := testConfig(t)

	carolDir := filepath.Join(dir, "people", "Family", "Carol")
	book := contacts.NewBook()
	book.Register("carol@example.com", contacts.Entry{Name: "Carol", Path: carolDir, LastUsed: "2020 01 01"})

	frag := message("carol@example.com", "hm", "sometime last spring", "body")
	writeExport(t, cfg.InputPath, frag)

	cons := &fakeConsole{batches: []int{1}, dateReply: "2021 05 01"}
	r := New(cfg, book, cons, testLogger())
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(carolDir, "Carol 2021 05 01 email.txt")); err != nil {
		t.Errorf("expected file named from the operator-supplied date: %v", err)
	}
}

func TestRunQuitDuringClassificationLosesNothing(t *testing.T) {
	cfg, _ := testConfig(t)

	frag := message("stranger@example.com", "hi", "March 1, 2020", "body")
	writeExport(t, cfg.InputPath, frag)

	// Confirm the add, then quit at the category prompt.
	cons := &fakeConsole{batches: []int{1}, addReply: true, category: ""}
	r := New(cfg, contacts.NewBook(), cons, testLogger())
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v (quit is not a failure)", err)
	}

	data, err := os.ReadFile(cfg.InputPath)
	if err != nil || string(data) != frag {
		t.Errorf("message must stay pending after a mid-classification quit: %q, %v", data, err)
	}
}

func TestRunUndatedFragmentsSortLast(t *testing.T) {
	cfg, dir := testConfig(t)

	daveDir := filepath.Join(dir, "people", "Other", "Dave")
	book := contacts.NewBook()
	book.Register("dave@example.com", contacts.Entry{Name: "Dave", Path: daveDir, LastUsed: "2020 01 01"})

	undated := "From: dave@example.com\nSubject: no date header\n\nbody"
	dated := message("dave@example.com", "dated", "March 1, 2020", "body")
	writeExport(t, cfg.InputPath, undated, dated)

	// One slot only: the dated fragment must be the one processed.
	cons := &fakeConsole{batches: []int{1}}
	r := New(cfg, book, cons, testLogger())
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(daveDir, "Dave 2020 03 01 email.txt")); err != nil {
		t.Errorf("dated fragment should be archived first: %v", err)
	}
	data, err := os.ReadFile(cfg.InputPath)
	if err != nil || string(data) != undated {
		t.Errorf("undated fragment should remain pending: %q, %v", data, err)
	}
	if s := r.Summary(); s.Undated != 1 {
		t.Errorf("summary = %+v, want 1 undated", s)
	}
}

func TestRunMboxInput(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.MboxPath = filepath.Join(dir, "archive.mbox")

	mbox := "From alice@example.com Thu Jul 17 08:15:00 2008\n" +
		"From: alice@example.com\n" +
		"Subject: via mbox\n" +
		"Date: March 1, 2020\n" +
		"\n" +
		"body\n"
	if err := os.WriteFile(cfg.MboxPath, []byte(mbox), 0o644); err != nil {
		t.Fatal(err)
	}

	aliceDir := filepath.Join(dir, "people", "Friends", "Alice")
	book := contacts.NewBook()
	book.Register("alice@example.com", contacts.Entry{Name: "Alice", Path: aliceDir, LastUsed: "2020 01 01"})

	cons := &fakeConsole{batches: []int{5}}
	r := New(cfg, book, cons, testLogger())
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries, err := os.ReadDir(aliceDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one archived file, got %v / %v", entries, err)
	}
	if !strings.HasPrefix(entries[0].Name(), "Alice 2020 03 01") {
		t.Errorf("archived file = %q", entries[0].Name())
	}
}
