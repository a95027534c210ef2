package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailarc/mailarc/blob"
	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/console"
	"github.com/mailarc/mailarc/contacts"
	"github.com/mailarc/mailarc/runner"
)

var rootCmd = &cobra.Command{
	Use:   "mailarc",
	Short: "Archive messages from a mail export into per-contact text files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cmd)
		if err != nil {
			return err
		}

		logger, cleanup, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = cleanup()
		}()

		slog.SetDefault(logger)
		logger.Info("starting mailarc", "input", cfg.InputPath, "savePath", cfg.SavePath)

		return run(cfg, logger)
	},
}

// Execute registers the CLI flags and dispatches the command line.
func Execute() {
	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	book, err := contacts.Load(cfg.ContactsPath)
	if err != nil {
		return fmt.Errorf("contacts.Load: %w", err)
	}
	logger.Info("contact directory loaded", "path", cfg.ContactsPath, "entries", book.Len())

	r := runner.New(cfg, book, console.New(cfg.KeyChoices), logger)
	return r.Run()
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("mailarc-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}

// loadFragments reads either an export blob or an mbox archive,
// depending on the file extension.
func loadFragments(path string, delim byte) ([]string, error) {
	if strings.HasSuffix(path, ".mbox") {
		return blob.ReadMbox(path)
	}
	return blob.Load(path, delim)
}

// delimiterFlag resolves the inherited --delimiter flag to its byte.
func delimiterFlag(cmd *cobra.Command) (byte, error) {
	delimiter, err := cmd.Flags().GetString("delimiter")
	if err != nil {
		return 0, err
	}
	if len(delimiter) != 1 {
		return 0, fmt.Errorf("--delimiter must be exactly one byte, got %d", len(delimiter))
	}
	return delimiter[0], nil
}
