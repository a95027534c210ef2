package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mailarc/mailarc/blob"
	"github.com/mailarc/mailarc/order"
)

var sortOutput string

var sortCmd = &cobra.Command{
	Use:   "sort [export file]",
	Short: "Rewrite an export file in chronological order",
	Long: `Sort reads a delimiter-joined export file, orders its messages
chronologically by their Date header and writes the result back.
Messages whose date cannot be recognised keep their relative order at
the end of the file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		delim, err := delimiterFlag(cmd)
		if err != nil {
			return err
		}

		fragments, err := blob.Load(path, delim)
		if err != nil {
			return fmt.Errorf("error reading export file: %w", err)
		}

		sorted, undated := order.ByDate(fragments, slog.Default())

		out := sortOutput
		if out == "" {
			out = path
		}
		if err := blob.Save(out, sorted, delim); err != nil {
			return fmt.Errorf("error writing export file: %w", err)
		}

		fmt.Printf("Sorted %d messages (%d without a recognisable date) into %s\n", len(sorted), undated, out)
		return nil
	},
}

func init() {
	sortCmd.Flags().StringVarP(&sortOutput, "output", "o", "", "Write the sorted export here instead of in place")
	rootCmd.AddCommand(sortCmd)
}
