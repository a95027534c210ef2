package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailarc/mailarc/chart"
)

var chartOutput string

var chartCmd = &cobra.Command{
	Use:   "chart [export or mbox file]",
	Short: "Render an HTML chart of messages per sender per year",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		delim, err := delimiterFlag(cmd)
		if err != nil {
			return err
		}

		fragments, err := loadFragments(path, delim)
		if err != nil {
			return fmt.Errorf("error reading export file: %w", err)
		}

		c := chart.New(fragments, slog.Default())

		file, err := os.Create(chartOutput)
		if err != nil {
			return fmt.Errorf("create chart file: %w", err)
		}
		defer file.Close()

		if err := c.Render(file); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}

		fmt.Printf("Chart for %d senders written to %s\n", c.Senders(), chartOutput)
		return nil
	},
}

func init() {
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "mailarc-chart.html", "Output HTML file")
	rootCmd.AddCommand(chartCmd)
}
