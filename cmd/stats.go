package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mailarc/mailarc/filter"
	"github.com/mailarc/mailarc/stats"
)

var (
	reportDir     string
	topN          int
	includeHeader []string
	includeBody   []string
	excludeHeader []string
	excludeBody   []string
)

var statsCmd = &cobra.Command{
	Use:   "stats [export or mbox file]",
	Short: "Analyse the export and show header statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		fmt.Println("Analyzing export file:", path)

		filterOpts := filter.Options{
			IncludeHeader: includeHeader,
			IncludeBody:   includeBody,
			ExcludeHeader: excludeHeader,
			ExcludeBody:   excludeBody,
		}
		f, err := filter.New(filterOpts)
		if err != nil {
			return fmt.Errorf("create filter: %w", err)
		}

		delim, err := delimiterFlag(cmd)
		if err != nil {
			return err
		}

		fragments, err := loadFragments(path, delim)
		if err != nil {
			return fmt.Errorf("error reading export file: %w", err)
		}

		counter := make(map[string]map[string]int)
		headersToTrack := []string{"From", "Subject", "To"}
		for _, h := range headersToTrack {
			counter[h] = make(map[string]int)
		}

		messageCount := 0
		skippedCount := 0
		printStats := func() {
			// ANSI escape code to clear screen and move cursor to top-left
			fmt.Print("\033[H\033[2J")
			totalMessages := messageCount + skippedCount
			var filterPercent float64
			if totalMessages > 0 {
				filterPercent = float64(skippedCount) / float64(totalMessages) * 100
			}
			fmt.Printf("Processed %d messages (skipped %d by filters, %.2f%%)...\n\n", messageCount, skippedCount, filterPercent)

			for _, header := range headersToTrack {
				fmt.Printf("Top %d %s:\n", topN, header)
				stats.PrettyPrintTop(counter[header], topN)
				fmt.Println()
			}
		}

		for _, fragment := range fragments {
			if !f.Allows(fragment) {
				skippedCount++
				continue
			}

			messageCount++
			for _, headerName := range headersToTrack {
				if value := headerValue(fragment, headerName); value != "" {
					counter[headerName][value]++
				}
			}

			if messageCount%250 == 0 {
				printStats()
			}
		}

		// Final print
		printStats()

		if err := saveCSVReports(counter, headersToTrack, reportDir, 1000); err != nil {
			return fmt.Errorf("error saving CSV reports: %w", err)
		}

		fmt.Printf("\nReports saved to directory: %s\n", reportDir)

		return nil
	},
}

func init() {
	statsCmd.Flags().StringVarP(&reportDir, "output", "o", ".", "Output directory for CSV reports")
	statsCmd.Flags().IntVarP(&topN, "top", "t", 10, "Number of top items to display in statistics")
	statsCmd.Flags().StringArrayVar(&includeHeader, "include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	statsCmd.Flags().StringArrayVar(&includeBody, "include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	statsCmd.Flags().StringArrayVar(&excludeHeader, "exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	statsCmd.Flags().StringArrayVar(&excludeBody, "exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")
	rootCmd.AddCommand(statsCmd)
}

// headerValue extracts a single header value from the fragment's header
// section without a full parse. First occurrence wins.
func headerValue(fragment, field string) string {
	prefix := field + ": "
	for _, line := range strings.Split(fragment, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			break
		}
		if value, ok := strings.CutPrefix(line, prefix); ok {
			return value
		}
	}
	return ""
}

func saveCSVReports(counter map[string]map[string]int, headers []string, dir string, limit int) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Write data for each header category to a separate file
	for _, header := range headers {
		counts := counter[header]

		filename := fmt.Sprintf("report_%s.csv", normalizeHeaderName(header))
		filePath := filepath.Join(dir, filename)

		file, err := os.Create(filePath)
		if err != nil {
			return err
		}

		writer := csv.NewWriter(file)

		if err := writer.Write([]string{"Value", "Count"}); err != nil {
			file.Close()
			return err
		}

		// Sort by count descending
		type pair struct {
			Key   string
			Value int
		}
		var pairs []pair
		for k, v := range counts {
			pairs = append(pairs, pair{k, v})
		}
		sort.Slice(pairs, func(i, j int) bool {
			return pairs[i].Value > pairs[j].Value
		})

		for i := 0; i < limit && i < len(pairs); i++ {
			record := []string{
				pairs[i].Key,
				strconv.Itoa(pairs[i].Value),
			}
			if err := writer.Write(record); err != nil {
				file.Close()
				return err
			}
		}

		writer.Flush()
		file.Close()

		if err := writer.Error(); err != nil {
			return err
		}
	}

	return nil
}

func normalizeHeaderName(header string) string {
	// Convert to lowercase and replace invalid filename chars
	name := strings.ToLower(header)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
