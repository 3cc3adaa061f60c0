// =============================================================================
// FIV Automation - Settlement Commands
// =============================================================================
//
// COMMAND USAGE:
//   fivtool settlement sheets --file LCB.xlsx
//   fivtool settlement filter --file LCB.xlsx [--sheet NAME]
//                             [--start YYYY-MM-DD] [--end YYYY-MM-DD] [--out DIR]
//
// The date window defaults to the last seven days, ending today. When the
// workbook has several candidate worksheets and --sheet is omitted, the
// candidates are printed and the command fails.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/fiv-automation/internal/converter"
	"github.com/ginjaninja78/fiv-automation/internal/dates"
	"github.com/ginjaninja78/fiv-automation/internal/types"
)

var (
	settlementPath   string
	settlementSheet  string
	settlementStart  string
	settlementEnd    string
	settlementOutDir string
)

var settlementCmd = &cobra.Command{
	Use:   "settlement",
	Short: "Work with travel-agency settlement reports",
}

var settlementSheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List the worksheets that carry every mandatory settlement column",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(settlementPath)
		if err != nil {
			return err
		}
		names, err := converter.New(mainConfig, logger).ListCandidateSheets(doc)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return fmt.Errorf("%w in %s", types.ErrNoValidSheet, doc.Name)
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var settlementFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Keep rows inside a checkout-date window with positive amounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSettlementFilter(cmd)
	},
}

func init() {
	rootCmd.AddCommand(settlementCmd)
	settlementCmd.AddCommand(settlementSheetsCmd, settlementFilterCmd)

	settlementCmd.PersistentFlags().StringVar(&settlementPath, "file", "", "Path to the settlement report")
	_ = settlementCmd.MarkPersistentFlagRequired("file")

	today := time.Now()
	settlementFilterCmd.Flags().StringVar(&settlementSheet, "sheet", "", "Worksheet to filter (required when several qualify)")
	settlementFilterCmd.Flags().StringVar(&settlementStart, "start", today.AddDate(0, 0, -7).Format("2006-01-02"), "First checkout date, inclusive (YYYY-MM-DD)")
	settlementFilterCmd.Flags().StringVar(&settlementEnd, "end", today.Format("2006-01-02"), "Last checkout date, inclusive (YYYY-MM-DD)")
	settlementFilterCmd.Flags().StringVar(&settlementOutDir, "out", "", "Output directory (default from config)")
}

func runSettlementFilter(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== FIV Automation: Settlement ===")

	start, err := dates.ParseISO(settlementStart)
	if err != nil {
		return err
	}
	end, err := dates.ParseISO(settlementEnd)
	if err != nil {
		return err
	}

	doc, err := readDocument(settlementPath)
	if err != nil {
		return err
	}

	result, err := converter.New(mainConfig, logger).FilterSettlement(doc, settlementSheet, start, end)
	if err != nil {
		var ambiguous *types.AmbiguousSheetError
		if errors.As(err, &ambiguous) {
			fmt.Fprintln(out, "Several worksheets qualify; rerun with --sheet:")
			for _, name := range ambiguous.Candidates {
				fmt.Fprintf(out, "  - %s\n", name)
			}
		}
		return fmt.Errorf("failed to filter settlement report: %w", err)
	}

	if err := writeResult(cmd, result, doc.Name, outputDir(settlementOutDir), false); err != nil {
		return err
	}

	fmt.Fprintf(out, "Worksheet:          %s\n", result.SourceSheet)
	fmt.Fprintf(out, "Window:             %s .. %s\n", start.Format(dates.DisplayLayout), end.Format(dates.DisplayLayout))
	fmt.Fprintf(out, "Rows read:          %d\n", result.Stats.RowsRead)
	fmt.Fprintf(out, "Rows kept:          %d\n", result.Stats.RecordsEmitted)
	fmt.Fprintf(out, "Time elapsed:       %s\n", result.Stats.ProcessingTime)
	return nil
}
