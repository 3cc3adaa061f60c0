// =============================================================================
// FIV Automation - FIV Command
// =============================================================================
//
// COMMAND USAGE:
//   fivtool fiv --invoice EAS.xlsx --reference KH.xlsx [flags]
//
// FLAGS:
//   --invoice    : E-invoice listing (.xlsx, .xls, .csv)
//   --reference  : Customer reference list with Name / Customer account
//   --out        : Output directory (default: output_dir from config)
//   --dry-run    : Run the pipeline and print the summary without writing
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/fiv-automation/internal/converter"
	"github.com/ginjaninja78/fiv-automation/pkg/utils"
)

var (
	invoicePath   string
	referencePath string
	fivOutDir     string
	dryRun        bool
)

// fivCmd represents the 'fiv' command.
var fivCmd = &cobra.Command{
	Use:   "fiv",
	Short: "Build the FIV import workbook from an invoice listing",
	Long: `The fiv command reads an e-invoice listing, locates its two-row header,
drops rows without a buyer name or revenue, resolves each buyer's customer
account from the reference list, and writes the 32-column FIV sheet.

Rows that were dropped or could not be resolved are listed in an issue log
next to the output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFIV(cmd)
	},
}

func init() {
	rootCmd.AddCommand(fivCmd)

	fivCmd.Flags().StringVar(&invoicePath, "invoice", "", "Path to the e-invoice listing")
	fivCmd.Flags().StringVar(&referencePath, "reference", "", "Path to the customer reference list")
	fivCmd.Flags().StringVar(&fivOutDir, "out", "", "Output directory (default from config)")
	fivCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate processing without writing output files")

	_ = fivCmd.MarkFlagRequired("invoice")
	_ = fivCmd.MarkFlagRequired("reference")
}

func runFIV(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== FIV Automation: FIV ===")

	// =========================================================================
	// STEP 1: READ INPUTS
	// =========================================================================

	invoice, err := readDocument(invoicePath)
	if err != nil {
		return err
	}
	reference, err := readDocument(referencePath)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: RUN THE PIPELINE
	// =========================================================================

	service := converter.New(mainConfig, logger)
	result, err := service.GenerateFIV(invoice, reference)
	if err != nil {
		return fmt.Errorf("failed to generate FIV: %w", err)
	}

	// =========================================================================
	// STEP 3: WRITE OUTPUTS AND SUMMARY
	// =========================================================================

	outDir := outputDir(fivOutDir)
	if err := writeResult(cmd, result, invoice.Name, outDir, dryRun); err != nil {
		return err
	}

	fmt.Fprintf(out, "Rows read:          %d\n", result.Stats.RowsRead)
	fmt.Fprintf(out, "Rows dropped:       %d\n", result.Stats.RowsDropped)
	fmt.Fprintf(out, "Records written:    %d\n", result.Stats.RecordsEmitted)
	fmt.Fprintf(out, "By tax code:        %d\n", result.Stats.ResolvedByTaxCode)
	fmt.Fprintf(out, "By name:            %d\n", result.Stats.ResolvedByName)
	fmt.Fprintf(out, "Unresolved:         %d\n", result.Stats.Unresolved)
	fmt.Fprintf(out, "Time elapsed:       %s\n", result.Stats.ProcessingTime)
	return nil
}

func readDocument(path string) (converter.Document, error) {
	name, data, err := utils.ReadDocument(path)
	if err != nil {
		return converter.Document{}, err
	}
	return converter.Document{Name: name, Data: data}, nil
}

func outputDir(flag string) string {
	if flag != "" {
		return flag
	}
	return mainConfig.OutputDir
}
