package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/fiv-automation/internal/converter"
	"github.com/ginjaninja78/fiv-automation/internal/validation"
	"github.com/ginjaninja78/fiv-automation/pkg/utils"
)

// writeResult writes the output workbook and, when there are issues, the
// issue log. With dryRun set it only prints what would be written.
func writeResult(cmd *cobra.Command, result *converter.Result, source, outDir string, dryRun bool) error {
	out := cmd.OutOrStdout()

	if dryRun {
		fmt.Fprintf(out, "Dry run: would write %s (%d bytes) to %s\n", result.OutputFile, len(result.Output), outDir)
	} else {
		path, err := utils.WriteOutputFile(outDir, result.OutputFile, result.Output)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  ✓ %s -> %s\n", source, path)
		logger.Info("Wrote output", zap.String("run_id", result.RunID), zap.String("path", path))
	}

	if len(result.Report.Issues) == 0 {
		return nil
	}

	fmt.Fprintf(out, "\n%s\n", validation.FormatIssues(result.Report.Issues))
	if dryRun {
		return nil
	}

	entries := make([]utils.IssueLogEntry, len(result.Report.Issues))
	for i, issue := range result.Report.Issues {
		entries[i] = utils.IssueLogEntry{
			Severity: issue.Severity,
			Rule:     issue.Rule,
			Message:  issue.Message,
			Row:      issue.Row,
			Field:    issue.Field,
			Value:    issue.Value,
		}
	}
	logPath, err := utils.WriteIssueLog(entries, source, outDir, utils.IssueLogName(result.OutputFile))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Issues have been logged to %s\n", logPath)
	return nil
}
