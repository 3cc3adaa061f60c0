// =============================================================================
// FIV Automation - File Manager Utility
// =============================================================================
//
// This module provides the file system side of the CLI:
//   - Output file naming from configurable patterns
//   - Writing generated workbooks into the output directory
//   - Issue log generation next to the output
//
// The pipelines themselves never touch the file system; they take and
// return bytes so the HTTP API can use them unchanged.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all given directories if they don't exist.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ReadDocument reads an input document and returns its base name and bytes.
func ReadDocument(path string) (string, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return filepath.Base(path), data, nil
}

// WriteOutputFile writes data to outputDir/name and returns the full path.
func WriteOutputFile(outputDir, name string, data []byte) (string, error) {
	if err := EnsureDirectories(outputDir); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return path, nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name from a format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {start}     - Settlement window start (YYYYMMDD)
//               {end}       - Settlement window end (YYYYMMDD)
//   - params: A map of placeholder values.
//
// RETURNS:
//   - The generated file name. A format without an extension gets ".xlsx".
//
// EXAMPLE:
//   format: "Agoda_processed_{start}_{end}.xlsx"
//   params: {"start": "20250801", "end": "20250807"}
//   output: "Agoda_processed_20250801_20250807.xlsx"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if filepath.Ext(result) == "" {
		result += ".xlsx"
	}
	return result
}

// IssueLogName returns the issue log name for an output file,
// e.g. "Completed_FIV.xlsx" -> "Completed_FIV_issues.txt".
func IssueLogName(outputFile string) string {
	return strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + "_issues.txt"
}

// =============================================================================
// ISSUE LOG GENERATION
// =============================================================================

// IssueLogEntry represents a single issue log entry.
type IssueLogEntry struct {
	Severity string
	Rule     string
	Message  string
	Row      int
	Field    string
	Value    string
}

// WriteIssueLog writes issue entries to outputDir/name.
//
// PARAMETERS:
//   - entries: The issues to write.
//   - source: The input document the issues refer to.
//   - outputDir: The directory to write the log file.
//   - name: The log file name.
//
// RETURNS:
//   - The path to the issue log file, or "" when there are no entries.
//   - An error if writing fails.
func WriteIssueLog(entries []IssueLogEntry, source, outputDir, name string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	if err := EnsureDirectories(outputDir); err != nil {
		return "", err
	}

	logPath := filepath.Join(outputDir, name)
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create issue log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "FIV Automation - Issue Log\n"+
		"Generated: %s\n"+
		"Source:    %s\n"+
		"Total Issues: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		source,
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Issue #%d\n"+
			"  Severity:   %s\n"+
			"  Rule:       %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Severity,
			entry.Rule,
			entry.Message)

		if entry.Row > 0 {
			fmt.Fprintf(writer, "  Row Number: %d\n", entry.Row)
		}
		if entry.Field != "" {
			fmt.Fprintf(writer, "  Field:      %s\n", entry.Field)
		}
		if entry.Value != "" {
			fmt.Fprintf(writer, "  Value:      %s\n", entry.Value)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Issue Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush issue log: %w", err)
	}
	return logPath, nil
}
