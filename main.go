// =============================================================================
// FIV Automation - Main Entry Point
// =============================================================================
//
// USAGE:
//   fivtool fiv                 - Build the FIV import workbook
//   fivtool settlement sheets   - List candidate settlement worksheets
//   fivtool settlement filter   - Filter a settlement report by date
//   fivtool serve               - Serve the pipelines over HTTP
//   fivtool version             - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : pipeline stages, readers, writer, HTTP API
//   - pkg/       : shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/fiv-automation/cmd"
)

func main() {
	cmd.Execute()
}
