// =============================================================================
// FIV Automation - Converter Module
// =============================================================================
//
// This module orchestrates both pipelines for a single request, from the
// uploaded document bytes to the generated workbook bytes.
//
// FIV PIPELINE:
//   1. Read the invoice listing and the reference (KH) document
//   2. Locate and flatten the invoice header
//   3. Clean the invoice rows into SourceRecords
//   4. Index the reference table and resolve customer accounts
//   5. Project the FIV rows and self-check them
//   6. Write the output workbook
//
// SETTLEMENT PIPELINE:
//   1. Read the settlement document
//   2. Select the candidate worksheet
//   3. Filter by checkout date and positive amounts
//   4. Write the output workbook
//
// CONCURRENCY:
//   A Service holds only read-only configuration and a logger. Every call
//   works on its own in-memory tables, so one Service may serve concurrent
//   requests.
//
// =============================================================================

package converter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/fiv-automation/internal/cleaner"
	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/csvparser"
	"github.com/ginjaninja78/fiv-automation/internal/dates"
	"github.com/ginjaninja78/fiv-automation/internal/header"
	"github.com/ginjaninja78/fiv-automation/internal/projector"
	"github.com/ginjaninja78/fiv-automation/internal/resolver"
	"github.com/ginjaninja78/fiv-automation/internal/settlement"
	"github.com/ginjaninja78/fiv-automation/internal/types"
	"github.com/ginjaninja78/fiv-automation/internal/validation"
	"github.com/ginjaninja78/fiv-automation/internal/xlsxparser"
	"github.com/ginjaninja78/fiv-automation/internal/xlsxwriter"
	"github.com/ginjaninja78/fiv-automation/pkg/utils"
)

// =============================================================================
// INPUT AND RESULT STRUCTURES
// =============================================================================

// Document is an uploaded file. The extension of Name selects the reader.
type Document struct {
	Name string
	Data []byte
}

// Result represents the outcome of one pipeline run.
type Result struct {
	// RunID tags every log line of the run.
	RunID string

	// OutputFile is the generated file name (no directory).
	OutputFile string

	// SheetName is the worksheet written to Output.
	SheetName string

	// Output holds the generated .xlsx bytes.
	Output []byte

	// SourceSheet is the worksheet that was read (settlement only).
	SourceSheet string

	// Stats contains processing statistics.
	Stats ProcessingStats

	// Report holds the row-level issues found during the run.
	Report *validation.Report
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead is the number of data rows below the header.
	RowsRead int

	// RowsDropped is the number of rows excluded from the output.
	RowsDropped int

	// RecordsEmitted is the number of rows written.
	RecordsEmitted int

	// ResolvedByTaxCode, ResolvedByName and Unresolved split the FIV
	// records by account resolution tier.
	ResolvedByTaxCode int
	ResolvedByName    int
	Unresolved        int

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// =============================================================================
// SERVICE
// =============================================================================

// Service runs the pipelines with a fixed configuration.
type Service struct {
	cfg    *config.MainConfig
	logger *zap.Logger
}

// New creates a Service. A nil logger disables logging.
func New(cfg *config.MainConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, logger: logger}
}

// =============================================================================
// FIV GENERATION
// =============================================================================

// GenerateFIV builds the FIV import workbook from an invoice listing and
// the customer reference document.
//
// RETURNS:
//   - The result with output bytes, stats and the issue report.
//   - types.ErrHeaderNotFound, types.ErrDuplicateColumnName,
//     types.ErrMissingColumn or types.ErrMalformedAmount for structural
//     failures; the run produces no output in that case.
func (s *Service) GenerateFIV(invoice, reference Document) (*Result, error) {
	startTime := time.Now()
	result := &Result{RunID: uuid.New().String(), Report: validation.NewReport()}
	log := s.logger.With(zap.String("run_id", result.RunID), zap.String("pipeline", "fiv"))
	rules := s.cfg.FIV

	// =========================================================================
	// STEP 1: READ DOCUMENTS
	// =========================================================================

	log.Info("Processing invoice listing",
		zap.String("invoice", invoice.Name),
		zap.String("reference", reference.Name))

	invoiceBook, err := s.loadWorkbook(invoice)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice listing: %w", err)
	}
	referenceBook, err := s.loadWorkbook(reference)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference document: %w", err)
	}

	// =========================================================================
	// STEP 2: LOCATE AND FLATTEN THE HEADER
	// =========================================================================
	// The listing has title rows of varying height above a two-row header
	// marked by "STT", and footnote rows that are dropped before the scan.

	locator, err := header.NewLocator(rules.HeaderMarker, rules.FootnotePattern)
	if err != nil {
		return nil, err
	}
	grid, headerRow, err := locator.Locate(invoiceBook.Sheets[0])
	if err != nil {
		return nil, err
	}
	table, err := header.Flatten(grid, headerRow)
	if err != nil {
		return nil, err
	}

	result.Stats.RowsRead = len(table.Rows)
	log.Debug("Located header",
		zap.String("sheet", grid.Name),
		zap.Int("header_row", grid.SourceRow(headerRow)),
		zap.Int("columns", len(table.Columns)),
		zap.Int("rows", len(table.Rows)))

	// =========================================================================
	// STEP 3: CLEAN RECORDS
	// =========================================================================

	cleaned, err := cleaner.New(rules).Clean(table)
	if err != nil {
		return nil, err
	}

	for _, dropped := range cleaned.Dropped {
		log.Debug("Dropped row", zap.Int("row", dropped.SourceRow), zap.String("field", dropped.Field))
		result.Report.Add(validation.MissingField(dropped.SourceRow, dropped.Field))
	}
	result.Stats.RowsDropped = len(cleaned.Dropped)
	log.Info("Cleaned invoice rows",
		zap.Int("records", len(cleaned.Records)),
		zap.Int("dropped", len(cleaned.Dropped)),
		zap.String("tax_column", cleaned.TaxColumn))

	// =========================================================================
	// STEP 4: RESOLVE ACCOUNTS
	// =========================================================================

	refTable, err := header.Single(referenceBook.Sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read reference header: %w", err)
	}
	res, err := resolver.New(refTable, resolver.Options{
		NameColumn:    rules.ReferenceNameColumn,
		AccountColumn: rules.ReferenceAccountColumn,
		TaxRule:       cleaner.TaxRule(rules.TaxAliases),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index reference document: %w", err)
	}

	resolutions := res.ResolveAll(cleaned.Records)
	for i, r := range resolutions {
		switch r.Tier() {
		case resolver.TierTaxCode:
			result.Stats.ResolvedByTaxCode++
		case resolver.TierName:
			result.Stats.ResolvedByName++
		default:
			rec := cleaned.Records[i]
			result.Stats.Unresolved++
			log.Debug("Unresolved buyer", zap.Int("row", rec.SourceRow), zap.String("buyer", rec.BuyerName))
			result.Report.Add(validation.Unresolved(rec.SourceRow, rec.BuyerName, res.Suggest(rec.BuyerName)))
		}
	}
	log.Info("Resolved accounts",
		zap.Int("by_tax_code", result.Stats.ResolvedByTaxCode),
		zap.Int("by_name", result.Stats.ResolvedByName),
		zap.Int("unresolved", result.Stats.Unresolved))

	// =========================================================================
	// STEP 5: PROJECT AND SELF-CHECK
	// =========================================================================

	records := projector.New(rules.Constants).Project(cleaned.Records, resolutions)
	dateColumn := true
	for _, field := range cleaned.MissingOptional {
		log.Debug("Optional column not found", zap.String("field", field))
		result.Report.Add(validation.MissingColumn(field))
		if field == cleaner.FieldIssueDate {
			dateColumn = false
		}
	}
	for i, rec := range records {
		if dateColumn && !rec.InvoiceDate.Valid() {
			src := cleaned.Records[i]
			result.Report.Add(validation.UnparsableDate(src.SourceRow, cleaner.FieldIssueDate, src.IssueDate.String()))
		}
	}

	var fatal []string
	for _, issue := range validation.CheckFIV(records) {
		result.Report.Add(issue)
		if issue.Severity == validation.SeverityError {
			fatal = append(fatal, issue.Error())
		}
	}
	if len(fatal) > 0 {
		return nil, fmt.Errorf("FIV self-check failed: %s", strings.Join(fatal, "; "))
	}

	// =========================================================================
	// STEP 6: WRITE OUTPUT
	// =========================================================================

	output, err := xlsxwriter.Write(projector.Sheet(rules.OutputSheet, records))
	if err != nil {
		return nil, fmt.Errorf("failed to write FIV workbook: %w", err)
	}

	result.Output = output
	result.SheetName = rules.OutputSheet
	result.OutputFile = utils.GenerateOutputFileName(rules.OutputFileFormat, nil)
	result.Stats.RecordsEmitted = len(records)
	result.Stats.ProcessingTime = time.Since(startTime)

	log.Info("Generated FIV",
		zap.String("output", result.OutputFile),
		zap.Int("records", len(records)),
		zap.Int("issues", len(result.Report.Issues)),
		zap.Duration("elapsed", result.Stats.ProcessingTime))

	return result, nil
}

// =============================================================================
// SETTLEMENT FILTER
// =============================================================================

// ListCandidateSheets returns the worksheets of doc that carry every
// mandatory settlement column.
func (s *Service) ListCandidateSheets(doc Document) ([]string, error) {
	wb, err := s.loadWorkbook(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to read settlement document: %w", err)
	}
	filter, err := settlement.New(s.cfg.Settlement)
	if err != nil {
		return nil, err
	}
	return filter.Candidates(wb), nil
}

// FilterSettlement keeps the rows of the chosen worksheet whose checkout
// date lies in [start, end] and whose two amounts are positive. An empty
// sheet name selects the only candidate.
//
// RETURNS:
//   - The result with output bytes and stats.
//   - types.ErrInvalidDateRange, types.ErrNoValidSheet,
//     *types.AmbiguousSheetError or types.ErrMalformedAmount on failure.
func (s *Service) FilterSettlement(doc Document, sheet string, start, end dates.Date) (*Result, error) {
	startTime := time.Now()
	result := &Result{RunID: uuid.New().String(), Report: validation.NewReport()}
	log := s.logger.With(zap.String("run_id", result.RunID), zap.String("pipeline", "settlement"))

	log.Info("Processing settlement document",
		zap.String("file", doc.Name),
		zap.String("sheet", sheet),
		zap.Stringer("start", start),
		zap.Stringer("end", end))

	if !start.Valid() || !end.Valid() || start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", types.ErrInvalidDateRange, start, end)
	}

	wb, err := s.loadWorkbook(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to read settlement document: %w", err)
	}

	filter, err := settlement.New(s.cfg.Settlement)
	if err != nil {
		return nil, err
	}
	filtered, err := filter.Apply(wb, sheet, start, end)
	if err != nil {
		return nil, err
	}

	if filtered.RowsKept == 0 {
		result.Report.Add(validation.NoMatchingRows(start.String(), end.String()))
	}

	output, err := xlsxwriter.Write(filtered.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to write settlement workbook: %w", err)
	}

	result.Output = output
	result.SourceSheet = filtered.Sheet
	result.SheetName = filtered.Output.Name
	result.OutputFile = utils.GenerateOutputFileName(s.cfg.Settlement.OutputFileFormat, map[string]string{
		"start": start.Format("20060102"),
		"end":   end.Format("20060102"),
	})
	result.Stats.RowsRead = filtered.RowsRead
	result.Stats.RecordsEmitted = filtered.RowsKept
	result.Stats.RowsDropped = filtered.RowsRead - filtered.RowsKept
	result.Stats.ProcessingTime = time.Since(startTime)

	log.Info("Filtered settlement",
		zap.String("sheet", filtered.Sheet),
		zap.Int("rows_read", filtered.RowsRead),
		zap.Int("rows_kept", filtered.RowsKept),
		zap.Int("rows_without_date", filtered.RowsNoDate),
		zap.Strings("dropped_columns", filtered.DroppedCols),
		zap.String("output", result.OutputFile))

	return result, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// loadWorkbook dispatches on the document extension.
func (s *Service) loadWorkbook(doc Document) (*types.Workbook, error) {
	var (
		wb  *types.Workbook
		err error
	)

	switch ext := strings.ToLower(filepath.Ext(doc.Name)); ext {
	case ".xlsx", ".xlsm":
		wb, err = xlsxparser.Parse(doc.Data)
	case ".xls":
		wb, err = xlsxparser.ParseXLS(doc.Data)
	case ".csv":
		wb, err = csvparser.Parse(doc.Name, doc.Data, s.cfg.CSV)
	default:
		return nil, fmt.Errorf("%w: '%s'", types.ErrUnsupportedFormat, doc.Name)
	}
	if err != nil {
		return nil, err
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("document '%s' has no worksheets", doc.Name)
	}

	s.logger.Debug("Read document",
		zap.String("file", doc.Name),
		zap.Strings("sheets", wb.SheetNames()))
	return wb, nil
}
