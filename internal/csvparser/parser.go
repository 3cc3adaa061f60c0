// =============================================================================
// FIV Automation - CSV Parser Module
// =============================================================================
//
// This module reads CSV exports (reference customer lists and settlement
// reports are often saved as CSV from legacy tools) into the same untyped
// RawGrid model the workbook reader produces. A CSV document becomes a
// workbook with a single sheet.
//
// FEATURES:
//   - Configurable delimiter
//   - Legacy single-byte encodings (Windows-1258 for Vietnamese, Windows-1252,
//     ISO-8859-1) decoded to UTF-8
//   - UTF-8 byte order mark stripped
//   - Ragged rows and stray quotes tolerated
//
// CELL TYPING:
//   Every non-blank field is text. Amount and date columns are parsed
//   downstream; keeping text here preserves leading zeros in tax codes.
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads CSV bytes into a single-sheet workbook.
//
// PARAMETERS:
//   - name: The document file name; its base name without extension becomes
//     the sheet name.
//   - data: The raw CSV bytes.
//   - settings: Delimiter and encoding.
//
// RETURNS:
//   - The workbook.
//   - An error if the encoding is unknown or the CSV is malformed.
func Parse(name string, data []byte, settings config.CSVSettings) (*types.Workbook, error) {
	decoder, err := getDecoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))
	if decoder != nil {
		reader = transform.NewReader(reader, decoder.NewDecoder())
	}

	// Create the CSV reader.
	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	sheet := types.Sheet{Name: sheetName(name), Rows: make([][]types.Cell, len(allRows))}
	for i, row := range allRows {
		cells := make([]types.Cell, len(row))
		for j, field := range row {
			if strings.TrimSpace(field) != "" {
				cells[j] = types.Text(field)
			}
		}
		sheet.Rows[i] = cells
	}

	return &types.Workbook{Sheets: []types.Sheet{sheet}}, nil
}

// configureReader configures the CSV reader based on settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	if settings.Delimiter != "" {
		reader.Comma = []rune(settings.Delimiter)[0]
	}

	// Allow a variable number of fields per record.
	reader.FieldsPerRecord = -1

	// Exports from spreadsheet tools sometimes leave bare quotes in text.
	reader.LazyQuotes = true
}

// getDecoder returns the decoder for a configured encoding, or nil for UTF-8.
func getDecoder(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	case "WINDOWS-1258", "CP1258":
		return charmap.Windows1258, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	case "ISO-8859-1", "LATIN1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unsupported CSV encoding: %s", name)
	}
}

func sheetName(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		return "Sheet1"
	}
	return base
}
