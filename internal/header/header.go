// =============================================================================
// FIV Automation - Header Discovery
// =============================================================================
//
// Invoice listings start with an unpredictable number of title rows, carry a
// two-row hierarchical header marked by the "STT" column, and may contain
// report-footnote rows ("[1]", "[12]") anywhere. This module turns such a
// RawGrid into a FlattenedTable.
//
// STEPS:
//   1. Locate:  drop footnote rows, then find the first row containing the
//               marker token in any cell.
//   2. Flatten: read the located row and the row below as a two-level header;
//               every following row is data.
//
// Reference and settlement documents have a single flat header row; Single
// handles them.
//
// =============================================================================

package header

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/fiv-automation/internal/columns"
	"github.com/ginjaninja78/fiv-automation/internal/types"
)

// =============================================================================
// LOCATOR
// =============================================================================

// Locator finds the header row of an invoice grid.
type Locator struct {
	// Marker is the literal token identifying the header row.
	Marker string

	// Footnote matches the first cell of rows to discard before scanning.
	Footnote *regexp.Regexp
}

// NewLocator compiles a locator from configuration values.
func NewLocator(marker, footnotePattern string) (*Locator, error) {
	re, err := regexp.Compile(footnotePattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile footnote pattern: %w", err)
	}
	return &Locator{Marker: marker, Footnote: re}, nil
}

// Locate removes footnote rows and returns the cleaned grid together with
// the index, within it, of the first row whose cells contain the marker.
//
// RETURNS:
//   - The grid without footnote rows.
//   - The header row index in that grid.
//   - types.ErrHeaderNotFound if no row carries the marker.
func (l *Locator) Locate(sheet types.Sheet) (types.Sheet, int, error) {
	cleaned := sheet.DropRows(l.isFootnote)

	for i, row := range cleaned.Rows {
		for _, cell := range row {
			if strings.Contains(cell.String(), l.Marker) {
				return cleaned, i, nil
			}
		}
	}
	return cleaned, -1, fmt.Errorf("%w: no row contains '%s' in sheet '%s'", types.ErrHeaderNotFound, l.Marker, sheet.Name)
}

func (l *Locator) isFootnote(row []types.Cell) bool {
	if len(row) == 0 || l.Footnote == nil {
		return false
	}
	return l.Footnote.MatchString(strings.TrimSpace(row[0].String()))
}

// =============================================================================
// FLATTENER
// =============================================================================

// Flatten reads rows headerRow and headerRow+1 as a two-level header and
// returns the data below it as a table.
//
// NAMING RULE (per column):
//   - the lower header cell's trimmed text, when present and not a
//     synthetic placeholder;
//   - otherwise the upper header cell's trimmed text.
//
// Merged header ranges contribute their anchor value to every covered
// header cell. A blank header cell becomes an "Unnamed: <col>_level_<n>"
// placeholder. Two columns resolving to the same name fail with
// types.ErrDuplicateColumnName. Fully blank data rows are skipped.
func Flatten(sheet types.Sheet, headerRow int) (*types.Table, error) {
	if headerRow < 0 || headerRow >= len(sheet.Rows) {
		return nil, fmt.Errorf("%w: header row %d outside grid of %d rows", types.ErrHeaderNotFound, headerRow, len(sheet.Rows))
	}

	width := sheet.Width()
	upper := headerLevel(sheet, headerRow, width, 0)
	lower := headerLevel(sheet, headerRow+1, width, 1)

	table := &types.Table{Columns: make([]string, width)}
	seen := make(map[string]bool, width)
	for col := 0; col < width; col++ {
		name := upper[col]
		if !columns.IsPlaceholder(lower[col]) {
			name = lower[col]
		}
		if seen[name] {
			return nil, &types.DuplicateColumnError{Name: name}
		}
		seen[name] = true
		table.Columns[col] = name
	}

	for i := headerRow + 2; i < len(sheet.Rows); i++ {
		if types.IsRowEmpty(sheet.Rows[i]) {
			continue
		}
		table.Rows = append(table.Rows, padRow(sheet.Rows[i], width))
		table.SourceRows = append(table.SourceRows, sheet.SourceRow(i))
	}
	return table, nil
}

// headerLevel returns the trimmed header text of one grid row, filling
// merged ranges and substituting placeholders for blanks.
func headerLevel(sheet types.Sheet, row, width, level int) []string {
	names := make([]string, width)
	for col := 0; col < width; col++ {
		cell := sheet.Cell(row, col)
		if cell.IsBlank() {
			cell = mergedAnchor(sheet, row, col)
		}

		text := columns.Normalize(cell.String())
		if text == "" {
			text = columns.LevelPlaceholder(col, level)
		}
		names[col] = text
	}
	return names
}

func mergedAnchor(sheet types.Sheet, row, col int) types.Cell {
	for _, m := range sheet.Merges {
		if m.Contains(row, col) {
			return sheet.Cell(m.StartRow, m.StartCol)
		}
	}
	return types.Cell{}
}

// =============================================================================
// FLAT HEADER
// =============================================================================

// Single reads the first row of sheet as a flat header and every following
// row as data. Blank labels become "Unnamed: <col>" and repeated labels get
// ".1", ".2", ... suffixes so names stay unique. Fully blank data rows are
// skipped.
func Single(sheet types.Sheet) (*types.Table, error) {
	if len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("%w: sheet '%s' is empty", types.ErrHeaderNotFound, sheet.Name)
	}

	width := sheet.Width()
	table := &types.Table{Columns: make([]string, width)}
	counts := make(map[string]int, width)
	for col := 0; col < width; col++ {
		name := columns.Normalize(sheet.Cell(0, col).String())
		if name == "" {
			name = columns.Placeholder(col)
		}
		if n := counts[name]; n > 0 {
			counts[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			counts[name] = 1
		}
		table.Columns[col] = name
	}

	for i := 1; i < len(sheet.Rows); i++ {
		if types.IsRowEmpty(sheet.Rows[i]) {
			continue
		}
		table.Rows = append(table.Rows, padRow(sheet.Rows[i], width))
		table.SourceRows = append(table.SourceRows, sheet.SourceRow(i))
	}
	return table, nil
}

// Labels returns the normalized first-row labels of sheet, without
// placeholders. It is used to test a sheet for mandatory columns without
// building the full table.
func Labels(sheet types.Sheet) []string {
	if len(sheet.Rows) == 0 {
		return nil
	}
	var labels []string
	for _, cell := range sheet.Rows[0] {
		if name := columns.Normalize(cell.String()); name != "" {
			labels = append(labels, name)
		}
	}
	return labels
}

func padRow(row []types.Cell, width int) []types.Cell {
	out := make([]types.Cell, width)
	copy(out, row)
	return out
}
