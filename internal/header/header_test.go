package header

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/fiv-automation/internal/types"
)

func row(values ...string) []types.Cell {
	cells := make([]types.Cell, len(values))
	for i, v := range values {
		cells[i] = types.Text(v)
	}
	return cells
}

func invoiceGrid() types.Sheet {
	return types.Sheet{
		Name: "EAS",
		Rows: [][]types.Cell{
			row("BẢNG KÊ HÓA ĐƠN"),
			row("[1]", "Ghi chú"),
			row("STT", "Thông tin người mua", "", "Doanh số bán chưa có thuế(Revenue excluding VAT)"),
			row("", "Tên người mua(Buyer Name)", "Mã số thuế", ""),
			{types.Number("1"), types.Text("Công ty A"), types.Text("0101234567"), types.Number("1000000")},
			row("[2]", "Footnote"),
			{types.Number("2"), types.Text("B"), types.Cell{}, types.Number("500")},
		},
		Merges: []types.MergedRange{
			{StartRow: 2, StartCol: 0, EndRow: 3, EndCol: 0},
			{StartRow: 2, StartCol: 1, EndRow: 2, EndCol: 2},
		},
	}
}

func newLocator(t *testing.T) *Locator {
	t.Helper()
	l, err := NewLocator("STT", `^\[\d+\]$`)
	require.NoError(t, err)
	return l
}

func TestLocateSkipsFootnotes(t *testing.T) {
	cleaned, idx, err := newLocator(t).Locate(invoiceGrid())
	require.NoError(t, err)

	assert.Equal(t, 1, idx, "the [1] row above the header is discarded")
	assert.Len(t, cleaned.Rows, 5)
	assert.Equal(t, "STT", cleaned.Rows[idx][0].Text)
}

func TestLocateMarkerAnywhereInRow(t *testing.T) {
	sheet := types.Sheet{Rows: [][]types.Cell{
		row("title"),
		row("", "", "Cột STT"),
	}}
	_, idx, err := newLocator(t).Locate(sheet)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestLocateHeaderNotFound(t *testing.T) {
	sheet := types.Sheet{Name: "Empty", Rows: [][]types.Cell{row("a", "b"), row("[3]")}}
	_, _, err := newLocator(t).Locate(sheet)
	assert.True(t, errors.Is(err, types.ErrHeaderNotFound))
}

func TestFlatten(t *testing.T) {
	cleaned, idx, err := newLocator(t).Locate(invoiceGrid())
	require.NoError(t, err)

	table, err := Flatten(cleaned, idx)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"STT",
		"Tên người mua(Buyer Name)",
		"Mã số thuế",
		"Doanh số bán chưa có thuế(Revenue excluding VAT)",
	}, table.Columns)

	require.Len(t, table.Rows, 2, "the [2] footnote between data rows is gone")
	assert.Equal(t, "Công ty A", table.Value(0, 1).Text)
	assert.Equal(t, "B", table.Value(1, 1).Text)
	assert.Equal(t, 5, table.SourceRow(0))
	assert.Equal(t, 7, table.SourceRow(1))
}

func TestFlattenSkipsBlankRows(t *testing.T) {
	sheet := types.Sheet{Rows: [][]types.Cell{
		row("STT", "Buyer Name"),
		row("", ""),
		row("1", "A"),
		row("", "  "),
		nil,
		row("2", "B"),
	}}

	table, err := Flatten(sheet, 0)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []int{3, 6}, table.SourceRows)
}

func TestFlattenPlaceholdersAndTrim(t *testing.T) {
	sheet := types.Sheet{Rows: [][]types.Cell{
		row("STT", "  Upper  ", "", "Group"),
		row("", "", "", "  Lower "),
		row("1", "x", "y", "z"),
	}}

	table, err := Flatten(sheet, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"STT", "Upper", "Unnamed: 2_level_0", "Lower"}, table.Columns)
}

func TestFlattenDuplicateColumnName(t *testing.T) {
	sheet := types.Sheet{Rows: [][]types.Cell{
		row("STT", "Người mua", "Người bán"),
		row("", "Tên", "Tên"),
	}}

	_, err := Flatten(sheet, 0)
	var dup *types.DuplicateColumnError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "Tên", dup.Name)
	assert.True(t, errors.Is(err, types.ErrDuplicateColumnName))
}

func TestFlattenLastRowHeader(t *testing.T) {
	sheet := types.Sheet{Rows: [][]types.Cell{row("STT", "Name")}}
	table, err := Flatten(sheet, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"STT", "Name"}, table.Columns)
	assert.Empty(t, table.Rows)
}

func TestSingle(t *testing.T) {
	sheet := types.Sheet{Rows: [][]types.Cell{
		row("Name", "", "Customer account", "Name"),
		row("A", "x", "C001"),
		row("", "", ""),
	}}

	table, err := Single(sheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Unnamed: 1", "Customer account", "Name.1"}, table.Columns)
	require.Len(t, table.Rows, 1, "blank rows are skipped")
	assert.Len(t, table.Rows[0], 4, "rows are padded to the header width")
	assert.Equal(t, 2, table.SourceRow(0))

	_, err = Single(types.Sheet{})
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	sheet := types.Sheet{Rows: [][]types.Cell{row(" Ngày trả phòng ", "", "Doanh thu thực")}}
	assert.Equal(t, []string{"Ngày trả phòng", "Doanh thu thực"}, Labels(sheet))
	assert.Nil(t, Labels(types.Sheet{}))
}
