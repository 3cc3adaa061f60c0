package settlement

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/dates"
	"github.com/ginjaninja78/fiv-automation/internal/types"
	"github.com/ginjaninja78/fiv-automation/internal/xlsxwriter"
)

func settlementSheet(name string) types.Sheet {
	return types.Sheet{
		Name: name,
		Rows: [][]types.Cell{
			{types.Text("Mã đặt phòng"), types.Text("Ngày trả phòng"), types.Text("Doanh thu thực"), types.Text("Số tiền bị trừ"), types.Cell{}},
			{types.Text("B1"), types.Text("01/08/2025"), types.Text("1,000,000"), types.Number("150000"), types.Text("x")},
			{types.Text("B2"), types.Text("07/08/2025"), types.Number("500000"), types.Number("75000")},
			{types.Text("B3"), types.Text("08/08/2025"), types.Number("500000"), types.Number("75000")},
			{types.Text("B4"), types.DateCell(time.Date(2025, time.August, 3, 0, 0, 0, 0, time.UTC)), types.Number("0"), types.Number("75000")},
			{types.Text("B5"), types.Text("03 thg 08 2025"), types.Number("200000"), types.Text("nan")},
			{types.Text("B6"), types.Text("không rõ"), types.Number("200000"), types.Number("1")},
			{types.Text("B7"), types.Text("02/08/2025"), types.Text(" 300 000 "), types.Number("-5")},
			{types.Text("B8"), types.Text("31/07/2025"), types.Number("1"), types.Number("1")},
			{types.Text("B9"), types.Text("04/08/2025"), types.Number("400000"), types.Number("0")},
			{},
		},
	}
}

func otherSheet() types.Sheet {
	return types.Sheet{
		Name: "Summary",
		Rows: [][]types.Cell{{types.Text("Ngày trả phòng"), types.Text("Tổng")}},
	}
}

func newFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := New(config.Default().Settlement)
	require.NoError(t, err)
	return f
}

func TestCandidates(t *testing.T) {
	f := newFilter(t)
	wb := &types.Workbook{Sheets: []types.Sheet{otherSheet(), settlementSheet("LCB")}}

	assert.Equal(t, []string{"LCB"}, f.Candidates(wb))

	sheet, err := f.SelectSheet(wb, "")
	require.NoError(t, err)
	assert.Equal(t, "LCB", sheet.Name)

	_, err = f.SelectSheet(wb, "Summary")
	assert.True(t, errors.Is(err, types.ErrNoValidSheet))
}

func TestSelectSheetErrors(t *testing.T) {
	f := newFilter(t)

	_, err := f.SelectSheet(&types.Workbook{Sheets: []types.Sheet{otherSheet()}}, "")
	assert.True(t, errors.Is(err, types.ErrNoValidSheet))

	wb := &types.Workbook{Sheets: []types.Sheet{settlementSheet("LCB-1"), settlementSheet("LCB-2")}}
	_, err = f.SelectSheet(wb, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrAmbiguousSheet))

	var ambiguous *types.AmbiguousSheetError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, []string{"LCB-1", "LCB-2"}, ambiguous.Candidates)

	sheet, err := f.SelectSheet(wb, "LCB-2")
	require.NoError(t, err)
	assert.Equal(t, "LCB-2", sheet.Name)
}

func TestApply(t *testing.T) {
	f := newFilter(t)
	wb := &types.Workbook{Sheets: []types.Sheet{settlementSheet("LCB")}}

	result, err := f.Apply(wb, "", dates.New(2025, time.August, 1), dates.New(2025, time.August, 7))
	require.NoError(t, err)

	assert.Equal(t, "LCB", result.Sheet)
	assert.Equal(t, 9, result.RowsRead, "the blank row is skipped")
	assert.Equal(t, 1, result.RowsNoDate)
	assert.Equal(t, []string{"Unnamed: 4"}, result.DroppedCols)

	require.Len(t, result.Output.Columns, 4)
	assert.Equal(t, "Agoda", result.Output.Name)
	assert.Equal(t, xlsxwriter.ColumnAuto, result.Output.Columns[0].Type)
	assert.Equal(t, xlsxwriter.ColumnDate, result.Output.Columns[1].Type)
	assert.Equal(t, xlsxwriter.ColumnNumber, result.Output.Columns[2].Type)
	assert.Equal(t, xlsxwriter.ColumnNumber, result.Output.Columns[3].Type)

	// B1 and B2 sit on the inclusive boundaries; B3..B9 fail a condition.
	require.Equal(t, 2, result.RowsKept)
	require.Len(t, result.Output.Rows, 2)

	first := result.Output.Rows[0]
	assert.Equal(t, "B1", first[0].String())
	assert.Equal(t, types.CellDate, first[1].Kind)
	assert.Equal(t, "2025-08-01", first[1].Text)
	assert.Equal(t, types.Number("1000000"), first[2])
	assert.Equal(t, types.Number("150000"), first[3])

	assert.Equal(t, "B2", result.Output.Rows[1][0].String())
}

func TestApplyInvalidRange(t *testing.T) {
	f := newFilter(t)
	wb := &types.Workbook{Sheets: []types.Sheet{settlementSheet("LCB")}}

	_, err := f.Apply(wb, "", dates.New(2025, time.August, 8), dates.New(2025, time.August, 1))
	assert.True(t, errors.Is(err, types.ErrInvalidDateRange))

	_, err = f.Apply(wb, "", dates.NotADate(), dates.New(2025, time.August, 1))
	assert.True(t, errors.Is(err, types.ErrInvalidDateRange))
}

func TestApplyMalformedAmount(t *testing.T) {
	f := newFilter(t)
	sheet := settlementSheet("LCB")
	sheet.Rows[3][2] = types.Text("năm trăm")
	wb := &types.Workbook{Sheets: []types.Sheet{sheet}}

	_, err := f.Apply(wb, "LCB", dates.New(2025, time.August, 1), dates.New(2025, time.August, 7))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMalformedAmount))

	var amountErr *types.AmountError
	require.True(t, errors.As(err, &amountErr))
	assert.Equal(t, 4, amountErr.Row)
	assert.Equal(t, "Doanh thu thực", amountErr.Column)
}

func TestApplySingleDayWindow(t *testing.T) {
	f := newFilter(t)
	wb := &types.Workbook{Sheets: []types.Sheet{settlementSheet("LCB")}}

	day := dates.New(2025, time.August, 7)
	result, err := f.Apply(wb, "", day, day)
	require.NoError(t, err)
	require.Len(t, result.Output.Rows, 1)
	assert.Equal(t, "B2", result.Output.Rows[0][0].String())
}
