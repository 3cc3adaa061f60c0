package converter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/dates"
	"github.com/ginjaninja78/fiv-automation/internal/types"
	"github.com/ginjaninja78/fiv-automation/internal/validation"
	"github.com/ginjaninja78/fiv-automation/internal/xlsxparser"
)

// =============================================================================
// FIXTURES
// =============================================================================

func writeRows(t *testing.T, f *excelize.File, sheet string, rows [][]interface{}) {
	t.Helper()
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, axis, &r))
	}
}

func invoiceDocument(t *testing.T) Document {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	writeRows(t, f, "Sheet1", [][]interface{}{
		{"BẢNG KÊ HÓA ĐƠN, CHỨNG TỪ HÀNG HÓA, DỊCH VỤ BÁN RA"},
		{nil},
		{"STT", "Ký hiệu mẫu hóa đơn", "Số hóa đơn", "Ngày, tháng, năm phát hành", "Thông tin người mua", nil, "Doanh số bán chưa có thuế(Revenue excluding VAT)", "Thuế GTGT(VAT amount)"},
		{nil, nil, nil, nil, "Tên người mua(Buyer Name)", "Mã số thuế người mua"},
		{1, "1C25TAA", 101, "13/08/2025", "Công ty A", "0101234567", 1000000, 100000},
		{2, "1C25TAA", 102, "14 thg 08 2025", "Nguyen Van A", nil, 2500000, 250000},
		{3, nil, nil, nil, nil, nil, 5},
		{"[1]", "Ghi chú cuối trang"},
		{4, "1C25TAA", 104, "15/08/2025", "Khách mới", nil, 300000.5},
	})
	require.NoError(t, f.MergeCell("Sheet1", "E3", "F3"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return Document{Name: "EAS.xlsx", Data: buf.Bytes()}
}

func referenceDocument() Document {
	csv := "Name,MST,Customer account\n" +
		"Công ty A (chi nhánh),0101234567,C001\n" +
		"Nguyen Van A,,C002\n" +
		"Nguyen Van A,,C099\n"
	return Document{Name: "KH.csv", Data: []byte(csv)}
}

func settlementDocument(t *testing.T, sheets ...string) Document {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		writeRows(t, f, name, [][]interface{}{
			{"Mã đặt phòng", "Ngày trả phòng", "Doanh thu thực", "Số tiền bị trừ", nil},
			{"B1", "01/08/2025", 1000000, 150000, "ghi chú"},
			{"B2", time.Date(2025, time.August, 7, 0, 0, 0, 0, time.UTC), "500,000", 75000},
			{"B3", "08/08/2025", 500000, 75000},
			{"B4", "03/08/2025", 0, 75000},
		})
	}

	_, err := f.NewSheet("Tổng hợp")
	require.NoError(t, err)
	writeRows(t, f, "Tổng hợp", [][]interface{}{{"Ngày trả phòng", "Tổng"}})

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return Document{Name: "LCB.xlsx", Data: buf.Bytes()}
}

func newService() *Service {
	return New(config.Default(), nil)
}

// =============================================================================
// FIV
// =============================================================================

func TestGenerateFIV(t *testing.T) {
	result, err := newService().GenerateFIV(invoiceDocument(t), referenceDocument())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "Completed_FIV.xlsx", result.OutputFile)
	assert.Equal(t, "FIV", result.SheetName)

	assert.Equal(t, 4, result.Stats.RowsRead)
	assert.Equal(t, 1, result.Stats.RowsDropped)
	assert.Equal(t, 3, result.Stats.RecordsEmitted)
	assert.Equal(t, 1, result.Stats.ResolvedByTaxCode)
	assert.Equal(t, 1, result.Stats.ResolvedByName)
	assert.Equal(t, 1, result.Stats.Unresolved)

	require.Len(t, result.Report.Issues, 2)
	assert.Equal(t, validation.RuleMissingField, result.Report.Issues[0].Rule)
	assert.Equal(t, 7, result.Report.Issues[0].Row)
	assert.Equal(t, validation.RuleUnresolved, result.Report.Issues[1].Rule)
	assert.Equal(t, 9, result.Report.Issues[1].Row)
	assert.True(t, result.Report.IsValid())

	wb, err := xlsxparser.Parse(result.Output)
	require.NoError(t, err)
	sheet, ok := wb.Sheet("FIV")
	require.True(t, ok)
	require.Len(t, sheet.Rows, 4)

	assert.Equal(t, "IdRef", sheet.Cell(0, 0).String())
	assert.Equal(t, "BHS_VATInvocieDate_VATInvoice", sheet.Cell(0, 27).String())

	first := sheet.Rows[1]
	assert.Equal(t, types.Text("1"), first[0])
	assert.Equal(t, types.CellDate, first[1].Kind)
	assert.Equal(t, "2025-08-13", first[1].Text)
	assert.Equal(t, "C001", first[4].String())
	assert.Equal(t, "C001", first[5].String())
	assert.Equal(t, "Công ty A", first[6].String())
	assert.Equal(t, "1100000", first[19].Text)
	assert.Equal(t, "101", first[30].String())

	second := sheet.Rows[2]
	assert.Equal(t, "2", second[0].String())
	assert.Equal(t, "2025-08-14", second[1].Text)
	assert.Equal(t, "C002", second[4].String())

	third := sheet.Rows[3]
	assert.Equal(t, "3", third[0].String())
	assert.True(t, third[4].IsBlank())
	assert.Equal(t, "300000.5", third[17].Text)
	assert.Equal(t, "300000.5", third[19].Text)
}

func TestGenerateFIVSparseListing(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	// No date, VAT, serial or number columns, and blank spacer rows.
	writeRows(t, f, "Sheet1", [][]interface{}{
		{"STT", "Tên người mua(Buyer Name)", "Doanh số bán chưa có thuế(Revenue excluding VAT)"},
		{},
		{1, "Công ty B", 1000000},
		{},
		{nil, "  "},
		{2, "Nguyen Van A", 2500000},
	})
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, err := newService().GenerateFIV(Document{Name: "EAS.xlsx", Data: buf.Bytes()}, referenceDocument())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.RowsRead)
	assert.Equal(t, 0, result.Stats.RowsDropped)
	assert.Equal(t, 2, result.Stats.RecordsEmitted)

	assert.Empty(t, result.Report.ByRule(validation.RuleMissingField), "blank rows are not reported")
	assert.Empty(t, result.Report.ByRule(validation.RuleUnparsableDate))

	missing := result.Report.ByRule(validation.RuleMissingColumn)
	require.Len(t, missing, 4)
	assert.Equal(t, "ISSUE_DATE", missing[0].Field)
	assert.Zero(t, missing[0].Row)
}

func TestGenerateFIVHeaderNotFound(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	writeRows(t, f, "Sheet1", [][]interface{}{{"No marker here"}, {"1", "2"}})
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = newService().GenerateFIV(Document{Name: "EAS.xlsx", Data: buf.Bytes()}, referenceDocument())
	assert.True(t, errors.Is(err, types.ErrHeaderNotFound))
}

func TestGenerateFIVMissingReferenceColumn(t *testing.T) {
	ref := Document{Name: "KH.csv", Data: []byte("Name,MST\nA,1\n")}
	_, err := newService().GenerateFIV(invoiceDocument(t), ref)
	assert.True(t, errors.Is(err, types.ErrMissingColumn))
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := newService().GenerateFIV(Document{Name: "EAS.pdf"}, referenceDocument())
	assert.True(t, errors.Is(err, types.ErrUnsupportedFormat))

	_, err = newService().ListCandidateSheets(Document{Name: "LCB"})
	assert.True(t, errors.Is(err, types.ErrUnsupportedFormat))
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestListCandidateSheets(t *testing.T) {
	names, err := newService().ListCandidateSheets(settlementDocument(t, "LCB"))
	require.NoError(t, err)
	assert.Equal(t, []string{"LCB"}, names)
}

func TestFilterSettlement(t *testing.T) {
	start, end := dates.New(2025, time.August, 1), dates.New(2025, time.August, 7)

	result, err := newService().FilterSettlement(settlementDocument(t, "LCB"), "", start, end)
	require.NoError(t, err)

	assert.Equal(t, "Agoda_processed_20250801_20250807.xlsx", result.OutputFile)
	assert.Equal(t, "LCB", result.SourceSheet)
	assert.Equal(t, "Agoda", result.SheetName)
	assert.Equal(t, 4, result.Stats.RowsRead)
	assert.Equal(t, 2, result.Stats.RecordsEmitted)
	assert.Empty(t, result.Report.Issues)

	wb, err := xlsxparser.Parse(result.Output)
	require.NoError(t, err)
	sheet, ok := wb.Sheet("Agoda")
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Len(t, sheet.Rows[0], 4, "placeholder column is dropped")
	assert.Equal(t, "B1", sheet.Cell(1, 0).String())
	assert.Equal(t, types.CellDate, sheet.Cell(1, 1).Kind)
	assert.Equal(t, "2025-08-01", sheet.Cell(1, 1).Text)
	assert.Equal(t, types.Number("1000000"), sheet.Cell(1, 2))
	assert.Equal(t, "B2", sheet.Cell(2, 0).String())
	assert.Equal(t, types.Number("500000"), sheet.Cell(2, 2))
}

func TestFilterSettlementNoRows(t *testing.T) {
	day := dates.New(2024, time.January, 1)
	result, err := newService().FilterSettlement(settlementDocument(t, "LCB"), "LCB", day, day)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.RecordsEmitted)
	assert.Len(t, result.Report.ByRule(validation.RuleNoMatchingRows), 1)
}

func TestFilterSettlementErrors(t *testing.T) {
	s := newService()
	start, end := dates.New(2025, time.August, 1), dates.New(2025, time.August, 7)

	_, err := s.FilterSettlement(settlementDocument(t, "LCB"), "", end, start)
	assert.True(t, errors.Is(err, types.ErrInvalidDateRange))

	_, err = s.FilterSettlement(settlementDocument(t, "LCB-1", "LCB-2"), "", start, end)
	var ambiguous *types.AmbiguousSheetError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, []string{"LCB-1", "LCB-2"}, ambiguous.Candidates)

	_, err = s.FilterSettlement(settlementDocument(t, "LCB"), "Tổng hợp", start, end)
	assert.True(t, errors.Is(err, types.ErrNoValidSheet))
}
