package csvparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/types"
)

func TestParseUTF8(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Name,MST,Customer account\nCông ty A,0101234567,C001\nB,,\n")...)

	wb, err := Parse("KH.csv", data, config.CSVSettings{Delimiter: ",", Encoding: "UTF-8"})
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)

	sheet := wb.Sheets[0]
	assert.Equal(t, "KH", sheet.Name)
	assert.Equal(t, types.Text("Name"), sheet.Cell(0, 0), "BOM stripped")
	assert.Equal(t, types.Text("Công ty A"), sheet.Cell(1, 0))
	assert.Equal(t, types.Text("0101234567"), sheet.Cell(1, 1))
	assert.Equal(t, types.CellEmpty, sheet.Cell(2, 1).Kind)
}

func TestParseWindows1258(t *testing.T) {
	encoded, err := charmap.Windows1258.NewEncoder().String("Tên;Đơn giá\nAn;1\n")
	require.NoError(t, err)

	wb, err := Parse("report.csv", []byte(encoded), config.CSVSettings{Delimiter: ";", Encoding: "Windows-1258"})
	require.NoError(t, err)

	sheet := wb.Sheets[0]
	assert.Equal(t, "Tên", sheet.Cell(0, 0).Text)
	assert.Equal(t, "Đơn giá", sheet.Cell(0, 1).Text)
	assert.Equal(t, "1", sheet.Cell(1, 1).Text)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("x.csv", []byte("a,b\n"), config.CSVSettings{Encoding: "EBCDIC"})
	assert.Error(t, err)

	_, err = Parse("x.csv", nil, config.CSVSettings{})
	assert.Error(t, err)
}
