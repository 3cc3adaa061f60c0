package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/fiv-automation/internal/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		cell    types.Cell
		want    string
		present bool
		wantErr bool
	}{
		{"number cell", types.Number("1500000"), "1500000", true, false},
		{"fractional number", types.Number("0.1"), "0.1", true, false},
		{"thousands separators", types.Text("1,500,000"), "1500000", true, false},
		{"surrounding and inner space", types.Text(" 1 500 000 "), "1500000", true, false},
		{"non-breaking space", types.Text("2\u00a0000"), "2000", true, false},
		{"negative", types.Text("-250,000"), "-250000", true, false},
		{"blank", types.Text("   "), "0", false, false},
		{"empty", types.Cell{}, "0", false, false},
		{"nan", types.Text("nan"), "0", false, false},
		{"garbage", types.Text("12abc"), "0", false, true},
		{"currency suffix", types.Text("1,000 VND"), "0", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := Parse(tt.cell)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.present, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestExactSum(t *testing.T) {
	a, _, _ := Parse(types.Number("0.1"))
	b, _, _ := Parse(types.Number("0.2"))
	assert.Equal(t, "0.3", a.Add(b).String())
}
