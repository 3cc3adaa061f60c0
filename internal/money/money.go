// Package money parses amount cells into exact decimals.
package money

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/fiv-automation/internal/types"
)

// Parse converts an amount cell to a decimal.
//
// Number cells parse from their raw stored text. Text cells have thousands
// separators (",") and all whitespace removed first. A blank cell, or the
// literal "nan", is absent: ok is false and err is nil. Anything else that
// does not parse returns an error.
func Parse(c types.Cell) (d decimal.Decimal, ok bool, err error) {
	if c.IsBlank() {
		return decimal.Zero, false, nil
	}

	raw := c.Text
	if c.Kind != types.CellNumber {
		raw = Clean(raw)
	}
	if raw == "" || strings.EqualFold(raw, "nan") {
		return decimal.Zero, false, nil
	}

	d, err = decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// Clean strips thousands separators and whitespace from s.
func Clean(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
