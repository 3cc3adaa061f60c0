// =============================================================================
// FIV Automation - Date Normalizer
// =============================================================================
//
// Invoice and settlement exports carry dates in several shapes:
//   - localized text:    "13 thg 08 2025"
//   - day-first numeric: "13/08/2025", "13-08-2025", "13.08.25"
//   - ISO text:          "2025-08-13", "2025-08-13 10:30:00"
//   - English months:    "13 Aug 2025"
//   - real date cells from the workbook
//
// Everything funnels into Date, a calendar date without time of day. Parsing
// never fails loudly: unparsable input yields the not-a-date sentinel, and
// every comparison involving the sentinel is false.
//
// =============================================================================

package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/fiv-automation/internal/types"
)

// MonthMarker is the localized month token in "D thg M YYYY".
const MonthMarker = "thg"

// DisplayLayout is the day-first output layout (dd/mm/yyyy).
const DisplayLayout = "02/01/2006"

// Date is a calendar date. The zero value is the not-a-date sentinel.
type Date struct {
	t     time.Time
	valid bool
}

// NotADate returns the sentinel.
func NotADate() Date {
	return Date{}
}

// New returns the given calendar date, or the sentinel when the components
// do not form a real date (e.g. 31 February).
func New(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return NotADate()
	}
	return Date{t: t, valid: true}
}

// FromTime truncates t to its calendar date in t's own location.
func FromTime(t time.Time) Date {
	if t.IsZero() {
		return NotADate()
	}
	return New(t.Year(), t.Month(), t.Day())
}

// Valid reports whether d is a real date.
func (d Date) Valid() bool { return d.valid }

// Time returns midnight UTC of d. The sentinel returns the zero time.
func (d Date) Time() time.Time { return d.t }

// Equal reports whether both dates are valid and identical.
func (d Date) Equal(o Date) bool {
	return d.valid && o.valid && d.t.Equal(o.t)
}

// Before reports whether both dates are valid and d precedes o.
func (d Date) Before(o Date) bool {
	return d.valid && o.valid && d.t.Before(o.t)
}

// After reports whether both dates are valid and d follows o.
func (d Date) After(o Date) bool {
	return d.valid && o.valid && d.t.After(o.t)
}

// Within reports whether d lies in [start, end], inclusive on both ends.
func (d Date) Within(start, end Date) bool {
	if !d.valid || !start.valid || !end.valid {
		return false
	}
	return !d.t.Before(start.t) && !d.t.After(end.t)
}

// Format formats a valid date with layout; the sentinel formats as "".
func (d Date) Format(layout string) string {
	if !d.valid {
		return ""
	}
	return d.t.Format(layout)
}

func (d Date) String() string {
	if !d.valid {
		return "NaT"
	}
	return d.t.Format("2006-01-02")
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize converts a grid cell to a Date. Date cells keep their calendar
// day, text cells go through Parse, and anything else is not a date.
func Normalize(c types.Cell) Date {
	switch c.Kind {
	case types.CellDate:
		return FromTime(c.Time)
	case types.CellText:
		return Parse(c.Text)
	default:
		return NotADate()
	}
}

// Parse parses s with these rules, in order:
//  1. exactly four whitespace-separated tokens whose second token is "thg"
//     (any case) are read as day, marker, month, year;
//  2. otherwise a day-first generic parse.
//
// It returns the sentinel when both rules fail.
func Parse(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotADate()
	}

	fields := strings.Fields(s)
	if len(fields) == 4 && strings.EqualFold(fields[1], MonthMarker) {
		return fromLocalized(fields[0], fields[2], fields[3])
	}

	return parseDayFirst(s)
}

// ParseISO parses a strict YYYY-MM-DD value, as used by CLI flags and
// API form fields.
func ParseISO(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return NotADate(), fmt.Errorf("failed to parse date '%s' (want YYYY-MM-DD): %w", s, err)
	}
	return FromTime(t), nil
}

func fromLocalized(day, month, year string) Date {
	if len(year) != 4 || len(day) > 2 || len(month) > 2 {
		return NotADate()
	}
	d, err1 := strconv.Atoi(day)
	m, err2 := strconv.Atoi(month)
	y, err3 := strconv.Atoi(year)
	if err1 != nil || err2 != nil || err3 != nil {
		return NotADate()
	}
	return New(y, time.Month(m), d)
}

// =============================================================================
// DAY-FIRST GENERIC PARSE
// =============================================================================

// numericDate matches three numeric groups separated by '/', '-' or '.',
// optionally followed by a time of day, which is discarded.
var numericDate = regexp.MustCompile(
	`^(\d{1,4})[/\-.](\d{1,2})[/\-.](\d{1,4})(?:[ T]+\d{1,2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:\s*[AaPp][Mm])?(?:Z|[+\-]\d{2}:?\d{2})?)?$`,
)

var namedMonthLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, 2 Jan 2006",
}

func parseDayFirst(s string) Date {
	if m := numericDate.FindStringSubmatch(s); m != nil {
		return fromNumericParts(m[1], m[2], m[3])
	}

	for _, layout := range namedMonthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t)
		}
	}
	return NotADate()
}

func fromNumericParts(a, b, c string) Date {
	x, _ := strconv.Atoi(a)
	y, _ := strconv.Atoi(b)
	z, _ := strconv.Atoi(c)

	// Year-first (ISO) input is unambiguous.
	if len(a) == 4 {
		if len(c) > 2 {
			return NotADate()
		}
		return New(x, time.Month(y), z)
	}
	if len(a) > 2 {
		return NotADate()
	}

	var year int
	switch len(c) {
	case 4:
		year = z
	case 2:
		year = expandYear(z)
	default:
		return NotADate()
	}

	if d := New(year, time.Month(y), x); d.Valid() {
		return d
	}
	// A day-first reading with month > 12 swaps, like a generic parser does.
	return New(year, time.Month(x), y)
}

// expandYear maps a two-digit year: 00-68 to 20xx, 69-99 to 19xx.
func expandYear(yy int) int {
	if yy <= 68 {
		return 2000 + yy
	}
	return 1900 + yy
}
