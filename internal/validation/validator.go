// =============================================================================
// FIV Automation - Validation Engine
// =============================================================================
//
// This module collects the issues found while running a pipeline and checks
// the FIV projection before it is written.
//
// ISSUE SOURCES:
//   - missing_mandatory_field  a row dropped by the cleaner
//   - unresolved_account       a record with no customer account
//   - unparsable_date          an issue date that normalized to not-a-date
//   - amount_mismatch          TotalAmount != LineAmount + TaxAmount
//   - idref_sequence           IdRef is not the contiguous 1..N sequence
//
// ERROR HANDLING:
//   - Issues are collected, not returned as errors. None of them stop a run.
//   - Each issue carries the source document row so it can be traced back.
//   - Severity "warning" marks data the operator should review; "error"
//     marks an output row that breaks an invariant of the FIV layout.
//
// =============================================================================

package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/fiv-automation/internal/projector"
)

// =============================================================================
// ISSUE TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleMissingField    = "missing_mandatory_field"
	RuleMissingColumn   = "missing_optional_column"
	RuleUnresolved      = "unresolved_account"
	RuleUnparsableDate  = "unparsable_date"
	RuleAmountMismatch  = "amount_mismatch"
	RuleIDRefSequence   = "idref_sequence"
	RuleNoMatchingRows  = "no_matching_rows"
	RuleEmptyProjection = "empty_output"
)

// Issue is a single finding.
type Issue struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity"`

	// Rule is the rule that produced the issue.
	Rule string `json:"rule"`

	// Row is the 1-based source document row, or 0 when not row-specific.
	Row int `json:"row,omitempty"`

	// Field is the affected field name.
	Field string `json:"field,omitempty"`

	// Value is the offending value.
	Value string `json:"value,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (i *Issue) Error() string {
	location := "document"
	if i.Row > 0 {
		location = fmt.Sprintf("row %d", i.Row)
	}
	if i.Field != "" {
		location += fmt.Sprintf(", field '%s'", i.Field)
	}
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(i.Severity), location, i.Message)
	if i.Value != "" {
		msg += fmt.Sprintf(" (value: '%s')", i.Value)
	}
	return msg
}

// =============================================================================
// REPORT
// =============================================================================

// Report accumulates issues for one run.
type Report struct {
	Issues       []*Issue `json:"issues"`
	ErrorCount   int      `json:"error_count"`
	WarningCount int      `json:"warning_count"`
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{Issues: make([]*Issue, 0)}
}

// Add appends an issue and updates the counters.
func (r *Report) Add(issue *Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// IsValid reports whether the report holds no errors.
func (r *Report) IsValid() bool {
	return r.ErrorCount == 0
}

// ByRule returns the issues produced by rule.
func (r *Report) ByRule(rule string) []*Issue {
	var out []*Issue
	for _, issue := range r.Issues {
		if issue.Rule == rule {
			out = append(out, issue)
		}
	}
	return out
}

// =============================================================================
// ISSUE CONSTRUCTORS
// =============================================================================

// MissingField reports a row dropped because field was blank.
func MissingField(row int, field string) *Issue {
	return &Issue{
		Severity: SeverityWarning,
		Rule:     RuleMissingField,
		Row:      row,
		Field:    field,
		Message:  fmt.Sprintf("Row dropped: mandatory field '%s' is empty", field),
	}
}

// MissingColumn reports an optional column absent from the whole document.
func MissingColumn(field string) *Issue {
	return &Issue{
		Severity: SeverityWarning,
		Rule:     RuleMissingColumn,
		Field:    field,
		Message:  "Column not found; written empty for every record",
	}
}

// Unresolved reports a buyer without a customer account. suggestion is the
// closest reference name, if any.
func Unresolved(row int, buyer, suggestion string) *Issue {
	msg := "No customer account found by tax code or name"
	if suggestion != "" && suggestion != buyer {
		msg += fmt.Sprintf("; closest reference name is '%s'", suggestion)
	}
	return &Issue{
		Severity: SeverityWarning,
		Rule:     RuleUnresolved,
		Row:      row,
		Field:    "Buyer Name",
		Value:    buyer,
		Message:  msg,
	}
}

// UnparsableDate reports an issue date that could not be normalized.
func UnparsableDate(row int, field, value string) *Issue {
	return &Issue{
		Severity: SeverityWarning,
		Rule:     RuleUnparsableDate,
		Row:      row,
		Field:    field,
		Value:    value,
		Message:  "Date could not be parsed; written empty",
	}
}

// NoMatchingRows reports a settlement filter that kept nothing.
func NoMatchingRows(start, end string) *Issue {
	return &Issue{
		Severity: SeverityWarning,
		Rule:     RuleNoMatchingRows,
		Message:  fmt.Sprintf("No rows between %s and %s with positive amounts", start, end),
	}
}

// =============================================================================
// FIV SELF-CHECK
// =============================================================================

// CheckFIV verifies the projected records before they are written.
//
// RETURNS:
//   - One issue per violated invariant, in record order.
func CheckFIV(records []projector.OutputRecord) []*Issue {
	var issues []*Issue

	if len(records) == 0 {
		issues = append(issues, &Issue{
			Severity: SeverityWarning,
			Rule:     RuleEmptyProjection,
			Message:  "No invoice rows survived cleaning; the FIV file has only a header",
		})
		return issues
	}

	for i, rec := range records {
		if want := strconv.Itoa(i + 1); rec.IdRef != want {
			issues = append(issues, &Issue{
				Severity: SeverityError,
				Rule:     RuleIDRefSequence,
				Row:      i + 1,
				Field:    "IdRef",
				Value:    rec.IdRef,
				Message:  fmt.Sprintf("IdRef should be %s", want),
			})
		}

		if !rec.LineAmount.Add(rec.TaxAmount).Equal(rec.TotalAmount) {
			issues = append(issues, &Issue{
				Severity: SeverityError,
				Rule:     RuleAmountMismatch,
				Row:      i + 1,
				Field:    "TotalAmount",
				Value:    rec.TotalAmount.String(),
				Message:  fmt.Sprintf("TotalAmount should be %s", rec.LineAmount.Add(rec.TaxAmount)),
			})
		}
	}

	return issues
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatIssues formats issues for display or logging.
func FormatIssues(issues []*Issue) string {
	if len(issues) == 0 {
		return "No validation issues."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d issue(s):\n\n", len(issues)))
	for i, issue := range issues {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Error()))
	}
	return builder.String()
}
