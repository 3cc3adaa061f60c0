// =============================================================================
// FIV Automation - Column Rule Table
// =============================================================================
//
// Column discovery is declarative: a RuleSet is an ordered list of
// (match kind, patterns) -> canonical name entries. The invoice rename map,
// the tax-identifier alias search and the "unnamed" placeholder check are all
// expressed as rules so each can be tested on its own.
//
// MATCHING:
//   Labels are compared after Normalize (Unicode NFC + trim). Exports from
//   different tools mix composed and decomposed Vietnamese diacritics, so a
//   byte comparison would miss "Mã số thuế" written in NFD.
//
// =============================================================================

package columns

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MatchKind selects how a rule compares a label with its patterns.
type MatchKind int

const (
	// MatchExact requires the normalized label to equal a pattern.
	MatchExact MatchKind = iota

	// MatchContains requires the normalized label to contain a pattern.
	MatchContains

	// MatchPrefix requires the normalized label to start with a pattern.
	MatchPrefix
)

// Rule maps labels matching any of Patterns to Canonical.
type Rule struct {
	Kind      MatchKind
	Patterns  []string
	Canonical string
}

// Matches reports whether label satisfies the rule.
func (r Rule) Matches(label string) bool {
	label = Normalize(label)
	for _, p := range r.Patterns {
		p = Normalize(p)
		if p == "" {
			continue
		}
		switch r.Kind {
		case MatchExact:
			if label == p {
				return true
			}
		case MatchContains:
			if strings.Contains(label, p) {
				return true
			}
		case MatchPrefix:
			if strings.HasPrefix(label, p) {
				return true
			}
		}
	}
	return false
}

func (r Rule) String() string {
	return fmt.Sprintf("%s <- %q", r.Canonical, r.Patterns)
}

// RuleSet is an ordered rule table; earlier rules win.
type RuleSet []Rule

// Lookup returns the canonical name of the first rule matching label.
func (rs RuleSet) Lookup(label string) (string, bool) {
	for _, r := range rs {
		if r.Matches(label) {
			return r.Canonical, true
		}
	}
	return "", false
}

// RenameMap builds exact-match rules from a label -> canonical map. Rules
// are ordered by canonical name so the table is deterministic.
func RenameMap(m map[string]string) RuleSet {
	byCanonical := make(map[string][]string)
	var order []string
	for label, canonical := range m {
		if _, seen := byCanonical[canonical]; !seen {
			order = append(order, canonical)
		}
		byCanonical[canonical] = append(byCanonical[canonical], label)
	}
	sort.Strings(order)

	rules := make(RuleSet, 0, len(order))
	for _, canonical := range order {
		labels := byCanonical[canonical]
		sort.Strings(labels)
		rules = append(rules, Rule{Kind: MatchExact, Patterns: labels, Canonical: canonical})
	}
	return rules
}

// FirstMatch returns the index of the first column, in column order, that
// matches the rule and is not excluded.
func FirstMatch(columns []string, rule Rule, exclude func(name string) bool) (int, bool) {
	for i, c := range columns {
		if exclude != nil && exclude(c) {
			continue
		}
		if rule.Matches(c) {
			return i, true
		}
	}
	return -1, false
}

// =============================================================================
// PLACEHOLDERS
// =============================================================================

// PlaceholderPrefix starts every synthetic column name.
const PlaceholderPrefix = "Unnamed"

var placeholderRule = Rule{Kind: MatchPrefix, Patterns: []string{PlaceholderPrefix + ":"}, Canonical: PlaceholderPrefix}

// Placeholder returns the synthetic name for a blank header cell.
func Placeholder(col int) string {
	return fmt.Sprintf("%s: %d", PlaceholderPrefix, col)
}

// LevelPlaceholder returns the synthetic name for a blank cell of a
// multi-row header.
func LevelPlaceholder(col, level int) string {
	return fmt.Sprintf("%s: %d_level_%d", PlaceholderPrefix, col, level)
}

// IsPlaceholder reports whether name is a synthetic column name.
func IsPlaceholder(name string) bool {
	return placeholderRule.Matches(name)
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize returns label in Unicode NFC with surrounding space removed.
func Normalize(label string) string {
	return strings.TrimSpace(norm.NFC.String(label))
}
