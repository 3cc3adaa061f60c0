// =============================================================================
// FIV Automation - Account Resolver
// =============================================================================
//
// Each cleaned invoice record is matched to a customer account from the
// reference (KH) table in two tiers:
//
//   1. Tax code: when the record has a TaxCode and the reference table has a
//      tax-identifier column (same alias table as the invoice side), the
//      first reference row with an equal identifier wins.
//   2. Name: otherwise the first reference row whose Name equals the buyer
//      name wins.
//
// A tier whose first matching row has a blank account yields nothing, so
// resolution falls through to the next tier.
//
// INDEXING:
//   Both tiers are served by maps built once per run (key -> first row's
//   account). Keys are compared after NFC normalization and trimming.
//
// SUGGESTIONS:
//   Unresolved buyers can be given the closest reference name for the run
//   report. A suggestion never resolves a record.
//
// =============================================================================

package resolver

import (
	"github.com/schollz/closestmatch"

	"github.com/ginjaninja78/fiv-automation/internal/columns"
	"github.com/ginjaninja78/fiv-automation/internal/types"
)

// =============================================================================
// RESOLUTION
// =============================================================================

// Tier identifies which lookup produced an account.
type Tier int

const (
	TierNone Tier = iota
	TierTaxCode
	TierName
)

func (t Tier) String() string {
	switch t {
	case TierTaxCode:
		return "tax_code"
	case TierName:
		return "name"
	default:
		return "none"
	}
}

// Resolution is Resolved(account) or Unresolved.
type Resolution struct {
	account string
	tier    Tier
}

// Resolved returns a successful resolution.
func Resolved(account string, tier Tier) Resolution {
	return Resolution{account: account, tier: tier}
}

// Unresolved returns the empty resolution.
func Unresolved() Resolution {
	return Resolution{}
}

// Account returns the account and whether the record was resolved.
func (r Resolution) Account() (string, bool) {
	return r.account, r.tier != TierNone
}

// Tier returns the tier that resolved the record.
func (r Resolution) Tier() Tier { return r.tier }

// IsResolved reports whether an account was found.
func (r Resolution) IsResolved() bool { return r.tier != TierNone }

// =============================================================================
// RESOLVER
// =============================================================================

// Options names the reference columns.
type Options struct {
	NameColumn    string
	AccountColumn string

	// TaxRule discovers the reference tax-identifier column.
	TaxRule columns.Rule
}

// Resolver answers lookups against an immutable reference snapshot.
type Resolver struct {
	byTax  map[string]string
	byName map[string]string

	// TaxColumn is the discovered reference tax-identifier label, if any.
	TaxColumn string

	names   []string
	matcher *closestmatch.ClosestMatch
}

// New indexes the reference table.
//
// RETURNS:
//   - A resolver ready for concurrent read-only use.
//   - types.ErrMissingColumn if the name or account column is absent.
func New(ref *types.Table, opts Options) (*Resolver, error) {
	nameIdx := ref.Index(columns.Normalize(opts.NameColumn))
	if nameIdx < 0 {
		return nil, types.MissingColumnError(opts.NameColumn)
	}
	accountIdx := ref.Index(columns.Normalize(opts.AccountColumn))
	if accountIdx < 0 {
		return nil, types.MissingColumnError(opts.AccountColumn)
	}

	r := &Resolver{
		byTax:  make(map[string]string),
		byName: make(map[string]string),
	}

	taxIdx, hasTax := columns.FirstMatch(ref.Columns, opts.TaxRule, func(name string) bool {
		return name == ref.Columns[nameIdx] || name == ref.Columns[accountIdx]
	})
	if hasTax {
		r.TaxColumn = ref.Columns[taxIdx]
	}

	seenName := make(map[string]bool)
	for i := range ref.Rows {
		account := key(ref.Value(i, accountIdx))

		if hasTax {
			if k := key(ref.Value(i, taxIdx)); k != "" {
				if _, exists := r.byTax[k]; !exists {
					r.byTax[k] = account
				}
			}
		}

		if k := key(ref.Value(i, nameIdx)); k != "" {
			if _, exists := r.byName[k]; !exists {
				r.byName[k] = account
			}
			if !seenName[k] {
				seenName[k] = true
				r.names = append(r.names, k)
			}
		}
	}

	if len(r.names) > 0 {
		r.matcher = closestmatch.New(r.names, []int{2, 3})
	}
	return r, nil
}

// Resolve looks up one record.
func (r *Resolver) Resolve(rec types.SourceRecord) Resolution {
	if rec.TaxCode.Valid && r.TaxColumn != "" {
		if account := r.byTax[columns.Normalize(rec.TaxCode.Value)]; account != "" {
			return Resolved(account, TierTaxCode)
		}
	}
	if account := r.byName[columns.Normalize(rec.BuyerName)]; account != "" {
		return Resolved(account, TierName)
	}
	return Unresolved()
}

// ResolveAll resolves every record, preserving order.
func (r *Resolver) ResolveAll(records []types.SourceRecord) []Resolution {
	out := make([]Resolution, len(records))
	for i, rec := range records {
		out[i] = r.Resolve(rec)
	}
	return out
}

// Suggest returns the reference name closest to name, or "".
func (r *Resolver) Suggest(name string) string {
	if r.matcher == nil || name == "" {
		return ""
	}
	return r.matcher.Closest(columns.Normalize(name))
}

func key(c types.Cell) string {
	if c.IsBlank() {
		return ""
	}
	return columns.Normalize(c.String())
}
