package extract

import (
	"strings"

	"intrinseco/pkg/core/chunker"
)

// UnitsField is the template key carrying the unit scale.
const UnitsField = "units"

// fields lists the template keys per category, in prompt order.
var fields = map[chunker.Category][]string{
	chunker.Balance: {
		UnitsField,
		"cash_and_equivalents",
		"current_assets",
		"non_current_assets",
		"total_assets",
		"current_liabilities",
		"non_current_liabilities",
		"total_liabilities",
		"equity",
	},
	chunker.Income: {
		UnitsField,
		"revenue",
		"net_income",
		"eps",
	},
	chunker.CashFlow: {
		UnitsField,
		"cash_flow_from_operations",
		"cash_flow_from_investing",
		"cash_flow_from_financing",
	},
}

var statementNames = map[chunker.Category]string{
	chunker.Balance:  "balance sheet",
	chunker.Income:   "income statement",
	chunker.CashFlow: "cash flow statement",
}

// Statement maps template keys to extracted values; nil means not found.
type Statement map[string]*float64

// Fields returns the template keys of c, units first.
func Fields(c chunker.Category) []string {
	return append([]string(nil), fields[c]...)
}

// Template returns the all-null statement for c.
func Template(c chunker.Category) Statement {
	s := make(Statement, len(fields[c]))
	for _, k := range fields[c] {
		s[k] = nil
	}
	return s
}

// Units returns the statement's scale, or 1 when it is missing or zero.
func (s Statement) Units() float64 {
	if v := s[UnitsField]; v != nil && *v != 0 {
		return *v
	}
	return 1
}

// promptFields renders the keys the submitter must return.
func promptFields(c chunker.Category, skipUnits bool) []string {
	out := make([]string, 0, len(fields[c]))
	for _, k := range fields[c] {
		if k == UnitsField && skipUnits {
			continue
		}
		out = append(out, k)
	}
	return out
}

func joinFields(keys []string) string {
	return strings.Join(keys, ", ")
}
