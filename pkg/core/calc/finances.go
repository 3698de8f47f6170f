// Package calc provides deterministic financial calculations over extracted
// statement figures. Missing figures are nil and propagate as nil.
package calc

// Finances holds the figures extracted for one ticker and period. Amounts
// are already scaled to units of currency; EPS is per share.
type Finances struct {
	CashAndEquivalents    *float64 `json:"cash_and_equivalents"`
	CurrentAssets         *float64 `json:"current_assets"`
	NonCurrentAssets      *float64 `json:"non_current_assets"`
	TotalAssets           *float64 `json:"total_assets"`
	CurrentLiabilities    *float64 `json:"current_liabilities"`
	NonCurrentLiabilities *float64 `json:"non_current_liabilities"`
	TotalLiabilities      *float64 `json:"total_liabilities"`
	Equity                *float64 `json:"equity"`

	Revenue   *float64 `json:"revenue"`
	NetIncome *float64 `json:"net_income"`
	EPS       *float64 `json:"eps"`

	CashFlowFromOperations *float64 `json:"cash_flow_from_operations"`
	CashFlowFromInvesting  *float64 `json:"cash_flow_from_investing"`
	CashFlowFromFinancing  *float64 `json:"cash_flow_from_financing"`
}

// EditableFields are the figures a user may correct by hand; everything
// else is derived from them.
var EditableFields = []string{
	"current_assets",
	"non_current_assets",
	"cash_and_equivalents",
	"current_liabilities",
	"non_current_liabilities",
	"revenue",
	"net_income",
	"eps",
	"cash_flow_from_operations",
	"cash_flow_from_investing",
	"cash_flow_from_financing",
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Set assigns the figure named by its JSON key. Unknown keys are ignored and
// reported as false.
func (f *Finances) Set(key string, v *float64) bool {
	switch key {
	case "cash_and_equivalents":
		f.CashAndEquivalents = v
	case "current_assets":
		f.CurrentAssets = v
	case "non_current_assets":
		f.NonCurrentAssets = v
	case "total_assets":
		f.TotalAssets = v
	case "current_liabilities":
		f.CurrentLiabilities = v
	case "non_current_liabilities":
		f.NonCurrentLiabilities = v
	case "total_liabilities":
		f.TotalLiabilities = v
	case "equity":
		f.Equity = v
	case "revenue":
		f.Revenue = v
	case "net_income":
		f.NetIncome = v
	case "eps":
		f.EPS = v
	case "cash_flow_from_operations":
		f.CashFlowFromOperations = v
	case "cash_flow_from_investing":
		f.CashFlowFromInvesting = v
	case "cash_flow_from_financing":
		f.CashFlowFromFinancing = v
	default:
		return false
	}
	return true
}
