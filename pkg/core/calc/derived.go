package calc

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Derived extends Finances with computed totals and ratios. The totals
// recomputed here take precedence over the extracted ones when encoded.
type Derived struct {
	Finances

	TotalAssets      *float64 `json:"total_assets"`
	TotalLiabilities *float64 `json:"total_liabilities"`
	Equity           *float64 `json:"equity"`
	Shares           *float64 `json:"shares"`
	WorkingCapital   *float64 `json:"working_capital"`

	WCNCL     *float64 `json:"wc_ncl"`
	Liquidity *float64 `json:"liquidity"`
	Leverage  *float64 `json:"leverage"`
	Solvency  *float64 `json:"solvency"`
	NetMargin *float64 `json:"net_margin"`
	BookValue *float64 `json:"book_value"`
	ROA       *float64 `json:"roa"`
	ROE       *float64 `json:"roe"`
}

// Derive computes totals from their components and the standard ratios.
// Ratios are rounded to three decimals.
func Derive(f Finances) Derived {
	d := Derived{Finances: f}

	d.TotalAssets = safeAdd(f.CurrentAssets, f.NonCurrentAssets)
	d.TotalLiabilities = safeAdd(f.CurrentLiabilities, f.NonCurrentLiabilities)
	d.Equity = safeSubtract(d.TotalAssets, d.TotalLiabilities)
	d.Shares = safeDivide(f.NetIncome, f.EPS)
	d.WorkingCapital = safeSubtract(f.CurrentAssets, f.CurrentLiabilities)

	d.WCNCL = round3(safeDivide(d.WorkingCapital, f.NonCurrentLiabilities))
	d.Liquidity = round3(safeDivide(f.CurrentAssets, f.CurrentLiabilities))
	d.Leverage = round3(safeDivide(d.TotalLiabilities, d.Equity))
	d.Solvency = round3(safeDivide(d.TotalAssets, d.TotalLiabilities))
	d.NetMargin = round3(safeDivide(f.NetIncome, f.Revenue))
	d.BookValue = round3(safeDivide(d.Equity, d.Shares))
	d.ROA = round3(safeDivide(f.NetIncome, d.TotalAssets))
	d.ROE = round3(safeDivide(f.NetIncome, d.Equity))
	return d
}

// Values returns every figure of d keyed by its JSON name.
func (d Derived) Values() map[string]*float64 {
	return map[string]*float64{
		"cash_and_equivalents":      d.CashAndEquivalents,
		"current_assets":            d.CurrentAssets,
		"non_current_assets":        d.NonCurrentAssets,
		"current_liabilities":       d.CurrentLiabilities,
		"non_current_liabilities":   d.NonCurrentLiabilities,
		"revenue":                   d.Revenue,
		"net_income":                d.NetIncome,
		"eps":                       d.EPS,
		"cash_flow_from_operations": d.CashFlowFromOperations,
		"cash_flow_from_investing":  d.CashFlowFromInvesting,
		"cash_flow_from_financing":  d.CashFlowFromFinancing,
		"total_assets":              d.TotalAssets,
		"total_liabilities":         d.TotalLiabilities,
		"equity":                    d.Equity,
		"shares":                    d.Shares,
		"working_capital":           d.WorkingCapital,
		"wc_ncl":                    d.WCNCL,
		"liquidity":                 d.Liquidity,
		"leverage":                  d.Leverage,
		"solvency":                  d.Solvency,
		"net_margin":                d.NetMargin,
		"book_value":                d.BookValue,
		"roa":                       d.ROA,
		"roe":                       d.ROE,
	}
}

// PercentChange returns the change from prev to curr as a percentage of
// |prev|, rounded to two decimals. It is nil when either side is missing or
// prev is zero.
func PercentChange(curr, prev *float64) *float64 {
	if curr == nil || prev == nil || *prev == 0 {
		return nil
	}
	v := math.Round((*curr-*prev)/math.Abs(*prev)*100*100) / 100
	return &v
}

// Changes compares every figure of curr with prev and returns the changes
// keyed "<field>_change". Fields missing on either side are omitted.
func Changes(curr, prev Derived) map[string]*float64 {
	out := make(map[string]*float64)
	prevValues := prev.Values()
	for key, c := range curr.Values() {
		p := prevValues[key]
		if c == nil || p == nil {
			continue
		}
		out[key+"_change"] = PercentChange(c, p)
	}
	return out
}

// PeriodChanges computes Changes for every period ("YYYY-P") that has the
// same period one year earlier.
func PeriodChanges(periods map[string]Derived) map[string]map[string]*float64 {
	out := make(map[string]map[string]*float64)
	for key, curr := range periods {
		prevKey, ok := PreviousYear(key)
		if !ok {
			continue
		}
		prev, ok := periods[prevKey]
		if !ok {
			continue
		}
		out[key] = Changes(curr, prev)
	}
	return out
}

// PreviousYear maps "2024-FY" to "2023-FY".
func PreviousYear(period string) (string, bool) {
	year, rest, found := strings.Cut(period, "-")
	if !found {
		return "", false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(y-1) + "-" + rest, true
}

// SortPeriods orders period keys chronologically (year, then suffix).
func SortPeriods(periods []string) {
	sort.Slice(periods, func(i, j int) bool {
		yi, ri, _ := strings.Cut(periods[i], "-")
		yj, rj, _ := strings.Cut(periods[j], "-")
		ni, erri := strconv.Atoi(yi)
		nj, errj := strconv.Atoi(yj)
		if erri == nil && errj == nil && ni != nj {
			return ni < nj
		}
		if yi != yj {
			return yi < yj
		}
		return ri < rj
	})
}

// RatioChange is the one-decimal percentage change between two ratio
// values. Sign flips are reported so that moving from negative to positive
// is always an improvement. ok is false when either value is zero or NaN.
func RatioChange(curr, prev float64) (change float64, ok bool) {
	if prev == 0 || curr == 0 || math.IsNaN(prev) || math.IsNaN(curr) {
		return 0, false
	}
	switch {
	case prev < 0 && curr < 0:
		change = math.Round((math.Abs(prev)-math.Abs(curr))/math.Abs(prev)*100*10) / 10
	case prev < 0 && curr > 0:
		change = math.Abs(math.Round((curr-prev)/prev*100*10) / 10)
	default:
		change = math.Round((curr-prev)/prev*100*10) / 10
	}
	return change, true
}

func safeAdd(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + *b
	return &v
}

func safeSubtract(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a - *b
	return &v
}

// safeDivide is nil when either operand is missing or zero.
func safeDivide(num, den *float64) *float64 {
	if num == nil || den == nil || *num == 0 || *den == 0 {
		return nil
	}
	v := *num / *den
	return &v
}

func round3(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*1000) / 1000
	return &r
}
