package calc

import "math"

// PriceRatios are market multiples for a share price.
type PriceRatios struct {
	EV          *float64 `json:"ev"`
	EVCFO       *float64 `json:"ev_cfo"`
	PER         *float64 `json:"per"`
	PBV         *float64 `json:"p_bv"`
	Score       *float64 `json:"score"`
	EVCap       *float64 `json:"ev_cap"`
	EVNetIncome *float64 `json:"ev_net_income"`
}

// Multiples at or above these contribute nothing to the score. Without an
// operating cash flow the score is split evenly between PER and P/BV.
const (
	maxEVCFO = 50.0
	maxPER   = 50.0
	maxPBV   = 20.0
)

// Ratios computes enterprise value and price multiples at price, plus a
// 0-10 value score (higher is cheaper). EV is floored; the other ratios are
// rounded to two decimals.
func Ratios(price float64, d Derived) PriceRatios {
	if price <= 0 {
		return PriceRatios{}
	}

	shares := floorPtr(d.Shares)
	debt := floorPtr(d.TotalLiabilities)
	cash := floorPtr(d.CashAndEquivalents)
	ocf := floorPtr(d.CashFlowFromOperations)
	netIncome := floorPtr(d.NetIncome)
	eps := nonZero(d.EPS)
	bookValue := nonZero(d.BookValue)

	var marketCap, ev, evCFO, per, pbv, evCap, evNI *float64
	if shares != nil {
		marketCap = Float(price * *shares)
	}
	if debt != nil && cash != nil && marketCap != nil {
		ev = Float(*marketCap + *debt - *cash)
	}
	if ocf != nil && ev != nil && *ev != 0 {
		evCFO = Float(*ev / *ocf)
	}
	if eps != nil {
		per = Float(price / *eps)
	}
	if bookValue != nil {
		pbv = Float(price / *bookValue)
	}
	if marketCap != nil && ev != nil && *ev != 0 {
		evCap = Float(*ev / *marketCap)
	}
	if netIncome != nil && ev != nil && *ev != 0 {
		evNI = Float(*ev / *netIncome)
	}

	var score *float64
	switch {
	case netIncome == nil || shares == nil || evCap == nil || pbv == nil:
	case deref(eps) <= 0 || deref(bookValue) <= 0 || (ocf != nil && *ocf <= 0) || *netIncome <= 0:
		score = Float(0)
	case *ev <= 0:
		score = Float(10)
	default:
		nPER := reciprocal(per, maxPER)
		nPBV := reciprocal(pbv, maxPBV)
		if nEVCFO := reciprocal(evCFO, maxEVCFO); nEVCFO == nil {
			score = Float(0.5**nPER + 0.5**nPBV)
		} else {
			score = Float(0.4**nEVCFO + 0.3**nPER + 0.3**nPBV)
		}
	}

	return PriceRatios{
		EV:          floorPtr(ev),
		EVCFO:       round2(evCFO),
		PER:         round2(per),
		PBV:         round2(pbv),
		Score:       round2(score),
		EVCap:       round2(evCap),
		EVNetIncome: round2(evNI),
	}
}

// reciprocal maps a multiple onto 0-10, where 0 means at or above max.
func reciprocal(v *float64, max float64) *float64 {
	if v == nil {
		return nil
	}
	if *v > max {
		return Float(0)
	}
	return Float(10 * (1 - *v/max))
}

func floorPtr(v *float64) *float64 {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return nil
	}
	return Float(math.Floor(*v))
}

func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return nil
	}
	return v
}

func round2(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return Float(math.Round(*v*100) / 100)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
