package projection

import "math"

const (
	irrMaxIterations   = 1000
	irrPrecision       = 1e-6
	irrMinDerivative   = 1e-10
	irrLowerBound      = -0.99
	irrUpperBound      = 5.0
	bisectPrecision    = 1e-7
	bisectMaxIteration = 100
)

var irrGuesses = []float64{0.1, 0.05, 0.2, 0.01, 0.3, 0.5, -0.5, 0}

// Methods reported in IRRResult.
const (
	IRRMethodNewton    = "newton"
	IRRMethodBisection = "bisection"
	// IRRMethodBound: no root inside (-99%, 500%); the rate is the bound with the smaller |NPV|.
	IRRMethodBound = "bound"
)

// IRRResult holds the internal rate of return of a monthly cashflow.
// Bracketed is false when the rate is only an interval bound and should be shown as unreliable.
type IRRResult struct {
	Monthly   float64 `json:"monthly"`
	Annual    float64 `json:"annual"`
	Method    string  `json:"method"`
	Bracketed bool    `json:"bracketed"`
}

// NPV discounts flows[t] at rate per period.
func NPV(rate float64, flows []float64) float64 {
	var npv float64
	for t, cf := range flows {
		npv += cf / math.Pow(1+rate, float64(t))
	}
	return npv
}

func npvDerivative(rate float64, flows []float64) float64 {
	var d float64
	for t, cf := range flows {
		if t == 0 {
			continue
		}
		d -= float64(t) * cf / math.Pow(1+rate, float64(t+1))
	}
	return d
}

// IRR finds the periodic rate that zeroes the NPV of flows.
// Newton-Raphson is tried from several starting points, then bisection over (-99%, 500%).
func IRR(flows []float64) (*IRRResult, error) {
	if !hasSignChange(flows) {
		return nil, ErrIRRUndefined
	}
	for _, guess := range irrGuesses {
		if r, ok := newtonIRR(flows, guess); ok {
			return newIRRResult(r, IRRMethodNewton), nil
		}
	}
	rate, bracketed := bisectIRR(flows)
	if !bracketed {
		return newIRRResult(rate, IRRMethodBound), nil
	}
	return newIRRResult(rate, IRRMethodBisection), nil
}

func newIRRResult(monthly float64, method string) *IRRResult {
	return &IRRResult{
		Monthly:   monthly,
		Annual:    math.Pow(1+monthly, 12) - 1,
		Method:    method,
		Bracketed: method != IRRMethodBound,
	}
}

func newtonIRR(flows []float64, guess float64) (float64, bool) {
	rate := guess
	for i := 0; i < irrMaxIterations; i++ {
		npv := NPV(rate, flows)
		d := npvDerivative(rate, flows)
		if math.Abs(d) < irrMinDerivative {
			return 0, false
		}
		next := rate - npv/d
		if math.IsNaN(next) || math.IsInf(next, 0) || next < irrLowerBound || next > irrUpperBound {
			return 0, false
		}
		if math.Abs(next-rate) < irrPrecision {
			return next, true
		}
		rate = next
	}
	return 0, false
}

// bisectIRR reports false when NPV has the same sign at both bounds.
func bisectIRR(flows []float64) (float64, bool) {
	lo, hi := irrLowerBound, irrUpperBound
	fLo, fHi := NPV(lo, flows), NPV(hi, flows)
	if fLo*fHi > 0 {
		if math.Abs(fLo) < math.Abs(fHi) {
			return lo, false
		}
		return hi, false
	}

	mid := (lo + hi) / 2
	for i := 0; i < bisectMaxIteration; i++ {
		mid = (lo + hi) / 2
		fMid := NPV(mid, flows)
		if math.Abs(fMid) < bisectPrecision || (hi-lo)/2 < bisectPrecision {
			return mid, true
		}
		if (fMid < 0) == (fLo < 0) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return mid, true
}

func hasSignChange(flows []float64) bool {
	var pos, neg bool
	for _, cf := range flows {
		if cf > 0 {
			pos = true
		} else if cf < 0 {
			neg = true
		}
	}
	return pos && neg
}

// SaleCashflow builds the monthly investor cashflow for a sale at saleMonth:
// the down payment at month 0, every payment before the sale, then the sale proceeds
// net of the corrected balance still owed.
func SaleCashflow(ledger []LedgerRow, sale FutureSaleResult, saleMonth int) []float64 {
	if saleMonth < 1 || len(ledger) == 0 {
		return nil
	}
	flows := make([]float64, saleMonth+1)
	flows[0] = -ledger[0].TotalPayment
	for m := 1; m < saleMonth && m < len(ledger); m++ {
		flows[m] = -ledger[m].TotalPayment
	}

	var owed float64
	if saleMonth < len(ledger) {
		row := ledger[saleMonth]
		owed = (row.RemainingBalance + row.BaseTotal()) * row.CumulativeFactor
	}
	flows[saleMonth] = sale.FutureValue - owed - sale.SaleExpenses - sale.AdditionalCosts - sale.MaintenanceCosts
	return flows
}
