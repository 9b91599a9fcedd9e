package projection

import "math"

const (
	// Tolerance is the currency amount under which two totals are considered equal.
	Tolerance = 0.01

	epsilon = 1e-9
)

// LedgerRow is one month of the payment plan with its monetary correction applied.
type LedgerRow struct {
	Month                int     `json:"month"`
	CorrectionRate       float64 `json:"correction_rate"`
	CumulativeFactor     float64 `json:"cumulative_factor"`
	DownPayment          float64 `json:"down_payment"`
	BaseInstallment      float64 `json:"base_installment"`
	CorrectedInstallment float64 `json:"corrected_installment"`
	BaseBoost            float64 `json:"base_boost"`
	CorrectedBoost       float64 `json:"corrected_boost"`
	BaseKeys             float64 `json:"base_keys"`
	CorrectedKeys        float64 `json:"corrected_keys"`
	TotalPayment         float64 `json:"total_payment"`
	NetPayment           float64 `json:"net_payment"`
	RemainingBalance     float64 `json:"remaining_balance"`
	CorrectedBalance     float64 `json:"corrected_balance"`
}

// BaseTotal is the uncorrected amount due in the row, down payment excluded.
func (r LedgerRow) BaseTotal() float64 {
	return r.BaseInstallment + r.BaseBoost + r.BaseKeys
}

type baseMonth struct {
	installment float64
	boost       float64
	keys        float64
}

// BuildLedger expands the terms into a month by month schedule, month 0 being the down payment.
// Non-positive purchase price, or an automatic plan without payment months, yields an empty ledger.
func BuildLedger(t PurchaseTerms) ([]LedgerRow, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.PurchasePrice() <= 0 {
		return nil, nil
	}

	var (
		schedule []baseMonth
		err      error
	)
	if t.IsCustom() {
		schedule, err = customSchedule(t)
	} else {
		if t.PaymentMonths <= 0 {
			return nil, nil
		}
		schedule = automaticSchedule(t)
	}
	if err != nil {
		return nil, err
	}

	rows := make([]LedgerRow, len(schedule))
	factor := 1.0
	remaining := t.FinancedAmount()
	for m, base := range schedule {
		rate := 0.0
		if m > 0 {
			rate = t.correctionRate(m)
			factor *= 1 + rate/100
		}
		remaining -= base.installment + base.boost + base.keys
		if math.Abs(remaining) < 1e-6 {
			remaining = 0
		}

		row := LedgerRow{
			Month:                m,
			CorrectionRate:       rate,
			CumulativeFactor:     factor,
			BaseInstallment:      base.installment,
			CorrectedInstallment: base.installment * factor,
			BaseBoost:            base.boost,
			CorrectedBoost:       base.boost * factor,
			BaseKeys:             base.keys,
			CorrectedKeys:        base.keys * factor,
			RemainingBalance:     remaining,
			CorrectedBalance:     remaining * factor,
		}
		if m == 0 {
			row.DownPayment = t.DownPayment
		}
		row.TotalPayment = row.DownPayment + row.CorrectedInstallment + row.CorrectedBoost + row.CorrectedKeys
		row.NetPayment = row.TotalPayment
		rows[m] = row
	}
	return rows, nil
}

// correctionRate is the monthly rate applied when moving into month i.
func (t PurchaseTerms) correctionRate(i int) float64 {
	if i <= t.DeliveryMonths {
		return t.MonthlyCorrectionRate
	}
	return t.PostDeliveryCorrectionRate
}

func automaticSchedule(t PurchaseTerms) []baseMonth {
	n := t.PaymentMonths
	boostCount := t.BoostCount()
	keys := t.KeysValue()

	// Overcommitted plans were rejected by Validate.
	remainder := t.FinancedAmount() - t.BoostTotal() - keys
	installment := math.Max(0, remainder) / float64(n)

	schedule := make([]baseMonth, n+1)
	for m := 1; m <= n; m++ {
		schedule[m].installment = installment
	}
	if boostCount > 0 {
		period := t.Boost.Periodicity.Months()
		for k := 1; k <= boostCount; k++ {
			schedule[k*period].boost = t.Boost.Value
		}
	}
	if keys > 0 {
		schedule[t.KeysMonth()].keys = keys
	}
	return schedule
}

func customSchedule(t PurchaseTerms) ([]baseMonth, error) {
	last := t.PaymentMonths
	if last < 0 {
		last = 0
	}
	var sum float64
	for _, p := range t.CustomPayments {
		if p.Month < 1 {
			return nil, ErrInvalidCustomMonth
		}
		if p.Amount < 0 {
			return nil, ErrNegativeAmount
		}
		if p.Month > last {
			last = p.Month
		}
		sum += p.Amount
	}

	expected := t.FinancedAmount()
	if diff := sum - expected; math.Abs(diff) >= Tolerance {
		return nil, &CustomPlanMismatchError{Expected: expected, Actual: sum, Difference: diff}
	}

	schedule := make([]baseMonth, last+1)
	for _, p := range t.CustomPayments {
		schedule[p.Month].installment += p.Amount
	}
	return schedule, nil
}

// ValidatePlan runs the plan checks without keeping the ledger.
func ValidatePlan(t PurchaseTerms) error {
	_, err := BuildLedger(t)
	return err
}

// LedgerTotals sums the ledger columns.
type LedgerTotals struct {
	DownPayment           float64 `json:"down_payment"`
	BaseInstallments      float64 `json:"base_installments"`
	CorrectedInstallments float64 `json:"corrected_installments"`
	BaseBoosts            float64 `json:"base_boosts"`
	CorrectedBoosts       float64 `json:"corrected_boosts"`
	BaseKeys              float64 `json:"base_keys"`
	CorrectedKeys         float64 `json:"corrected_keys"`
	TotalPaid             float64 `json:"total_paid"`
	TotalCorrection       float64 `json:"total_correction"`
}

// Totals aggregates a ledger.
func Totals(rows []LedgerRow) LedgerTotals {
	var t LedgerTotals
	for _, r := range rows {
		t.DownPayment += r.DownPayment
		t.BaseInstallments += r.BaseInstallment
		t.CorrectedInstallments += r.CorrectedInstallment
		t.BaseBoosts += r.BaseBoost
		t.CorrectedBoosts += r.CorrectedBoost
		t.BaseKeys += r.BaseKeys
		t.CorrectedKeys += r.CorrectedKeys
		t.TotalPaid += r.TotalPayment
	}
	t.TotalCorrection = (t.CorrectedInstallments + t.CorrectedBoosts + t.CorrectedKeys) -
		(t.BaseInstallments + t.BaseBoosts + t.BaseKeys)
	return t
}
