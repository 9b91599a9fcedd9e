package projection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTerms() PurchaseTerms {
	return PurchaseTerms{
		ListPrice:                  520000,
		Discount:                   20000,
		DownPayment:                100000,
		DeliveryMonths:             24,
		PaymentMonths:              36,
		MonthlyCorrectionRate:      0.5,
		PostDeliveryCorrectionRate: 1,
		Boost:                      &Boost{Periodicity: PeriodicitySemiannual, Value: 10000},
		Keys:                       &Keys{Value: 40000},
		PlanKind:                   PlanAutomatic,
	}
}

func TestBuildLedger_SumMatchesFinancedAmount(t *testing.T) {
	terms := sampleTerms()

	rows, err := BuildLedger(terms)
	require.NoError(t, err)
	require.Len(t, rows, 37)

	var installments float64
	for _, r := range rows[1:] {
		installments += r.BaseInstallment
	}
	total := installments + float64(terms.BoostCount())*terms.Boost.Value + terms.KeysValue()
	assert.Equal(t, 6, terms.BoostCount())
	assert.InDelta(t, terms.FinancedAmount(), total, Tolerance)

	var allBase float64
	for _, r := range rows {
		allBase += r.BaseTotal()
	}
	assert.InDelta(t, 400000, allBase, Tolerance)
	assert.InDelta(t, 0, rows[len(rows)-1].RemainingBalance, Tolerance)
}

func TestBuildLedger_RowLayout(t *testing.T) {
	rows, err := BuildLedger(sampleTerms())
	require.NoError(t, err)

	first := rows[0]
	assert.Equal(t, 0, first.Month)
	assert.Equal(t, 100000.0, first.DownPayment)
	assert.Equal(t, 1.0, first.CumulativeFactor)
	assert.Equal(t, 0.0, first.BaseInstallment)
	assert.Equal(t, 100000.0, first.TotalPayment)

	for i, r := range rows {
		assert.Equal(t, i, r.Month)
		assert.Equal(t, r.TotalPayment, r.NetPayment)
	}

	assert.InDelta(t, 8333.33, rows[1].BaseInstallment, 0.01)
	assert.Equal(t, 10000.0, rows[6].BaseBoost)
	assert.Equal(t, 0.0, rows[7].BaseBoost)
	assert.Equal(t, 40000.0, rows[24].BaseKeys)
	assert.Equal(t, 0.5, rows[24].CorrectionRate)
	assert.Equal(t, 1.0, rows[25].CorrectionRate)
}

func TestBuildLedger_CorrectionIsMonotonic(t *testing.T) {
	rows, err := BuildLedger(sampleTerms())
	require.NoError(t, err)

	for m := 1; m < len(rows)-1; m++ {
		assert.GreaterOrEqual(t, rows[m+1].CumulativeFactor, rows[m].CumulativeFactor)
		assert.GreaterOrEqual(t, rows[m+1].CorrectedInstallment, rows[m].CorrectedInstallment)
	}
}

func TestBuildLedger_CumulativeFactor(t *testing.T) {
	terms := PurchaseTerms{
		ListPrice:                  120000,
		DeliveryMonths:             2,
		PaymentMonths:              4,
		MonthlyCorrectionRate:      1,
		PostDeliveryCorrectionRate: 2,
	}

	rows, err := BuildLedger(terms)
	require.NoError(t, err)

	assert.InDelta(t, 1.01, rows[1].CumulativeFactor, 1e-12)
	assert.InDelta(t, 1.01*1.01, rows[2].CumulativeFactor, 1e-12)
	assert.InDelta(t, 1.01*1.01*1.02, rows[3].CumulativeFactor, 1e-12)
	assert.InDelta(t, 30000*1.01*1.01*1.02*1.02, rows[4].CorrectedInstallment, 1e-6)
}

func TestBuildLedger_Overcommitted(t *testing.T) {
	terms := PurchaseTerms{
		ListPrice:      500000,
		DownPayment:    450000,
		DeliveryMonths: 36,
		PaymentMonths:  36,
		Boost:          &Boost{Periodicity: PeriodicityAnnual, Value: 20000},
		Keys:           &Keys{Value: 20000},
	}

	rows, err := BuildLedger(terms)
	assert.Nil(t, rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlanOvercommitted))

	var oe *OvercommitError
	require.True(t, errors.As(err, &oe))
	assert.InDelta(t, 530000, oe.Total, 0.001)
	assert.InDelta(t, 30000, oe.Excess, 0.001)
	assert.True(t, IsValidation(err))
}

func TestBuildLedger_CustomPlan(t *testing.T) {
	base := PurchaseTerms{
		ListPrice:             500000,
		DownPayment:           100000,
		DeliveryMonths:        3,
		PaymentMonths:         3,
		MonthlyCorrectionRate: 1,
		PlanKind:              PlanCustom,
	}

	t.Run("shortfall is reported", func(t *testing.T) {
		terms := base
		terms.CustomPayments = []CustomPayment{
			{Month: 1, Amount: 200000},
			{Month: 2, Amount: 100000},
			{Month: 3, Amount: 99000},
		}
		_, err := BuildLedger(terms)

		var me *CustomPlanMismatchError
		require.True(t, errors.As(err, &me))
		assert.True(t, errors.Is(err, ErrCustomPlanMismatch))
		assert.InDelta(t, -1000, me.Difference, 0.001)
		assert.InDelta(t, 1000, me.Shortfall(), 0.001)
		assert.Equal(t, 0.0, me.Excess())
	})

	t.Run("excess is reported", func(t *testing.T) {
		terms := base
		terms.CustomPayments = []CustomPayment{{Month: 1, Amount: 400500}}
		_, err := BuildLedger(terms)

		var me *CustomPlanMismatchError
		require.True(t, errors.As(err, &me))
		assert.InDelta(t, 500, me.Excess(), 0.001)
	})

	t.Run("reconciled plan is corrected per month", func(t *testing.T) {
		terms := base
		terms.CustomPayments = []CustomPayment{
			{Month: 1, Amount: 150000},
			{Month: 3, Amount: 200000},
			{Month: 3, Amount: 50000},
		}
		rows, err := BuildLedger(terms)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, 0.0, rows[2].BaseInstallment)
		assert.Equal(t, 250000.0, rows[3].BaseInstallment)
		assert.InDelta(t, 250000*1.01*1.01*1.01, rows[3].CorrectedInstallment, 1e-6)
	})

	t.Run("month zero is rejected", func(t *testing.T) {
		terms := base
		terms.CustomPayments = []CustomPayment{{Month: 0, Amount: 400000}}
		_, err := BuildLedger(terms)
		assert.ErrorIs(t, err, ErrInvalidCustomMonth)
	})
}

func TestBuildLedger_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name  string
		terms PurchaseTerms
	}{
		{"zero price", PurchaseTerms{PaymentMonths: 12}},
		{"negative price", PurchaseTerms{ListPrice: 1000, Discount: 2000, PaymentMonths: 12}},
		{"no payment months", PurchaseTerms{ListPrice: 100000, DownPayment: 10000}},
		{"negative payment months", PurchaseTerms{ListPrice: 100000, PaymentMonths: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := BuildLedger(tt.terms)
			assert.NoError(t, err)
			assert.Empty(t, rows)
		})
	}
}

func TestBuildLedger_KeysMonthBoundedByPaymentPeriod(t *testing.T) {
	terms := PurchaseTerms{
		ListPrice:      100000,
		DeliveryMonths: 30,
		PaymentMonths:  12,
		Keys:           &Keys{Value: 12000},
	}
	rows, err := BuildLedger(terms)
	require.NoError(t, err)
	assert.Equal(t, 12000.0, rows[12].BaseKeys)
	assert.InDelta(t, 88000.0/12, rows[1].BaseInstallment, 1e-9)
}

func TestTotals(t *testing.T) {
	rows, err := BuildLedger(sampleTerms())
	require.NoError(t, err)

	totals := Totals(rows)
	assert.Equal(t, 100000.0, totals.DownPayment)
	assert.InDelta(t, 60000, totals.BaseBoosts, 1e-6)
	assert.InDelta(t, 40000, totals.BaseKeys, 1e-6)
	assert.Greater(t, totals.TotalCorrection, 0.0)
	assert.InDelta(t, totals.TotalPaid, totals.DownPayment+totals.CorrectedInstallments+totals.CorrectedBoosts+totals.CorrectedKeys, 1e-6)
}

func TestParsePeriodicity(t *testing.T) {
	tests := []struct {
		in   string
		want Periodicity
	}{
		{"monthly", PeriodicityMonthly},
		{"bimestral", PeriodicityBimonthly},
		{"Trimestral", PeriodicityQuarterly},
		{"6", PeriodicitySemiannual},
		{"anual", PeriodicityAnnual},
	}
	for _, tt := range tests {
		got, err := ParsePeriodicity(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParsePeriodicity("5")
	assert.ErrorIs(t, err, ErrUnknownPeriodicity)
}

func TestParsePlanKind(t *testing.T) {
	kind, err := ParsePlanKind("personalizado")
	require.NoError(t, err)
	assert.Equal(t, PlanCustom, kind)

	kind, err = ParsePlanKind("")
	require.NoError(t, err)
	assert.Equal(t, PlanAutomatic, kind)

	_, err = ParsePlanKind("balloon")
	assert.ErrorIs(t, err, ErrUnknownPlanKind)
}
