package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRR(t *testing.T) {
	tests := []struct {
		name    string
		flows   []float64
		monthly float64
	}{
		{"single period", []float64{-1000, 1100}, 0.10},
		{"two periods", []float64{-100, 0, 121}, 0.10},
		{"annuity", []float64{-1000, 300, 300, 300, 300}, 0.0771384},
		{"negative return", []float64{-1000, 900}, -0.10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := IRR(tt.flows)
			require.NoError(t, err)
			assert.InDelta(t, tt.monthly, res.Monthly, 1e-5)
			assert.InDelta(t, math.Pow(1+res.Monthly, 12)-1, res.Annual, 1e-12)
			assert.InDelta(t, 0, NPV(res.Monthly, tt.flows), 1e-4)
			assert.True(t, res.Bracketed)
		})
	}
}

func TestIRR_NoSignChange(t *testing.T) {
	_, err := IRR([]float64{100, 200})
	assert.ErrorIs(t, err, ErrIRRUndefined)

	_, err = IRR([]float64{-100, -200})
	assert.ErrorIs(t, err, ErrIRRUndefined)

	_, err = IRR(nil)
	assert.ErrorIs(t, err, ErrIRRUndefined)
}

func TestBisectIRR_SameSignReturnsClosestBound(t *testing.T) {
	// NPV stays positive on the whole interval.
	flows := []float64{-1, 1000}
	r, bracketed := bisectIRR(flows)
	assert.Equal(t, irrUpperBound, r)
	assert.False(t, bracketed)
}

func TestBisectIRR_FindsRoot(t *testing.T) {
	r, bracketed := bisectIRR([]float64{-100, 0, 121})
	assert.InDelta(t, 0.10, r, 1e-6)
	assert.True(t, bracketed)
}

func TestIRR_RootOutsideIntervalIsFlagged(t *testing.T) {
	// the true monthly rate is 99900%, far above the search interval
	res, err := IRR([]float64{-1, 1000})
	require.NoError(t, err)
	assert.Equal(t, IRRMethodBound, res.Method)
	assert.False(t, res.Bracketed)
	assert.Equal(t, irrUpperBound, res.Monthly)
}

func TestSaleCashflow(t *testing.T) {
	terms := PurchaseTerms{
		ListPrice:      120000,
		DownPayment:    20000,
		DeliveryMonths: 4,
		PaymentMonths:  4,
	}
	ledger, err := BuildLedger(terms)
	require.NoError(t, err)

	sale := FutureSaleResult{FutureValue: 150000, SaleExpenses: 9000, AdditionalCosts: 3000}
	flows := SaleCashflow(ledger, sale, 3)

	require.Len(t, flows, 4)
	assert.Equal(t, -20000.0, flows[0])
	assert.Equal(t, -25000.0, flows[1])
	assert.Equal(t, -25000.0, flows[2])
	// two installments of 25000 still owed at the sale month
	assert.InDelta(t, 150000-50000-9000-3000, flows[3], 1e-9)

	assert.Nil(t, SaleCashflow(ledger, sale, 0))
	assert.Nil(t, SaleCashflow(nil, sale, 12))

	beyond := SaleCashflow(ledger, sale, 6)
	require.Len(t, beyond, 7)
	assert.Equal(t, 0.0, beyond[5])
	assert.InDelta(t, 138000, beyond[6], 1e-9)
}
