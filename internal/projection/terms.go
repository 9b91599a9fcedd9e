package projection

import (
	"fmt"
	"strconv"
	"strings"
)

// Periodicity is how often boost payments fall due.
type Periodicity string

const (
	PeriodicityMonthly    Periodicity = "monthly"
	PeriodicityBimonthly  Periodicity = "bimonthly"
	PeriodicityQuarterly  Periodicity = "quarterly"
	PeriodicitySemiannual Periodicity = "semiannual"
	PeriodicityAnnual     Periodicity = "annual"
)

var periodicityMonths = map[Periodicity]int{
	PeriodicityMonthly:    1,
	PeriodicityBimonthly:  2,
	PeriodicityQuarterly:  3,
	PeriodicitySemiannual: 6,
	PeriodicityAnnual:     12,
}

var periodicityAliases = map[string]Periodicity{
	"mensal":     PeriodicityMonthly,
	"bimestral":  PeriodicityBimonthly,
	"trimestral": PeriodicityQuarterly,
	"semestral":  PeriodicitySemiannual,
	"anual":      PeriodicityAnnual,
}

// Months returns the spacing between boosts, zero for an unknown value.
func (p Periodicity) Months() int {
	return periodicityMonths[p]
}

// ParsePeriodicity accepts the English key, the Portuguese name or a month count (1, 2, 3, 6, 12).
func ParsePeriodicity(s string) (Periodicity, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if _, ok := periodicityMonths[Periodicity(key)]; ok {
		return Periodicity(key), nil
	}
	if p, ok := periodicityAliases[key]; ok {
		return p, nil
	}
	if n, err := strconv.Atoi(key); err == nil {
		for p, months := range periodicityMonths {
			if months == n {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriodicity, s)
}

// PlanKind selects between the generated schedule and a user supplied one.
type PlanKind string

const (
	PlanAutomatic PlanKind = "automatic"
	PlanCustom    PlanKind = "custom"
)

// ParsePlanKind accepts the English key or the legacy Portuguese one. Empty means automatic.
func ParsePlanKind(s string) (PlanKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "automatic", "automatico", "automático":
		return PlanAutomatic, nil
	case "custom", "personalizado":
		return PlanCustom, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlanKind, s)
}

// Boost is a periodic extra payment ("reforço").
type Boost struct {
	Periodicity Periodicity `json:"periodicity"`
	Value       float64     `json:"value"`
}

// Keys is the lump sum due at delivery.
type Keys struct {
	Value float64 `json:"value"`
}

// CustomPayment is one entry of a user supplied payment plan.
type CustomPayment struct {
	Month  int     `json:"month"`
	Amount float64 `json:"amount"`
}

// PurchaseTerms holds the financial facts of a property purchase.
type PurchaseTerms struct {
	ListPrice                  float64         `json:"list_price"`
	Discount                   float64         `json:"discount"`
	DownPayment                float64         `json:"down_payment"`
	DeliveryMonths             int             `json:"delivery_months"`
	PaymentMonths              int             `json:"payment_months"`
	MonthlyCorrectionRate      float64         `json:"monthly_correction_rate"`
	PostDeliveryCorrectionRate float64         `json:"post_delivery_correction_rate"`
	Boost                      *Boost          `json:"boost,omitempty"`
	Keys                       *Keys           `json:"keys,omitempty"`
	PlanKind                   PlanKind        `json:"plan_kind"`
	CustomPayments             []CustomPayment `json:"custom_payments,omitempty"`
}

// PurchasePrice is the list price net of discount.
func (t PurchaseTerms) PurchasePrice() float64 {
	return t.ListPrice - t.Discount
}

// FinancedAmount is what remains after the down payment.
func (t PurchaseTerms) FinancedAmount() float64 {
	return t.PurchasePrice() - t.DownPayment
}

// IsCustom reports whether the plan uses user supplied payments.
func (t PurchaseTerms) IsCustom() bool {
	return t.PlanKind == PlanCustom
}

// BoostCount is how many boosts fit in the payment period.
func (t PurchaseTerms) BoostCount() int {
	if t.Boost == nil || t.Boost.Value <= 0 || t.PaymentMonths <= 0 {
		return 0
	}
	period := t.Boost.Periodicity.Months()
	if period == 0 {
		return 0
	}
	return t.PaymentMonths / period
}

// BoostTotal is the sum of all boost payments.
func (t PurchaseTerms) BoostTotal() float64 {
	if t.BoostCount() == 0 {
		return 0
	}
	return float64(t.BoostCount()) * t.Boost.Value
}

// KeysValue returns the keys payment or zero.
func (t PurchaseTerms) KeysValue() float64 {
	if t.Keys == nil {
		return 0
	}
	return t.Keys.Value
}

// KeysMonth is the month the keys payment falls due: delivery, bounded by the payment period.
func (t PurchaseTerms) KeysMonth() int {
	m := t.DeliveryMonths
	if m > t.PaymentMonths {
		m = t.PaymentMonths
	}
	if m < 1 {
		m = 1
	}
	return m
}

// Commitment is the down payment plus boosts and keys for automatic plans,
// only the down payment for custom ones.
func (t PurchaseTerms) Commitment() float64 {
	if t.IsCustom() {
		return t.DownPayment
	}
	return t.DownPayment + t.BoostTotal() + t.KeysValue()
}

// Validate checks field ranges and the commitment invariant.
func (t PurchaseTerms) Validate() error {
	if t.Discount < 0 || t.DownPayment < 0 || t.KeysValue() < 0 || (t.Boost != nil && t.Boost.Value < 0) {
		return ErrNegativeAmount
	}
	if t.Boost != nil && t.Boost.Value > 0 && t.Boost.Periodicity.Months() == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPeriodicity, t.Boost.Periodicity)
	}
	if t.PlanKind != "" && t.PlanKind != PlanAutomatic && t.PlanKind != PlanCustom {
		return fmt.Errorf("%w: %q", ErrUnknownPlanKind, t.PlanKind)
	}
	return t.CheckCommitment()
}

// CheckCommitment returns an *OvercommitError when the plan exceeds the purchase price.
func (t PurchaseTerms) CheckCommitment() error {
	price := t.PurchasePrice()
	if price <= 0 {
		return nil
	}
	total := t.Commitment()
	if total-price > epsilon {
		return &OvercommitError{PurchasePrice: price, Total: total, Excess: total - price}
	}
	return nil
}
