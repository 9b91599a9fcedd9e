package projection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FutureSaleParams configures the resale strategy. Rates are percentages.
type FutureSaleParams struct {
	InvestmentPeriodMonths int     `json:"investment_period_months"`
	AnnualAppreciationRate float64 `json:"annual_appreciation_rate"`
	SellingExpenseRate     float64 `json:"selling_expense_rate"`
	IncomeTaxRate          float64 `json:"income_tax_rate"`
	AdditionalCostsRate    float64 `json:"additional_costs_rate"`
	MaintenanceCosts       float64 `json:"maintenance_costs"`
}

// AssetAppreciationParams configures the hold-and-appreciate strategy.
type AssetAppreciationParams struct {
	AnnualRate          float64 `json:"annual_rate"`
	AnalysisPeriodYears int     `json:"analysis_period_years"`
	MaintenanceCosts    float64 `json:"maintenance_costs"`
	AnnualTaxes         float64 `json:"annual_taxes"`
}

// RentalYieldParams configures the rental strategy.
type RentalYieldParams struct {
	MonthlyRent          RentSpec `json:"monthly_rent"`
	OccupancyRate        float64  `json:"occupancy_rate"`
	ManagementFeeRate    float64  `json:"management_fee_rate"`
	MaintenanceCostsRate float64  `json:"maintenance_costs_rate"`
	AnnualIncreaseRate   float64  `json:"annual_increase_rate"`
}

// ScenarioParameters holds the three strategy configs of one scenario.
type ScenarioParameters struct {
	FutureSale        FutureSaleParams        `json:"future_sale"`
	AssetAppreciation AssetAppreciationParams `json:"asset_appreciation"`
	RentalYield       RentalYieldParams       `json:"rental_yield"`
}

// RentKind tells whether a rent value is a percentage of the purchase price or a currency amount.
type RentKind string

const (
	RentPercent  RentKind = "percent"
	RentAbsolute RentKind = "absolute"
)

// LegacyRentPercentThreshold: untyped rent values below it are read as a percentage.
const LegacyRentPercentThreshold = 100.0

// RentSpec is a monthly rent with an explicit kind.
type RentSpec struct {
	Kind  RentKind `json:"kind"`
	Value float64  `json:"value"`
}

// PercentRent builds a rent expressed as percent of the purchase price per month.
func PercentRent(pct float64) RentSpec {
	return RentSpec{Kind: RentPercent, Value: pct}
}

// AbsoluteRent builds a rent expressed in currency per month.
func AbsoluteRent(amount float64) RentSpec {
	return RentSpec{Kind: RentAbsolute, Value: amount}
}

// LegacyRent classifies an untyped rent value by magnitude.
func LegacyRent(v float64) RentSpec {
	if v < LegacyRentPercentThreshold {
		return PercentRent(v)
	}
	return AbsoluteRent(v)
}

// ParseLegacyRent reads an untyped rent as entered in older forms ("0.6", "0,6", "2500").
func ParseLegacyRent(s string) (RentSpec, error) {
	v, err := parseDecimal(s)
	if err != nil {
		return RentSpec{}, fmt.Errorf("%w: %q", ErrInvalidRentKind, s)
	}
	return LegacyRent(v), nil
}

// Monthly resolves the rent in currency for the given purchase price.
func (r RentSpec) Monthly(purchasePrice float64) float64 {
	if r.Kind == RentPercent {
		return purchasePrice * r.Value / 100
	}
	return r.Value
}

// UnmarshalJSON accepts {"kind","value"} as well as a bare number or numeric string.
func (r *RentSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = RentSpec{}
		return nil
	}
	switch data[0] {
	case '{':
		type plain RentSpec
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		switch p.Kind {
		case RentPercent, RentAbsolute:
		case "":
			*r = LegacyRent(p.Value)
			return nil
		default:
			return fmt.Errorf("%w: %q", ErrInvalidRentKind, p.Kind)
		}
		*r = RentSpec(p)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		spec, err := ParseLegacyRent(s)
		if err != nil {
			return err
		}
		*r = spec
		return nil
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*r = LegacyRent(v)
		return nil
	}
}

func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

// InvestmentPeriods derives the sale horizon of each scenario from the delivery horizon.
func InvestmentPeriods(deliveryMonths int) map[Scenario]int {
	d := float64(deliveryMonths)
	optimistic := int(math.Round(d * 0.7))
	if optimistic < 1 {
		optimistic = 1
	}
	return map[Scenario]int{
		ScenarioStandard:     deliveryMonths,
		ScenarioConservative: int(math.Round(d * 1.3)),
		ScenarioOptimistic:   optimistic,
	}
}

type scenarioDefaults struct {
	appreciation float64
	rentPct      float64
	occupancy    float64
}

var defaultsByScenario = map[Scenario]scenarioDefaults{
	ScenarioStandard:     {appreciation: 15, rentPct: 0.6, occupancy: 85},
	ScenarioConservative: {appreciation: 12, rentPct: 0.4, occupancy: 75},
	ScenarioOptimistic:   {appreciation: 18, rentPct: 0.8, occupancy: 95},
}

// DefaultScenarios builds the creation-time parameters for all three scenarios.
// They are not re-derived when a projection is edited.
func DefaultScenarios(deliveryMonths int) map[Scenario]ScenarioParameters {
	periods := InvestmentPeriods(deliveryMonths)
	out := make(map[Scenario]ScenarioParameters, len(Scenarios))
	for _, sc := range Scenarios {
		d := defaultsByScenario[sc]
		out[sc] = ScenarioParameters{
			FutureSale: FutureSaleParams{
				InvestmentPeriodMonths: periods[sc],
				AnnualAppreciationRate: d.appreciation,
				SellingExpenseRate:     6,
				IncomeTaxRate:          15,
				AdditionalCostsRate:    2,
			},
			AssetAppreciation: AssetAppreciationParams{
				AnnualRate:          d.appreciation,
				AnalysisPeriodYears: 10,
			},
			RentalYield: RentalYieldParams{
				MonthlyRent:          PercentRent(d.rentPct),
				OccupancyRate:        d.occupancy,
				ManagementFeeRate:    10,
				MaintenanceCostsRate: 5,
				AnnualIncreaseRate:   5,
			},
		}
	}
	return out
}
