package projection

import "math"

// FutureSaleResult is the resale economics of a scenario.
type FutureSaleResult struct {
	PurchasePrice    float64    `json:"purchase_price"`
	FutureValue      float64    `json:"future_value"`
	SaleExpenses     float64    `json:"sale_expenses"`
	AdditionalCosts  float64    `json:"additional_costs"`
	MaintenanceCosts float64    `json:"maintenance_costs"`
	GrossProfit      float64    `json:"gross_profit"`
	IncomeTax        float64    `json:"income_tax"`
	IncomeTaxClamped bool       `json:"income_tax_clamped"`
	NetProfit        float64    `json:"net_profit"`
	ROI              float64    `json:"roi"`
	PaybackMonths    int        `json:"payback_months"`
	IRR              *IRRResult `json:"irr,omitempty"`
}

// EvaluateFutureSale projects the sale of the property at the end of the investment period.
func EvaluateFutureSale(purchasePrice float64, p FutureSaleParams, opts Options) FutureSaleResult {
	res := FutureSaleResult{PurchasePrice: purchasePrice, PaybackMonths: p.InvestmentPeriodMonths}
	if purchasePrice <= 0 {
		return res
	}

	years := float64(p.InvestmentPeriodMonths) / 12
	res.FutureValue = purchasePrice * math.Pow(1+p.AnnualAppreciationRate/100, years)
	res.SaleExpenses = res.FutureValue * p.SellingExpenseRate / 100
	res.AdditionalCosts = res.FutureValue * p.AdditionalCostsRate / 100
	res.MaintenanceCosts = p.MaintenanceCosts
	res.GrossProfit = res.FutureValue - res.SaleExpenses - res.AdditionalCosts - res.MaintenanceCosts - purchasePrice

	res.IncomeTax = res.GrossProfit * p.IncomeTaxRate / 100
	if opts.ClampIncomeTax && res.IncomeTax < 0 {
		res.IncomeTax = 0
		res.IncomeTaxClamped = true
	}
	res.NetProfit = res.GrossProfit - res.IncomeTax
	res.ROI = res.NetProfit / purchasePrice * 100
	return res
}

// AppreciationYear is one point of the appreciation chart.
type AppreciationYear struct {
	Year          int     `json:"year"`
	PropertyValue float64 `json:"property_value"`
	NetValue      float64 `json:"net_value"`
}

// AssetAppreciationResult is the value growth of a scenario without a sale.
type AssetAppreciationResult struct {
	PurchasePrice          float64            `json:"purchase_price"`
	FinalValue             float64            `json:"final_value"`
	TotalMaintenance       float64            `json:"total_maintenance"`
	AppreciationPercentage float64            `json:"appreciation_percentage"`
	NetProfit              float64            `json:"net_profit"`
	Years                  []AppreciationYear `json:"years"`
}

// carryingCostHaircut is applied to every point of the appreciation series.
const carryingCostHaircut = 0.98

// EvaluateAssetAppreciation projects value growth over the analysis period.
func EvaluateAssetAppreciation(purchasePrice float64, p AssetAppreciationParams, opts Options) AssetAppreciationResult {
	res := AssetAppreciationResult{PurchasePrice: purchasePrice, Years: []AppreciationYear{}}
	if purchasePrice <= 0 {
		return res
	}

	years := p.AnalysisPeriodYears
	if years < 0 {
		years = 0
	}
	growth := 1 + p.AnnualRate/100
	res.FinalValue = purchasePrice * math.Pow(growth, float64(years))
	res.TotalMaintenance = (p.MaintenanceCosts + p.AnnualTaxes) * float64(years)
	res.AppreciationPercentage = (res.FinalValue - purchasePrice) / purchasePrice * 100
	res.NetProfit = res.FinalValue - purchasePrice - res.TotalMaintenance

	limit := years
	if opts.MaxSeriesYears > 0 && limit > opts.MaxSeriesYears {
		limit = opts.MaxSeriesYears
	}
	value := purchasePrice
	for y := 1; y <= limit; y++ {
		value *= growth
		res.Years = append(res.Years, AppreciationYear{
			Year:          y,
			PropertyValue: value,
			NetValue:      value * carryingCostHaircut,
		})
	}
	return res
}

// RentalYear is one point of the rental chart.
type RentalYear struct {
	Year         int     `json:"year"`
	MonthlyRent  float64 `json:"monthly_rent"`
	RentalIncome float64 `json:"rental_income"`
	Expenses     float64 `json:"expenses"`
	NetIncome    float64 `json:"net_income"`
	YieldRate    float64 `json:"yield_rate"`
}

// RentalYieldResult is the recurring income of a scenario.
type RentalYieldResult struct {
	PurchasePrice  float64      `json:"purchase_price"`
	RentKind       RentKind     `json:"rent_kind"`
	MonthlyRent    float64      `json:"monthly_rent"`
	AnnualRent     float64      `json:"annual_rent"`
	AnnualExpenses float64      `json:"annual_expenses"`
	NetAnnualRent  float64      `json:"net_annual_rent"`
	YieldRate      float64      `json:"yield_rate"`
	Years          []RentalYear `json:"years"`
}

// EvaluateRentalYield projects rental income and its yearly growth.
func EvaluateRentalYield(purchasePrice float64, p RentalYieldParams, opts Options) RentalYieldResult {
	res := RentalYieldResult{PurchasePrice: purchasePrice, RentKind: p.MonthlyRent.Kind, Years: []RentalYear{}}
	if purchasePrice <= 0 {
		return res
	}

	res.MonthlyRent = p.MonthlyRent.Monthly(purchasePrice)
	res.AnnualRent, res.AnnualExpenses, res.NetAnnualRent = rentalYear(res.MonthlyRent, p)
	res.YieldRate = res.NetAnnualRent / purchasePrice * 100

	rent := res.MonthlyRent
	for y := 1; y <= opts.RentalSeriesYears; y++ {
		if y > 1 {
			rent *= 1 + p.AnnualIncreaseRate/100
		}
		income, expenses, net := rentalYear(rent, p)
		res.Years = append(res.Years, RentalYear{
			Year:         y,
			MonthlyRent:  rent,
			RentalIncome: income,
			Expenses:     expenses,
			NetIncome:    net,
			YieldRate:    net / purchasePrice * 100,
		})
	}
	return res
}

func rentalYear(monthlyRent float64, p RentalYieldParams) (income, expenses, net float64) {
	income = monthlyRent * 12 * p.OccupancyRate / 100
	expenses = income * (p.ManagementFeeRate + p.MaintenanceCostsRate) / 100
	return income, expenses, income - expenses
}
