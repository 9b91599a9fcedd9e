package projection

import "math"

// DefaultROIFloor is the minimum headline ROI shown for a projection, in percent.
// It is a presentation floor, not a property of the investment.
const DefaultROIFloor = 12.0

// Options tunes the evaluators. The zero value disables the ROI floor and the tax clamp.
type Options struct {
	ApplyROIFloor     bool
	ROIFloor          float64
	ClampIncomeTax    bool
	MaxSeriesYears    int
	RentalSeriesYears int
}

// DefaultOptions returns the settings used by the API.
func DefaultOptions() Options {
	return Options{
		ApplyROIFloor:     true,
		ROIFloor:          DefaultROIFloor,
		ClampIncomeTax:    true,
		MaxSeriesYears:    30,
		RentalSeriesYears: 10,
	}
}

// Input is everything needed to evaluate a projection.
type Input struct {
	Terms          PurchaseTerms                   `json:"terms"`
	Scenarios      map[Scenario]ScenarioParameters `json:"scenarios"`
	Strategies     StrategySet                     `json:"strategies"`
	ActiveScenario Scenario                        `json:"active_scenario"`
}

// ScenarioSummary compares the headline figures of one scenario.
type ScenarioSummary struct {
	Scenario               Scenario `json:"scenario"`
	InvestmentPeriodMonths int      `json:"investment_period_months"`
	FutureValue            float64  `json:"future_value"`
	FutureSaleROI          float64  `json:"future_sale_roi"`
	NetProfit              float64  `json:"net_profit"`
	AppreciationPercentage float64  `json:"appreciation_percentage"`
	RentalYieldRate        float64  `json:"rental_yield_rate"`
	ROI                    float64  `json:"roi"`
}

// CalculationResults is the cached output of a projection evaluation.
type CalculationResults struct {
	Scenario          Scenario                 `json:"scenario"`
	ScenarioFallback  bool                     `json:"scenario_fallback"`
	Strategies        StrategySet              `json:"strategies"`
	PurchasePrice     float64                  `json:"purchase_price"`
	FinancedAmount    float64                  `json:"financed_amount"`
	Ledger            []LedgerRow              `json:"ledger"`
	LedgerTotals      LedgerTotals             `json:"ledger_totals"`
	FutureSale        *FutureSaleResult        `json:"future_sale,omitempty"`
	AssetAppreciation *AssetAppreciationResult `json:"asset_appreciation,omitempty"`
	RentalYield       *RentalYieldResult       `json:"rental_yield,omitempty"`
	ROI               float64                  `json:"roi"`
	ROIFloorApplied   bool                     `json:"roi_floor_applied"`
	Comparison        []ScenarioSummary        `json:"comparison"`
}

// Engine evaluates projections. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	opts Options
}

// NewEngine creates an engine with the given options.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Options returns the engine settings.
func (e *Engine) Options() Options {
	return e.opts
}

// Evaluate builds the ledger and runs the selected strategies for the active scenario.
// An empty strategy set evaluates all strategies.
func (e *Engine) Evaluate(in Input) (*CalculationResults, error) {
	ledger, err := BuildLedger(in.Terms)
	if err != nil {
		return nil, err
	}

	strategies := in.Strategies
	if len(strategies) == 0 {
		strategies = StrategySet{StrategyFutureSale, StrategyAssetAppreciation, StrategyRentalYield}
	}

	active, params, fallback := e.resolve(in)
	price := in.Terms.PurchasePrice()

	res := &CalculationResults{
		Scenario:         active,
		ScenarioFallback: fallback,
		Strategies:       strategies,
		PurchasePrice:    price,
		FinancedAmount:   in.Terms.FinancedAmount(),
		Ledger:           ledger,
		LedgerTotals:     Totals(ledger),
	}
	if res.Ledger == nil {
		res.Ledger = []LedgerRow{}
	}

	summary := e.evaluateScenario(active, params, price, strategies, ledger, res)
	res.ROI, res.ROIFloorApplied = summary.ROI, e.floorApplied(summary)

	for _, sc := range Scenarios {
		if sc == active {
			res.Comparison = append(res.Comparison, summary)
			continue
		}
		p, ok := in.Scenarios[sc]
		if !ok {
			p = DefaultScenarios(in.Terms.DeliveryMonths)[sc]
		}
		res.Comparison = append(res.Comparison, e.evaluateScenario(sc, p, price, strategies, ledger, nil))
	}
	return res, nil
}

// resolve picks the active scenario parameters, falling back to the standard scenario
// and then to the creation defaults.
func (e *Engine) resolve(in Input) (Scenario, ScenarioParameters, bool) {
	if in.ActiveScenario.Valid() {
		if p, ok := in.Scenarios[in.ActiveScenario]; ok {
			return in.ActiveScenario, p, false
		}
	}
	fallback := in.ActiveScenario != "" && in.ActiveScenario != ScenarioStandard
	if p, ok := in.Scenarios[ScenarioStandard]; ok {
		return ScenarioStandard, p, fallback
	}
	return ScenarioStandard, DefaultScenarios(in.Terms.DeliveryMonths)[ScenarioStandard], true
}

// evaluateScenario runs the strategies of one scenario. When out is non-nil the detailed
// results are stored in it.
func (e *Engine) evaluateScenario(sc Scenario, p ScenarioParameters, price float64, strategies StrategySet, ledger []LedgerRow, out *CalculationResults) ScenarioSummary {
	summary := ScenarioSummary{Scenario: sc, InvestmentPeriodMonths: p.FutureSale.InvestmentPeriodMonths}
	candidates := []float64{}

	if strategies.Has(StrategyFutureSale) {
		fs := EvaluateFutureSale(price, p.FutureSale, e.opts)
		if flows := SaleCashflow(ledger, fs, p.FutureSale.InvestmentPeriodMonths); flows != nil {
			if irr, err := IRR(flows); err == nil {
				fs.IRR = irr
			}
		}
		summary.FutureValue = fs.FutureValue
		summary.FutureSaleROI = fs.ROI
		summary.NetProfit = fs.NetProfit
		candidates = append(candidates, fs.ROI)
		if out != nil {
			out.FutureSale = &fs
		}
	}
	if strategies.Has(StrategyAssetAppreciation) {
		aa := EvaluateAssetAppreciation(price, p.AssetAppreciation, e.opts)
		summary.AppreciationPercentage = aa.AppreciationPercentage
		if out != nil {
			out.AssetAppreciation = &aa
		}
	}
	if strategies.Has(StrategyRentalYield) {
		ry := EvaluateRentalYield(price, p.RentalYield, e.opts)
		summary.RentalYieldRate = ry.YieldRate
		candidates = append(candidates, ry.YieldRate)
		if out != nil {
			out.RentalYield = &ry
		}
	}

	summary.ROI = e.headlineROI(candidates)
	return summary
}

// headlineROI is the best of the candidate ROIs, never below the floor when enabled.
func (e *Engine) headlineROI(candidates []float64) float64 {
	roi := math.Inf(-1)
	for _, c := range candidates {
		roi = math.Max(roi, c)
	}
	if e.opts.ApplyROIFloor {
		roi = math.Max(roi, e.opts.ROIFloor)
	}
	if math.IsInf(roi, -1) {
		return 0
	}
	return roi
}

func (e *Engine) floorApplied(s ScenarioSummary) bool {
	return e.opts.ApplyROIFloor && s.ROI == e.opts.ROIFloor &&
		s.FutureSaleROI < e.opts.ROIFloor && s.RentalYieldRate < e.opts.ROIFloor
}
