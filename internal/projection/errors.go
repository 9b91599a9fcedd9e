package projection

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrPlanOvercommitted  = errors.New("plano de pagamento excede o valor do imóvel")
	ErrCustomPlanMismatch = errors.New("parcelas personalizadas não correspondem ao valor financiado")
	ErrInvalidCustomMonth = errors.New("mês de parcela personalizada inválido")
	ErrUnknownScenario    = errors.New("cenário desconhecido")
	ErrUnknownStrategy    = errors.New("estratégia desconhecida")
	ErrUnknownPeriodicity = errors.New("periodicidade de reforço desconhecida")
	ErrUnknownPlanKind    = errors.New("tipo de parcelamento desconhecido")
	ErrIRRUndefined       = errors.New("TIR indefinida para o fluxo informado")
	ErrInvalidRentKind    = errors.New("tipo de aluguel inválido")
	ErrNegativeAmount     = errors.New("valores não podem ser negativos")
)

// OvercommitError reports a plan whose down payment, boosts and keys exceed the purchase price.
type OvercommitError struct {
	PurchasePrice float64
	Total         float64
	Excess        float64
}

func (e *OvercommitError) Error() string {
	return fmt.Sprintf("%s: total %.2f, valor do imóvel %.2f, excesso %.2f",
		ErrPlanOvercommitted, e.Total, e.PurchasePrice, e.Excess)
}

func (e *OvercommitError) Unwrap() error { return ErrPlanOvercommitted }

// CustomPlanMismatchError reports a custom plan that does not add up to the financed amount.
// Difference is Actual minus Expected: negative means shortfall.
type CustomPlanMismatchError struct {
	Expected   float64
	Actual     float64
	Difference float64
}

func (e *CustomPlanMismatchError) Error() string {
	if e.Difference < 0 {
		return fmt.Sprintf("%s: faltam %.2f (esperado %.2f, informado %.2f)",
			ErrCustomPlanMismatch, e.Shortfall(), e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: excedem %.2f (esperado %.2f, informado %.2f)",
		ErrCustomPlanMismatch, e.Excess(), e.Expected, e.Actual)
}

func (e *CustomPlanMismatchError) Unwrap() error { return ErrCustomPlanMismatch }

// Shortfall is the amount missing from the custom plan, zero when it exceeds.
func (e *CustomPlanMismatchError) Shortfall() float64 {
	return math.Max(0, -e.Difference)
}

// Excess is the amount the custom plan goes over, zero when it falls short.
func (e *CustomPlanMismatchError) Excess() float64 {
	return math.Max(0, e.Difference)
}

// IsValidation reports whether err is a user-correctable input problem.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrPlanOvercommitted, ErrCustomPlanMismatch, ErrInvalidCustomMonth,
		ErrUnknownScenario, ErrUnknownStrategy, ErrUnknownPeriodicity,
		ErrUnknownPlanKind, ErrInvalidRentKind, ErrNegativeAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
