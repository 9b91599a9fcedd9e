package projection

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scenario identifies one of the three parameter sets a projection carries.
type Scenario string

const (
	ScenarioStandard     Scenario = "standard"
	ScenarioConservative Scenario = "conservative"
	ScenarioOptimistic   Scenario = "optimistic"
)

// Scenarios lists every scenario in display order.
var Scenarios = []Scenario{ScenarioStandard, ScenarioConservative, ScenarioOptimistic}

// Locale codes understood by Label.
const (
	LocalePT = "pt"
	LocaleEN = "en"
)

var scenarioAliases = map[string]Scenario{
	"standard":     ScenarioStandard,
	"padrao":       ScenarioStandard,
	"padrão":       ScenarioStandard,
	"conservative": ScenarioConservative,
	"conservador":  ScenarioConservative,
	"optimistic":   ScenarioOptimistic,
	"otimista":     ScenarioOptimistic,
}

var scenarioLabels = map[Scenario]map[string]string{
	ScenarioStandard:     {LocalePT: "Padrão", LocaleEN: "Standard"},
	ScenarioConservative: {LocalePT: "Conservador", LocaleEN: "Conservative"},
	ScenarioOptimistic:   {LocalePT: "Otimista", LocaleEN: "Optimistic"},
}

// ParseScenario accepts the canonical key or its Portuguese name.
func ParseScenario(s string) (Scenario, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if sc, ok := scenarioAliases[key]; ok {
		return sc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScenario, s)
}

// Valid reports whether s is one of the canonical scenarios.
func (s Scenario) Valid() bool {
	_, ok := scenarioLabels[s]
	return ok
}

func (s Scenario) String() string {
	return string(s)
}

// Label returns the display name for the locale, falling back to Portuguese.
func (s Scenario) Label(locale string) string {
	labels, ok := scenarioLabels[s]
	if !ok {
		return string(s)
	}
	if l, ok := labels[normalizeLocale(locale)]; ok {
		return l
	}
	return labels[LocalePT]
}

// UnmarshalJSON accepts either language so stored payloads from older clients keep loading.
func (s *Scenario) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	sc, err := ParseScenario(raw)
	if err != nil {
		return err
	}
	*s = sc
	return nil
}

// UnmarshalText lets scenarios key JSON objects under any accepted alias.
func (s *Scenario) UnmarshalText(text []byte) error {
	sc, err := ParseScenario(string(text))
	if err != nil {
		return err
	}
	*s = sc
	return nil
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if strings.HasPrefix(locale, LocaleEN) {
		return LocaleEN
	}
	return LocalePT
}

// Strategy is an investment strategy evaluated for a projection.
type Strategy string

const (
	StrategyFutureSale        Strategy = "FUTURE_SALE"
	StrategyAssetAppreciation Strategy = "ASSET_APPRECIATION"
	StrategyRentalYield       Strategy = "RENTAL_YIELD"
)

// ParseStrategy accepts the canonical key in any case, with dashes or underscores.
func ParseStrategy(s string) (Strategy, error) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch Strategy(key) {
	case StrategyFutureSale, StrategyAssetAppreciation, StrategyRentalYield:
		return Strategy(key), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// StrategySet is the set of strategies selected for a projection.
type StrategySet []Strategy

// Has reports whether st is selected.
func (ss StrategySet) Has(st Strategy) bool {
	for _, s := range ss {
		if s == st {
			return true
		}
	}
	return false
}

// ParseStrategies parses and de-duplicates a list of strategy keys.
func ParseStrategies(keys []string) (StrategySet, error) {
	out := make(StrategySet, 0, len(keys))
	for _, k := range keys {
		st, err := ParseStrategy(k)
		if err != nil {
			return nil, err
		}
		if !out.Has(st) {
			out = append(out, st)
		}
	}
	return out, nil
}
