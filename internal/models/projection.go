package models

import (
	"time"

	"github.com/sjperalta/roimob-api/internal/projection"
)

// Projection is a saved investment projection for a client and a property.
// Column names follow the legacy Portuguese schema.
type Projection struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	UserID           uint   `gorm:"column:usuario_id;not null;index:projection_user_idx" json:"user_id"`
	UserSequentialID uint   `gorm:"column:user_sequential_id;not null" json:"user_sequential_id"`
	ClientID         uint   `gorm:"column:cliente_id;not null;index:projection_client_idx" json:"client_id"`
	PropertyID       uint   `gorm:"column:imovel_id;not null;index:projection_property_idx" json:"property_id"`
	Title            string `gorm:"column:titulo;not null" json:"title"`
	Status           string `gorm:"default:draft;index" json:"status"`

	// Purchase terms
	ListPrice              float64                    `gorm:"column:valor_tabela;type:decimal(14,2);not null" json:"list_price"`
	Discount               float64                    `gorm:"column:valor_desconto;type:decimal(14,2);default:0" json:"discount"`
	DownPayment            float64                    `gorm:"column:valor_entrada;type:decimal(14,2);not null" json:"down_payment"`
	DeliveryMonths         int                        `gorm:"column:prazo_entrega;not null" json:"delivery_months"`
	PaymentMonths          int                        `gorm:"column:prazo_pagamento;not null" json:"payment_months"`
	MonthlyCorrection      float64                    `gorm:"column:correcao_mensal;type:decimal(8,4);not null" json:"monthly_correction"`
	CorrectionIndex        *string                    `gorm:"column:indice_correcao" json:"correction_index"`
	PostDeliveryCorrection float64                    `gorm:"column:correcao_apos_entrega;type:decimal(8,4);default:0" json:"post_delivery_correction"`
	PostDeliveryIndex      *string                    `gorm:"column:indice_correcao_apos_chaves" json:"post_delivery_index"`
	HasBoosts              bool                       `gorm:"column:tem_reforcos;default:false" json:"has_boosts"`
	BoostFrequency         string                     `gorm:"column:frequencia_reforcos" json:"boost_frequency"`
	BoostValue             float64                    `gorm:"column:valor_reforco;type:decimal(14,2);default:0" json:"boost_value"`
	HasKeys                bool                       `gorm:"column:tem_chaves;default:false" json:"has_keys"`
	KeysValue              float64                    `gorm:"column:valor_chaves;type:decimal(14,2);default:0" json:"keys_value"`
	PlanKind               string                     `gorm:"column:tipo_parcelamento;default:automatic" json:"plan_kind"`
	CustomPayments         []projection.CustomPayment `gorm:"column:parcelas_personalizadas;serializer:json;type:jsonb" json:"custom_payments"`

	// Strategies and scenarios
	Strategies           projection.StrategySet         `gorm:"column:estrategias;serializer:json;type:jsonb;not null" json:"strategies"`
	ActiveScenario       projection.Scenario            `gorm:"column:cenario_ativo;default:standard" json:"active_scenario"`
	StandardScenario     *projection.ScenarioParameters `gorm:"column:cenario_padrao;serializer:json;type:jsonb" json:"standard_scenario"`
	ConservativeScenario *projection.ScenarioParameters `gorm:"column:cenario_conservador;serializer:json;type:jsonb" json:"conservative_scenario"`
	OptimisticScenario   *projection.ScenarioParameters `gorm:"column:cenario_otimista;serializer:json;type:jsonb" json:"optimistic_scenario"`

	// Holding costs shown on the report
	FurnishingCosts float64 `gorm:"column:custos_mobilia;type:decimal(14,2);default:0" json:"furnishing_costs"`
	CondoFees       float64 `gorm:"column:taxa_condominio;type:decimal(14,2);default:0" json:"condo_fees"`
	PropertyTax     float64 `gorm:"column:iptu;type:decimal(14,2);default:0" json:"property_tax"`

	CalculationResults *projection.CalculationResults `gorm:"column:resultados_calculo;serializer:json;type:jsonb" json:"calculation_results"`
	CalculatedAt       *time.Time                     `gorm:"column:data_calculo" json:"calculated_at"`
	PublishedAt        *time.Time                     `gorm:"column:data_publicacao" json:"published_at"`
	ArchivedAt         *time.Time                     `gorm:"column:data_arquivamento" json:"archived_at"`
	CreatedAt          time.Time                      `gorm:"column:data_criacao" json:"created_at"`
	UpdatedAt          time.Time                      `gorm:"column:data_atualizacao" json:"updated_at"`

	// Associations
	Client       Client                  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Property     Property                `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Calculations []ProjectionCalculation `gorm:"foreignKey:ProjectionID" json:"calculations,omitempty"`
}

// TableName specifies the table name for Projection
func (Projection) TableName() string {
	return "projections"
}

// Projection status constants
const (
	ProjectionStatusDraft     = "draft"
	ProjectionStatusPublished = "published"
	ProjectionStatusArchived  = "archived"
)

// MayPublish returns true if the projection can be published
func (p *Projection) MayPublish() bool {
	return p.Status == ProjectionStatusDraft && p.CalculationResults != nil
}

// MayArchive returns true if the projection can be archived
func (p *Projection) MayArchive() bool {
	return p.Status == ProjectionStatusDraft || p.Status == ProjectionStatusPublished
}

// MayRestore returns true if the projection can go back to draft
func (p *Projection) MayRestore() bool {
	return p.Status == ProjectionStatusArchived
}

// IsEditable returns true while the inputs may still change
func (p *Projection) IsEditable() bool {
	return p.Status != ProjectionStatusArchived
}

// Terms rebuilds the engine purchase terms from the stored columns.
func (p *Projection) Terms() projection.PurchaseTerms {
	t := projection.PurchaseTerms{
		ListPrice:                  p.ListPrice,
		Discount:                   p.Discount,
		DownPayment:                p.DownPayment,
		DeliveryMonths:             p.DeliveryMonths,
		PaymentMonths:              p.PaymentMonths,
		MonthlyCorrectionRate:      p.MonthlyCorrection,
		PostDeliveryCorrectionRate: p.PostDeliveryCorrection,
		PlanKind:                   projection.PlanKind(p.PlanKind),
		CustomPayments:             p.CustomPayments,
	}
	if p.HasBoosts && p.BoostValue > 0 {
		t.Boost = &projection.Boost{Periodicity: projection.Periodicity(p.BoostFrequency), Value: p.BoostValue}
	}
	if p.HasKeys && p.KeysValue > 0 {
		t.Keys = &projection.Keys{Value: p.KeysValue}
	}
	return t
}

// SetTerms copies purchase terms into the columns.
func (p *Projection) SetTerms(t projection.PurchaseTerms) {
	p.ListPrice = t.ListPrice
	p.Discount = t.Discount
	p.DownPayment = t.DownPayment
	p.DeliveryMonths = t.DeliveryMonths
	p.PaymentMonths = t.PaymentMonths
	p.MonthlyCorrection = t.MonthlyCorrectionRate
	p.PostDeliveryCorrection = t.PostDeliveryCorrectionRate
	p.PlanKind = string(t.PlanKind)
	if p.PlanKind == "" {
		p.PlanKind = string(projection.PlanAutomatic)
	}
	p.CustomPayments = t.CustomPayments

	p.HasBoosts, p.BoostFrequency, p.BoostValue = false, "", 0
	if t.Boost != nil && t.Boost.Value > 0 {
		p.HasBoosts = true
		p.BoostFrequency = string(t.Boost.Periodicity)
		p.BoostValue = t.Boost.Value
	}
	p.HasKeys, p.KeysValue = false, 0
	if t.Keys != nil && t.Keys.Value > 0 {
		p.HasKeys = true
		p.KeysValue = t.Keys.Value
	}
}

// Scenarios returns the stored scenario parameters. Scenarios never saved are left out.
func (p *Projection) Scenarios() map[projection.Scenario]projection.ScenarioParameters {
	out := make(map[projection.Scenario]projection.ScenarioParameters, 3)
	if p.StandardScenario != nil {
		out[projection.ScenarioStandard] = *p.StandardScenario
	}
	if p.ConservativeScenario != nil {
		out[projection.ScenarioConservative] = *p.ConservativeScenario
	}
	if p.OptimisticScenario != nil {
		out[projection.ScenarioOptimistic] = *p.OptimisticScenario
	}
	return out
}

// SetScenarios stores scenario parameters. Keys must already be canonical.
func (p *Projection) SetScenarios(m map[projection.Scenario]projection.ScenarioParameters) {
	p.StandardScenario, p.ConservativeScenario, p.OptimisticScenario = nil, nil, nil
	for sc, params := range m {
		params := params
		switch sc {
		case projection.ScenarioStandard:
			p.StandardScenario = &params
		case projection.ScenarioConservative:
			p.ConservativeScenario = &params
		case projection.ScenarioOptimistic:
			p.OptimisticScenario = &params
		}
	}
}

// EngineInput assembles everything the engine needs from the row.
func (p *Projection) EngineInput() projection.Input {
	return projection.Input{
		Terms:          p.Terms(),
		Scenarios:      p.Scenarios(),
		Strategies:     p.Strategies,
		ActiveScenario: p.ActiveScenario,
	}
}

// ProjectionResponse is the JSON response format for projections
type ProjectionResponse struct {
	ID                  uint                                     `json:"id"`
	UserSequentialID    uint                                     `json:"user_sequential_id"`
	Title               string                                   `json:"title"`
	Status              string                                   `json:"status"`
	Client              *ClientResponse                          `json:"client,omitempty"`
	Property            *PropertyResponse                        `json:"property,omitempty"`
	Terms               projection.PurchaseTerms                 `json:"terms"`
	CorrectionIndex     *string                                  `json:"correction_index"`
	PostDeliveryIndex   *string                                  `json:"post_delivery_index"`
	Strategies          projection.StrategySet                   `json:"strategies"`
	ActiveScenario      projection.Scenario                      `json:"active_scenario"`
	ActiveScenarioLabel string                                   `json:"active_scenario_label"`
	Scenarios           map[projection.Scenario]ScenarioResponse `json:"scenarios"`
	FurnishingCosts     float64                                  `json:"furnishing_costs"`
	CondoFees           float64                                  `json:"condo_fees"`
	PropertyTax         float64                                  `json:"property_tax"`
	Results             *projection.CalculationResults           `json:"calculation_results"`
	CalculatedAt        *time.Time                               `json:"calculated_at"`
	PublishedAt         *time.Time                               `json:"published_at"`
	CreatedAt           time.Time                                `json:"created_at"`
	UpdatedAt           time.Time                                `json:"updated_at"`
}

// ScenarioResponse pairs scenario parameters with their display label.
type ScenarioResponse struct {
	Label      string                        `json:"label"`
	Parameters projection.ScenarioParameters `json:"parameters"`
}

// ToResponse converts Projection to ProjectionResponse. Scenario labels use the given locale.
func (p *Projection) ToResponse(locale string) ProjectionResponse {
	resp := ProjectionResponse{
		ID:                  p.ID,
		UserSequentialID:    p.UserSequentialID,
		Title:               p.Title,
		Status:              p.Status,
		Terms:               p.Terms(),
		CorrectionIndex:     p.CorrectionIndex,
		PostDeliveryIndex:   p.PostDeliveryIndex,
		Strategies:          p.Strategies,
		ActiveScenario:      p.ActiveScenario,
		ActiveScenarioLabel: p.ActiveScenario.Label(locale),
		Scenarios:           make(map[projection.Scenario]ScenarioResponse, 3),
		FurnishingCosts:     p.FurnishingCosts,
		CondoFees:           p.CondoFees,
		PropertyTax:         p.PropertyTax,
		Results:             p.CalculationResults,
		CalculatedAt:        p.CalculatedAt,
		PublishedAt:         p.PublishedAt,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	for sc, params := range p.Scenarios() {
		resp.Scenarios[sc] = ScenarioResponse{Label: sc.Label(locale), Parameters: params}
	}
	if p.Client.ID != 0 {
		c := p.Client.ToResponse()
		resp.Client = &c
	}
	if p.Property.ID != 0 {
		pr := p.Property.ToResponse()
		resp.Property = &pr
	}
	return resp
}
