package models

import (
	"time"

	"github.com/sjperalta/roimob-api/internal/projection"
)

// ProjectionCalculation is one persisted ledger month of a projection
type ProjectionCalculation struct {
	ID                   uint                `gorm:"primaryKey" json:"id"`
	ProjectionID         uint                `gorm:"not null;index:calculo_projection_idx" json:"projection_id"`
	Month                int                 `gorm:"column:mes;not null;index:calculo_mes_idx" json:"month"`
	Scenario             projection.Scenario `gorm:"column:scenario;not null;default:standard;index:calculo_scenario_idx" json:"scenario"`
	SaleMonth            int                 `gorm:"column:mes_da_venda;default:0" json:"sale_month"`
	CorrectionRate       float64             `gorm:"column:taxa_correcao;not null;default:0" json:"correction_rate"`
	CumulativeFactor     float64             `gorm:"column:taxa_acumulada;not null;default:1" json:"cumulative_factor"`
	DownPayment          float64             `gorm:"column:valor_entrada;not null;default:0" json:"down_payment"`
	BaseInstallment      float64             `gorm:"column:parcela_base;not null;default:0" json:"base_installment"`
	CorrectedInstallment float64             `gorm:"column:parcela_corrigida;not null;default:0" json:"corrected_installment"`
	BaseBoost            float64             `gorm:"column:reforco_base;not null;default:0" json:"base_boost"`
	CorrectedBoost       float64             `gorm:"column:reforco_corrigido;not null;default:0" json:"corrected_boost"`
	BaseKeys             float64             `gorm:"column:valor_chaves;not null;default:0" json:"base_keys"`
	CorrectedKeys        float64             `gorm:"column:chaves_corrigido;not null;default:0" json:"corrected_keys"`
	TotalPayment         float64             `gorm:"column:pagamento_total;not null;default:0" json:"total_payment"`
	NetPayment           float64             `gorm:"column:pagamento_total_liquido;not null;default:0" json:"net_payment"`
	RemainingBalance     float64             `gorm:"column:saldo_liquido;not null" json:"remaining_balance"`
	CorrectedBalance     float64             `gorm:"column:saldo_devedor_corrigido;not null" json:"corrected_balance"`
	CreatedAt            time.Time           `json:"created_at"`
}

// TableName specifies the table name for ProjectionCalculation
func (ProjectionCalculation) TableName() string {
	return "calculo_projecoes"
}

// NewProjectionCalculations maps ledger rows to persisted rows for one scenario.
func NewProjectionCalculations(projectionID uint, sc projection.Scenario, saleMonth int, rows []projection.LedgerRow) []ProjectionCalculation {
	out := make([]ProjectionCalculation, 0, len(rows))
	for _, r := range rows {
		out = append(out, ProjectionCalculation{
			ProjectionID:         projectionID,
			Month:                r.Month,
			Scenario:             sc,
			SaleMonth:            saleMonth,
			CorrectionRate:       r.CorrectionRate,
			CumulativeFactor:     r.CumulativeFactor,
			DownPayment:          r.DownPayment,
			BaseInstallment:      r.BaseInstallment,
			CorrectedInstallment: r.CorrectedInstallment,
			BaseBoost:            r.BaseBoost,
			CorrectedBoost:       r.CorrectedBoost,
			BaseKeys:             r.BaseKeys,
			CorrectedKeys:        r.CorrectedKeys,
			TotalPayment:         r.TotalPayment,
			NetPayment:           r.NetPayment,
			RemainingBalance:     r.RemainingBalance,
			CorrectedBalance:     r.CorrectedBalance,
		})
	}
	return out
}

// LedgerRow converts the persisted row back to the engine type.
func (c *ProjectionCalculation) LedgerRow() projection.LedgerRow {
	return projection.LedgerRow{
		Month:                c.Month,
		CorrectionRate:       c.CorrectionRate,
		CumulativeFactor:     c.CumulativeFactor,
		DownPayment:          c.DownPayment,
		BaseInstallment:      c.BaseInstallment,
		CorrectedInstallment: c.CorrectedInstallment,
		BaseBoost:            c.BaseBoost,
		CorrectedBoost:       c.CorrectedBoost,
		BaseKeys:             c.BaseKeys,
		CorrectedKeys:        c.CorrectedKeys,
		TotalPayment:         c.TotalPayment,
		NetPayment:           c.NetPayment,
		RemainingBalance:     c.RemainingBalance,
		CorrectedBalance:     c.CorrectedBalance,
	}
}

// LedgerRows converts persisted rows, already ordered by month.
func LedgerRows(calcs []ProjectionCalculation) []projection.LedgerRow {
	rows := make([]projection.LedgerRow, 0, len(calcs))
	for i := range calcs {
		rows = append(rows, calcs[i].LedgerRow())
	}
	return rows
}
