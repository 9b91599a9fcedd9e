package models

import (
	"time"
)

// FinancialIndex is one monthly reading of an economic index
type FinancialIndex struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	IndexType             string    `gorm:"not null;uniqueIndex:financial_index_type_month_idx,priority:1" json:"index_type"`
	Month                 string    `gorm:"not null;size:7;uniqueIndex:financial_index_type_month_idx,priority:2" json:"month"`
	Value                 float64   `gorm:"type:decimal(10,4);not null" json:"value"`
	ValueAnnualEquivalent float64   `gorm:"type:decimal(10,4);not null" json:"value_annual_equivalent"`
	Source                string    `gorm:"not null;default:bcb" json:"source"`
	CollectedAt           time.Time `json:"collected_at"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TableName specifies the table name for FinancialIndex
func (FinancialIndex) TableName() string {
	return "financial_indexes"
}

// Index type constants
const (
	IndexIPCA       = "ipca"
	IndexIGPM       = "igpm"
	IndexSelicMeta  = "selic_meta"
	IndexSelicAccum = "selic_acumulada"
	IndexCDI        = "cdi"
	IndexINCC       = "incc"
)

// IndexTypes lists every index the collector knows about.
var IndexTypes = []string{IndexIPCA, IndexIGPM, IndexSelicMeta, IndexSelicAccum, IndexCDI, IndexINCC}

// IsValidIndexType reports whether t is a known index type
func IsValidIndexType(t string) bool {
	for _, it := range IndexTypes {
		if it == t {
			return true
		}
	}
	return false
}
