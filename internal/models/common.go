package models

import (
	"time"
)

// RefreshToken represents a JWT refresh token
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Token     string     `gorm:"uniqueIndex" json:"token"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Associations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for RefreshToken
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsExpired returns true if the refresh token has expired
func (r *RefreshToken) IsExpired() bool {
	if r.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*r.ExpiresAt)
}

// stringValue dereferences an optional text column.
func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// All returns every model managed by the API, in dependency order.
// Used by tests to build a throwaway schema.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Client{},
		&Property{},
		&Projection{},
		&ProjectionCalculation{},
		&PublicReportLink{},
		&PublicReportAccessLog{},
		&FinancialIndex{},
		&AuditLog{},
	}
}
