package models

import (
	"time"
)

// AuditLog represents a system audit entry
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:50;not null" json:"action"`
	Entity    string    `gorm:"size:50;not null;index:idx_audit_entity" json:"entity"`
	EntityID  uint      `gorm:"index:idx_audit_entity" json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Associations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditCreate      = "CREATE"
	AuditUpdate      = "UPDATE"
	AuditDelete      = "DELETE"
	AuditRecalculate = "RECALCULATE"
	AuditTransition  = "TRANSITION"
	AuditShare       = "SHARE"
	AuditRevoke      = "REVOKE"
	AuditCollect     = "COLLECT"
	AuditRegister    = "REGISTER"
	AuditPassword    = "CHANGE_PASSWORD"
	AuditResetPass   = "RESET_PASSWORD"
)

// Audited entities
const (
	EntityProjection = "Projection"
	EntityClient     = "Client"
	EntityProperty   = "Property"
	EntityReportLink = "PublicReportLink"
	EntityIndex      = "FinancialIndex"
	EntityUser       = "User"
)

// AuditLogResponse is the JSON response format for audit entries
type AuditLogResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  uint      `json:"entity_id"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts AuditLog to AuditLogResponse
func (a *AuditLog) ToResponse() AuditLogResponse {
	return AuditLogResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		UserName:  a.User.FullName,
		Action:    a.Action,
		Entity:    a.Entity,
		EntityID:  a.EntityID,
		Details:   a.Details,
		IPAddress: a.IPAddress,
		CreatedAt: a.CreatedAt,
	}
}
