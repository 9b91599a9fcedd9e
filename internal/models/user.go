package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a broker or administrator account
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	EncryptedPassword string     `gorm:"column:encrypted_password;not null" json:"-"`
	FullName          string     `gorm:"not null" json:"full_name"`
	Company           *string    `json:"company"`
	Phone             string     `json:"phone"`
	Role              string     `gorm:"default:broker" json:"role"`
	Status            string     `gorm:"default:active" json:"status"`
	Locale            string     `gorm:"default:pt" json:"locale"`
	LastActiveAt      *time.Time `json:"last_active_at"`
	DiscardedAt       *time.Time `gorm:"index" json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Associations
	Clients     []Client     `gorm:"foreignKey:UserID" json:"clients,omitempty"`
	Projections []Projection `gorm:"foreignKey:UserID" json:"projections,omitempty"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook for setting defaults
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleBroker
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	if u.Locale == "" {
		u.Locale = LocalePT
	}
	return nil
}

// IsAdmin returns true if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive returns true if user status is active
func (u *User) IsActive() bool {
	return u.Status == StatusActive && u.DiscardedAt == nil
}

// Role constants
const (
	RoleAdmin  = "admin"
	RoleBroker = "broker"
)

// Status constants
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Locale constants
const (
	LocalePT = "pt"
	LocaleEN = "en"
)

// UserResponse is the JSON response format for users
type UserResponse struct {
	ID           uint       `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Company      *string    `json:"company"`
	Phone        string     `json:"phone"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	Locale       string     `json:"locale"`
	LastActiveAt *time.Time `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Company:      u.Company,
		Phone:        u.Phone,
		Role:         u.Role,
		Status:       u.Status,
		Locale:       u.Locale,
		LastActiveAt: u.LastActiveAt,
		CreatedAt:    u.CreatedAt,
	}
}
