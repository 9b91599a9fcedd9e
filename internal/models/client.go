package models

import (
	"time"
)

// Client is an investor a broker prepares projections for
type Client struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index:client_user_sequential_idx,priority:1" json:"user_id"`
	UserSequentialID uint      `gorm:"not null;index:client_user_sequential_idx,priority:2" json:"user_sequential_id"`
	Name             string    `gorm:"not null" json:"name"`
	Email            *string   `json:"email"`
	Phone            *string   `json:"phone"`
	Company          *string   `json:"company"`
	Notes            *string   `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Associations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for Client
func (Client) TableName() string {
	return "clients"
}

// HasEmail returns true if the client can receive shared reports
func (c *Client) HasEmail() bool {
	return stringValue(c.Email) != ""
}

// ClientResponse is the JSON response format for clients
type ClientResponse struct {
	ID               uint      `json:"id"`
	UserSequentialID uint      `json:"user_sequential_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Company          string    `json:"company"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
}

// ToResponse converts Client to ClientResponse
func (c *Client) ToResponse() ClientResponse {
	return ClientResponse{
		ID:               c.ID,
		UserSequentialID: c.UserSequentialID,
		Name:             c.Name,
		Email:            stringValue(c.Email),
		Phone:            stringValue(c.Phone),
		Company:          stringValue(c.Company),
		Notes:            stringValue(c.Notes),
		CreatedAt:        c.CreatedAt,
	}
}
