package models

import (
	"time"
)

// Property is a real estate unit offered to clients
type Property struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index:property_user_sequential_idx,priority:1" json:"user_id"`
	UserSequentialID uint      `gorm:"not null;index:property_user_sequential_idx,priority:2" json:"user_sequential_id"`
	Name             string    `gorm:"not null" json:"name"`
	Type             string    `gorm:"not null" json:"type"`
	Unit             *string   `json:"unit"`
	Area             *float64  `gorm:"type:decimal(12,2)" json:"area"`
	Description      *string   `gorm:"type:text" json:"description"`
	WebsiteURL       *string   `gorm:"column:website_url" json:"website_url"`
	Address          *string   `json:"address"`
	Neighborhood     *string   `json:"neighborhood"`
	City             *string   `json:"city"`
	State            *string   `json:"state"`
	ZipCode          *string   `json:"zip_code"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Associations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for Property
func (Property) TableName() string {
	return "properties"
}

// Property type constants
const (
	PropertyTypeApartment  = "apartment"
	PropertyTypeHouse      = "house"
	PropertyTypeCommercial = "commercial"
	PropertyTypeLand       = "land"
)

// Location joins the address parts that are set, e.g. "Rua A, 10 - Centro, Curitiba/PR".
func (p *Property) Location() string {
	loc := stringValue(p.Address)
	if n := stringValue(p.Neighborhood); n != "" {
		if loc != "" {
			loc += " - "
		}
		loc += n
	}
	city := stringValue(p.City)
	if st := stringValue(p.State); st != "" {
		if city != "" {
			city += "/"
		}
		city += st
	}
	if city != "" {
		if loc != "" {
			loc += ", "
		}
		loc += city
	}
	return loc
}

// PropertyResponse is the JSON response format for properties
type PropertyResponse struct {
	ID               uint      `json:"id"`
	UserSequentialID uint      `json:"user_sequential_id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Unit             *string   `json:"unit"`
	Area             *float64  `json:"area"`
	Description      *string   `json:"description"`
	WebsiteURL       *string   `json:"website_url"`
	Address          *string   `json:"address"`
	Neighborhood     *string   `json:"neighborhood"`
	City             *string   `json:"city"`
	State            *string   `json:"state"`
	ZipCode          *string   `json:"zip_code"`
	Location         string    `json:"location"`
	CreatedAt        time.Time `json:"created_at"`
}

// ToResponse converts Property to PropertyResponse
func (p *Property) ToResponse() PropertyResponse {
	return PropertyResponse{
		ID:               p.ID,
		UserSequentialID: p.UserSequentialID,
		Name:             p.Name,
		Type:             p.Type,
		Unit:             p.Unit,
		Area:             p.Area,
		Description:      p.Description,
		WebsiteURL:       p.WebsiteURL,
		Address:          p.Address,
		Neighborhood:     p.Neighborhood,
		City:             p.City,
		State:            p.State,
		ZipCode:          p.ZipCode,
		Location:         p.Location(),
		CreatedAt:        p.CreatedAt,
	}
}
