package models

import (
	"time"
)

// PublicReportLink is a shareable, unauthenticated link to a projection report
type PublicReportLink struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	PublicID         string     `gorm:"uniqueIndex:public_report_public_id_idx;not null" json:"public_id"`
	ProjectionID     uint       `gorm:"not null;index:public_report_projection_idx" json:"projection_id"`
	UserID           uint       `gorm:"not null;index:public_report_user_idx" json:"user_id"`
	Title            *string    `json:"title"`
	Description      *string    `gorm:"type:text" json:"description"`
	IsActive         bool       `gorm:"not null;default:true" json:"is_active"`
	ViewCount        int        `gorm:"not null;default:0" json:"view_count"`
	CreatorIP        string     `json:"-"`
	CreatorUserAgent string     `json:"-"`
	LastViewedAt     *time.Time `json:"last_viewed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        *time.Time `gorm:"index" json:"expires_at"`

	// Associations
	Projection Projection `gorm:"foreignKey:ProjectionID" json:"-"`
}

// TableName specifies the table name for PublicReportLink
func (PublicReportLink) TableName() string {
	return "public_report_links"
}

// IsExpired returns true if the link has an expiry in the past
func (l *PublicReportLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// IsAvailable returns true if the link can still be opened
func (l *PublicReportLink) IsAvailable(now time.Time) bool {
	return l.IsActive && !l.IsExpired(now)
}

// PublicReportLinkResponse is the JSON response format for share links
type PublicReportLinkResponse struct {
	PublicID     string     `json:"public_id"`
	URL          string     `json:"url"`
	ProjectionID uint       `json:"projection_id"`
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	IsActive     bool       `json:"is_active"`
	ViewCount    int        `json:"view_count"`
	LastViewedAt *time.Time `json:"last_viewed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// ToResponse converts PublicReportLink to PublicReportLinkResponse
func (l *PublicReportLink) ToResponse(url string) PublicReportLinkResponse {
	return PublicReportLinkResponse{
		PublicID:     l.PublicID,
		URL:          url,
		ProjectionID: l.ProjectionID,
		Title:        l.Title,
		Description:  l.Description,
		IsActive:     l.IsActive,
		ViewCount:    l.ViewCount,
		LastViewedAt: l.LastViewedAt,
		CreatedAt:    l.CreatedAt,
		ExpiresAt:    l.ExpiresAt,
	}
}

// PublicReportAccessLog records one visit to a public report
type PublicReportAccessLog struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	PublicReportLinkID uint      `gorm:"not null;index:access_log_public_report_link_idx" json:"public_report_link_id"`
	IP                 string    `gorm:"not null" json:"ip"`
	UserAgent          string    `gorm:"not null" json:"user_agent"`
	Browser            *string   `json:"browser"`
	DeviceType         *string   `json:"device_type"`
	OS                 *string   `gorm:"column:os" json:"os"`
	IsCreator          bool      `gorm:"not null;default:false;index:access_log_is_creator_idx" json:"is_creator"`
	AccessedAt         time.Time `gorm:"autoCreateTime;index:access_log_accessed_at_idx" json:"accessed_at"`
}

// TableName specifies the table name for PublicReportAccessLog
func (PublicReportAccessLog) TableName() string {
	return "public_report_access_logs"
}
