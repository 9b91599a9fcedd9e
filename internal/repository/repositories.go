package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User           UserRepository
	RefreshToken   RefreshTokenRepository
	Client         ClientRepository
	Property       PropertyRepository
	Projection     ProjectionRepository
	PublicReport   PublicReportRepository
	FinancialIndex FinancialIndexRepository
	Audit          AuditRepository
	Dashboard      DashboardRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		RefreshToken:   NewRefreshTokenRepository(db),
		Client:         NewClientRepository(db),
		Property:       NewPropertyRepository(db),
		Projection:     NewProjectionRepository(db),
		PublicReport:   NewPublicReportRepository(db),
		FinancialIndex: NewFinancialIndexRepository(db),
		Audit:          NewAuditRepository(db),
		Dashboard:      NewDashboardRepository(db),
	}
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// apply adds ordering and pagination. SortBy is looked up in allowed so
// callers never interpolate request input into ORDER BY.
func (q *ListQuery) apply(db *gorm.DB, defaultSort string, allowed map[string]string) *gorm.DB {
	order := defaultSort + " DESC"
	if col, ok := allowed[q.SortBy]; ok {
		order = col
		if q.SortDir == "desc" {
			order += " DESC"
		}
	}
	db = db.Order(order)

	if q.PerPage > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		db = db.Offset((page - 1) * q.PerPage).Limit(q.PerPage)
	}
	return db
}
