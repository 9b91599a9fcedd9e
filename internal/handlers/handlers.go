package handlers

import (
	"github.com/sjperalta/roimob-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health     *HealthHandler
	Auth       *AuthHandler
	User       *UserHandler
	Dashboard  *DashboardHandler
	Projection *ProjectionHandler
	Client     *ClientHandler
	Property   *PropertyHandler
	Share      *ShareHandler
	Index      *IndexHandler
	Audit      *AuditHandler
	Job        *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(),
		Auth:       NewAuthHandler(svcs.Auth, svcs.User),
		User:       NewUserHandler(svcs.User),
		Dashboard:  NewDashboardHandler(svcs.Dashboard),
		Projection: NewProjectionHandler(svcs.Projection, svcs.Export, svcs.Report),
		Client:     NewClientHandler(svcs.Client),
		Property:   NewPropertyHandler(svcs.Property),
		Share:      NewShareHandler(svcs.Share, svcs.Report),
		Index:      NewIndexHandler(svcs.Index),
		Audit:      NewAuditHandler(svcs.Audit),
		Job:        NewJobHandler(svcs.Job),
	}
}
