package services

import (
	"github.com/sjperalta/roimob-api/internal/config"
	"github.com/sjperalta/roimob-api/internal/jobs"
	"github.com/sjperalta/roimob-api/internal/projection"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/internal/storage"
)

// Services holds all service instances
type Services struct {
	Auth       *AuthService
	User       *UserService
	Dashboard  *DashboardService
	Projection *ProjectionService
	Client     *ClientService
	Property   *PropertyService
	Share      *ShareService
	Index      *IndexService
	Export     *ExportService
	Report     *ReportService
	Audit      *AuditService
	Email      *EmailService
	Job        *JobService
}

// NewServices creates all service instances. fetcher may be nil when index collection is disabled.
func NewServices(
	repos *repository.Repositories,
	worker *jobs.Worker,
	scheduler *jobs.Scheduler,
	store *storage.LocalStorage,
	cfg *config.Config,
	fetcher IndexFetcher,
) *Services {
	emailSvc := NewEmailService(cfg)
	auditSvc := NewAuditService(repos.Audit)
	engine := projection.NewEngine(cfg.Engine.Options())

	projectionSvc := NewProjectionService(repos.Projection, repos.Client, repos.Property, engine, auditSvc, worker)

	return &Services{
		Auth:       NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:       NewUserService(repos.User, repos.RefreshToken, repos.Dashboard, worker, emailSvc, auditSvc),
		Dashboard:  NewDashboardService(repos.Dashboard),
		Projection: projectionSvc,
		Client:     NewClientService(repos.Client, auditSvc),
		Property:   NewPropertyService(repos.Property, auditSvc),
		Share:      NewShareService(repos.PublicReport, repos.Projection, repos.User, emailSvc, auditSvc, cfg.PublicBaseURL, cfg.ShareLinkTTL),
		Index:      NewIndexService(repos.FinancialIndex, fetcher, projectionSvc, repos.User, emailSvc, auditSvc, cfg.Index),
		Export:     NewExportService(projectionSvc),
		Report:     NewReportService(projectionSvc, store, nil),
		Audit:      auditSvc,
		Email:      emailSvc,
		Job:        NewJobService(worker, scheduler),
	}
}
