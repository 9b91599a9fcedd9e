package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/pkg/logger"
	"gorm.io/gorm"
)

const accessLogLimit = 100

// ShareService manages public report links and their access logs
type ShareService struct {
	links       repository.PublicReportRepository
	projections repository.ProjectionRepository
	users       repository.UserRepository
	email       *EmailService
	audit       *AuditService
	baseURL     string
	ttl         time.Duration
	now         func() time.Time
}

func NewShareService(
	links repository.PublicReportRepository,
	projections repository.ProjectionRepository,
	users repository.UserRepository,
	email *EmailService,
	audit *AuditService,
	baseURL string,
	ttl time.Duration,
) *ShareService {
	return &ShareService{
		links:       links,
		projections: projections,
		users:       users,
		email:       email,
		audit:       audit,
		baseURL:     strings.TrimRight(baseURL, "/"),
		ttl:         ttl,
		now:         time.Now,
	}
}

// ShareRequest carries the optional link texts and the creator's fingerprint
type ShareRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IP          string  `json:"-"`
	UserAgent   string  `json:"-"`
}

// Visitor identifies whoever opens a public report
type Visitor struct {
	IP         string
	UserAgent  string
	Browser    string
	DeviceType string
	OS         string
}

// PublicReport is what an unauthenticated visitor gets for a public id
type PublicReport struct {
	Link       *models.PublicReportLink
	Projection *models.Projection
}

// URL returns the public address of a link
func (s *ShareService) URL(link *models.PublicReportLink) string {
	return fmt.Sprintf("%s/r/%s", s.baseURL, link.PublicID)
}

// Share returns the projection's active link, creating one when none exists.
// The bool is true when a new link was created.
func (s *ShareService) Share(ctx context.Context, meta RequestMeta, projectionID uint, req ShareRequest) (*models.PublicReportLink, bool, error) {
	p, err := s.shareable(ctx, meta, projectionID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.links.FindActiveByProjection(ctx, p.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	title := req.Title
	if title == nil || strings.TrimSpace(*title) == "" {
		title = &p.Title
	}
	link := &models.PublicReportLink{
		PublicID:         uuid.NewString(),
		ProjectionID:     p.ID,
		UserID:           p.UserID,
		Title:            title,
		Description:      trimOptional(req.Description),
		IsActive:         true,
		CreatorIP:        req.IP,
		CreatorUserAgent: req.UserAgent,
	}
	if s.ttl > 0 {
		expires := s.now().Add(s.ttl)
		link.ExpiresAt = &expires
	}

	if err := s.links.Create(ctx, link); err != nil {
		return nil, false, fmt.Errorf("failed to create share link: %w", err)
	}
	s.audit.Log(ctx, meta, models.AuditShare, models.EntityReportLink, link.ID,
		map[string]interface{}{"projection_id": p.ID, "public_id": link.PublicID})
	return link, true, nil
}

// Status returns the active link of a projection with its latest visits
func (s *ShareService) Status(ctx context.Context, meta RequestMeta, projectionID uint) (*models.PublicReportLink, []models.PublicReportAccessLog, error) {
	if _, err := s.owned(ctx, meta, projectionID); err != nil {
		return nil, nil, err
	}
	link, err := s.links.FindActiveByProjection(ctx, projectionID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	logs, err := s.links.AccessLogs(ctx, link.ID, accessLogLimit)
	if err != nil {
		return nil, nil, err
	}
	return link, logs, nil
}

// Revoke deactivates every active link of the projection
func (s *ShareService) Revoke(ctx context.Context, meta RequestMeta, projectionID uint) (int64, error) {
	if _, err := s.owned(ctx, meta, projectionID); err != nil {
		return 0, err
	}
	n, err := s.links.DeactivateByProjection(ctx, projectionID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	s.audit.Log(ctx, meta, models.AuditRevoke, models.EntityProjection, projectionID,
		fmt.Sprintf("%d link(s) desativado(s)", n))
	return n, nil
}

// Resolve opens a public report and records the visit. Inactive or expired links,
// and links to archived projections, are unavailable.
func (s *ShareService) Resolve(ctx context.Context, publicID string, visitor Visitor) (*PublicReport, error) {
	if _, err := uuid.Parse(publicID); err != nil {
		return nil, ErrNotFound
	}
	link, err := s.links.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, notFound(err)
	}
	if !link.IsAvailable(s.now()) {
		return nil, ErrLinkUnavailable
	}

	p, err := s.projections.FindByID(ctx, link.ProjectionID)
	if err != nil {
		return nil, notFound(err)
	}
	if p.Status == models.ProjectionStatusArchived || p.CalculationResults == nil {
		return nil, ErrLinkUnavailable
	}

	entry := newAccessLog(link, visitor)
	entry.AccessedAt = s.now()
	if err := s.links.RecordView(ctx, link.ID, entry); err != nil {
		logger.Warn("failed to record report view", "public_id", publicID, "error", err)
	} else if !entry.IsCreator {
		link.ViewCount++
		link.LastViewedAt = &entry.AccessedAt
	}

	return &PublicReport{Link: link, Projection: p}, nil
}

// SendByEmail emails the projection's link to its client, creating the link if needed
func (s *ShareService) SendByEmail(ctx context.Context, meta RequestMeta, projectionID uint, req ShareRequest, message string) (*models.PublicReportLink, error) {
	p, err := s.shareable(ctx, meta, projectionID)
	if err != nil {
		return nil, err
	}
	if !p.Client.HasEmail() {
		return nil, ErrNoRecipient
	}

	link, _, err := s.Share(ctx, meta, projectionID, req)
	if err != nil {
		return nil, err
	}

	broker, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err)
	}

	data := ShareLinkEmail{
		ClientName:   p.Client.Name,
		BrokerName:   broker.FullName,
		BrokerEmail:  broker.Email,
		Title:        p.Title,
		PropertyName: p.Property.Name,
		Location:     p.Property.Location(),
		URL:          s.URL(link),
		Message:      strings.TrimSpace(message),
	}
	if r := p.CalculationResults; r != nil {
		data.PurchasePrice = FormatBRL(r.PurchasePrice)
		data.ROI = FormatPercent(r.ROI)
	}
	if link.ExpiresAt != nil {
		data.ExpiresAt = link.ExpiresAt.Format("02/01/2006")
	}

	if err := s.email.SendShareLink(ctx, *p.Client.Email, data); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, meta, models.AuditShare, models.EntityReportLink, link.ID,
		map[string]interface{}{"projection_id": p.ID, "email": *p.Client.Email})
	return link, nil
}

// ExpireLinks deactivates links past their expiry. Run periodically by the worker.
func (s *ShareService) ExpireLinks(ctx context.Context) (int64, error) {
	n, err := s.links.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("expired public report links deactivated", "count", n)
	}
	return n, nil
}

func (s *ShareService) owned(ctx context.Context, meta RequestMeta, projectionID uint) (*models.Projection, error) {
	p, err := s.projections.FindByID(ctx, projectionID)
	if err != nil {
		return nil, notFound(err)
	}
	if !canAccess(meta, p.UserID) {
		return nil, ErrNotFound
	}
	return p, nil
}

// shareable loads an owned projection that has results and is not archived
func (s *ShareService) shareable(ctx context.Context, meta RequestMeta, projectionID uint) (*models.Projection, error) {
	p, err := s.owned(ctx, meta, projectionID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.ProjectionStatusArchived {
		return nil, fmt.Errorf("%w: projeção arquivada não pode ser compartilhada", ErrInvalidState)
	}
	if p.CalculationResults == nil {
		return nil, fmt.Errorf("%w: projeção sem cálculos", ErrInvalidState)
	}
	return p, nil
}

// newAccessLog builds the visit entry. Details the browser reported win over
// what can be read from the user agent.
func newAccessLog(link *models.PublicReportLink, v Visitor) *models.PublicReportAccessLog {
	browser, device, os := classifyUserAgent(v.UserAgent)
	if v.Browser != "" {
		browser = v.Browser
	}
	if v.DeviceType != "" {
		device = v.DeviceType
	}
	if v.OS != "" {
		os = v.OS
	}

	return &models.PublicReportAccessLog{
		PublicReportLinkID: link.ID,
		IP:                 v.IP,
		UserAgent:          v.UserAgent,
		Browser:            optional(browser),
		DeviceType:         optional(device),
		OS:                 optional(os),
		IsCreator:          v.IP == link.CreatorIP && v.UserAgent == link.CreatorUserAgent,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
