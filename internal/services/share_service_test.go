package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/projection"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockLinkRepo struct {
	repository.PublicReportRepository
	links []*models.PublicReportLink
	views []*models.PublicReportAccessLog
}

func (m *mockLinkRepo) Create(ctx context.Context, link *models.PublicReportLink) error {
	link.ID = uint(len(m.links) + 1)
	m.links = append(m.links, link)
	return nil
}

func (m *mockLinkRepo) FindByPublicID(ctx context.Context, publicID string) (*models.PublicReportLink, error) {
	for _, l := range m.links {
		if l.PublicID == publicID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLinkRepo) FindActiveByProjection(ctx context.Context, projectionID uint) (*models.PublicReportLink, error) {
	for _, l := range m.links {
		if l.ProjectionID == projectionID && l.IsActive {
			return l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLinkRepo) DeactivateByProjection(ctx context.Context, projectionID uint) (int64, error) {
	var n int64
	for _, l := range m.links {
		if l.ProjectionID == projectionID && l.IsActive {
			l.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *mockLinkRepo) RecordView(ctx context.Context, linkID uint, entry *models.PublicReportAccessLog) error {
	m.views = append(m.views, entry)
	return nil
}

func (m *mockLinkRepo) AccessLogs(ctx context.Context, linkID uint, limit int) ([]models.PublicReportAccessLog, error) {
	var out []models.PublicReportAccessLog
	for _, v := range m.views {
		out = append(out, *v)
	}
	return out, nil
}

func (m *mockLinkRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, l := range m.links {
		if l.IsActive && l.IsExpired(now) {
			l.IsActive = false
			n++
		}
	}
	return n, nil
}

type shareFixture struct {
	svc      *ShareService
	links    *mockLinkRepo
	projects *mockProjectionRepo
	sender   *mockEmailSender
	now      time.Time
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	projects := newMockProjectionRepo()
	projects.items[1] = &models.Projection{
		ID:                 1,
		UserID:             10,
		Title:              "Studio Vila Mariana",
		Status:             models.ProjectionStatusPublished,
		Client:             models.Client{ID: 1, Name: "Ana Souza", Email: strPtr("ana@example.com")},
		Property:           models.Property{ID: 1, Name: "Edifício Aurora", City: strPtr("Curitiba")},
		CalculationResults: &projection.CalculationResults{PurchasePrice: 250000, ROI: 18.5},
	}
	projects.items[2] = &models.Projection{ID: 2, UserID: 10, Title: "Sem cálculo", Status: models.ProjectionStatusDraft}

	users := &mockUserRepo{mockFindByID: func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, FullName: "Carlos Corretor", Email: "carlos@roimob.com.br"}, nil
	}}
	sender := &mockEmailSender{}
	email := newTestEmailService(sender)
	links := &mockLinkRepo{}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewShareService(links, projects, users, email, NewAuditService(&mockAuditRepo{}), "https://app.roimob.com.br/", 30*24*time.Hour)
	svc.now = func() time.Time { return now }
	return &shareFixture{svc: svc, links: links, projects: projects, sender: sender, now: now}
}

var creator = ShareRequest{IP: "10.0.0.1", UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 Version/17.5 Safari/605.1.15"}

func TestShareService_ShareReusesActiveLink(t *testing.T) {
	f := newShareFixture(t)

	link, created, err := f.svc.Share(context.Background(), broker, 1, creator)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Studio Vila Mariana", *link.Title, "title defaults to the projection title")
	require.NotNil(t, link.ExpiresAt)
	assert.Equal(t, f.now.Add(30*24*time.Hour), *link.ExpiresAt)
	assert.Equal(t, "https://app.roimob.com.br/r/"+link.PublicID, f.svc.URL(link))

	again, created, err := f.svc.Share(context.Background(), broker, 1, creator)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, link.PublicID, again.PublicID)
	assert.Len(t, f.links.links, 1)
}

func TestShareService_ShareRequiresResults(t *testing.T) {
	f := newShareFixture(t)

	_, _, err := f.svc.Share(context.Background(), broker, 2, creator)
	assert.ErrorIs(t, err, ErrInvalidState)

	f.projects.items[1].Status = models.ProjectionStatusArchived
	_, _, err = f.svc.Share(context.Background(), broker, 1, creator)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, _, err = f.svc.Share(context.Background(), RequestMeta{UserID: 99}, 1, creator)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareService_ResolveCountsVisitorsButNotCreator(t *testing.T) {
	f := newShareFixture(t)
	link, _, err := f.svc.Share(context.Background(), broker, 1, creator)
	require.NoError(t, err)

	report, err := f.svc.Resolve(context.Background(), link.PublicID, Visitor{IP: creator.IP, UserAgent: creator.UserAgent})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Link.ViewCount)
	require.Len(t, f.links.views, 1)
	assert.True(t, f.links.views[0].IsCreator)

	report, err = f.svc.Resolve(context.Background(), link.PublicID, Visitor{
		IP:        "200.1.2.3",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 Version/17.5 Mobile/15E148 Safari/604.1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Link.ViewCount)
	assert.Equal(t, "Studio Vila Mariana", report.Projection.Title)

	visit := f.links.views[1]
	assert.False(t, visit.IsCreator)
	assert.Equal(t, "mobile", *visit.DeviceType)
	assert.Equal(t, "iOS", *visit.OS)
	assert.Equal(t, f.now, visit.AccessedAt)
}

func TestShareService_ResolveUnavailable(t *testing.T) {
	f := newShareFixture(t)
	link, _, err := f.svc.Share(context.Background(), broker, 1, creator)
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), "not-a-uuid", Visitor{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Resolve(context.Background(), "8f14e45f-ceea-467f-a0e6-1a2b3c4d5e6f", Visitor{})
	assert.ErrorIs(t, err, ErrNotFound)

	f.svc.now = func() time.Time { return f.now.Add(31 * 24 * time.Hour) }
	_, err = f.svc.Resolve(context.Background(), link.PublicID, Visitor{})
	assert.ErrorIs(t, err, ErrLinkUnavailable)

	n, err := f.svc.ExpireLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestShareService_Revoke(t *testing.T) {
	f := newShareFixture(t)
	link, _, err := f.svc.Share(context.Background(), broker, 1, creator)
	require.NoError(t, err)

	n, err := f.svc.Revoke(context.Background(), broker, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.svc.Resolve(context.Background(), link.PublicID, Visitor{})
	assert.ErrorIs(t, err, ErrLinkUnavailable)

	_, err = f.svc.Revoke(context.Background(), broker, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareService_Status(t *testing.T) {
	f := newShareFixture(t)
	link, _, err := f.svc.Share(context.Background(), broker, 1, creator)
	require.NoError(t, err)
	_, err = f.svc.Resolve(context.Background(), link.PublicID, Visitor{IP: "1.1.1.1", UserAgent: "curl/8"})
	require.NoError(t, err)

	got, logs, err := f.svc.Status(context.Background(), broker, 1)
	require.NoError(t, err)
	assert.Equal(t, link.PublicID, got.PublicID)
	assert.Len(t, logs, 1)
}

func TestShareService_SendByEmail(t *testing.T) {
	f := newShareFixture(t)

	link, err := f.svc.SendByEmail(context.Background(), broker, 1, creator, "Segue a projeção conversada")
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 1)

	sent := f.sender.sent[0]
	assert.Equal(t, []string{"ana@example.com"}, sent.To)
	assert.Equal(t, "carlos@roimob.com.br", sent.ReplyTo)
	assert.Contains(t, sent.Html, f.svc.URL(link))
	assert.Contains(t, sent.Html, "R$ 250.000,00")
	assert.Contains(t, sent.Html, "Segue a projeção conversada")
}

func TestShareService_SendByEmailFailures(t *testing.T) {
	f := newShareFixture(t)
	f.projects.items[1].Client.Email = nil
	_, err := f.svc.SendByEmail(context.Background(), broker, 1, creator, "")
	assert.ErrorIs(t, err, ErrNoRecipient)

	f = newShareFixture(t)
	f.sender.err = errors.New("provider down")
	_, err = f.svc.SendByEmail(context.Background(), broker, 1, creator, "")
	assert.Error(t, err)
}
