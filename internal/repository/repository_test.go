package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedOwner(t *testing.T, db *gorm.DB, email string) (*models.User, *models.Client, *models.Property) {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Email: email, EncryptedPassword: "x", FullName: "Corretor"}
	require.NoError(t, NewUserRepository(db).Create(ctx, user))

	client := &models.Client{UserID: user.ID, Name: "Ana Souza"}
	require.NoError(t, NewClientRepository(db).Create(ctx, client))

	property := &models.Property{UserID: user.ID, Name: "Residencial Aurora", Type: models.PropertyTypeApartment}
	require.NoError(t, NewPropertyRepository(db).Create(ctx, property))
	return user, client, property
}

func sampleProjection(t *testing.T, user *models.User, client *models.Client, property *models.Property) (*models.Projection, []models.ProjectionCalculation) {
	t.Helper()
	terms := projection.PurchaseTerms{
		ListPrice:             400000,
		DownPayment:           40000,
		DeliveryMonths:        12,
		PaymentMonths:         24,
		MonthlyCorrectionRate: 0.5,
		PlanKind:              projection.PlanAutomatic,
	}
	p := &models.Projection{
		UserID:         user.ID,
		ClientID:       client.ID,
		PropertyID:     property.ID,
		Title:          "Aurora 302",
		Status:         models.ProjectionStatusDraft,
		ActiveScenario: projection.ScenarioStandard,
		Strategies:     projection.StrategySet{projection.StrategyFutureSale},
	}
	p.SetTerms(terms)

	rows, err := projection.BuildLedger(terms)
	require.NoError(t, err)
	return p, models.NewProjectionCalculations(0, projection.ScenarioStandard, 12, rows)
}

func TestClientRepository_SequentialIDsPerUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewClientRepository(db)

	first, _, _ := seedOwner(t, db, "a@roimob.test")
	second, _, _ := seedOwner(t, db, "b@roimob.test")

	c := &models.Client{UserID: first.ID, Name: "Bruno"}
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, uint(2), c.UserSequentialID)

	other := &models.Client{UserID: second.ID, Name: "Carla"}
	require.NoError(t, repo.Create(ctx, other))
	assert.Equal(t, uint(2), other.UserSequentialID)

	_, err := repo.FindByID(ctx, second.ID, c.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestClientRepository_ListSearch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewClientRepository(db)
	user, _, _ := seedOwner(t, db, "a@roimob.test")
	require.NoError(t, repo.Create(ctx, &models.Client{UserID: user.ID, Name: "Bruno Lima"}))

	q := NewListQuery()
	q.Search = "bruno"
	clients, total, err := repo.List(ctx, user.ID, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, clients, 1)
	assert.Equal(t, "Bruno Lima", clients[0].Name)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	require.NoError(t, repo.Create(ctx, &models.User{Email: "dup@roimob.test", EncryptedPassword: "x", FullName: "A"}))
	err := repo.Create(ctx, &models.User{Email: "dup@roimob.test", EncryptedPassword: "x", FullName: "B"})
	assert.Error(t, err)
}

func TestProjectionRepository_CreateWithCalculations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProjectionRepository(db)
	user, client, property := seedOwner(t, db, "a@roimob.test")

	p, calcs := sampleProjection(t, user, client, property)
	require.NoError(t, repo.Create(ctx, p, calcs))
	assert.NotZero(t, p.ID)
	assert.Equal(t, uint(1), p.UserSequentialID)

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", stored.Client.Name)
	assert.Equal(t, "Residencial Aurora", stored.Property.Name)
	assert.Equal(t, projection.StrategySet{projection.StrategyFutureSale}, stored.Strategies)
	assert.InDelta(t, 400000, stored.ListPrice, 0.001)

	rows, err := repo.Calculations(ctx, p.ID, projection.ScenarioStandard)
	require.NoError(t, err)
	require.Len(t, rows, 25)
	assert.Equal(t, 0, rows[0].Month)
	assert.Equal(t, 24, rows[24].Month)
	assert.Equal(t, 12, rows[5].SaleMonth)
}

func TestProjectionRepository_ReplaceKeepsIDAndSwapsRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProjectionRepository(db)
	user, client, property := seedOwner(t, db, "a@roimob.test")

	p, calcs := sampleProjection(t, user, client, property)
	require.NoError(t, repo.Create(ctx, p, calcs))
	id := p.ID

	p.Title = "Aurora 302 revisado"
	terms := p.Terms()
	terms.PaymentMonths = 12
	p.SetTerms(terms)
	rows, err := projection.BuildLedger(terms)
	require.NoError(t, err)

	require.NoError(t, repo.Replace(ctx, p, models.NewProjectionCalculations(id, projection.ScenarioStandard, 6, rows)))

	stored, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Aurora 302 revisado", stored.Title)
	assert.Equal(t, 12, stored.PaymentMonths)
	assert.Equal(t, uint(1), stored.UserSequentialID)

	saved, err := repo.Calculations(ctx, id, "")
	require.NoError(t, err)
	assert.Len(t, saved, 13)
}

func TestProjectionRepository_ReplaceRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProjectionRepository(db)
	user, client, property := seedOwner(t, db, "a@roimob.test")

	p, calcs := sampleProjection(t, user, client, property)
	require.NoError(t, repo.Create(ctx, p, calcs))

	changed := *p
	changed.Title = "nunca salvo"
	broken := []models.ProjectionCalculation{
		{ID: 9999, Month: 0, Scenario: projection.ScenarioStandard},
		{ID: 9999, Month: 1, Scenario: projection.ScenarioStandard},
	}
	err := repo.Replace(ctx, &changed, broken)
	require.Error(t, err)

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aurora 302", stored.Title)

	rows, err := repo.Calculations(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Len(t, rows, 25)
}

func TestProjectionRepository_ReplaceMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewProjectionRepository(db)
	user, client, property := seedOwner(t, db, "a@roimob.test")

	p, calcs := sampleProjection(t, user, client, property)
	p.ID = 4242
	err := repo.Replace(context.Background(), p, calcs)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProjectionRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProjectionRepository(db)
	links := NewPublicReportRepository(db)
	user, client, property := seedOwner(t, db, "a@roimob.test")

	p, calcs := sampleProjection(t, user, client, property)
	require.NoError(t, repo.Create(ctx, p, calcs))

	link := &models.PublicReportLink{PublicID: "7b1f", ProjectionID: p.ID, UserID: user.ID, IsActive: true}
	require.NoError(t, links.Create(ctx, link))
	require.NoError(t, links.RecordView(ctx, link.ID, &models.PublicReportAccessLog{IP: "10.0.0.1", UserAgent: "curl"}))

	require.NoError(t, repo.Delete(ctx, p.ID))

	var count int64
	db.Model(&models.ProjectionCalculation{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.PublicReportLink{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.PublicReportAccessLog{}).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.Delete(ctx, p.ID), gorm.ErrRecordNotFound)
}

func TestProjectionRepository_DeleteCalculationsClearsResults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProjectionRepository(db)
	user, client, property := seedOwner(t, db, "a@roimob.test")

	p, calcs := sampleProjection(t, user, client, property)
	now := time.Now()
	p.CalculatedAt = &now
	p.CalculationResults = &projection.CalculationResults{Scenario: projection.ScenarioStandard}
	require.NoError(t, repo.Create(ctx, p, calcs))

	n, err := repo.DeleteCalculations(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CalculationResults)
	assert.Nil(t, stored.CalculatedAt)
}

func TestProjectionRepository_ListScopesByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProjectionRepository(db)
	u1, c1, p1 := seedOwner(t, db, "a@roimob.test")
	u2, c2, p2 := seedOwner(t, db, "b@roimob.test")

	a, ca := sampleProjection(t, u1, c1, p1)
	require.NoError(t, repo.Create(ctx, a, ca))
	b, cb := sampleProjection(t, u2, c2, p2)
	b.Title = "Outro"
	require.NoError(t, repo.Create(ctx, b, cb))

	list, total, err := repo.List(ctx, &ProjectionQuery{ListQuery: NewListQuery(), UserID: u1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana Souza", list[0].Client.Name)

	q := NewListQuery()
	q.Search = "outro"
	list, total, err = repo.List(ctx, &ProjectionQuery{ListQuery: q, IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestPublicReportRepository_ViewsAndExpiry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPublicReportRepository(db)

	past := time.Now().Add(-time.Hour)
	live := &models.PublicReportLink{PublicID: "live", ProjectionID: 1, UserID: 1, IsActive: true}
	stale := &models.PublicReportLink{PublicID: "stale", ProjectionID: 2, UserID: 1, IsActive: true, ExpiresAt: &past}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	require.NoError(t, repo.RecordView(ctx, live.ID, &models.PublicReportAccessLog{IP: "1.1.1.1", UserAgent: "x", IsCreator: true}))
	require.NoError(t, repo.RecordView(ctx, live.ID, &models.PublicReportAccessLog{IP: "2.2.2.2", UserAgent: "y", AccessedAt: time.Now()}))

	got, err := repo.FindByPublicID(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)
	assert.NotNil(t, got.LastViewedAt)

	logs, err := repo.AccessLogs(ctx, live.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	_, err = repo.FindActiveByProjection(ctx, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := repo.DeactivateExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeactivateByProjection(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFinancialIndexRepository_UpsertOverwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewFinancialIndexRepository(db)

	_, err := repo.Upsert(ctx, []models.FinancialIndex{
		{IndexType: models.IndexIPCA, Month: "2024-01", Value: 0.42, ValueAnnualEquivalent: 5.16, Source: "bcb"},
		{IndexType: models.IndexIPCA, Month: "2024-02", Value: 0.83, ValueAnnualEquivalent: 10.42, Source: "bcb"},
	})
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, []models.FinancialIndex{
		{IndexType: models.IndexIPCA, Month: "2024-02", Value: 0.80, ValueAnnualEquivalent: 10.03, Source: "bcb"},
	})
	require.NoError(t, err)

	var count int64
	db.Model(&models.FinancialIndex{}).Count(&count)
	assert.Equal(t, int64(2), count)

	latest, err := repo.Latest(ctx, models.IndexIPCA)
	require.NoError(t, err)
	assert.Equal(t, "2024-02", latest.Month)
	assert.InDelta(t, 0.80, latest.Value, 0.0001)

	rng, err := repo.Range(ctx, models.IndexIPCA, "2024-01", "2024-01")
	require.NoError(t, err)
	require.Len(t, rng, 1)

	_, err = repo.Latest(ctx, models.IndexCDI)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_SoftDeleteHidesUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	a, _, _ := seedOwner(t, db, "a@roimob.test")
	seedOwner(t, db, "b@roimob.test")

	require.NoError(t, repo.SoftDelete(ctx, a.ID))

	_, err := repo.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindByEmail(ctx, "A@roimob.test")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	users, total, err := repo.List(ctx, NewListQuery())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "b@roimob.test", users[0].Email)
}

func TestDashboardRepository_Counts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewDashboardRepository(db)
	projections := NewProjectionRepository(db)
	u1, c1, p1 := seedOwner(t, db, "a@roimob.test")
	u2, c2, p2 := seedOwner(t, db, "b@roimob.test")

	a, ca := sampleProjection(t, u1, c1, p1)
	a.CalculationResults = &projection.CalculationResults{ROI: 18}
	require.NoError(t, projections.Create(ctx, a, ca))
	b, cb := sampleProjection(t, u1, c1, p1)
	b.Status = models.ProjectionStatusPublished
	require.NoError(t, projections.Create(ctx, b, cb))
	c, cc := sampleProjection(t, u2, c2, p2)
	require.NoError(t, projections.Create(ctx, c, cc))

	n, err := repo.CountProjections(ctx, &u1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = repo.CountProjections(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = repo.CountClients(ctx, &u2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.CountProperties(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	results, err := repo.ProjectionResults(ctx, &u1.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	var withROI int
	for _, r := range results {
		assert.Equal(t, projection.StrategySet{projection.StrategyFutureSale}, r.Strategies)
		if r.CalculationResults != nil {
			assert.Equal(t, 18.0, r.CalculationResults.ROI)
			withROI++
		}
	}
	assert.Equal(t, 1, withROI)

	recent, err := repo.RecentProjections(ctx, &u1.ID, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Ana Souza", recent[0].Client.Name)

	byStatus, err := repo.ProjectionsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byStatus[models.ProjectionStatusDraft])
	assert.Equal(t, int64(1), byStatus[models.ProjectionStatusPublished])
	assert.Equal(t, int64(0), byStatus[models.ProjectionStatusArchived])

	perUser, err := repo.ProjectionCountsByUser(ctx, []uint{u1.ID, u2.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{u1.ID: 2, u2.ID: 1}, perUser)

	require.NoError(t, NewUserRepository(db).TouchLastActive(ctx, u2.ID))
	online, err := repo.CountUsersActiveSince(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), online)

	users, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), users.Total)
	assert.Equal(t, int64(2), users.Brokers)
	assert.Equal(t, int64(0), users.Admins)
}
