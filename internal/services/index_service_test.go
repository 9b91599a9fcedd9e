package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sjperalta/roimob-api/internal/config"
	"github.com/sjperalta/roimob-api/internal/integrations/bcb"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockIndexRepo struct {
	repository.FinancialIndexRepository
	latest   map[string]*models.FinancialIndex
	recent   map[string][]models.FinancialIndex
	upserted []models.FinancialIndex
}

func (m *mockIndexRepo) Latest(ctx context.Context, indexType string) (*models.FinancialIndex, error) {
	if idx, ok := m.latest[indexType]; ok {
		return idx, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockIndexRepo) Upsert(ctx context.Context, rows []models.FinancialIndex) (int64, error) {
	m.upserted = append(m.upserted, rows...)
	return int64(len(rows)), nil
}

func (m *mockIndexRepo) Recent(ctx context.Context, indexType string, months int) ([]models.FinancialIndex, error) {
	rows := m.recent[indexType]
	if len(rows) > months {
		rows = rows[:months]
	}
	return rows, nil
}

type mockFetcher struct {
	series    map[string][]bcb.Observation
	failing   map[string]bool
	requested map[string]int
}

func (m *mockFetcher) Latest(ctx context.Context, indexType string, n int) ([]bcb.Observation, error) {
	if m.requested == nil {
		m.requested = make(map[string]int)
	}
	m.requested[indexType] = n
	if m.failing[indexType] {
		return nil, errors.New("sgs unavailable")
	}
	obs := m.series[indexType]
	if len(obs) > n {
		obs = obs[len(obs)-n:]
	}
	return obs, nil
}

type mockRecalculator struct {
	calls map[string]float64
	out   []models.Projection
}

func (m *mockRecalculator) RecalculateIndexed(ctx context.Context, indexType string, rate float64) ([]models.Projection, error) {
	if m.calls == nil {
		m.calls = make(map[string]float64)
	}
	m.calls[indexType] = rate
	return m.out, nil
}

func newTestIndexService(repo *mockIndexRepo, fetcher *mockFetcher, recalc IndexRecalculator, cfg config.IndexConfig) *IndexService {
	svc := NewIndexService(repo, fetcher, recalc, nil, nil, nil, cfg)
	svc.now = func() time.Time { return time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestAnnualEquivalent(t *testing.T) {
	assert.InDelta(t, 12.6825, AnnualEquivalent(1), 0.0001)
	assert.InDelta(t, 0, AnnualEquivalent(0), 1e-12)
	assert.InDelta(t, 1, MonthlyEquivalent(AnnualEquivalent(1)), 1e-9)
}

func TestIndexService_CollectStoresAnnualEquivalents(t *testing.T) {
	repo := &mockIndexRepo{}
	fetcher := &mockFetcher{series: map[string][]bcb.Observation{
		models.IndexIPCA:      {{Month: "2025-01", Value: 0.16}, {Month: "2025-02", Value: 1.31}},
		models.IndexSelicMeta: {{Month: "2025-02", Value: 13.25}},
	}}
	svc := newTestIndexService(repo, fetcher, nil, config.IndexConfig{})

	results, err := svc.Collect(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, results[models.IndexIPCA].Fetched)
	assert.Equal(t, int64(2), results[models.IndexIPCA].Stored)
	assert.Equal(t, "2025-02", results[models.IndexIPCA].LatestMonth)
	assert.True(t, results[models.IndexIPCA].NewMonth)
	assert.Equal(t, 1, fetcher.requested[models.IndexSelicMeta], "selic meta keeps only its current value")

	byKey := map[string]models.FinancialIndex{}
	for _, row := range repo.upserted {
		byKey[row.IndexType+"/"+row.Month] = row
		assert.Equal(t, "bcb", row.Source)
	}
	assert.InDelta(t, AnnualEquivalent(1.31), byKey["ipca/2025-02"].ValueAnnualEquivalent, 1e-9)
	assert.Equal(t, 13.25, byKey["selic_meta/2025-02"].ValueAnnualEquivalent)
}

func TestIndexService_CollectToleratesPartialFailure(t *testing.T) {
	repo := &mockIndexRepo{}
	fetcher := &mockFetcher{
		series:  map[string][]bcb.Observation{models.IndexIGPM: {{Month: "2025-02", Value: 1.06}}},
		failing: map[string]bool{models.IndexIPCA: true},
	}
	svc := newTestIndexService(repo, fetcher, nil, config.IndexConfig{})

	results, err := svc.Collect(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, results[models.IndexIPCA].Error, "sgs unavailable")
	assert.Equal(t, int64(1), results[models.IndexIGPM].Stored)
}

func TestIndexService_CollectFailsWhenEverySeriesFails(t *testing.T) {
	failing := map[string]bool{}
	for _, it := range models.IndexTypes {
		failing[it] = true
	}
	svc := newTestIndexService(&mockIndexRepo{}, &mockFetcher{failing: failing}, nil, config.IndexConfig{})

	_, err := svc.Collect(context.Background(), 3)
	assert.Error(t, err)
}

func TestIndexService_RecalculatesOnlyOnNewMonth(t *testing.T) {
	repo := &mockIndexRepo{latest: map[string]*models.FinancialIndex{
		models.IndexIGPM: {IndexType: models.IndexIGPM, Month: "2025-02", Value: 1.06},
	}}
	fetcher := &mockFetcher{series: map[string][]bcb.Observation{
		models.IndexIPCA: {{Month: "2025-02", Value: 1.31}},
		models.IndexIGPM: {{Month: "2025-02", Value: 1.06}},
		models.IndexCDI:  {{Month: "2025-02", Value: 13.15}},
	}}
	recalc := &mockRecalculator{out: []models.Projection{{ID: 1, UserID: 7}}}
	svc := newTestIndexService(repo, fetcher, recalc, config.IndexConfig{RecalculateOnCollect: true})

	results, err := svc.Collect(context.Background(), 1)
	require.NoError(t, err)

	assert.InDelta(t, 1.31, recalc.calls[models.IndexIPCA], 1e-9)
	assert.Equal(t, 1, results[models.IndexIPCA].Recalculated)
	_, igpm := recalc.calls[models.IndexIGPM]
	assert.False(t, igpm, "an already stored month does not trigger recalculation")
	assert.InDelta(t, MonthlyEquivalent(13.15), recalc.calls[models.IndexCDI], 1e-9, "annual series are converted to a monthly rate")
}

func TestIndexService_Summary(t *testing.T) {
	repo := &mockIndexRepo{recent: map[string][]models.FinancialIndex{
		models.IndexIPCA: {
			{IndexType: models.IndexIPCA, Month: "2025-02", Value: 1.31, Source: "bcb"},
			{IndexType: models.IndexIPCA, Month: "2025-01", Value: 0.16, Source: "bcb"},
			{IndexType: models.IndexIPCA, Month: "2024-12", Value: 0.52, Source: "bcb"},
		},
		models.IndexSelicMeta: {
			{IndexType: models.IndexSelicMeta, Month: "2025-02", Value: 13.25, Source: "bcb"},
		},
	}}
	svc := newTestIndexService(repo, &mockFetcher{}, nil, config.IndexConfig{})

	summaries, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, len(models.IndexTypes))

	byType := map[string]IndexSummary{}
	for _, s := range summaries {
		byType[s.IndexType] = s
	}

	ipca := byType[models.IndexIPCA]
	assert.Equal(t, 3, ipca.DataCount)
	require.NotNil(t, ipca.Average)
	assert.Equal(t, 0.6633, *ipca.Average)
	assert.Equal(t, "2025-02", ipca.LastMonth.Month)
	assert.Nil(t, ipca.History)

	selic := byType[models.IndexSelicMeta]
	require.NotNil(t, selic.AnnualEquivalent)
	assert.Equal(t, 13.25, *selic.AnnualEquivalent)

	igpm := byType[models.IndexIGPM]
	assert.Zero(t, igpm.DataCount)
	assert.Nil(t, igpm.Average)
}

func TestIndexService_DetailAndSuggestedRate(t *testing.T) {
	repo := &mockIndexRepo{recent: map[string][]models.FinancialIndex{
		models.IndexIPCA: {
			{IndexType: models.IndexIPCA, Month: "2025-02", Value: 0.6},
			{IndexType: models.IndexIPCA, Month: "2025-01", Value: 0.4},
		},
	}}
	svc := newTestIndexService(repo, &mockFetcher{}, nil, config.IndexConfig{})

	detail, err := svc.Detail(context.Background(), " IPCA ")
	require.NoError(t, err)
	require.Len(t, detail.History, 2)
	assert.Equal(t, "2025-01", detail.History[0].Month, "history is oldest first")

	rate, err := svc.SuggestedRate(context.Background(), "ipca")
	require.NoError(t, err)
	assert.Equal(t, 0.5, rate)

	_, err = svc.SuggestedRate(context.Background(), models.IndexINCC)
	assert.ErrorIs(t, err, ErrNoIndexData)

	_, err = svc.Detail(context.Background(), "poupanca")
	assert.ErrorIs(t, err, ErrInvalidIndexType)
}

func TestIndexService_SeriesValidatesMonths(t *testing.T) {
	svc := newTestIndexService(&mockIndexRepo{}, &mockFetcher{}, nil, config.IndexConfig{})

	_, err := svc.Series(context.Background(), "ipca", "2025-13", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Series(context.Background(), "tr", "", "")
	assert.ErrorIs(t, err, ErrInvalidIndexType)
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 0.6633, round4(1.99/3))
	assert.False(t, math.IsNaN(round4(0)))
}
