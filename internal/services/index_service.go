package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sjperalta/roimob-api/internal/config"
	"github.com/sjperalta/roimob-api/internal/integrations/bcb"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/pkg/logger"
	"gorm.io/gorm"
)

// IndexFetcher reads the latest observations of an index series
type IndexFetcher interface {
	Latest(ctx context.Context, indexType string, n int) ([]bcb.Observation, error)
}

// IndexRecalculator re-runs projections that follow an index
type IndexRecalculator interface {
	RecalculateIndexed(ctx context.Context, indexType string, monthlyRate float64) ([]models.Projection, error)
}

// annualSeries are published as yearly rates; every other index is a monthly variation
var annualSeries = map[string]bool{
	models.IndexSelicMeta:  true,
	models.IndexSelicAccum: true,
	models.IndexCDI:        true,
}

// spotSeries only keep their current value
var spotSeries = map[string]bool{
	models.IndexSelicMeta:  true,
	models.IndexSelicAccum: true,
}

// AnnualEquivalent compounds a monthly rate over twelve months, in percent
func AnnualEquivalent(monthly float64) float64 {
	return (math.Pow(1+monthly/100, 12) - 1) * 100
}

// MonthlyEquivalent is the monthly rate that compounds to the annual one, in percent
func MonthlyEquivalent(annual float64) float64 {
	return (math.Pow(1+annual/100, 1.0/12) - 1) * 100
}

// monthlyRate returns the monthly rate of a stored reading whatever the series publishes
func monthlyRate(idx models.FinancialIndex) float64 {
	if annualSeries[idx.IndexType] {
		return MonthlyEquivalent(idx.Value)
	}
	return idx.Value
}

// IndexCollection is the outcome of collecting one index
type IndexCollection struct {
	Fetched      int    `json:"fetched"`
	Stored       int64  `json:"stored"`
	LatestMonth  string `json:"latest_month,omitempty"`
	NewMonth     bool   `json:"new_month"`
	Recalculated int    `json:"recalculated"`
	Error        string `json:"error,omitempty"`
}

// IndexSummary is the dashboard view of an index
type IndexSummary struct {
	IndexType        string             `json:"index_type"`
	Average          *float64           `json:"average"`
	AnnualEquivalent *float64           `json:"annual_equivalent"`
	MonthlyRate      *float64           `json:"monthly_rate"`
	LastMonth        *IndexObservation  `json:"last_month"`
	DataCount        int                `json:"data_count"`
	Source           string             `json:"source,omitempty"`
	History          []IndexObservation `json:"history,omitempty"`
}

// IndexObservation is one month of an index
type IndexObservation struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// IndexService collects economic indexes and derives correction rate suggestions from them
type IndexService struct {
	repo         repository.FinancialIndexRepository
	fetcher      IndexFetcher
	recalculator IndexRecalculator
	users        repository.UserRepository
	email        *EmailService
	audit        *AuditService
	cfg          config.IndexConfig
	now          func() time.Time
}

func NewIndexService(
	repo repository.FinancialIndexRepository,
	fetcher IndexFetcher,
	recalculator IndexRecalculator,
	users repository.UserRepository,
	email *EmailService,
	audit *AuditService,
	cfg config.IndexConfig,
) *IndexService {
	return &IndexService{
		repo:         repo,
		fetcher:      fetcher,
		recalculator: recalculator,
		users:        users,
		email:        email,
		audit:        audit,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CollectHistory loads the configured history window of every index. Run monthly.
func (s *IndexService) CollectHistory(ctx context.Context) (map[string]IndexCollection, error) {
	return s.Collect(ctx, s.cfg.HistoryMonths)
}

// Refresh re-reads the last few points, catching revisions and late publications. Run weekly.
func (s *IndexService) Refresh(ctx context.Context) (map[string]IndexCollection, error) {
	return s.Collect(ctx, s.cfg.RefreshPoints)
}

// CollectNow runs a collection on behalf of a user and records it in the audit log
func (s *IndexService) CollectNow(ctx context.Context, meta RequestMeta, points int) (map[string]IndexCollection, error) {
	if points < 1 {
		points = s.cfg.RefreshPoints
	}
	results, err := s.Collect(ctx, points)
	if s.audit != nil {
		s.audit.Log(ctx, meta, models.AuditCollect, models.EntityIndex, 0, results)
	}
	return results, err
}

// Collect fetches the last points of every index and upserts them. One failing series does not
// stop the others; an error is returned only when all of them fail.
func (s *IndexService) Collect(ctx context.Context, points int) (map[string]IndexCollection, error) {
	if s.fetcher == nil {
		return nil, ErrCollectionDisabled
	}
	if points < 1 {
		points = 1
	}
	results := make(map[string]IndexCollection, len(models.IndexTypes))
	failures := 0

	for _, indexType := range models.IndexTypes {
		res, err := s.collectOne(ctx, indexType, points)
		if err != nil {
			failures++
			res.Error = err.Error()
			logger.Error("index collection failed", "index", indexType, "error", err)
		}
		results[indexType] = res
	}

	logger.Info("index collection finished", "points", points, "failures", failures)
	if failures == len(models.IndexTypes) {
		return results, fmt.Errorf("index collection failed for every series")
	}
	return results, nil
}

func (s *IndexService) collectOne(ctx context.Context, indexType string, points int) (IndexCollection, error) {
	var res IndexCollection
	if spotSeries[indexType] {
		points = 1
	}

	previous, err := s.repo.Latest(ctx, indexType)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return res, err
	}

	obs, err := s.fetcher.Latest(ctx, indexType, points)
	if err != nil {
		return res, err
	}
	res.Fetched = len(obs)
	if len(obs) == 0 {
		return res, nil
	}

	collectedAt := s.now()
	rows := make([]models.FinancialIndex, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, newFinancialIndex(indexType, o, collectedAt))
	}
	stored, err := s.repo.Upsert(ctx, rows)
	if err != nil {
		return res, fmt.Errorf("failed to store %s: %w", indexType, err)
	}
	res.Stored = stored

	latest := rows[len(rows)-1]
	res.LatestMonth = latest.Month
	res.NewMonth = previous == nil || latest.Month > previous.Month

	if res.NewMonth && s.cfg.RecalculateOnCollect && s.recalculator != nil {
		updated, err := s.recalculator.RecalculateIndexed(ctx, indexType, monthlyRate(latest))
		if err != nil {
			logger.Error("recalculation after index update failed", "index", indexType, "error", err)
		} else {
			res.Recalculated = len(updated)
			s.notifyBrokers(ctx, indexType, latest.Month, updated)
		}
	}
	return res, nil
}

func newFinancialIndex(indexType string, o bcb.Observation, collectedAt time.Time) models.FinancialIndex {
	idx := models.FinancialIndex{
		IndexType:   indexType,
		Month:       o.Month,
		Value:       o.Value,
		Source:      "bcb",
		CollectedAt: collectedAt,
	}
	if annualSeries[indexType] {
		idx.ValueAnnualEquivalent = o.Value
	} else {
		idx.ValueAnnualEquivalent = AnnualEquivalent(o.Value)
	}
	return idx
}

// notifyBrokers sends one summary per broker whose projections were recalculated
func (s *IndexService) notifyBrokers(ctx context.Context, indexType, month string, updated []models.Projection) {
	if s.email == nil || len(updated) == 0 {
		return
	}
	byBroker := make(map[uint][]RecalculatedProjection)
	for _, p := range updated {
		item := RecalculatedProjection{Title: p.Title, ClientName: p.Client.Name}
		if p.CalculationResults != nil {
			item.ROI = FormatPercent(p.CalculationResults.ROI)
		}
		byBroker[p.UserID] = append(byBroker[p.UserID], item)
	}
	for userID, items := range byBroker {
		broker, err := s.users.FindByID(ctx, userID)
		if err != nil {
			logger.Warn("broker not found for index notification", "user_id", userID, "error", err)
			continue
		}
		if err := s.email.SendIndexRecalculation(ctx, broker, indexType, month, items); err != nil {
			logger.Warn("index notification failed", "user_id", userID, "error", err)
		}
	}
}

// Summary returns the latest reading, the twelve month average and the equivalent rates of every index
func (s *IndexService) Summary(ctx context.Context) ([]IndexSummary, error) {
	out := make([]IndexSummary, 0, len(models.IndexTypes))
	for _, indexType := range models.IndexTypes {
		sum, err := s.summarize(ctx, indexType, false)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

// Detail returns one index summary with its last twelve months
func (s *IndexService) Detail(ctx context.Context, indexType string) (*IndexSummary, error) {
	indexType = strings.ToLower(strings.TrimSpace(indexType))
	if !models.IsValidIndexType(indexType) {
		return nil, ErrInvalidIndexType
	}
	sum, err := s.summarize(ctx, indexType, true)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *IndexService) summarize(ctx context.Context, indexType string, withHistory bool) (IndexSummary, error) {
	sum := IndexSummary{IndexType: indexType}
	recent, err := s.repo.Recent(ctx, indexType, 12)
	if err != nil {
		return sum, err
	}
	sum.DataCount = len(recent)
	if len(recent) == 0 {
		return sum, nil
	}

	sum.Source = recent[0].Source
	sum.LastMonth = &IndexObservation{Month: recent[0].Month, Value: round4(recent[0].Value)}

	var total, monthlyTotal float64
	for _, r := range recent {
		total += r.Value
		monthlyTotal += monthlyRate(r)
	}
	avg := round4(total / float64(len(recent)))
	monthly := round4(monthlyTotal / float64(len(recent)))
	annual := round4(AnnualEquivalent(monthly))
	if annualSeries[indexType] {
		annual = round4(recent[0].Value)
	}
	sum.Average, sum.MonthlyRate, sum.AnnualEquivalent = &avg, &monthly, &annual

	if withHistory {
		for _, r := range recent {
			sum.History = append(sum.History, IndexObservation{Month: r.Month, Value: round4(r.Value)})
		}
		sort.Slice(sum.History, func(i, j int) bool { return sum.History[i].Month < sum.History[j].Month })
	}
	return sum, nil
}

// Series returns the readings of an index between two "YYYY-MM" months, inclusive
func (s *IndexService) Series(ctx context.Context, indexType, from, to string) ([]models.FinancialIndex, error) {
	indexType = strings.ToLower(strings.TrimSpace(indexType))
	if !models.IsValidIndexType(indexType) {
		return nil, ErrInvalidIndexType
	}
	for _, m := range []string{from, to} {
		if m == "" {
			continue
		}
		if _, err := time.Parse("2006-01", m); err != nil {
			return nil, fmt.Errorf("%w: mês %q deve ter o formato AAAA-MM", ErrInvalidInput, m)
		}
	}
	if to == "" {
		to = s.now().Format("2006-01")
	}
	if from == "" {
		t, _ := time.Parse("2006-01", to)
		from = t.AddDate(-1, 0, 0).Format("2006-01")
	}
	return s.repo.Range(ctx, indexType, from, to)
}

// SuggestedRate is the twelve month average monthly rate of an index, the default
// correction rate offered when a broker picks that index
func (s *IndexService) SuggestedRate(ctx context.Context, indexType string) (float64, error) {
	detail, err := s.Detail(ctx, indexType)
	if err != nil {
		return 0, err
	}
	if detail.MonthlyRate == nil {
		return 0, ErrNoIndexData
	}
	return *detail.MonthlyRate, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
