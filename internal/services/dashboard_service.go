package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/projection"
	"github.com/sjperalta/roimob-api/internal/repository"
)

const (
	recentProjectionsLimit = 5
	onlineWindow           = 10 * time.Minute
)

// DashboardService computes the broker and admin dashboard figures
type DashboardService struct {
	repo repository.DashboardRepository
}

func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// StrategyCounts tells how many projections evaluate each strategy
type StrategyCounts struct {
	FutureSale        int `json:"future_sale"`
	AssetAppreciation int `json:"asset_appreciation"`
	RentalYield       int `json:"rental_yield"`
}

// DashboardStats is the broker's home screen summary
type DashboardStats struct {
	TotalProjections  int64                       `json:"total_projections"`
	TotalClients      int64                       `json:"total_clients"`
	TotalProperties   int64                       `json:"total_properties"`
	AverageROI        float64                     `json:"average_roi"`
	AverageIRR        float64                     `json:"average_irr"`
	StrategyCount     StrategyCounts              `json:"strategy_count"`
	RecentProjections []models.ProjectionResponse `json:"recent_projections"`
}

// Stats summarizes the projections of one broker. Admins pass meta.IsAdmin to see everyone's.
func (s *DashboardService) Stats(ctx context.Context, meta RequestMeta) (*DashboardStats, error) {
	var owner *uint
	if !meta.IsAdmin {
		owner = &meta.UserID
	}

	stats := &DashboardStats{RecentProjections: []models.ProjectionResponse{}}
	var err error
	if stats.TotalProjections, err = s.repo.CountProjections(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to count projections: %w", err)
	}
	if stats.TotalClients, err = s.repo.CountClients(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}
	if stats.TotalProperties, err = s.repo.CountProperties(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}

	results, err := s.repo.ProjectionResults(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	stats.AverageROI, stats.AverageIRR, stats.StrategyCount = summarizeResults(results)

	recent, err := s.repo.RecentProjections(ctx, owner, recentProjectionsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent projections: %w", err)
	}
	for i := range recent {
		stats.RecentProjections = append(stats.RecentProjections, recent[i].ToResponse(meta.Locale))
	}
	return stats, nil
}

// summarizeResults averages ROI over every calculated projection and IRR over those
// with a bracketed future-sale IRR. IRR is reported as an annual percentage.
func summarizeResults(projections []models.Projection) (avgROI, avgIRR float64, counts StrategyCounts) {
	var roiSum, irrSum float64
	var roiN, irrN int
	for i := range projections {
		p := &projections[i]
		if p.Strategies.Has(projection.StrategyFutureSale) {
			counts.FutureSale++
		}
		if p.Strategies.Has(projection.StrategyAssetAppreciation) {
			counts.AssetAppreciation++
		}
		if p.Strategies.Has(projection.StrategyRentalYield) {
			counts.RentalYield++
		}

		r := p.CalculationResults
		if r == nil {
			continue
		}
		if r.ROI != 0 && !math.IsNaN(r.ROI) {
			roiSum += r.ROI
			roiN++
		}
		if r.FutureSale != nil && r.FutureSale.IRR != nil && r.FutureSale.IRR.Bracketed {
			irrSum += r.FutureSale.IRR.Annual * 100
			irrN++
		}
	}
	if roiN > 0 {
		avgROI = roiSum / float64(roiN)
	}
	if irrN > 0 {
		avgIRR = irrSum / float64(irrN)
	}
	return avgROI, avgIRR, counts
}

// AdminStats is the platform-wide summary for administrators
type AdminStats struct {
	TotalUsers          int64            `json:"total_users"`
	ActiveUsers         int64            `json:"active_users"`
	Admins              int64            `json:"admins"`
	Brokers             int64            `json:"brokers"`
	NewUsersLastMonth   int64            `json:"new_users_last_month"`
	UsersOnlineNow      int64            `json:"users_online_now"`
	TotalProjections    int64            `json:"total_projections"`
	ProjectionsByStatus map[string]int64 `json:"projections_by_status"`
	ActiveReportLinks   int64            `json:"active_report_links"`
}

func (s *DashboardService) AdminStats(ctx context.Context) (*AdminStats, error) {
	users, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	now := time.Now().UTC()
	online, err := s.repo.CountUsersActiveSince(ctx, now.Add(-onlineWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count online users: %w", err)
	}
	byStatus, err := s.repo.ProjectionsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to group projections: %w", err)
	}
	links, err := s.repo.CountActiveReportLinks(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count report links: %w", err)
	}

	stats := &AdminStats{
		TotalUsers:          users.Total,
		ActiveUsers:         users.Active,
		Admins:              users.Admins,
		Brokers:             users.Brokers,
		NewUsersLastMonth:   users.NewMonth,
		UsersOnlineNow:      online,
		ProjectionsByStatus: byStatus,
		ActiveReportLinks:   links,
	}
	for _, n := range byStatus {
		stats.TotalProjections += n
	}
	return stats, nil
}
