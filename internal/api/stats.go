package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source tells the caller which read path answered.
const (
	SourceAggregates = "aggregates"
	SourceLive       = "live"
)

type StatsResponse struct {
	Stats  models.GlobalStats `json:"stats"`
	Source string             `json:"source"`
}

// GetStats returns the headline KPIs.
func (s *AnalyticsService) GetStats(ctx context.Context) (*StatsResponse, error) {
	if s.reader != nil {
		stats, ok, err := s.reader.GlobalStats(ctx)
		if err != nil {
			zap.L().Warn("Aggregate stats read failed, using live scan", zap.Error(err))
		}
		if ok && err == nil {
			return &StatsResponse{Stats: stats, Source: SourceAggregates}, nil
		}
	}

	stats, err := s.liveStats(ctx)
	if err != nil {
		zap.L().Error("Failed to compute live stats", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve stats")
	}
	return &StatsResponse{Stats: stats, Source: SourceLive}, nil
}

func (s *AnalyticsService) liveStats(ctx context.Context) (models.GlobalStats, error) {
	var stats models.GlobalStats
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		total, err := s.entities.TotalCoins(ctx)
		stats.TotalCoins = total
		return err
	})
	eg.Go(func() error {
		active, err := s.entities.ActiveUsersCount(ctx)
		stats.ActiveUsersCount = active
		return err
	})
	eg.Go(func() error {
		pending, err := s.entities.PendingSummary(ctx)
		stats.PendingWithdrawalsCount = pending.Count
		stats.PendingWithdrawalsAmount = pending.Amount.InexactFloat64()
		return err
	})
	eg.Go(func() error {
		n, err := s.entities.TodayReferralsCount(ctx)
		stats.TodayReferralsCount = n
		return err
	})
	eg.Go(func() error {
		n, err := s.entities.TodayLeadsCount(ctx)
		stats.TodayLeadsCount = n
		return err
	})

	return stats, eg.Wait()
}

type TierStatsResponse struct {
	Tiers  map[string]models.TierStats `json:"tiers"`
	Source string                      `json:"source"`
}

func (s *AnalyticsService) GetTierStats(ctx context.Context) (*TierStatsResponse, error) {
	if s.aggregatesEnabled(ctx) {
		tiers, err := s.reader.TierStats(ctx)
		if err == nil && len(tiers) > 0 {
			return &TierStatsResponse{Tiers: tiers, Source: SourceAggregates}, nil
		}
		if err != nil {
			zap.L().Warn("Aggregate tier read failed, using live scan", zap.Error(err))
		}
	}

	tiers, err := s.entities.CoinsByTier(ctx)
	if err != nil {
		zap.L().Error("Failed to compute tier stats", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve tier stats")
	}
	return &TierStatsResponse{Tiers: tiers, Source: SourceLive}, nil
}

type LeaderboardResponse struct {
	Name    string                    `json:"name"`
	Entries []models.LeaderboardEntry `json:"entries"`
	Source  string                    `json:"source"`
}

// ErrUnknownLeaderboard is returned for names outside the leaderboard set.
var ErrUnknownLeaderboard = errors.New("unknown leaderboard")

type leaderboardFunc func(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

func (s *AnalyticsService) leaderboardSources(name string) (leaderboardFunc, leaderboardFunc, bool) {
	var live leaderboardFunc
	switch name {
	case models.LeaderboardTopCoinHolders:
		live = s.entities.TopCoinHolders
	case models.LeaderboardTopReferrers:
		live = s.entities.TopReferrers
	case models.LeaderboardTopLeadGenerators:
		live = s.entities.TopLeadGenerators
	case models.LeaderboardTopEarners:
		live = s.entities.TopEarners
	case models.LeaderboardTopWithdrawers:
		live = s.entities.TopWithdrawers
	case models.LeaderboardTopAddedToWallet:
		live = s.entities.TopAddedToWallet
	default:
		return nil, nil, false
	}
	if s.reader == nil {
		return nil, live, true
	}

	var agg leaderboardFunc
	switch name {
	case models.LeaderboardTopCoinHolders:
		agg = s.reader.TopCoinHolders
	case models.LeaderboardTopReferrers:
		agg = s.reader.TopReferrers
	case models.LeaderboardTopLeadGenerators:
		agg = s.reader.TopLeadGenerators
	case models.LeaderboardTopWithdrawers:
		agg = s.reader.TopWithdrawers
	default:
		agg = func(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
			return s.reader.Leaderboard(ctx, name, limit)
		}
	}
	return agg, live, true
}

// GetLeaderboard returns the top limit rows of a named leaderboard.
func (s *AnalyticsService) GetLeaderboard(ctx context.Context, name string, limit int) (*LeaderboardResponse, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	agg, live, ok := s.leaderboardSources(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeaderboard, name)
	}

	if agg != nil && s.aggregatesEnabled(ctx) {
		entries, err := agg(ctx, limit)
		if err == nil && len(entries) > 0 {
			return &LeaderboardResponse{Name: name, Entries: entries, Source: SourceAggregates}, nil
		}
		if err != nil {
			zap.L().Warn("Aggregate leaderboard read failed, using live scan",
				zap.String("leaderboard", name),
				zap.Error(err))
		}
	}

	entries, err := live(ctx, limit)
	if err != nil {
		zap.L().Error("Failed to compute leaderboard",
			zap.String("leaderboard", name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve leaderboard")
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return &LeaderboardResponse{Name: name, Entries: entries, Source: SourceLive}, nil
}

type DailyResponse struct {
	Days   []models.DailyMetrics `json:"days"`
	Source string                `json:"source"`
}

// GetDailyMetrics covers the last days days ending today, zero-filled.
func (s *AnalyticsService) GetDailyMetrics(ctx context.Context, days int) (*DailyResponse, error) {
	if days <= 0 {
		days = 7
	}
	loc := s.entities.Location()
	end, err := time.ParseInLocation(models.DateLayout, s.entities.Today(), loc)
	if err != nil {
		return nil, err
	}
	start := end.AddDate(0, 0, -(days - 1))

	if s.aggregatesEnabled(ctx) {
		rows, err := s.reader.DailyMetrics(ctx, start, end)
		if err == nil {
			return &DailyResponse{Days: rows, Source: SourceAggregates}, nil
		}
		zap.L().Warn("Aggregate daily read failed, using live scan", zap.Error(err))
	}

	rows, err := s.liveDaily(ctx, start, end)
	if err != nil {
		zap.L().Error("Failed to compute daily metrics", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve daily metrics")
	}
	return &DailyResponse{Days: rows, Source: SourceLive}, nil
}

func (s *AnalyticsService) liveDaily(ctx context.Context, start, end time.Time) ([]models.DailyMetrics, error) {
	referrals, err := s.entities.ReferralStatsByRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	leads, err := s.entities.LeadStatsByRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	coins, err := s.entities.DailyCoinActivity(ctx, start, end)
	if err != nil {
		return nil, err
	}

	rows := make([]models.DailyMetrics, len(referrals))
	for i, r := range referrals {
		rows[i] = models.DailyMetrics{Date: r.Date, Referrals: r.Count}
		if i < len(leads) {
			rows[i].Leads = leads[i].Count
		}
		if i < len(coins) {
			rows[i].CoinCredits = coins[i].Credits
			rows[i].CoinDebits = coins[i].Debits
		}
	}
	return rows, nil
}
