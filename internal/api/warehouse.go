package api

import (
	"context"
	"errors"
	"fmt"

	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/warehouse"

	"go.uber.org/zap"
)

var ErrWarehouseDisabled = errors.New("warehouse is not configured")

func (s *AnalyticsService) ReferralROI(ctx context.Context) (*warehouse.ReferralROI, error) {
	if s.warehouse == nil {
		return nil, ErrWarehouseDisabled
	}
	roi, err := s.warehouse.ReferralProgramROI(ctx)
	if err != nil {
		zap.L().Error("Failed to compute referral ROI", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve referral roi")
	}
	return &roi, nil
}

// WarehouseLeaderboard ranks over the loaded warehouse tables for a period.
func (s *AnalyticsService) WarehouseLeaderboard(ctx context.Context, name, period string, limit int) (*LeaderboardResponse, error) {
	if s.warehouse == nil {
		return nil, ErrWarehouseDisabled
	}
	if _, _, ok := s.leaderboardSources(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeaderboard, name)
	}
	p, err := warehouse.ParsePeriod(period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	entries, err := s.warehouse.Leaderboard(ctx, name, p, limit)
	if err != nil {
		zap.L().Error("Failed to query warehouse leaderboard",
			zap.String("leaderboard", name),
			zap.String("period", period),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve leaderboard")
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return &LeaderboardResponse{Name: name, Entries: entries, Source: "warehouse"}, nil
}

func (s *AnalyticsService) WarehouseSummary(ctx context.Context) (*warehouse.LoyaltySummary, error) {
	if s.warehouse == nil {
		return nil, ErrWarehouseDisabled
	}
	summary, err := s.warehouse.LoyaltySummary(ctx)
	if err != nil {
		zap.L().Error("Failed to query loyalty summary", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve loyalty summary")
	}
	return &summary, nil
}

func (s *AnalyticsService) WarehouseUsers(ctx context.Context, page, size int) (*warehouse.Page[warehouse.UserRow], error) {
	if s.warehouse == nil {
		return nil, ErrWarehouseDisabled
	}
	out, err := s.warehouse.ListUsers(ctx, page, size)
	if err != nil {
		zap.L().Error("Failed to list warehouse users", zap.Int("page", page), zap.Error(err))
		return nil, fmt.Errorf("failed to list users")
	}
	return &out, nil
}

func (s *AnalyticsService) WarehouseTransactions(ctx context.Context, page, size int) (*warehouse.Page[warehouse.TransactionRow], error) {
	if s.warehouse == nil {
		return nil, ErrWarehouseDisabled
	}
	out, err := s.warehouse.ListTransactions(ctx, page, size)
	if err != nil {
		zap.L().Error("Failed to list warehouse transactions", zap.Int("page", page), zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions")
	}
	return &out, nil
}
