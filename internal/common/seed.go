package common

import (
	"context"
	"fmt"

	"loyalty-analytics-go/internal/aggregates"
	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
)

// SeedAggregates recomputes every aggregate record and drops cached reads.
func SeedAggregates(ctx context.Context, services *Services, cfg models.AggregatesConfig) (*aggregates.SeedResult, error) {
	seeder := aggregates.NewSeeder(services.Entities, services.Aggregates, aggregates.SeederOptions{
		LeaderboardSize: cfg.LeaderboardSize,
		DailyDays:       cfg.DailyWindowDays,
		WeeklyDays:      cfg.WeeklyWindow,
	})

	result, err := seeder.Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed aggregates: %w", err)
	}
	services.Reader.Invalidate()

	zap.L().Info("Aggregates seeded",
		zap.Float64("total_coins", result.Global.TotalCoins),
		zap.Int("leaderboards", len(result.Leaderboards)),
		zap.Int("daily_records", result.DailyRecords),
		zap.Duration("duration", result.Duration))
	return result, nil
}
