package entities

import (
	"context"
	"time"

	"loyalty-analytics-go/internal/models"
)

func (s *Service) LeadsByUser(ctx context.Context, userId string) ([]models.Lead, error) {
	items, err := s.queryByUser(ctx, models.TableLeads, models.IndexUser, userId)
	if err != nil {
		return nil, err
	}
	return toLeads(items), nil
}

func (s *Service) ListLeads(ctx context.Context, limit int) ([]models.Lead, error) {
	items, err := s.scan(ctx, models.TableLeads, limit)
	if err != nil {
		return nil, err
	}
	return toLeads(items), nil
}

func (s *Service) TodayLeadsCount(ctx context.Context) (int64, error) {
	leads, err := s.ListLeads(ctx, 0)
	if err != nil {
		return 0, err
	}
	today := s.Today()
	var count int64
	for _, l := range leads {
		if s.ParseDate(l.CreatedTime) == today {
			count++
		}
	}
	return count, nil
}

func (s *Service) TopLeadGenerators(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	leads, err := s.ListLeads(ctx, 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]float64)
	for _, l := range leads {
		if l.UserId != "" {
			counts[l.UserId]++
		}
	}
	return s.leaderboard(ctx, rankTotals(counts, limit)), nil
}

// LeadStatsByRange returns one zero-filled count per date in [start, end].
func (s *Service) LeadStatsByRange(ctx context.Context, start, end time.Time) ([]DateCount, error) {
	leads, err := s.ListLeads(ctx, 0)
	if err != nil {
		return nil, err
	}
	created := make([]any, len(leads))
	for i, l := range leads {
		created[i] = l.CreatedTime
	}
	return s.countByDate(created, start, end), nil
}

func toLeads(items []models.Item) []models.Lead {
	out := make([]models.Lead, len(items))
	for i, item := range items {
		out[i] = models.LeadFromItem(item)
	}
	return out
}
