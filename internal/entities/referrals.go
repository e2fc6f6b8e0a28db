package entities

import (
	"context"
	"time"

	"loyalty-analytics-go/internal/models"
)

func (s *Service) ReferralsByUser(ctx context.Context, userId string) ([]models.Referral, error) {
	items, err := s.queryByUser(ctx, models.TableReferrals, models.IndexUserId, userId)
	if err != nil {
		return nil, err
	}
	return toReferrals(items), nil
}

func (s *Service) ListReferrals(ctx context.Context, limit int) ([]models.Referral, error) {
	items, err := s.scan(ctx, models.TableReferrals, limit)
	if err != nil {
		return nil, err
	}
	return toReferrals(items), nil
}

// TodayReferralsCount counts referrals created on the current date.
func (s *Service) TodayReferralsCount(ctx context.Context) (int64, error) {
	referrals, err := s.ListReferrals(ctx, 0)
	if err != nil {
		return 0, err
	}
	today := s.Today()
	var count int64
	for _, r := range referrals {
		if s.ParseDate(r.CreatedTime) == today {
			count++
		}
	}
	return count, nil
}

// TopReferrers ranks users by number of referrals sent.
func (s *Service) TopReferrers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	referrals, err := s.ListReferrals(ctx, 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]float64)
	for _, r := range referrals {
		if r.UserId != "" {
			counts[r.UserId]++
		}
	}
	return s.leaderboard(ctx, rankTotals(counts, limit)), nil
}

// DateCount is a per-day tally.
type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ReferralStatsByRange returns one zero-filled count per date in [start, end].
func (s *Service) ReferralStatsByRange(ctx context.Context, start, end time.Time) ([]DateCount, error) {
	referrals, err := s.ListReferrals(ctx, 0)
	if err != nil {
		return nil, err
	}
	created := make([]any, len(referrals))
	for i, r := range referrals {
		created[i] = r.CreatedTime
	}
	return s.countByDate(created, start, end), nil
}

func (s *Service) countByDate(timestamps []any, start, end time.Time) []DateCount {
	dates := models.DateRange(start.In(s.loc), end.In(s.loc))
	index := make(map[string]int, len(dates))
	out := make([]DateCount, len(dates))
	for i, d := range dates {
		out[i] = DateCount{Date: d}
		index[d] = i
	}
	for _, ts := range timestamps {
		if i, ok := index[s.ParseDate(ts)]; ok {
			out[i].Count++
		}
	}
	return out
}

func toReferrals(items []models.Item) []models.Referral {
	out := make([]models.Referral, len(items))
	for i, item := range items {
		out[i] = models.ReferralFromItem(item)
	}
	return out
}
