package warehouse

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"loyalty-analytics-go/internal/models"
)

// CoinActivity is the credited and debited coin volume of one day
type CoinActivity struct {
	Date    string  `json:"date"`
	Credits float64 `json:"credits"`
	Debits  float64 `json:"debits"`
}

// DateCount is a per-day record count
type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ReferralROI estimates the return on referral bonuses
type ReferralROI struct {
	CoinsSpent         float64 `json:"coinsSpent"`
	RevenueGenerated   float64 `json:"revenueGenerated"`
	TotalReferrals     int64   `json:"totalReferrals"`
	ConvertedReferrals int64   `json:"convertedReferrals"`
	RoiMultiplier      float64 `json:"roiMultiplier"`
}

// LoyaltySummary holds program-wide totals
type LoyaltySummary struct {
	TotalUsers         int64   `json:"totalUsers" gorm:"column:total_users"`
	ActiveUsers        int64   `json:"activeUsers" gorm:"column:active_users"`
	TotalCoins         float64 `json:"totalCoins" gorm:"column:total_coins"`
	TotalReferrals     int64   `json:"totalReferrals" gorm:"column:total_referrals"`
	TotalLeads         int64   `json:"totalLeads" gorm:"column:total_leads"`
	PendingWithdrawals int64   `json:"pendingWithdrawals" gorm:"column:pending_withdrawals"`
}

// CurrencyPerCoin is the blended coin cost used by the ROI estimate.
const CurrencyPerCoin = 0.5

type tierRow struct {
	TierName string  `gorm:"column:tier_name"`
	Users    int64   `gorm:"column:users"`
	Coins    float64 `gorm:"column:coins"`
}

type leaderRow struct {
	UserId   string  `gorm:"column:user_id"`
	UserName string  `gorm:"column:user_name"`
	Value    float64 `gorm:"column:value"`
	Count    int64   `gorm:"column:count"`
	Amount   float64 `gorm:"column:amount"`
}

type conversionRow struct {
	TotalReferrals     int64 `gorm:"column:total_referrals"`
	ConvertedReferrals int64 `gorm:"column:converted_referrals"`
}

type dayRow struct {
	Day     string  `gorm:"column:day"`
	Count   int64   `gorm:"column:count"`
	Credits float64 `gorm:"column:credits"`
	Debits  float64 `gorm:"column:debits"`
}

// CoinsByTier groups remaining coins by tier. All four tiers are present.
func (s *Service) CoinsByTier(ctx context.Context) (map[string]models.TierStats, error) {
	var rows []tierRow
	if err := s.raw(ctx, &rows, s.sql(queryCoinsByTier, "")); err != nil {
		return nil, err
	}

	stats := make(map[string]models.TierStats, len(models.TierNames))
	for _, name := range models.TierNames {
		stats[name] = models.TierStats{Rate: s.catalog.RateFor(name)}
	}
	for _, row := range rows {
		name := row.TierName
		if name == "" {
			name = models.TierUnknown
		}
		rate := s.catalog.RateFor(name)
		current := stats[name]
		current.Coins += row.Coins
		current.Users += row.Users
		current.Rate = rate
		current.Rupees = current.Coins * rate
		stats[name] = current
	}
	return stats, nil
}

func (s *Service) TotalCoins(ctx context.Context) (float64, error) {
	var total float64
	if err := s.raw(ctx, &total, s.sql(queryTotalCoins, "")); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) ActiveUsersCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.raw(ctx, &count, s.sql(queryActiveUsersCount, "")); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) TopCoinHolders(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return s.leaderboard(ctx, s.sql(queryTopCoinHolders, ""), limit)
}

func (s *Service) TopEarners(ctx context.Context, period Period, limit int) ([]models.LeaderboardEntry, error) {
	pred, args := period.predicate("t.created_at", s.now())
	args = append([]any{s.catalog.EarningTitles}, args...)
	return s.leaderboard(ctx, s.sql(queryTopEarners, pred), limit, args...)
}

func (s *Service) TopAddedToWallet(ctx context.Context, period Period, limit int) ([]models.LeaderboardEntry, error) {
	pred, args := period.predicate("t.created_at", s.now())
	args = append([]any{s.catalog.AddedToWallet}, args...)
	return s.leaderboard(ctx, s.sql(queryTopAddedToWallet, pred), limit, args...)
}

func (s *Service) TopReferrers(ctx context.Context, period Period, limit int) ([]models.LeaderboardEntry, error) {
	pred, args := period.predicate("created_at", s.now())
	return s.leaderboard(ctx, s.sql(queryTopReferrers, pred), limit, args...)
}

func (s *Service) TopLeadGenerators(ctx context.Context, period Period, limit int) ([]models.LeaderboardEntry, error) {
	pred, args := period.predicate("created_at", s.now())
	return s.leaderboard(ctx, s.sql(queryTopLeadGenerators, pred), limit, args...)
}

func (s *Service) TopWithdrawers(ctx context.Context, period Period, limit int) ([]models.LeaderboardEntry, error) {
	pred, args := period.predicate("created_at", s.now())
	return s.leaderboard(ctx, s.sql(queryTopWithdrawers, pred), limit, args...)
}

// Leaderboard dispatches by leaderboard name.
func (s *Service) Leaderboard(ctx context.Context, name string, period Period, limit int) ([]models.LeaderboardEntry, error) {
	switch name {
	case models.LeaderboardTopCoinHolders:
		return s.TopCoinHolders(ctx, limit)
	case models.LeaderboardTopEarners:
		return s.TopEarners(ctx, period, limit)
	case models.LeaderboardTopAddedToWallet:
		return s.TopAddedToWallet(ctx, period, limit)
	case models.LeaderboardTopReferrers:
		return s.TopReferrers(ctx, period, limit)
	case models.LeaderboardTopLeadGenerators:
		return s.TopLeadGenerators(ctx, period, limit)
	case models.LeaderboardTopWithdrawers:
		return s.TopWithdrawers(ctx, period, limit)
	default:
		return nil, fmt.Errorf("unknown leaderboard %q", name)
	}
}

func (s *Service) leaderboard(ctx context.Context, query string, limit int, args ...any) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []leaderRow
	if err := s.raw(ctx, &rows, query, append(args, limit)...); err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, len(rows))
	for i, row := range rows {
		name := row.UserName
		if name == "" {
			name = models.UnknownName
		}
		entries[i] = models.LeaderboardEntry{
			Rank:     i + 1,
			UserId:   row.UserId,
			UserName: name,
			Value:    row.Value,
			Count:    row.Count,
			Amount:   row.Amount,
		}
	}
	return entries, nil
}

// DailyCoinActivity returns credits and debits per day in [start, end],
// zero-filled.
func (s *Service) DailyCoinActivity(ctx context.Context, start, end time.Time) ([]CoinActivity, error) {
	var rows []dayRow
	if err := s.raw(ctx, &rows, s.sql(queryDailyCoinActivity, ""),
		start.Format(models.DateLayout), end.Format(models.DateLayout)); err != nil {
		return nil, err
	}

	byDay := make(map[string]dayRow, len(rows))
	for _, row := range rows {
		byDay[day(row.Day)] = row
	}
	dates := models.DateRange(start, end)
	out := make([]CoinActivity, len(dates))
	for i, d := range dates {
		out[i] = CoinActivity{Date: d, Credits: byDay[d].Credits, Debits: byDay[d].Debits}
	}
	return out, nil
}

// ReferralStatsByRange returns referral counts per day in [start, end], zero-filled.
func (s *Service) ReferralStatsByRange(ctx context.Context, start, end time.Time) ([]DateCount, error) {
	return s.countsByDay(ctx, queryReferralsByDay, start, end)
}

// DailyReferralActivity covers the last days days, ending today.
func (s *Service) DailyReferralActivity(ctx context.Context, days int) ([]DateCount, error) {
	start, end := s.window(days)
	return s.countsByDay(ctx, queryReferralsByDay, start, end)
}

// DailyLeadActivity covers the last days days, ending today.
func (s *Service) DailyLeadActivity(ctx context.Context, days int) ([]DateCount, error) {
	start, end := s.window(days)
	return s.countsByDay(ctx, queryLeadsByDay, start, end)
}

func (s *Service) window(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = 30
	}
	end := s.now()
	return end.AddDate(0, 0, -(days - 1)), end
}

func (s *Service) countsByDay(ctx context.Context, template string, start, end time.Time) ([]DateCount, error) {
	var rows []dayRow
	if err := s.raw(ctx, &rows, s.sql(template, ""),
		start.Format(models.DateLayout), end.Format(models.DateLayout)); err != nil {
		return nil, err
	}

	byDay := make(map[string]int64, len(rows))
	for _, row := range rows {
		byDay[day(row.Day)] += row.Count
	}
	dates := models.DateRange(start, end)
	out := make([]DateCount, len(dates))
	for i, d := range dates {
		out[i] = DateCount{Date: d, Count: byDay[d]}
	}
	return out, nil
}

// ReferralProgramROI chains the bonus, conversion and revenue queries.
// Bonus spend is the sum of referral-titled wallet credits.
func (s *Service) ReferralProgramROI(ctx context.Context) (ReferralROI, error) {
	var roi ReferralROI

	titles := s.referralTitles()
	if len(titles) > 0 {
		if err := s.raw(ctx, &roi.CoinsSpent, s.sql(queryReferralBonusCoins, ""), titles); err != nil {
			return ReferralROI{}, err
		}
	}

	var conversions conversionRow
	if err := s.raw(ctx, &conversions, s.sql(queryReferralConversions, "")); err != nil {
		return ReferralROI{}, err
	}
	roi.TotalReferrals = conversions.TotalReferrals
	roi.ConvertedReferrals = conversions.ConvertedReferrals

	if err := s.raw(ctx, &roi.RevenueGenerated, s.sql(queryReferredRevenue, "")); err != nil {
		return ReferralROI{}, err
	}

	if cost := roi.CoinsSpent * CurrencyPerCoin; cost > 0 {
		roi.RoiMultiplier = math.Round(roi.RevenueGenerated/cost*10) / 10
	}
	return roi, nil
}

func (s *Service) referralTitles() []string {
	var titles []string
	for _, t := range s.catalog.EarningTitles {
		if strings.Contains(t, "referral") {
			titles = append(titles, t)
		}
	}
	return titles
}

func (s *Service) LoyaltySummary(ctx context.Context) (LoyaltySummary, error) {
	var summary LoyaltySummary
	if err := s.raw(ctx, &summary, s.sql(queryLoyaltySummary, "")); err != nil {
		return LoyaltySummary{}, err
	}
	return summary, nil
}
