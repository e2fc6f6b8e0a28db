package aggregates

import (
	"context"
	"fmt"
	"time"

	"loyalty-analytics-go/internal/cache"
	"loyalty-analytics-go/internal/entities"
	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
)

// Seeder recomputes every aggregate record from the source tables.
type Seeder struct {
	entities        *entities.Service
	store           *Store
	clock           cache.Clock
	leaderboardSize int
	dailyDays       int
	weeklyDays      int
}

type SeederOptions struct {
	Clock           cache.Clock
	LeaderboardSize int
	DailyDays       int
	WeeklyDays      int
}

func NewSeeder(svc *entities.Service, st *Store, opts SeederOptions) *Seeder {
	if opts.Clock == nil {
		opts.Clock = cache.SystemClock{}
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 50
	}
	if opts.DailyDays <= 0 {
		opts.DailyDays = 30
	}
	if opts.WeeklyDays <= 0 {
		opts.WeeklyDays = 7
	}
	return &Seeder{
		entities:        svc,
		store:           st,
		clock:           opts.Clock,
		leaderboardSize: opts.LeaderboardSize,
		dailyDays:       opts.DailyDays,
		weeklyDays:      opts.WeeklyDays,
	}
}

// SeedResult summarizes one full recompute.
type SeedResult struct {
	Global       models.GlobalStats          `json:"global"`
	Tiers        map[string]models.TierStats `json:"tiers"`
	Leaderboards map[string]int              `json:"leaderboards"`
	Weekly       map[string]int              `json:"weekly"`
	DailyRecords int                         `json:"dailyRecords"`
	Duration     time.Duration               `json:"duration"`
}

// sourceData is every source table scanned once.
type sourceData struct {
	referrals    []models.Referral
	leads        []models.Lead
	withdrawals  []models.Withdrawal
	transactions []models.Transaction
}

func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	start := time.Now()
	result := &SeedResult{
		Leaderboards: make(map[string]int),
		Weekly:       make(map[string]int),
	}

	src, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if result.Global, err = s.seedGlobal(ctx, src); err != nil {
		return nil, err
	}
	if result.Tiers, err = s.seedTiers(ctx); err != nil {
		return nil, err
	}
	if err := s.seedLeaderboards(ctx, result); err != nil {
		return nil, err
	}
	if err := s.seedWeekly(ctx, src, result); err != nil {
		return nil, err
	}
	if result.DailyRecords, err = s.seedDaily(ctx, src); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	zap.L().Info("Aggregates seeded",
		zap.Float64("total_coins", result.Global.TotalCoins),
		zap.Int64("active_users", result.Global.ActiveUsersCount),
		zap.Int("daily_records", result.DailyRecords),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (s *Seeder) load(ctx context.Context) (*sourceData, error) {
	var src sourceData
	var err error
	if src.referrals, err = s.entities.ListReferrals(ctx, 0); err != nil {
		return nil, err
	}
	if src.leads, err = s.entities.ListLeads(ctx, 0); err != nil {
		return nil, err
	}
	if src.withdrawals, err = s.entities.ListWithdrawals(ctx, 0); err != nil {
		return nil, err
	}
	if src.transactions, err = s.entities.ListTransactions(ctx, 0); err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *Seeder) seedGlobal(ctx context.Context, src *sourceData) (models.GlobalStats, error) {
	var stats models.GlobalStats
	var err error
	if stats.TotalCoins, err = s.entities.TotalCoins(ctx); err != nil {
		return stats, err
	}
	if stats.ActiveUsersCount, err = s.entities.ActiveUsersCount(ctx); err != nil {
		return stats, err
	}

	for _, w := range src.withdrawals {
		if w.IsPending() {
			stats.PendingWithdrawalsCount++
			stats.PendingWithdrawalsAmount += w.RequestedAmount.InexactFloat64()
		}
	}

	today := s.entities.Today()
	for _, r := range src.referrals {
		if s.entities.ParseDate(r.CreatedTime) == today {
			stats.TodayReferralsCount++
		}
	}
	for _, l := range src.leads {
		if s.entities.ParseDate(l.CreatedTime) == today {
			stats.TodayLeadsCount++
		}
	}

	if err := s.store.Put(ctx, models.AggregateGlobal, models.GlobalStatsId, stats.Data()); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Seeder) seedTiers(ctx context.Context) (map[string]models.TierStats, error) {
	tiers, err := s.entities.CoinsByTier(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range models.TierNames {
		if err := s.store.Put(ctx, models.AggregateTier, name, tiers[name].Data()); err != nil {
			return nil, err
		}
	}
	return tiers, nil
}

func (s *Seeder) seedLeaderboards(ctx context.Context, result *SeedResult) error {
	boards := []struct {
		name  string
		build func(context.Context, int) ([]models.LeaderboardEntry, error)
	}{
		{models.LeaderboardTopCoinHolders, s.entities.TopCoinHolders},
		{models.LeaderboardTopReferrers, s.entities.TopReferrers},
		{models.LeaderboardTopLeadGenerators, s.entities.TopLeadGenerators},
		{models.LeaderboardTopEarners, s.entities.TopEarners},
		{models.LeaderboardTopWithdrawers, s.entities.TopWithdrawers},
		{models.LeaderboardTopAddedToWallet, s.entities.TopAddedToWallet},
	}

	for _, b := range boards {
		entries, err := b.build(ctx, s.leaderboardSize)
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", b.name, err)
		}
		items := make([]any, len(entries))
		for i, e := range entries {
			items[i] = e.Data()
		}
		if err := s.store.Put(ctx, models.AggregateLeaderboard, b.name, models.Item{"items": items}); err != nil {
			return err
		}
		result.Leaderboards[b.name] = len(entries)
	}
	return nil
}

// seedWeekly rebuilds the rolling-window member maps that the updater
// increments between seeds.
func (s *Seeder) seedWeekly(ctx context.Context, src *sourceData, result *SeedResult) error {
	window := s.window(s.weeklyDays)

	referrers := models.Item{}
	for _, r := range src.referrals {
		if r.UserId != "" && window[s.entities.ParseDate(r.CreatedTime)] {
			referrers[r.UserId] = referrers.Int(r.UserId) + 1
		}
	}

	generators := models.Item{}
	for _, l := range src.leads {
		if l.UserId != "" && window[s.entities.ParseDate(l.CreatedTime)] {
			generators[l.UserId] = generators.Int(l.UserId) + 1
		}
	}

	withdrawers := models.Item{}
	for _, w := range src.withdrawals {
		if w.UserId == "" || !window[s.entities.ParseDate(w.CreatedTime)] {
			continue
		}
		m := withdrawers.Map(w.UserId)
		if m == nil {
			m = models.Item{}
			withdrawers[w.UserId] = m
		}
		m["count"] = m.Int("count") + 1
		m["amount"] = m.Float("amount") + w.RequestedAmount.InexactFloat64()
	}

	gainers := models.Item{}
	for _, t := range src.transactions {
		if t.UserId == "" || !t.Amount.IsPositive() || !window[s.entities.ParseDate(t.CreatedTime)] {
			continue
		}
		gainers[t.UserId] = gainers.Float(t.UserId) + t.Amount.InexactFloat64()
	}

	boards := map[string]models.Item{
		models.LeaderboardTopReferrers:      referrers,
		models.LeaderboardTopLeadGenerators: generators,
		models.LeaderboardTopWithdrawers:    withdrawers,
		models.LeaderboardTopCoinHolders:    gainers,
	}
	for name, users := range boards {
		if err := s.store.Put(ctx, models.AggregateWeeklyLeaderboard, name, models.Item{"users": users}); err != nil {
			return err
		}
		result.Weekly[name] = len(users)
	}
	return nil
}

func (s *Seeder) seedDaily(ctx context.Context, src *sourceData) (int, error) {
	days := make(map[string]*models.DailyMetrics)
	for d := range s.window(s.dailyDays) {
		days[d] = &models.DailyMetrics{Date: d}
	}

	for _, r := range src.referrals {
		if m, ok := days[s.entities.ParseDate(r.CreatedTime)]; ok {
			m.Referrals++
		}
	}
	for _, l := range src.leads {
		if m, ok := days[s.entities.ParseDate(l.CreatedTime)]; ok {
			m.Leads++
		}
	}
	for _, t := range src.transactions {
		if m, ok := days[s.entities.ParseDate(t.CreatedTime)]; ok {
			credit, debit := entities.ClassifyVolume(t)
			m.CoinCredits += credit
			m.CoinDebits += debit
		}
	}

	written := 0
	for d, m := range days {
		if err := s.store.Put(ctx, models.AggregateDaily, d, m.Data()); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// window is the set of the last n dates ending today.
func (s *Seeder) window(n int) map[string]bool {
	end := s.clock.Now().In(s.entities.Location())
	start := end.AddDate(0, 0, -(n - 1))
	out := make(map[string]bool, n)
	for _, d := range models.DateRange(start, end) {
		out[d] = true
	}
	return out
}
