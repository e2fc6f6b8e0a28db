package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"loyalty-analytics-go/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec("ATTACH DATABASE ':memory:' AS loyalty").Error)
	return db
}

func exec(t *testing.T, db *gorm.DB, sql string, args ...any) {
	t.Helper()
	require.NoError(t, db.Exec(sql, args...).Error)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := openTestDB(t)
	svc := NewServiceFromDB(db, Options{
		Clock:    fixedClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, ist)},
		Location: ist,
	})
	require.NoError(t, svc.EnsureSchema(context.Background()))

	for _, u := range []struct {
		id, name, tier string
		coins          float64
	}{
		{"u1", "Asha", "Gold", 300},
		{"u2", "Ravi", "Silver", 100},
		{"u3", "", "", 0},
		{"u4", "Meena", "Bronze", 50},
	} {
		var name, tier any
		if u.name != "" {
			name = u.name
		}
		if u.tier != "" {
			tier = u.tier
		}
		exec(t, db, `INSERT INTO loyalty.dim_loyalty_users (user_id, user_name, tier_name, remaining_coins) VALUES (?, ?, ?, ?)`,
			u.id, name, tier, u.coins)
	}

	for _, tx := range [][]any{
		{"t1", "u1", "Signup Bonus", 100.0, "2025-03-10T09:00:00"},
		{"t2", "u1", "Referral", 50.0, "2025-03-01T09:00:00"},
		{"t3", "u2", "Added to Wallet", 80.0, "2025-03-09T10:00:00"},
		{"t4", "u2", "Order Payment", -30.0, "2025-03-09T11:00:00"},
		{"t5", "u4", "referral reward", 20.0, "2025-03-08T10:00:00"},
	} {
		exec(t, db, `INSERT INTO loyalty.fact_wallet_transactions (transaction_id, user_id, title, amount, created_at) VALUES (?, ?, ?, ?, ?)`, tx...)
	}

	for _, r := range [][]any{
		{"r1", "u1", "Asha", "2025-03-10T08:00:00", "u5"},
		{"r2", "u1", "Asha", "2025-03-09T08:00:00", ""},
		{"r3", "u2", "Ravi", "2025-02-20T08:00:00", "u5"},
	} {
		exec(t, db, `INSERT INTO loyalty.fact_referrals (referral_id, referrer_user_id, referrer_name, created_at, referred_user_id) VALUES (?, ?, ?, ?, ?)`, r...)
	}

	exec(t, db, `INSERT INTO loyalty.fact_leads (lead_id, generator_user_id, generator_name, created_at) VALUES ('l1', 'u4', 'Meena', '2025-03-10T07:00:00')`)

	for _, o := range [][]any{
		{"o1", "u5", 1000.0, "DELIVERED"},
		{"o2", "u5", 500.0, "Cancelled"},
		{"o3", "u1", 300.0, "DELIVERED"},
	} {
		exec(t, db, `INSERT INTO loyalty.fact_orders (order_id, user_id, grand_total, order_status) VALUES (?, ?, ?, ?)`, o...)
	}

	for _, w := range [][]any{
		{"w1", "u2", "Ravi", 500.0, "pending", "2025-03-09T10:00:00"},
		{"w2", "u2", "Ravi", 200.0, "Approved", "2025-03-05T10:00:00"},
		{"w3", "u1", "Asha", 100.0, "Pending", "2025-03-10T10:00:00"},
	} {
		exec(t, db, `INSERT INTO loyalty.fact_withdrawals (withdrawal_id, user_id, user_name, requested_amount, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`, w...)
	}

	return svc
}

func TestPeriod(t *testing.T) {
	p, err := ParsePeriod(" Week ")
	require.NoError(t, err)
	require.Equal(t, PeriodWeek, p)

	p, err = ParsePeriod("")
	require.NoError(t, err)
	require.Equal(t, PeriodAll, p)

	_, err = ParsePeriod("month")
	require.Error(t, err)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, ist)
	since, ok := PeriodToday.Since(now)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, ist), since)

	since, ok = PeriodWeek.Since(now)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, ist), since)

	_, ok = PeriodAll.Since(now)
	require.False(t, ok)
}

func TestCoinRollups(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	tiers, err := svc.CoinsByTier(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 4)
	require.Equal(t, models.TierStats{Coins: 300, Rupees: 300, Users: 1, Rate: 1}, tiers[models.TierGold])
	require.InDelta(t, 70, tiers[models.TierSilver].Rupees, 1e-9)
	require.InDelta(t, 20, tiers[models.TierBronze].Rupees, 1e-9)
	require.Equal(t, int64(1), tiers[models.TierUnknown].Users)
	require.Equal(t, 0.4, tiers[models.TierUnknown].Rate)

	total, err := svc.TotalCoins(ctx)
	require.NoError(t, err)
	require.Equal(t, 450.0, total)

	active, err := svc.ActiveUsersCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), active)

	holders, err := svc.TopCoinHolders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, holders, 3)
	require.Equal(t, "u1", holders[0].UserId)
	require.Equal(t, 1, holders[0].Rank)
	require.Equal(t, "u4", holders[2].UserId)
}

func TestTopEarnersByPeriod(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	all, err := svc.TopEarners(ctx, PeriodAll, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "u1", all[0].UserId)
	require.Equal(t, 150.0, all[0].Value)
	require.Equal(t, "u4", all[1].UserId)
	require.Equal(t, 20.0, all[1].Value)

	week, err := svc.TopEarners(ctx, PeriodWeek, 1)
	require.NoError(t, err)
	require.Equal(t, 100.0, week[0].Value)

	today, err := svc.TopEarners(ctx, PeriodToday, 10)
	require.NoError(t, err)
	require.Equal(t, "u1", today[0].UserId)
	require.Equal(t, 100.0, today[0].Value)
	require.Equal(t, 0.0, today[1].Value)

	added, err := svc.TopAddedToWallet(ctx, PeriodAll, 10)
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.Equal(t, "u2", added[0].UserId)
	require.Equal(t, 80.0, added[0].Value)
}

func TestCountLeaderboards(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	all, err := svc.TopReferrers(ctx, PeriodAll, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, models.LeaderboardEntry{Rank: 1, UserId: "u1", UserName: "Asha", Value: 2}, all[0])

	week, err := svc.Leaderboard(ctx, models.LeaderboardTopReferrers, PeriodWeek, 10)
	require.NoError(t, err)
	require.Len(t, week, 1)

	today, err := svc.TopReferrers(ctx, PeriodToday, 10)
	require.NoError(t, err)
	require.Equal(t, 1.0, today[0].Value)

	leads, err := svc.TopLeadGenerators(ctx, PeriodAll, 10)
	require.NoError(t, err)
	require.Equal(t, "Meena", leads[0].UserName)

	withdrawers, err := svc.TopWithdrawers(ctx, PeriodAll, 10)
	require.NoError(t, err)
	require.Len(t, withdrawers, 2)
	require.Equal(t, "u2", withdrawers[0].UserId)
	require.Equal(t, int64(2), withdrawers[0].Count)
	require.Equal(t, 700.0, withdrawers[0].Amount)

	_, err = svc.Leaderboard(ctx, "TOP_SOMETHING", PeriodAll, 10)
	require.Error(t, err)
}

func TestDailyActivity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	start := time.Date(2025, 3, 9, 0, 0, 0, 0, ist)
	end := time.Date(2025, 3, 10, 0, 0, 0, 0, ist)
	coins, err := svc.DailyCoinActivity(ctx, start, end)
	require.NoError(t, err)
	require.Equal(t, []CoinActivity{
		{Date: "2025-03-09", Credits: 80, Debits: 30},
		{Date: "2025-03-10", Credits: 100},
	}, coins)

	refs, err := svc.ReferralStatsByRange(ctx, time.Date(2025, 3, 8, 0, 0, 0, 0, ist), end)
	require.NoError(t, err)
	require.Equal(t, []DateCount{{"2025-03-08", 0}, {"2025-03-09", 1}, {"2025-03-10", 1}}, refs)

	leads, err := svc.DailyLeadActivity(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []DateCount{{"2025-03-08", 0}, {"2025-03-09", 0}, {"2025-03-10", 1}}, leads)

	daily, err := svc.DailyReferralActivity(ctx, 30)
	require.NoError(t, err)
	require.Len(t, daily, 30)
	require.Equal(t, "2025-03-10", daily[29].Date)
}

func TestReferralProgramROI(t *testing.T) {
	svc := newTestService(t)

	roi, err := svc.ReferralProgramROI(context.Background())
	require.NoError(t, err)
	require.Equal(t, 70.0, roi.CoinsSpent)
	require.Equal(t, 1000.0, roi.RevenueGenerated)
	require.Equal(t, int64(3), roi.TotalReferrals)
	require.Equal(t, int64(2), roi.ConvertedReferrals)
	require.Equal(t, 28.6, roi.RoiMultiplier)
}

func TestLoyaltySummary(t *testing.T) {
	svc := newTestService(t)

	summary, err := svc.LoyaltySummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, LoyaltySummary{
		TotalUsers:         4,
		ActiveUsers:        3,
		TotalCoins:         450,
		TotalReferrals:     3,
		TotalLeads:         1,
		PendingWithdrawals: 2,
	}, summary)
}

func TestPaginatedLists(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	users, err := svc.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Equal(t, int64(4), users.Total)
	require.Len(t, users.Items, 2)
	require.Equal(t, "u3", users.Items[0].UserId)
	require.Equal(t, "", users.Items[0].UserName)
	require.Equal(t, "u4", users.Items[1].UserId)

	txns, err := svc.ListTransactions(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), txns.Total)
	require.Equal(t, "t1", txns.Items[0].TransactionId)
	require.Equal(t, "t4", txns.Items[1].TransactionId)

	empty, err := svc.ListUsers(ctx, 10, 2)
	require.NoError(t, err)
	require.Empty(t, empty.Items)
}

func TestAsyncExecutor(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	svc := NewServiceFromDB(db, Options{})
	require.NoError(t, svc.EnsureSchema(ctx))

	exec := NewAsyncExecutor(db, 5*time.Second, nil)

	okId, err := exec.Execute(ctx, "INSERT INTO loyalty.dim_tier (tier_id, tier_name, redemption_rate) VALUES ('t1', 'Gold', 1.0)")
	require.NoError(t, err)
	badId, err := exec.Execute(ctx, "INSERT INTO loyalty.no_such_table VALUES (1)")
	require.NoError(t, err)

	waitDone := func(id string) StatementStatus {
		var st StatementStatus
		require.Eventually(t, func() bool {
			st, err = exec.Describe(ctx, id)
			return err == nil && st.State.Done()
		}, 2*time.Second, 5*time.Millisecond)
		return st
	}

	require.Equal(t, StatementFinished, waitDone(okId).State)
	failed := waitDone(badId)
	require.Equal(t, StatementFailed, failed.State)
	require.NotEmpty(t, failed.Error)

	_, err = exec.Describe(ctx, "missing")
	require.True(t, errors.Is(err, ErrStatementNotFound))

	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM loyalty.dim_tier").Scan(&count).Error)
	require.Equal(t, int64(1), count)
}
