package entities

import (
	"context"
	"errors"
	"testing"
	"time"

	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/store"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

var ist = time.FixedZone("IST", 5*3600+1800)

func newTestService(t *testing.T, readOnly bool) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(nil)
	svc := NewService(st, Options{
		Location: ist,
		Clock:    fixedClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, ist)},
		ReadOnly: readOnly,
	})
	return svc, st
}

func put(t *testing.T, st store.Store, table string, items ...models.Item) {
	t.Helper()
	for _, item := range items {
		if err := st.PutItem(context.Background(), table, item); err != nil {
			t.Fatalf("PutItem(%s) failed: %v", table, err)
		}
	}
}

func seedMembers(t *testing.T, st store.Store) {
	put(t, st, models.TableTiers,
		models.Item{"tierId": "t-gold", "tierType": "GOLD"},
		models.Item{"tierId": "t-silver", "tierType": "SILVER"},
	)
	put(t, st, models.TableUsers,
		models.Item{"userId": "u1", "userName": "Asha", "phoneNumber": "9704612333", "tierId": "t-gold"},
		models.Item{"userId": "u2", "userName": "Ravi", "phoneNumber": "9000000002", "tierId": "t-silver"},
		models.Item{"userId": "u3", "userName": "Meena", "phoneNumber": "9000000003"},
	)
	put(t, st, models.TableWallets,
		models.Item{"walletId": "w1", "userId": "u1", "remainingAmount": 300},
		models.Item{"walletId": "w2", "userId": "u2", "remainingAmount": 100},
		models.Item{"walletId": "w3", "userId": "u3", "remainingAmount": 0},
		models.Item{"walletId": "w4", "userId": "ghost", "remainingAmount": 50},
	)
}

func TestSearchUsers_PhoneThenId(t *testing.T) {
	svc, st := newTestService(t, true)
	seedMembers(t, st)
	ctx := context.Background()

	users, err := svc.SearchUsers(ctx, "9704612333")
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	if len(users) != 1 || users[0].Id != "u1" {
		t.Fatalf("Expected phone match u1, got %+v", users)
	}

	users, err = svc.SearchUsers(ctx, "u2")
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Ravi" {
		t.Errorf("Expected id match Ravi, got %+v", users)
	}

	users, _ = svc.SearchUsers(ctx, "nobody")
	if len(users) != 0 {
		t.Errorf("Expected no match, got %+v", users)
	}
}

func TestUserNames_Placeholder(t *testing.T) {
	svc, st := newTestService(t, true)
	seedMembers(t, st)

	names := svc.UserNames(context.Background(), []string{"u1", "ghost", "u1"})
	if names["u1"] != "Asha" {
		t.Errorf("Expected Asha, got %q", names["u1"])
	}
	if names["ghost"] != models.UnknownName {
		t.Errorf("Expected placeholder for missing user, got %q", names["ghost"])
	}
}

func TestWalletRollups(t *testing.T) {
	svc, st := newTestService(t, true)
	seedMembers(t, st)
	ctx := context.Background()

	total, err := svc.TotalCoins(ctx)
	if err != nil || total != 450 {
		t.Fatalf("TotalCoins = %v, %v; want 450", total, err)
	}
	active, err := svc.ActiveUsersCount(ctx)
	if err != nil || active != 3 {
		t.Fatalf("ActiveUsersCount = %v, %v; want 3", active, err)
	}

	tiers, err := svc.CoinsByTier(ctx)
	if err != nil {
		t.Fatalf("CoinsByTier failed: %v", err)
	}
	if len(tiers) != len(models.TierNames) {
		t.Errorf("Expected every tier present, got %d", len(tiers))
	}
	if g := tiers[models.TierGold]; g.Coins != 300 || g.Rupees != 300 || g.Users != 1 {
		t.Errorf("Gold = %+v", g)
	}
	if s := tiers[models.TierSilver]; s.Coins != 100 || s.Rupees != 70 {
		t.Errorf("Silver = %+v", s)
	}
	if u := tiers[models.TierUnknown]; u.Coins != 50 || u.Users != 1 {
		t.Errorf("Unknown should hold the orphan wallet, got %+v", u)
	}
	if b := tiers[models.TierBronze]; b.Users != 0 || b.Rate != 0.40 {
		t.Errorf("Bronze should be empty with its rate, got %+v", b)
	}

	top, err := svc.TopCoinHolders(ctx, 2)
	if err != nil {
		t.Fatalf("TopCoinHolders failed: %v", err)
	}
	if len(top) != 2 || top[0].UserId != "u1" || top[0].Rank != 1 || top[1].UserName != "Ravi" {
		t.Errorf("Unexpected coin holders: %+v", top)
	}
}

func TestTopEarners_ExcludesAddedToWallet(t *testing.T) {
	svc, st := newTestService(t, true)
	seedMembers(t, st)
	put(t, st, models.TableWalletTransactions,
		models.Item{"transactionId": "x1", "userId": "u1", "title": "Signup Bonus", "amount": 100},
		models.Item{"transactionId": "x2", "userId": "u1", "title": "Referral", "amount": 50},
		models.Item{"transactionId": "x3", "userId": "u2", "title": "Signup Bonus", "amount": 500},
		models.Item{"transactionId": "x4", "userId": "u2", "title": "Added to Wallet", "amount": 200},
		models.Item{"transactionId": "x5", "userId": "u3", "title": "Redeemed", "amount": -40},
	)
	ctx := context.Background()

	earners, err := svc.TopEarners(ctx, 5)
	if err != nil {
		t.Fatalf("TopEarners failed: %v", err)
	}
	if len(earners) != 1 || earners[0].UserId != "u1" || earners[0].Value != 150 {
		t.Errorf("Expected only u1 with 150, got %+v", earners)
	}

	added, err := svc.TopAddedToWallet(ctx, 5)
	if err != nil {
		t.Fatalf("TopAddedToWallet failed: %v", err)
	}
	if len(added) != 1 || added[0].UserId != "u2" || added[0].Value != 200 {
		t.Errorf("Expected u2 with 200, got %+v", added)
	}
}

func TestDailyCoinActivity_ZeroFilled(t *testing.T) {
	svc, st := newTestService(t, true)
	put(t, st, models.TableWalletTransactions,
		models.Item{"transactionId": "x1", "userId": "u1", "title": "Signup Bonus", "amount": 100, "created_time": "2025-03-09T10:00:00"},
		models.Item{"transactionId": "x2", "userId": "u1", "title": "Redeemed", "amount": -30, "created_time": "2025-03-09T11:00:00"},
		models.Item{"transactionId": "x3", "userId": "u1", "title": "Old", "amount": 5, "created_time": "2024-01-01"},
		models.Item{"transactionId": "x4", "userId": "u1", "title": "Bad", "amount": 5, "created_time": "garbage"},
	)

	start := time.Date(2025, 3, 8, 0, 0, 0, 0, ist)
	end := time.Date(2025, 3, 10, 0, 0, 0, 0, ist)
	rows, err := svc.DailyCoinActivity(context.Background(), start, end)
	if err != nil {
		t.Fatalf("DailyCoinActivity failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 days, got %d", len(rows))
	}
	if rows[1].Date != "2025-03-09" || rows[1].Credits != 100 || rows[1].Debits != 30 {
		t.Errorf("Unexpected 2025-03-09 row: %+v", rows[1])
	}
	if rows[0].Credits != 0 || rows[2].Debits != 0 {
		t.Errorf("Expected zero-filled edges, got %+v", rows)
	}
}

func TestTodayCounts_UseServiceTimezone(t *testing.T) {
	svc, st := newTestService(t, true)
	// 2025-03-09T20:00:00Z is 2025-03-10 01:30 IST.
	ms := time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC).UnixMilli()
	put(t, st, models.TableReferrals,
		models.Item{"tierReferralId": "r1", "userId": "u1", "created_time": ms},
		models.Item{"tierReferralId": "r2", "userId": "u1", "created_time": "2025-03-10T08:00:00"},
		models.Item{"tierReferralId": "r3", "userId": "u2", "created_time": "2025-03-09T08:00:00"},
	)
	put(t, st, models.TableLeads,
		models.Item{"leadId": "l1", "userId": "u2", "created_time": "2025-03-10"},
	)
	ctx := context.Background()

	refs, err := svc.TodayReferralsCount(ctx)
	if err != nil || refs != 2 {
		t.Errorf("TodayReferralsCount = %d, %v; want 2", refs, err)
	}
	leads, err := svc.TodayLeadsCount(ctx)
	if err != nil || leads != 1 {
		t.Errorf("TodayLeadsCount = %d, %v; want 1", leads, err)
	}

	top, _ := svc.TopReferrers(ctx, 5)
	if len(top) != 2 || top[0].UserId != "u1" || top[0].Value != 2 {
		t.Errorf("Unexpected referrers: %+v", top)
	}

	stats, _ := svc.ReferralStatsByRange(ctx, time.Date(2025, 3, 9, 0, 0, 0, 0, ist), time.Date(2025, 3, 10, 0, 0, 0, 0, ist))
	if len(stats) != 2 || stats[0].Count != 1 || stats[1].Count != 2 {
		t.Errorf("Unexpected range stats: %+v", stats)
	}
}

func TestWithdrawals(t *testing.T) {
	svc, st := newTestService(t, false)
	seedMembers(t, st)
	put(t, st, models.TableWithdrawals,
		models.Item{"requestedId": "q1", "userId": "u1", "requestedAmount": 500, "status": "Pending"},
		models.Item{"requestedId": "q2", "userId": "u1", "requestedAmount": 200, "status": "pending"},
		models.Item{"requestedId": "q3", "userId": "u2", "requestedAmount": 900, "status": "Approved"},
	)
	ctx := context.Background()

	summary, err := svc.PendingSummary(ctx)
	if err != nil {
		t.Fatalf("PendingSummary failed: %v", err)
	}
	if summary.Count != 2 || summary.Amount.IntPart() != 700 {
		t.Errorf("Expected 2 pending totalling 700, got %+v", summary)
	}

	top, _ := svc.TopWithdrawers(ctx, 5)
	if len(top) != 2 || top[0].UserId != "u1" || top[0].Count != 2 || top[0].Amount != 700 {
		t.Errorf("Unexpected withdrawers: %+v", top)
	}

	w, err := svc.ApproveWithdrawal(ctx, "q1")
	if err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}
	if w.Status != models.WithdrawalApproved || w.UpdatedTime != "2025-03-10T12:00:00" {
		t.Errorf("Unexpected approved withdrawal: %+v", w)
	}

	_, err = svc.RejectWithdrawal(ctx, "missing")
	if !errors.Is(err, ErrWithdrawalNotFound) {
		t.Errorf("Expected ErrWithdrawalNotFound, got %v", err)
	}
	if _, err := st.GetItem(ctx, models.TableWithdrawals, store.Key{"requestedId": "missing"}); !errors.Is(err, store.ErrItemNotFound) {
		t.Errorf("Rejecting a missing withdrawal must not create it")
	}
}

func TestWithdrawals_ReadOnly(t *testing.T) {
	svc, st := newTestService(t, true)
	put(t, st, models.TableWithdrawals,
		models.Item{"requestedId": "q1", "userId": "u1", "requestedAmount": 500, "status": "Pending"},
	)
	ctx := context.Background()

	if _, err := svc.ApproveWithdrawal(ctx, "q1"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Expected ErrReadOnly, got %v", err)
	}
	item, _ := st.GetItem(ctx, models.TableWithdrawals, store.Key{"requestedId": "q1"})
	if item.String("status") != "Pending" {
		t.Errorf("Read-only mode must not change status, got %q", item.String("status"))
	}
}

func TestUserTier(t *testing.T) {
	svc, st := newTestService(t, true)
	seedMembers(t, st)
	ctx := context.Background()

	tests := []struct {
		userId string
		want   string
	}{
		{"u1", models.TierGold},
		{"u2", models.TierSilver},
		{"u3", models.TierUnknown},
		{"ghost", models.TierUnknown},
	}
	for _, tt := range tests {
		got, err := svc.UserTier(ctx, tt.userId)
		if err != nil {
			t.Fatalf("UserTier(%s) failed: %v", tt.userId, err)
		}
		if got != tt.want {
			t.Errorf("UserTier(%s) = %s, want %s", tt.userId, got, tt.want)
		}
	}
}
