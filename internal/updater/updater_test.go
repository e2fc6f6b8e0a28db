package updater

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"loyalty-analytics-go/internal/aggregates"
	"loyalty-analytics-go/internal/entities"
	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/store"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

var (
	ist   = time.FixedZone("IST", 5*3600+1800)
	clock = fixedClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, ist)}
)

func newTestUpdater(t *testing.T, opts Options) (*Updater, *aggregates.Store, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemoryStore(nil)
	aggs := aggregates.NewStore(kv, clock)
	svc := entities.NewService(kv, entities.Options{Location: ist, Clock: clock})
	opts.Clock = clock
	opts.Location = ist
	return New(aggs, svc, opts), aggs, kv
}

func data(t *testing.T, aggs *aggregates.Store, typ models.AggregateType, id string) models.Item {
	t.Helper()
	rec, err := aggs.Get(context.Background(), typ, id)
	if err != nil {
		t.Fatalf("Get(%s/%s) failed: %v", typ, id, err)
	}
	if rec == nil {
		return nil
	}
	return rec.Data
}

func TestWalletDeltas(t *testing.T) {
	tests := []struct {
		name   string
		old    models.Item
		new    models.Item
		coins  float64
		active int64
	}{
		{"zero to positive", models.Item{"remainingAmount": 0}, models.Item{"remainingAmount": 150}, 150, 1},
		{"positive to zero", models.Item{"remainingAmount": 150}, models.Item{"remainingAmount": 0}, -150, -1},
		{"positive to positive", models.Item{"remainingAmount": 100}, models.Item{"remainingAmount": 150.5}, 50.5, 0},
		{"unchanged", models.Item{"remainingAmount": 75}, models.Item{"remainingAmount": 75}, 0, 0},
		{"insert has no old image", nil, models.Item{"remainingAmount": 20}, 20, 1},
		{"remove has no new image", models.Item{"remainingAmount": 20}, nil, -20, -1},
		{"malformed amount defaults to zero", models.Item{"remainingAmount": "abc"}, models.Item{"remainingAmount": 10}, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := WalletDeltas(tt.old, tt.new)
			if d.Coins != tt.coins || d.Active != tt.active {
				t.Errorf("WalletDeltas = %+v, want {%v %v}", d, tt.coins, tt.active)
			}
		})
	}
}

func TestWithdrawalDeltas(t *testing.T) {
	tests := []struct {
		name   string
		old    models.Item
		new    models.Item
		count  int64
		amount float64
	}{
		{"entering pending", nil, models.Item{"status": "pending", "requestedAmount": 500}, 1, 500},
		{"leaving pending", models.Item{"status": "Pending", "requestedAmount": 500}, models.Item{"status": "approved", "requestedAmount": 500}, -1, -500},
		{"pending amount changed", models.Item{"status": "pending", "requestedAmount": 500}, models.Item{"status": "PENDING", "requestedAmount": 650}, 0, 150},
		{"pending amount unchanged", models.Item{"status": "pending", "requestedAmount": 500}, models.Item{"status": "pending", "requestedAmount": 500}, 0, 0},
		{"never pending", models.Item{"status": "approved", "requestedAmount": 1}, models.Item{"status": "rejected", "requestedAmount": 2}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := WithdrawalDeltas(tt.old, tt.new)
			if d.Count != tt.count || d.Amount != tt.amount {
				t.Errorf("WithdrawalDeltas = %+v, want {%v %v}", d, tt.count, tt.amount)
			}
		})
	}
}

func TestCountDelta(t *testing.T) {
	if CountDelta(models.EventInsert) != 1 || CountDelta(models.EventRemove) != -1 || CountDelta(models.EventModify) != 0 {
		t.Errorf("Unexpected count deltas")
	}
}

func TestProcess_WalletZeroToBalance(t *testing.T) {
	u, aggs, _ := newTestUpdater(t, Options{Weekly: true})

	err := u.Process(context.Background(), models.ChangeEvent{
		Id:       "e1",
		Kind:     models.EventModify,
		Source:   models.SourceWallet,
		OldImage: models.Item{"walletId": "w1", "userId": "u1", "remainingAmount": 0},
		NewImage: models.Item{"walletId": "w1", "userId": "u1", "remainingAmount": 150},
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	global := data(t, aggs, models.AggregateGlobal, models.GlobalStatsId)
	if global.Int(models.FieldTotalCoins) != 150 || global.Int(models.FieldActiveUsersCount) != 1 {
		t.Errorf("Unexpected global stats: %v", global)
	}

	bronze := data(t, aggs, models.AggregateTier, models.TierBronze)
	if bronze.Float(models.FieldTierCoins) != 150 || bronze.Float(models.FieldTierRupees) != 60 || bronze.Int(models.FieldTierUsers) != 1 {
		t.Errorf("Unexpected Bronze rollup: %v", bronze)
	}

	weekly := data(t, aggs, models.AggregateWeeklyLeaderboard, models.LeaderboardTopCoinHolders)
	if weekly.Map("users").Int("u1") != 150 {
		t.Errorf("Expected weekly coin gain of 150, got %v", weekly)
	}
}

func TestProcess_WalletTierLookup(t *testing.T) {
	u, aggs, kv := newTestUpdater(t, Options{TierLookup: true})
	ctx := context.Background()
	if err := kv.PutItem(ctx, models.TableTiers, models.Item{"tierId": "t-gold", "tierType": "GOLD"}); err != nil {
		t.Fatal(err)
	}
	if err := kv.PutItem(ctx, models.TableUsers, models.Item{"userId": "u1", "tierId": "t-gold"}); err != nil {
		t.Fatal(err)
	}

	events := []models.ChangeEvent{
		{Id: "e1", Kind: models.EventModify, Source: models.SourceWallet,
			OldImage: models.Item{"userId": "u1", "remainingAmount": 0},
			NewImage: models.Item{"userId": "u1", "remainingAmount": 100}},
		{Id: "e2", Kind: models.EventModify, Source: models.SourceWallet,
			OldImage: models.Item{"userId": "nobody", "remainingAmount": 0},
			NewImage: models.Item{"userId": "nobody", "remainingAmount": 10}},
	}
	result := u.ProcessBatch(ctx, events)
	if result.Failed != 0 {
		t.Fatalf("Unexpected failures: %+v", result.Errors)
	}

	gold := data(t, aggs, models.AggregateTier, models.TierGold)
	if gold.Float(models.FieldTierCoins) != 100 || gold.Float(models.FieldTierRupees) != 100 {
		t.Errorf("Expected Gold attribution, got %v", gold)
	}
	unknown := data(t, aggs, models.AggregateTier, models.TierUnknown)
	if unknown.Float(models.FieldTierCoins) != 10 {
		t.Errorf("Missing user should count as Unknown, got %v", unknown)
	}
	if bronze := data(t, aggs, models.AggregateTier, models.TierBronze); bronze != nil {
		t.Errorf("Bronze must stay untouched, got %v", bronze)
	}
}

func TestProcess_WalletTierMatchesSeed(t *testing.T) {
	u, aggs, kv := newTestUpdater(t, Options{TierLookup: true})
	ctx := context.Background()
	if err := kv.PutItem(ctx, models.TableUsers, models.Item{"userId": "u1"}); err != nil {
		t.Fatal(err)
	}
	if err := kv.PutItem(ctx, models.TableWallets, models.Item{"walletId": "w1", "userId": "u1", "remainingAmount": 100}); err != nil {
		t.Fatal(err)
	}

	svc := entities.NewService(kv, entities.Options{Location: ist, Clock: clock})
	if _, err := aggregates.NewSeeder(svc, aggs, aggregates.SeederOptions{Clock: clock}).Seed(ctx); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if got := data(t, aggs, models.AggregateTier, models.TierUnknown); got.Float(models.FieldTierCoins) != 100 || got.Int(models.FieldTierUsers) != 1 {
		t.Fatalf("Seed should count u1 under Unknown, got %v", got)
	}

	err := u.Process(ctx, models.ChangeEvent{Id: "e1", Kind: models.EventModify, Source: models.SourceWallet,
		OldImage: models.Item{"walletId": "w1", "userId": "u1", "remainingAmount": 100},
		NewImage: models.Item{"walletId": "w1", "userId": "u1", "remainingAmount": 0}})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	unknown := data(t, aggs, models.AggregateTier, models.TierUnknown)
	if unknown.Float(models.FieldTierCoins) != 0 || unknown.Int(models.FieldTierUsers) != 0 || unknown.Float(models.FieldTierRupees) != 0 {
		t.Errorf("Draining the wallet should empty Unknown, got %v", unknown)
	}
	bronze := data(t, aggs, models.AggregateTier, models.TierBronze)
	if bronze.Float(models.FieldTierCoins) != 0 || bronze.Int(models.FieldTierUsers) != 0 {
		t.Errorf("Bronze must not absorb the Unknown user, got %v", bronze)
	}
}

func TestProcess_WalletDefaultTierWithoutLookup(t *testing.T) {
	u, aggs, _ := newTestUpdater(t, Options{TierLookup: false, DefaultTier: models.TierSilver})

	err := u.Process(context.Background(), models.ChangeEvent{Id: "e1", Kind: models.EventModify, Source: models.SourceWallet,
		OldImage: models.Item{"userId": "u1", "remainingAmount": 0},
		NewImage: models.Item{"userId": "u1", "remainingAmount": 10}})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if silver := data(t, aggs, models.AggregateTier, models.TierSilver); silver.Float(models.FieldTierCoins) != 10 {
		t.Errorf("Expected default tier attribution, got %v", silver)
	}
}

func TestProcess_ReferralToday(t *testing.T) {
	u, aggs, _ := newTestUpdater(t, Options{Weekly: true})
	ctx := context.Background()
	image := models.Item{
		"tierReferralId": "r1",
		"userId":         "u1",
		"created_time":   clock.now.Add(-time.Hour).UnixMilli(),
	}

	if err := u.Process(ctx, models.ChangeEvent{Id: "e1", Kind: models.EventInsert, Source: models.SourceReferral, NewImage: image}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	global := data(t, aggs, models.AggregateGlobal, models.GlobalStatsId)
	if global.Int(models.FieldTodayReferralsCount) != 1 {
		t.Errorf("Expected today referrals +1, got %v", global)
	}
	daily := data(t, aggs, models.AggregateDaily, "2025-03-10")
	if daily.Int(models.FieldDailyReferrals) != 1 {
		t.Errorf("Expected DAILY referrals +1, got %v", daily)
	}
	weekly := data(t, aggs, models.AggregateWeeklyLeaderboard, models.LeaderboardTopReferrers)
	if weekly.Map("users").Int("u1") != 1 {
		t.Errorf("Expected weekly referrer count 1, got %v", weekly)
	}

	if err := u.Process(ctx, models.ChangeEvent{Id: "e2", Kind: models.EventRemove, Source: models.SourceReferral, OldImage: image}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	global = data(t, aggs, models.AggregateGlobal, models.GlobalStatsId)
	daily = data(t, aggs, models.AggregateDaily, "2025-03-10")
	if global.Int(models.FieldTodayReferralsCount) != 0 || daily.Int(models.FieldDailyReferrals) != 0 {
		t.Errorf("Remove should undo the insert, got %v / %v", global, daily)
	}
}

func TestProcess_LeadPastDateAndBadTimestamp(t *testing.T) {
	u, aggs, _ := newTestUpdater(t, Options{})
	ctx := context.Background()

	err := u.Process(ctx, models.ChangeEvent{Id: "e1", Kind: models.EventInsert, Source: models.SourceLead,
		NewImage: models.Item{"leadId": "l1", "userId": "u1", "created_time": "2025-03-01T10:00:00"}})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if g := data(t, aggs, models.AggregateGlobal, models.GlobalStatsId); g != nil {
		t.Errorf("Past-dated lead must not touch today's counter, got %v", g)
	}
	if d := data(t, aggs, models.AggregateDaily, "2025-03-01"); d.Int(models.FieldDailyLeads) != 1 {
		t.Errorf("Expected DAILY leads +1 on 2025-03-01, got %v", d)
	}

	err = u.Process(ctx, models.ChangeEvent{Id: "e2", Kind: models.EventInsert, Source: models.SourceLead,
		NewImage: models.Item{"leadId": "l2", "userId": "u1", "created_time": "not a date"}})
	if err != nil {
		t.Errorf("Unparseable timestamps are skipped, not failed: %v", err)
	}

	err = u.Process(ctx, models.ChangeEvent{Id: "e3", Kind: models.EventModify, Source: models.SourceLead,
		NewImage: models.Item{"leadId": "l1", "created_time": "2025-03-10"}})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if g := data(t, aggs, models.AggregateGlobal, models.GlobalStatsId); g != nil {
		t.Errorf("Lead modification must not count, got %v", g)
	}
}

func TestProcess_WithdrawalLifecycle(t *testing.T) {
	u, aggs, _ := newTestUpdater(t, Options{Weekly: true})
	ctx := context.Background()
	pending := models.Item{"requestedId": "q1", "userId": "u1", "status": "pending", "requestedAmount": 500}
	approved := models.Item{"requestedId": "q1", "userId": "u1", "status": "approved", "requestedAmount": 500}

	if err := u.Process(ctx, models.ChangeEvent{Id: "e1", Kind: models.EventInsert, Source: models.SourceWithdrawal, NewImage: pending}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	global := data(t, aggs, models.AggregateGlobal, models.GlobalStatsId)
	if global.Int(models.FieldPendingWithdrawalsCount) != 1 || global.Int(models.FieldPendingWithdrawalsAmount) != 500 {
		t.Errorf("Expected (+1, +500), got %v", global)
	}

	if err := u.Process(ctx, models.ChangeEvent{Id: "e2", Kind: models.EventModify, Source: models.SourceWithdrawal, OldImage: pending, NewImage: approved}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	global = data(t, aggs, models.AggregateGlobal, models.GlobalStatsId)
	if global.Int(models.FieldPendingWithdrawalsCount) != 0 || global.Int(models.FieldPendingWithdrawalsAmount) != 0 {
		t.Errorf("Expected counters back at zero, got %v", global)
	}

	member := data(t, aggs, models.AggregateWeeklyLeaderboard, models.LeaderboardTopWithdrawers).Map("users").Map("u1")
	if member.Int("count") != 1 || member.Float("amount") != 500 {
		t.Errorf("Expected weekly withdrawer {1, 500}, got %v", member)
	}
}

type failingWriter struct {
	AggregateWriter
	failOn models.AggregateType
}

func (f failingWriter) UpdateDelta(ctx context.Context, t models.AggregateType, id string, deltas map[string]float64) (bool, error) {
	if t == f.failOn {
		return false, errors.New("store unavailable")
	}
	return f.AggregateWriter.UpdateDelta(ctx, t, id, deltas)
}

func TestProcessBatch_BestEffort(t *testing.T) {
	kv := store.NewMemoryStore(nil)
	aggs := aggregates.NewStore(kv, clock)
	u := New(failingWriter{AggregateWriter: aggs, failOn: models.AggregateDaily}, nil, Options{Clock: clock, Location: ist})

	events := []models.ChangeEvent{
		{Id: "ok-1", Kind: models.EventModify, Source: models.SourceWallet,
			OldImage: models.Item{"remainingAmount": 0}, NewImage: models.Item{"remainingAmount": 40}},
		{Id: "bad-source", Kind: models.EventInsert, Source: models.SourceUnknown},
		{Id: "bad-kind", Kind: "UPSERT", Source: models.SourceLead},
		{Id: "store-fail", Kind: models.EventInsert, Source: models.SourceLead,
			NewImage: models.Item{"leadId": "l1", "created_time": "2025-03-01"}},
		{Id: "ok-2", Kind: models.EventModify, Source: models.SourceWallet,
			OldImage: models.Item{"remainingAmount": 40}, NewImage: models.Item{"remainingAmount": 50}},
	}

	result := u.ProcessBatch(context.Background(), events)
	if result.Processed != 2 || result.Failed != 3 {
		t.Fatalf("Expected 2 processed / 3 failed, got %+v", result)
	}

	permanent := map[string]bool{}
	for _, e := range result.Errors {
		permanent[e.EventId] = IsPermanent(e.Err)
	}
	if !permanent["bad-source"] || !permanent["bad-kind"] || permanent["store-fail"] {
		t.Errorf("Unexpected permanence classification: %v", permanent)
	}

	global := data(t, aggs, models.AggregateGlobal, models.GlobalStatsId)
	if global.Int(models.FieldTotalCoins) != 50 || global.Int(models.FieldActiveUsersCount) != 1 {
		t.Errorf("Good events in a failing batch must still apply, got %v", global)
	}
}

// flakyWriter fails the first write to one aggregate type, then recovers.
type flakyWriter struct {
	AggregateWriter
	failOn models.AggregateType
	mutex  sync.Mutex
	failed bool
}

func (f *flakyWriter) UpdateDelta(ctx context.Context, t models.AggregateType, id string, deltas map[string]float64) (bool, error) {
	f.mutex.Lock()
	fail := t == f.failOn && !f.failed
	if fail {
		f.failed = true
	}
	f.mutex.Unlock()
	if fail {
		return false, errors.New("store unavailable")
	}
	return f.AggregateWriter.UpdateDelta(ctx, t, id, deltas)
}

func TestProcess_RedeliveryAppliesEachWriteOnce(t *testing.T) {
	kv := store.NewMemoryStore(nil)
	aggs := aggregates.NewStore(kv, clock)
	u := New(&flakyWriter{AggregateWriter: aggs, failOn: models.AggregateTier}, nil, Options{Clock: clock, Location: ist, Weekly: true})
	ctx := context.Background()

	ev := models.ChangeEvent{Id: "e1", Kind: models.EventModify, Source: models.SourceWallet,
		OldImage: models.Item{"userId": "u1", "remainingAmount": 0},
		NewImage: models.Item{"userId": "u1", "remainingAmount": 150}}

	if err := u.Process(ctx, ev); err == nil {
		t.Fatal("Expected the first delivery to fail on the tier write")
	}
	if u.journal.pending() != 1 {
		t.Errorf("Partly applied event should be remembered, pending=%d", u.journal.pending())
	}
	if err := u.Process(ctx, ev); err != nil {
		t.Fatalf("Redelivery failed: %v", err)
	}

	global := data(t, aggs, models.AggregateGlobal, models.GlobalStatsId)
	if global.Float(models.FieldTotalCoins) != 150 || global.Int(models.FieldActiveUsersCount) != 1 {
		t.Errorf("GLOBAL must count the event once, got %v", global)
	}
	tier := data(t, aggs, models.AggregateTier, models.TierBronze)
	if tier.Float(models.FieldTierCoins) != 150 {
		t.Errorf("TIER should be applied by the redelivery, got %v", tier)
	}
	weekly := data(t, aggs, models.AggregateWeeklyLeaderboard, models.LeaderboardTopCoinHolders)
	if weekly.Map("users").Float("u1") != 150 {
		t.Errorf("Weekly gain must count once, got %v", weekly)
	}
	if u.journal.pending() != 0 {
		t.Errorf("Fully applied event should be forgotten, pending=%d", u.journal.pending())
	}
}

func TestJournalPrune(t *testing.T) {
	j := newJournal(time.Hour)
	now := clock.now
	j.mark("old", "GLOBAL/stats", now.Add(-2*time.Hour))
	j.mark("recent", "GLOBAL/stats", now.Add(-time.Minute))
	j.mark("", "GLOBAL/stats", now)

	if pruned := j.prune(now); pruned != 1 {
		t.Errorf("pruned %d entries, want 1", pruned)
	}
	if j.done("old", "GLOBAL/stats") || !j.done("recent", "GLOBAL/stats") || j.done("", "GLOBAL/stats") {
		t.Errorf("Unexpected journal state after prune")
	}
}
