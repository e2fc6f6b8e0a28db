package aggregates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"loyalty-analytics-go/internal/cache"
	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
)

// DefaultTTL bounds how stale a cached aggregate read may be.
const DefaultTTL = 60 * time.Second

// errAbsent keeps missing records out of the cache.
var errAbsent = errors.New("aggregate not present")

// NameResolver maps user ids to display names.
type NameResolver interface {
	UserNames(ctx context.Context, ids []string) map[string]string
}

// Reader serves aggregate reads through a TTL cache.
type Reader struct {
	store   *Store
	names   NameResolver
	cache   *cache.Cache
	clock   cache.Clock
	loc     *time.Location
	ttl     time.Duration
	enabled bool
}

type ReaderOptions struct {
	Cache    *cache.Cache
	Clock    cache.Clock
	Location *time.Location
	TTL      time.Duration
	Enabled  bool
}

func NewReader(st *Store, names NameResolver, opts ReaderOptions) *Reader {
	if opts.Clock == nil {
		opts.Clock = cache.SystemClock{}
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(opts.Clock)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Reader{
		store:   st,
		names:   names,
		cache:   opts.Cache,
		clock:   opts.Clock,
		loc:     opts.Location,
		ttl:     opts.TTL,
		enabled: opts.Enabled,
	}
}

// Enabled reports whether aggregates are switched on and seeded.
func (r *Reader) Enabled(ctx context.Context) bool {
	if !r.enabled {
		return false
	}
	rec, err := r.store.Get(ctx, models.AggregateGlobal, models.GlobalStatsId)
	if err != nil {
		zap.L().Warn("Aggregate table unavailable", zap.Error(err))
		return false
	}
	return rec != nil
}

// Invalidate drops every cached read.
func (r *Reader) Invalidate() {
	r.cache.Purge()
}

func (r *Reader) record(ctx context.Context, t models.AggregateType, id string) (models.Item, error) {
	rec, err := r.store.Get(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errAbsent
	}
	return rec.Data, nil
}

func absentAsNil[V any](v V, err error) (V, bool, error) {
	if errors.Is(err, errAbsent) {
		var zero V
		return zero, false, nil
	}
	if err != nil {
		var zero V
		return zero, false, err
	}
	return v, true, nil
}

// GlobalStats returns the headline KPIs; ok is false when aggregates are
// disabled or not seeded.
func (r *Reader) GlobalStats(ctx context.Context) (models.GlobalStats, bool, error) {
	if !r.enabled {
		return models.GlobalStats{}, false, nil
	}
	stats, err := cache.GetOrRefresh(r.cache, "global_stats", r.ttl, func() (models.GlobalStats, error) {
		data, err := r.record(ctx, models.AggregateGlobal, models.GlobalStatsId)
		if err != nil {
			return models.GlobalStats{}, err
		}
		return models.GlobalStatsFromData(data), nil
	})
	return absentAsNil(stats, err)
}

// TierStats returns the rollups present for each tier; empty when none are.
func (r *Reader) TierStats(ctx context.Context) (map[string]models.TierStats, error) {
	if !r.enabled {
		return map[string]models.TierStats{}, nil
	}
	return cache.GetOrRefresh(r.cache, "tier_stats", r.ttl, func() (map[string]models.TierStats, error) {
		out := make(map[string]models.TierStats)
		for _, name := range models.TierNames {
			data, err := r.record(ctx, models.AggregateTier, name)
			if errors.Is(err, errAbsent) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[name] = models.TierStatsFromData(data)
		}
		return out, nil
	})
}

// Leaderboard returns the top limit rows of a seeded all-time board.
func (r *Reader) Leaderboard(ctx context.Context, name string, limit int) ([]models.LeaderboardEntry, error) {
	if !r.enabled {
		return nil, nil
	}
	entries, err := cache.GetOrRefresh(r.cache, "leaderboard_"+name, r.ttl, func() ([]models.LeaderboardEntry, error) {
		data, err := r.record(ctx, models.AggregateLeaderboard, name)
		if err != nil {
			return nil, err
		}
		return entriesFromData(data), nil
	})
	entries, _, err = absentAsNil(entries, err)
	if err != nil {
		return nil, err
	}
	return truncate(entries, limit), nil
}

func entriesFromData(data models.Item) []models.LeaderboardEntry {
	raw, _ := data["items"].([]any)
	entries := make([]models.LeaderboardEntry, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case models.Item:
			entries = append(entries, models.LeaderboardEntryFromData(t))
		case map[string]any:
			entries = append(entries, models.LeaderboardEntryFromData(models.Item(t)))
		}
	}
	return entries
}

// WeeklyLeaderboard ranks the members of a rolling-window count map at read
// time. Names are resolved for the returned rows only; unresolved ids get
// the Unknown placeholder.
func (r *Reader) WeeklyLeaderboard(ctx context.Context, name string, limit int) ([]models.LeaderboardEntry, error) {
	if !r.enabled {
		return nil, nil
	}
	key := fmt.Sprintf("weekly_leaderboard_%s_%d", name, limit)
	entries, err := cache.GetOrRefresh(r.cache, key, r.ttl, func() ([]models.LeaderboardEntry, error) {
		data, err := r.record(ctx, models.AggregateWeeklyLeaderboard, name)
		if err != nil {
			return nil, err
		}
		entries := truncate(RankMembers(data.Map("users")), limit)

		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.UserId
		}
		names := r.names.UserNames(ctx, ids)
		for i := range entries {
			entries[i].UserName = names[entries[i].UserId]
			if entries[i].UserName == "" {
				entries[i].UserName = models.UnknownName
			}
		}
		return entries, nil
	})
	entries, _, err = absentAsNil(entries, err)
	if err != nil {
		return nil, err
	}
	return truncate(entries, 0), nil
}

// RankMembers sorts a weekly member map by count descending. Members are
// either plain counts or {count, amount} objects; ties break on amount, then id.
func RankMembers(users models.Item) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(users))
	for id, v := range users {
		e := models.LeaderboardEntry{UserId: id}
		switch t := v.(type) {
		case models.Item:
			e.Count = t.Int("count")
			e.Amount = t.Float("amount")
			e.Value = float64(e.Count)
		case map[string]any:
			m := models.Item(t)
			e.Count = m.Int("count")
			e.Amount = m.Float("amount")
			e.Value = float64(e.Count)
		default:
			f, _ := models.ToFloat(t)
			e.Value = f
			e.Count = int64(f)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return a.UserId < b.UserId
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (r *Reader) weeklyOrAllTime(ctx context.Context, name string, limit int) ([]models.LeaderboardEntry, error) {
	weekly, err := r.WeeklyLeaderboard(ctx, name, limit)
	if err != nil {
		zap.L().Warn("Weekly leaderboard read failed, using all-time",
			zap.String("leaderboard", name),
			zap.Error(err))
	}
	if len(weekly) > 0 {
		return weekly, nil
	}
	return r.Leaderboard(ctx, name, limit)
}

func (r *Reader) TopCoinHolders(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return r.weeklyOrAllTime(ctx, models.LeaderboardTopCoinHolders, limit)
}

func (r *Reader) TopReferrers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return r.weeklyOrAllTime(ctx, models.LeaderboardTopReferrers, limit)
}

func (r *Reader) TopLeadGenerators(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return r.weeklyOrAllTime(ctx, models.LeaderboardTopLeadGenerators, limit)
}

func (r *Reader) TopWithdrawers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return r.weeklyOrAllTime(ctx, models.LeaderboardTopWithdrawers, limit)
}

// TopEarners has no weekly board.
func (r *Reader) TopEarners(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return r.Leaderboard(ctx, models.LeaderboardTopEarners, limit)
}

// TodayReferrals reads today's DAILY record; zero when none exists yet.
func (r *Reader) TodayReferrals(ctx context.Context) (int64, error) {
	m, err := r.today(ctx)
	return m.Referrals, err
}

func (r *Reader) TodayLeads(ctx context.Context) (int64, error) {
	m, err := r.today(ctx)
	return m.Leads, err
}

func (r *Reader) today(ctx context.Context) (models.DailyMetrics, error) {
	today := r.clock.Now().In(r.loc).Format(models.DateLayout)
	rows, err := r.dailyRange(ctx, []string{today})
	if err != nil {
		return models.DailyMetrics{Date: today}, err
	}
	return rows[0], nil
}

// DailyMetrics returns one row per date in [start, end], zero-filled where
// no DAILY record exists.
func (r *Reader) DailyMetrics(ctx context.Context, start, end time.Time) ([]models.DailyMetrics, error) {
	if !r.enabled {
		return nil, nil
	}
	return r.dailyRange(ctx, models.DateRange(start.In(r.loc), end.In(r.loc)))
}

func (r *Reader) dailyRange(ctx context.Context, dates []string) ([]models.DailyMetrics, error) {
	out := make([]models.DailyMetrics, len(dates))
	for i, d := range dates {
		rec, err := r.store.Get(ctx, models.AggregateDaily, d)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			out[i] = models.DailyMetrics{Date: d}
			continue
		}
		out[i] = models.DailyMetricsFromData(d, rec.Data)
	}
	return out, nil
}

// truncate returns at most limit rows in a fresh slice; callers may
// mutate the result without touching cached rows.
func truncate(entries []models.LeaderboardEntry, limit int) []models.LeaderboardEntry {
	if entries == nil {
		return nil
	}
	n := len(entries)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]models.LeaderboardEntry, n)
	copy(out, entries[:n])
	return out
}
