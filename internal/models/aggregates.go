package models

// AggregateType partitions the aggregate table
type AggregateType string

const (
	AggregateGlobal            AggregateType = "GLOBAL"
	AggregateTier              AggregateType = "TIER"
	AggregateDaily             AggregateType = "DAILY"
	AggregateLeaderboard       AggregateType = "LEADERBOARD"
	AggregateWeeklyLeaderboard AggregateType = "WEEKLY_LEADERBOARD"
)

// GlobalStatsId is the aggregate id of the singleton counters record.
const GlobalStatsId = "STATS"

// Counter fields stored in GLOBAL/STATS
const (
	FieldTotalCoins               = "totalCoins"
	FieldActiveUsersCount         = "activeUsersCount"
	FieldPendingWithdrawalsCount  = "pendingWithdrawalsCount"
	FieldPendingWithdrawalsAmount = "pendingWithdrawalsAmount"
	FieldTodayReferralsCount      = "todayReferralsCount"
	FieldTodayLeadsCount          = "todayLeadsCount"
)

// Counter fields stored in TIER/<name>
const (
	FieldTierCoins  = "coins"
	FieldTierRupees = "rupees"
	FieldTierUsers  = "users"
	FieldTierRate   = "rate"
)

// Counter fields stored in DAILY/<date>
const (
	FieldDailyReferrals   = "referrals"
	FieldDailyLeads       = "leads"
	FieldDailyCoinCredits = "coinCredits"
	FieldDailyCoinDebits  = "coinDebits"
)

// Leaderboard names, shared by all-time and weekly aggregates
const (
	LeaderboardTopCoinHolders    = "TOP_COIN_HOLDERS"
	LeaderboardTopReferrers      = "TOP_REFERRERS"
	LeaderboardTopLeadGenerators = "TOP_LEAD_GENERATORS"
	LeaderboardTopEarners        = "TOP_EARNERS"
	LeaderboardTopWithdrawers    = "TOP_WITHDRAWERS"
	LeaderboardTopAddedToWallet  = "TOP_ADDED_TO_WALLET"
)

// AggregateRecord is one row of the aggregate table
type AggregateRecord struct {
	Type        AggregateType `json:"aggregateType"`
	Id          string        `json:"aggregateId"`
	LastUpdated int64         `json:"lastUpdated"`
	Data        Item          `json:"data"`
}

// GlobalStats are the headline KPIs
type GlobalStats struct {
	TotalCoins               float64 `json:"totalCoins"`
	ActiveUsersCount         int64   `json:"activeUsersCount"`
	PendingWithdrawalsCount  int64   `json:"pendingWithdrawalsCount"`
	PendingWithdrawalsAmount float64 `json:"pendingWithdrawalsAmount"`
	TodayReferralsCount      int64   `json:"todayReferralsCount"`
	TodayLeadsCount          int64   `json:"todayLeadsCount"`
}

func GlobalStatsFromData(data Item) GlobalStats {
	return GlobalStats{
		TotalCoins:               data.Float(FieldTotalCoins),
		ActiveUsersCount:         data.Int(FieldActiveUsersCount),
		PendingWithdrawalsCount:  data.Int(FieldPendingWithdrawalsCount),
		PendingWithdrawalsAmount: data.Float(FieldPendingWithdrawalsAmount),
		TodayReferralsCount:      data.Int(FieldTodayReferralsCount),
		TodayLeadsCount:          data.Int(FieldTodayLeadsCount),
	}
}

func (g GlobalStats) Data() Item {
	return Item{
		FieldTotalCoins:               g.TotalCoins,
		FieldActiveUsersCount:         g.ActiveUsersCount,
		FieldPendingWithdrawalsCount:  g.PendingWithdrawalsCount,
		FieldPendingWithdrawalsAmount: g.PendingWithdrawalsAmount,
		FieldTodayReferralsCount:      g.TodayReferralsCount,
		FieldTodayLeadsCount:          g.TodayLeadsCount,
	}
}

// TierStats is the per-tier coin rollup
type TierStats struct {
	Coins  float64 `json:"coins"`
	Rupees float64 `json:"rupees"`
	Users  int64   `json:"users"`
	Rate   float64 `json:"rate"`
}

func TierStatsFromData(data Item) TierStats {
	return TierStats{
		Coins:  data.Float(FieldTierCoins),
		Rupees: data.Float(FieldTierRupees),
		Users:  data.Int(FieldTierUsers),
		Rate:   data.Float(FieldTierRate),
	}
}

func (t TierStats) Data() Item {
	return Item{
		FieldTierCoins:  t.Coins,
		FieldTierRupees: t.Rupees,
		FieldTierUsers:  t.Users,
		FieldTierRate:   t.Rate,
	}
}

// LeaderboardEntry is one ranked row. Value carries the ranking metric
// (coins, referral count, lead count, total earned); Count and Amount are
// used by withdrawal boards.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	UserId   string  `json:"userId"`
	UserName string  `json:"userName"`
	Value    float64 `json:"value"`
	Count    int64   `json:"count,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

func (e LeaderboardEntry) Data() Item {
	item := Item{
		"rank":     int64(e.Rank),
		"userId":   e.UserId,
		"userName": e.UserName,
		"value":    e.Value,
	}
	if e.Count != 0 {
		item["count"] = e.Count
	}
	if e.Amount != 0 {
		item["amount"] = e.Amount
	}
	return item
}

func LeaderboardEntryFromData(data Item) LeaderboardEntry {
	return LeaderboardEntry{
		Rank:     int(data.Int("rank")),
		UserId:   data.String("userId"),
		UserName: data.String("userName"),
		Value:    data.Float("value"),
		Count:    data.Int("count"),
		Amount:   data.Float("amount"),
	}
}

// DailyMetrics are the per-date activity counters
type DailyMetrics struct {
	Date        string  `json:"date"`
	Referrals   int64   `json:"referrals"`
	Leads       int64   `json:"leads"`
	CoinCredits float64 `json:"coinCredits"`
	CoinDebits  float64 `json:"coinDebits"`
}

func DailyMetricsFromData(date string, data Item) DailyMetrics {
	return DailyMetrics{
		Date:        date,
		Referrals:   data.Int(FieldDailyReferrals),
		Leads:       data.Int(FieldDailyLeads),
		CoinCredits: data.Float(FieldDailyCoinCredits),
		CoinDebits:  data.Float(FieldDailyCoinDebits),
	}
}

func (d DailyMetrics) Data() Item {
	return Item{
		FieldDailyReferrals:   d.Referrals,
		FieldDailyLeads:       d.Leads,
		FieldDailyCoinCredits: d.CoinCredits,
		FieldDailyCoinDebits:  d.CoinDebits,
	}
}
