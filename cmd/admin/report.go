package main

import (
	"fmt"
	"sort"

	"loyalty-analytics-go/internal/common"
	"loyalty-analytics-go/internal/models"

	"github.com/urfave/cli/v2"
)

var reportLeaderboards = []string{
	models.LeaderboardTopCoinHolders,
	models.LeaderboardTopEarners,
	models.LeaderboardTopReferrers,
	models.LeaderboardTopLeadGenerators,
	models.LeaderboardTopWithdrawers,
	models.LeaderboardTopAddedToWallet,
}

func report(c *cli.Context, s *session) error {
	ctx := c.Context

	stats, err := s.svc.GetStats(ctx)
	if err != nil {
		return err
	}
	common.PrintHeader("LOYALTY PROGRAM REPORT ("+stats.Source+")", common.WideWidth)
	common.PrintField("Total coins", common.FormatCoins(stats.Stats.TotalCoins))
	common.PrintField("Active users", stats.Stats.ActiveUsersCount)
	common.PrintField("Pending withdrawals", stats.Stats.PendingWithdrawalsCount)
	common.PrintField("Pending amount", common.FormatCoins(stats.Stats.PendingWithdrawalsAmount))
	common.PrintField("Referrals today", stats.Stats.TodayReferralsCount)
	common.PrintField("Leads today", stats.Stats.TodayLeadsCount)

	tiers, err := s.svc.GetTierStats(ctx)
	if err != nil {
		return err
	}
	common.PrintSeparatorNewline("-", common.WideWidth)
	fmt.Printf("Coins by tier (%s)\n", tiers.Source)
	common.PrintBoxSeparator(40)
	names := make([]string, 0, len(tiers.Tiers))
	for name := range tiers.Tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		t := tiers.Tiers[name]
		fmt.Printf("%s%-8s users %-6d coins %12s  value %12s (rate %.2f)\n",
			common.BoxPrefix(i == len(names)-1), name, t.Users,
			common.FormatCoins(t.Coins), common.FormatCoins(t.Rupees), t.Rate)
	}

	for _, name := range reportLeaderboards {
		board, err := s.svc.GetLeaderboard(ctx, name, c.Int("limit"))
		if err != nil {
			return err
		}
		fmt.Println()
		common.PrintLeaderboard(fmt.Sprintf("%s [%s]", name, board.Source), board.Entries)
	}

	common.PrintFooter("End of report", common.WideWidth)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
