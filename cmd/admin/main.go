package main

import (
	"context"
	"fmt"
	"os"

	"loyalty-analytics-go/internal/api"
	"loyalty-analytics-go/internal/common"
	"loyalty-analytics-go/internal/config"
	"loyalty-analytics-go/internal/models"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// session is what every admin command runs against.
type session struct {
	cfg      *models.Config
	services *common.Services
	svc      *api.AnalyticsService
}

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cliApp := &cli.App{
		Name:  "admin",
		Usage: "loyalty program maintenance and reporting",
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "recompute every aggregate record from the source tables",
				Action: withSession(seed),
			},
			{
				Name:  "report",
				Usage: "print headline stats, tier breakdown and leaderboards",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 5, Usage: "entries per leaderboard"},
				},
				Action: withSession(report),
			},
			{
				Name:      "search-user",
				Usage:     "find users by phone, email or id",
				ArgsUsage: "[query]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "max users listed for an empty query"},
				},
				Action: withSession(searchUser),
			},
			{
				Name:  "withdrawals",
				Usage: "review withdrawal requests",
				Subcommands: []*cli.Command{
					{
						Name:   "pending",
						Usage:  "list pending withdrawal requests",
						Action: withSession(pendingWithdrawals),
					},
					{
						Name:      "approve",
						Usage:     "approve a withdrawal request",
						ArgsUsage: "<request-id>",
						Action:    withSession(reviewWithdrawal(true)),
					},
					{
						Name:      "reject",
						Usage:     "reject a withdrawal request",
						ArgsUsage: "<request-id>",
						Action:    withSession(reviewWithdrawal(false)),
					},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		zap.L().Fatal("Admin command failed", zap.Error(err))
	}
}

// withSession loads config and services around a command.
func withSession(fn func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := c.Context
		if ctx == nil {
			ctx = context.Background()
			c.Context = ctx
		}

		services, err := common.InitializeServices(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer services.Close()

		return fn(c, &session{
			cfg:      cfg,
			services: services,
			svc:      api.NewAnalyticsService(services.Entities, services.Reader, nil),
		})
	}
}

func seed(c *cli.Context, s *session) error {
	result, err := common.SeedAggregates(c.Context, s.services, s.cfg.Aggregates)
	if err != nil {
		return err
	}

	common.PrintHeader("AGGREGATES SEEDED", common.DefaultWidth)
	common.PrintField("Total coins", common.FormatCoins(result.Global.TotalCoins))
	common.PrintField("Active users", result.Global.ActiveUsersCount)
	common.PrintField("Pending withdrawals", result.Global.PendingWithdrawalsCount)
	common.PrintField("Daily records", result.DailyRecords)
	for _, name := range sortedKeys(result.Leaderboards) {
		common.PrintField(name, fmt.Sprintf("%d all-time, %d weekly", result.Leaderboards[name], result.Weekly[name]))
	}
	common.PrintFooter(fmt.Sprintf("Seed completed in %s", result.Duration), common.DefaultWidth)
	return nil
}
