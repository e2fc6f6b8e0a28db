package entities

import (
	"context"

	"loyalty-analytics-go/internal/models"

	"github.com/shopspring/decimal"
)

// GetWalletByUser returns nil, nil when the user has no wallet.
func (s *Service) GetWalletByUser(ctx context.Context, userId string) (*models.Wallet, error) {
	items, err := s.queryByUser(ctx, models.TableWallets, models.IndexUser, userId)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	wallet := models.WalletFromItem(items[0])
	return &wallet, nil
}

func (s *Service) ListWallets(ctx context.Context, limit int) ([]models.Wallet, error) {
	items, err := s.scan(ctx, models.TableWallets, limit)
	if err != nil {
		return nil, err
	}
	wallets := make([]models.Wallet, len(items))
	for i, item := range items {
		wallets[i] = models.WalletFromItem(item)
	}
	return wallets, nil
}

// TotalCoins sums remaining balances over every wallet.
func (s *Service) TotalCoins(ctx context.Context) (float64, error) {
	wallets, err := s.ListWallets(ctx, 0)
	if err != nil {
		return 0, err
	}
	total := decimal.Zero
	for _, w := range wallets {
		total = total.Add(w.RemainingAmount)
	}
	return total.InexactFloat64(), nil
}

// ActiveUsersCount counts wallets with a positive remaining balance.
func (s *Service) ActiveUsersCount(ctx context.Context) (int64, error) {
	wallets, err := s.ListWallets(ctx, 0)
	if err != nil {
		return 0, err
	}
	var active int64
	for _, w := range wallets {
		if w.RemainingAmount.IsPositive() {
			active++
		}
	}
	return active, nil
}

// CoinsByTier rolls up positive balances by the holder's tier. Every tier
// is present in the result, including empty ones.
func (s *Service) CoinsByTier(ctx context.Context) (map[string]models.TierStats, error) {
	wallets, err := s.ListWallets(ctx, 0)
	if err != nil {
		return nil, err
	}
	users, err := s.scan(ctx, models.TableUsers, 0)
	if err != nil {
		return nil, err
	}
	tierNames, err := s.tierNamesById(ctx)
	if err != nil {
		return nil, err
	}

	userTier := make(map[string]string, len(users))
	for _, item := range users {
		name, ok := tierNames[item.String("tierId")]
		if !ok {
			name = models.TierUnknown
		}
		userTier[item.String("userId")] = name
	}

	stats := make(map[string]models.TierStats, len(models.TierNames))
	for _, name := range models.TierNames {
		stats[name] = models.TierStats{Rate: s.catalog.RateFor(name)}
	}

	for _, w := range wallets {
		if !w.RemainingAmount.IsPositive() {
			continue
		}
		name, ok := userTier[w.UserId]
		if !ok {
			name = models.TierUnknown
		}
		coins := w.RemainingAmount.InexactFloat64()
		ts := stats[name]
		ts.Coins += coins
		ts.Rupees += coins * ts.Rate
		ts.Users++
		stats[name] = ts
	}
	return stats, nil
}

// TopCoinHolders ranks users with a positive balance by remaining coins.
func (s *Service) TopCoinHolders(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	wallets, err := s.ListWallets(ctx, 0)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64)
	for _, w := range wallets {
		if w.RemainingAmount.IsPositive() && w.UserId != "" {
			totals[w.UserId] += w.RemainingAmount.InexactFloat64()
		}
	}
	return s.leaderboard(ctx, rankTotals(totals, limit)), nil
}
