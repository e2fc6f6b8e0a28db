package entities

import (
	"context"
	"sort"
	"strings"
	"time"

	"loyalty-analytics-go/internal/models"
)

// TransactionsByUser returns the user's ledger newest first.
func (s *Service) TransactionsByUser(ctx context.Context, userId string) ([]models.Transaction, error) {
	items, err := s.queryByUser(ctx, models.TableWalletTransactions, models.IndexUser, userId)
	if err != nil {
		return nil, err
	}
	txns := toTransactions(items)
	sort.SliceStable(txns, func(i, j int) bool {
		return models.FormatTimestamp(txns[i].CreatedTime, s.loc) > models.FormatTimestamp(txns[j].CreatedTime, s.loc)
	})
	return txns, nil
}

func (s *Service) ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	items, err := s.scan(ctx, models.TableWalletTransactions, limit)
	if err != nil {
		return nil, err
	}
	return toTransactions(items), nil
}

// TopEarners sums earning-title credits per user. Users who ever received an
// added-to-wallet credit are excluded; they rank on TopAddedToWallet instead.
func (s *Service) TopEarners(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	txns, err := s.ListTransactions(ctx, 0)
	if err != nil {
		return nil, err
	}
	return s.leaderboard(ctx, rankTotals(EarningTotals(s.catalog, txns), limit)), nil
}

// EarningTotals applies the top-earner rules to a set of transactions.
func EarningTotals(catalog *models.TierCatalog, txns []models.Transaction) map[string]float64 {
	excluded := make(map[string]struct{})
	for _, t := range txns {
		if t.NormalizedTitle() == catalog.AddedToWallet {
			excluded[t.UserId] = struct{}{}
		}
	}

	totals := make(map[string]float64)
	for _, t := range txns {
		if t.UserId == "" {
			continue
		}
		if _, skip := excluded[t.UserId]; skip {
			continue
		}
		if catalog.IsEarningTitle(t.NormalizedTitle()) {
			totals[t.UserId] += t.Amount.Abs().InexactFloat64()
		}
	}
	return totals
}

// TopAddedToWallet ranks users by their added-to-wallet credits.
func (s *Service) TopAddedToWallet(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	txns, err := s.ListTransactions(ctx, 0)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64)
	for _, t := range txns {
		if t.UserId != "" && t.NormalizedTitle() == s.catalog.AddedToWallet {
			totals[t.UserId] += t.Amount.Abs().InexactFloat64()
		}
	}
	return s.leaderboard(ctx, rankTotals(totals, limit)), nil
}

// CoinActivity is one day of credit and debit volume.
type CoinActivity struct {
	Date    string  `json:"date"`
	Credits float64 `json:"credits"`
	Debits  float64 `json:"debits"`
}

// DailyCoinActivity returns one zero-filled row per date in [start, end].
func (s *Service) DailyCoinActivity(ctx context.Context, start, end time.Time) ([]CoinActivity, error) {
	txns, err := s.ListTransactions(ctx, 0)
	if err != nil {
		return nil, err
	}

	dates := models.DateRange(start.In(s.loc), end.In(s.loc))
	byDate := make(map[string]*CoinActivity, len(dates))
	out := make([]CoinActivity, len(dates))
	for i, d := range dates {
		out[i] = CoinActivity{Date: d}
		byDate[d] = &out[i]
	}

	for _, t := range txns {
		row, ok := byDate[s.ParseDate(t.CreatedTime)]
		if !ok {
			continue
		}
		credit, debit := ClassifyVolume(t)
		row.Credits += credit
		row.Debits += debit
	}
	return out, nil
}

// ClassifyVolume splits a transaction into credit or debit volume. Titles
// naming credit or debit win over the amount sign.
func ClassifyVolume(t models.Transaction) (credit, debit float64) {
	title := strings.ToLower(t.Title)
	amount := t.Amount.InexactFloat64()
	abs := t.Amount.Abs().InexactFloat64()
	switch {
	case strings.Contains(title, "credit") || amount > 0:
		return abs, 0
	case strings.Contains(title, "debit") || amount < 0:
		return 0, abs
	default:
		return 0, 0
	}
}

func toTransactions(items []models.Item) []models.Transaction {
	txns := make([]models.Transaction, len(items))
	for i, item := range items {
		txns[i] = models.TransactionFromItem(item)
	}
	return txns
}
