package entities

import (
	"context"
	"errors"
	"fmt"

	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) ListWithdrawals(ctx context.Context, limit int) ([]models.Withdrawal, error) {
	items, err := s.scan(ctx, models.TableWithdrawals, limit)
	if err != nil {
		return nil, err
	}
	return toWithdrawals(items), nil
}

func (s *Service) WithdrawalsByUser(ctx context.Context, userId string) ([]models.Withdrawal, error) {
	items, err := s.queryByUser(ctx, models.TableWithdrawals, models.IndexUser, userId)
	if err != nil {
		return nil, err
	}
	return toWithdrawals(items), nil
}

func (s *Service) PendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	all, err := s.ListWithdrawals(ctx, 0)
	if err != nil {
		return nil, err
	}
	var pending []models.Withdrawal
	for _, w := range all {
		if w.IsPending() {
			pending = append(pending, w)
		}
	}
	return pending, nil
}

// PendingSummary is the count and requested total of pending withdrawals.
type PendingSummary struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

func (s *Service) PendingSummary(ctx context.Context) (PendingSummary, error) {
	pending, err := s.PendingWithdrawals(ctx)
	if err != nil {
		return PendingSummary{}, err
	}
	summary := PendingSummary{Amount: decimal.Zero}
	for _, w := range pending {
		summary.Count++
		summary.Amount = summary.Amount.Add(w.RequestedAmount)
	}
	return summary, nil
}

// TopWithdrawers ranks users by request count; Amount carries the requested total.
func (s *Service) TopWithdrawers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	all, err := s.ListWithdrawals(ctx, 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]float64)
	amounts := make(map[string]float64)
	for _, w := range all {
		if w.UserId == "" {
			continue
		}
		counts[w.UserId]++
		amounts[w.UserId] += w.RequestedAmount.InexactFloat64()
	}

	entries := s.leaderboard(ctx, rankTotals(counts, limit))
	for i := range entries {
		entries[i].Count = int64(entries[i].Value)
		entries[i].Amount = amounts[entries[i].UserId]
	}
	return entries, nil
}

func (s *Service) ApproveWithdrawal(ctx context.Context, requestId string) (*models.Withdrawal, error) {
	return s.setWithdrawalStatus(ctx, requestId, models.WithdrawalApproved)
}

func (s *Service) RejectWithdrawal(ctx context.Context, requestId string) (*models.Withdrawal, error) {
	return s.setWithdrawalStatus(ctx, requestId, models.WithdrawalRejected)
}

func (s *Service) setWithdrawalStatus(ctx context.Context, requestId, status string) (*models.Withdrawal, error) {
	if s.readOnly {
		zap.L().Warn("Blocked withdrawal update in read-only mode",
			zap.String("request_id", requestId),
			zap.String("status", status))
		return nil, ErrReadOnly
	}

	key := store.Key{"requestedId": requestId}
	if _, err := s.store.GetItem(ctx, models.TableWithdrawals, key); err != nil {
		if errors.Is(err, store.ErrItemNotFound) || errors.Is(err, store.ErrInvalidKey) {
			return nil, fmt.Errorf("%w: %s", ErrWithdrawalNotFound, requestId)
		}
		return nil, fmt.Errorf("failed to get withdrawal %s: %w", requestId, err)
	}

	item, err := s.store.UpdateItem(ctx, models.TableWithdrawals, key, store.Update{
		Set: map[string]any{
			"status":       status,
			"updated_time": s.clock.Now().In(s.loc).Format(models.TimestampLayout),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal %s: %w", requestId, err)
	}

	zap.L().Info("Withdrawal status updated",
		zap.String("request_id", requestId),
		zap.String("status", status))

	w := models.WithdrawalFromItem(item)
	return &w, nil
}

func toWithdrawals(items []models.Item) []models.Withdrawal {
	out := make([]models.Withdrawal, len(items))
	for i, item := range items {
		out[i] = models.WithdrawalFromItem(item)
	}
	return out
}
