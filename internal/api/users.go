package api

import (
	"context"
	"errors"
	"fmt"

	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrUserNotFound = errors.New("user not found")

// UserProfile is a member with wallet, tier and activity history
type UserProfile struct {
	User         models.User          `json:"user"`
	TierName     string               `json:"tierName"`
	Wallet       *models.Wallet       `json:"wallet,omitempty"`
	Transactions []models.Transaction `json:"transactions"`
	Referrals    []models.Referral    `json:"referrals"`
	Leads        []models.Lead        `json:"leads"`
	Withdrawals  []models.Withdrawal  `json:"withdrawals"`
	Orders       []models.Order       `json:"orders"`
}

// SearchUsers matches by phone, then by id.
func (s *AnalyticsService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}

	users, err := s.entities.SearchUsers(ctx, query)
	if err != nil {
		zap.L().Error("User search failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("failed to search users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// GetUserProfile loads a user and everything attached to them in parallel.
func (s *AnalyticsService) GetUserProfile(ctx context.Context, userId string) (*UserProfile, error) {
	user, err := s.entities.GetUser(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get user", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve user")
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userId)
	}

	profile := &UserProfile{User: *user}
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		name, err := s.entities.TierName(ctx, user.TierId)
		profile.TierName = name
		return err
	})
	eg.Go(func() error {
		wallet, err := s.entities.GetWalletByUser(ctx, userId)
		profile.Wallet = wallet
		return err
	})
	eg.Go(func() error {
		txns, err := s.entities.TransactionsByUser(ctx, userId)
		profile.Transactions = orEmpty(txns)
		return err
	})
	eg.Go(func() error {
		referrals, err := s.entities.ReferralsByUser(ctx, userId)
		profile.Referrals = orEmpty(referrals)
		return err
	})
	eg.Go(func() error {
		leads, err := s.entities.LeadsByUser(ctx, userId)
		profile.Leads = orEmpty(leads)
		return err
	})
	eg.Go(func() error {
		withdrawals, err := s.entities.WithdrawalsByUser(ctx, userId)
		profile.Withdrawals = orEmpty(withdrawals)
		return err
	})
	eg.Go(func() error {
		orders, err := s.entities.OrdersByUser(ctx, userId)
		profile.Orders = orEmpty(orders)
		return err
	})

	if err := eg.Wait(); err != nil {
		zap.L().Error("Failed to load user profile", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve user profile")
	}
	return profile, nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
