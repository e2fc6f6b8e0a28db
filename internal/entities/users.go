package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/store"

	"go.uber.org/zap"
)

// GetUser returns nil, nil when the user does not exist.
func (s *Service) GetUser(ctx context.Context, userId string) (*models.User, error) {
	if userId == "" {
		return nil, nil
	}
	item, err := s.store.GetItem(ctx, models.TableUsers, store.Key{"userId": userId})
	if errors.Is(err, store.ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userId, err)
	}
	user := models.UserFromItem(item)
	return &user, nil
}

func (s *Service) SearchByPhone(ctx context.Context, phone string) ([]models.User, error) {
	items, err := s.store.QueryByIndex(ctx, models.TableUsers, models.IndexUserPhone, strings.TrimSpace(phone))
	if err != nil {
		return nil, fmt.Errorf("failed to search users by phone: %w", err)
	}
	return toUsers(items), nil
}

func (s *Service) SearchByEmail(ctx context.Context, email string) ([]models.User, error) {
	items, err := s.store.QueryByIndex(ctx, models.TableUsers, models.IndexUserEmail, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to search users by email: %w", err)
	}
	return toUsers(items), nil
}

// SearchUsers tries the phone index first, then a direct id lookup.
func (s *Service) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	users, err := s.SearchByPhone(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(users) > 0 {
		return users, nil
	}

	user, err := s.GetUser(ctx, query)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return []models.User{*user}, nil
}

func (s *Service) ListUsers(ctx context.Context, limit int) ([]models.User, error) {
	items, err := s.scan(ctx, models.TableUsers, limit)
	if err != nil {
		return nil, err
	}
	return toUsers(items), nil
}

// UserNames resolves display names, using the Unknown placeholder for
// missing users or failed lookups.
func (s *Service) UserNames(ctx context.Context, ids []string) map[string]string {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if _, done := names[id]; done {
			continue
		}
		names[id] = models.UnknownName

		user, err := s.GetUser(ctx, id)
		if err != nil {
			zap.L().Warn("Failed to resolve user name", zap.String("user_id", id), zap.Error(err))
			continue
		}
		if user != nil && user.Name != "" {
			names[id] = user.Name
		}
	}
	return names
}

// OrdersByUser returns the user's storefront orders.
func (s *Service) OrdersByUser(ctx context.Context, userId string) ([]models.Order, error) {
	items, err := s.queryByUser(ctx, models.TableOrders, models.IndexUser, userId)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, len(items))
	for i, item := range items {
		orders[i] = models.OrderFromItem(item)
	}
	return orders, nil
}

func toUsers(items []models.Item) []models.User {
	users := make([]models.User, len(items))
	for i, item := range items {
		users[i] = models.UserFromItem(item)
	}
	return users
}
