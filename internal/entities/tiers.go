package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/store"
)

// GetTier returns nil, nil when the tier does not exist.
func (s *Service) GetTier(ctx context.Context, tierId string) (*models.Tier, error) {
	if tierId == "" {
		return nil, nil
	}
	item, err := s.store.GetItem(ctx, models.TableTiers, store.Key{"tierId": tierId})
	if errors.Is(err, store.ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tier %s: %w", tierId, err)
	}
	tier := models.TierFromItem(item)
	return &tier, nil
}

func (s *Service) ListTiers(ctx context.Context) ([]models.Tier, error) {
	items, err := s.scan(ctx, models.TableTiers, 0)
	if err != nil {
		return nil, err
	}
	tiers := make([]models.Tier, len(items))
	for i, item := range items {
		tiers[i] = models.TierFromItem(item)
	}
	return tiers, nil
}

// TierName resolves a tier id to its display name. Empty, unknown, or
// unresolvable ids map to Unknown.
func (s *Service) TierName(ctx context.Context, tierId string) (string, error) {
	if tierId == "" || strings.EqualFold(tierId, "unknown") {
		return models.TierUnknown, nil
	}
	tier, err := s.GetTier(ctx, tierId)
	if err != nil {
		return models.TierUnknown, err
	}
	if tier == nil {
		return models.TierUnknown, nil
	}
	return s.catalog.ByType(tier.Type).Name, nil
}

// UserTier resolves the tier display name of a user.
func (s *Service) UserTier(ctx context.Context, userId string) (string, error) {
	user, err := s.GetUser(ctx, userId)
	if err != nil {
		return models.TierUnknown, err
	}
	if user == nil {
		return models.TierUnknown, nil
	}
	return s.TierName(ctx, user.TierId)
}

// tierNamesById resolves every tier once for bulk rollups.
func (s *Service) tierNamesById(ctx context.Context) (map[string]string, error) {
	tiers, err := s.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(tiers))
	for _, t := range tiers {
		out[t.Id] = s.catalog.ByType(t.Type).Name
	}
	return out, nil
}
