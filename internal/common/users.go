/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"context"
	"fmt"
	"strings"

	"loyalty-analytics-go/internal/entities"
	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
)

// UserInfo represents simplified user information for command-line utilities
type UserInfo struct {
	Id    string
	Name  string
	Phone string
	Email string
	Tier  string
}

// ResolveUsers finds users for an admin query. An address with @ searches
// the email index, anything else goes through phone then id lookup. An empty
// query lists up to limit users.
func ResolveUsers(ctx context.Context, svc *entities.Service, query string, limit int) ([]UserInfo, error) {
	query = strings.TrimSpace(query)

	var (
		users []models.User
		err   error
	)
	switch {
	case query == "":
		zap.L().Info("Listing users", zap.Int("limit", limit))
		users, err = svc.ListUsers(ctx, limit)
	case strings.Contains(query, "@"):
		zap.L().Info("Looking up user by email", zap.String("email", query))
		users, err = svc.SearchByEmail(ctx, query)
	default:
		zap.L().Info("Looking up user", zap.String("query", query))
		users, err = svc.SearchUsers(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}

	found := make([]UserInfo, len(users))
	for i, u := range users {
		found[i] = UserInfo{Id: u.Id, Name: u.Name, Phone: u.PhoneNumber, Email: u.Email}
	}

	for i := range found {
		tier, err := svc.UserTier(ctx, found[i].Id)
		if err != nil {
			zap.L().Warn("Failed to resolve user tier", zap.String("user_id", found[i].Id), zap.Error(err))
		}
		found[i].Tier = tier
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(found)))
	return found, nil
}
