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

package api

import (
	"context"
	"errors"
	"fmt"

	"loyalty-analytics-go/internal/entities"
	"loyalty-analytics-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PendingWithdrawalsResponse lists pending requests with their count and total
type PendingWithdrawalsResponse struct {
	Withdrawals []models.Withdrawal `json:"withdrawals"`
	Count       int64               `json:"count"`
	Amount      string              `json:"amount"`
}

func (s *AnalyticsService) PendingWithdrawals(ctx context.Context) (*PendingWithdrawalsResponse, error) {
	pending, err := s.entities.PendingWithdrawals(ctx)
	if err != nil {
		zap.L().Error("Failed to list pending withdrawals", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve pending withdrawals")
	}

	resp := &PendingWithdrawalsResponse{Withdrawals: orEmpty(pending)}
	total := decimal.Zero
	for _, w := range pending {
		resp.Count++
		total = total.Add(w.RequestedAmount)
	}
	resp.Amount = total.String()
	return resp, nil
}

// ReviewWithdrawal approves or rejects a withdrawal request. The caller sees
// entities.ErrReadOnly and entities.ErrWithdrawalNotFound unchanged.
func (s *AnalyticsService) ReviewWithdrawal(ctx context.Context, requestId string, approve bool) (*models.Withdrawal, error) {
	if requestId == "" {
		return nil, fmt.Errorf("%w: request_id is required", ErrInvalidRequest)
	}

	action := "reject"
	review := s.entities.RejectWithdrawal
	if approve {
		action = "approve"
		review = s.entities.ApproveWithdrawal
	}

	w, err := review(ctx, requestId)
	if err != nil {
		if errors.Is(err, entities.ErrReadOnly) || errors.Is(err, entities.ErrWithdrawalNotFound) {
			zap.L().Info("Withdrawal review refused",
				zap.String("request_id", requestId),
				zap.String("action", action),
				zap.Error(err))
		} else {
			zap.L().Error("Withdrawal review failed",
				zap.String("request_id", requestId),
				zap.String("action", action),
				zap.Error(err))
		}
		return nil, err
	}

	if s.reader != nil {
		s.reader.Invalidate()
	}
	return w, nil
}
