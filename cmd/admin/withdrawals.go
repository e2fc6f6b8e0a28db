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

package main

import (
	"errors"
	"fmt"

	"loyalty-analytics-go/internal/common"
	"loyalty-analytics-go/internal/entities"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func pendingWithdrawals(c *cli.Context, s *session) error {
	resp, err := s.svc.PendingWithdrawals(c.Context)
	if err != nil {
		return err
	}

	common.PrintHeader(fmt.Sprintf("PENDING WITHDRAWALS (%d, total %s)", resp.Count, resp.Amount), common.DefaultWidth)
	for i, w := range resp.Withdrawals {
		isLast := i == len(resp.Withdrawals)-1
		fmt.Printf("%s%s  user %s  amount %s\n", common.BoxPrefix(isLast), w.Id, w.UserId, w.RequestedAmount.String())
		if w.UpiId != "" {
			fmt.Printf("%s   upi %s\n", common.BoxDetailPrefix(isLast), w.UpiId)
		} else if w.BankId != "" {
			fmt.Printf("%s   bank %s\n", common.BoxDetailPrefix(isLast), w.BankId)
		}
	}
	common.PrintFooter("Use 'admin withdrawals approve|reject <request-id>' to review", common.DefaultWidth)
	return nil
}

func reviewWithdrawal(approve bool) func(c *cli.Context, s *session) error {
	return func(c *cli.Context, s *session) error {
		requestId := c.Args().First()
		if requestId == "" {
			return fmt.Errorf("request id is required")
		}

		w, err := s.svc.ReviewWithdrawal(c.Context, requestId, approve)
		if err != nil {
			if errors.Is(err, entities.ErrReadOnly) {
				return fmt.Errorf("store is read-only, set READ_ONLY=false to review withdrawals: %w", err)
			}
			return err
		}

		zap.L().Info("Withdrawal reviewed",
			zap.String("request_id", w.Id),
			zap.String("status", w.Status))
		fmt.Printf("Withdrawal %s is now %s (approved amount %s)\n", w.Id, w.Status, w.ApprovedAmount.String())
		return nil
	}
}
