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

package listener

import (
	"context"
	"fmt"
	"time"

	"loyalty-analytics-go/internal/updater"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Start begins receiving change events
func (c *Consumer) Start(ctx context.Context) error {
	zap.L().Info("Starting change event consumer")

	if err := c.source.Start(); err != nil {
		return fmt.Errorf("failed to start message source: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-c.stopChan:
		case <-runCtx.Done():
		}
		cancel()
	}()

	eg, egCtx := errgroup.WithContext(runCtx)
	for i := 0; i < c.concurrency; i++ {
		eg.Go(func() error {
			c.receiveLoop(egCtx)
			return nil
		})
	}

	go c.cleanupLoop(runCtx)

	go func() {
		defer close(c.doneChan)
		_ = eg.Wait()
		cancel()
		if err := c.source.Stop(); err != nil {
			zap.L().Error("Failed to stop message source", zap.Error(err))
		}
	}()

	zap.L().Info("Change event consumer started successfully",
		zap.Int("receive_concurrency", c.concurrency),
		zap.Duration("dedupe_window", c.dedupeWindow))

	return nil
}

// Stop gracefully stops the consumer and waits for in-flight messages
func (c *Consumer) Stop() {
	zap.L().Info("Stopping change event consumer")
	c.stopOnce.Do(func() { close(c.stopChan) })
	<-c.doneChan
	zap.L().Info("Change event consumer stopped")
}

// Done is closed once every receiver has exited and the source is stopped.
func (c *Consumer) Done() <-chan struct{} {
	return c.doneChan
}

func (c *Consumer) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Debug("Receive returned no messages", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(receiveErrorBackoff):
			}
			continue
		}

		for _, msg := range msgs {
			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage applies one message and acks it unless a retry could help.
func (c *Consumer) handleMessage(ctx context.Context, msg Message) {
	if c.isProcessed(msg.Id) {
		zap.L().Debug("Skipping already applied message", zap.String("message_id", msg.Id))
		c.ack(ctx, msg)
		return
	}

	ev, err := DecodeMessage(msg, c.clock.Now())
	if err != nil {
		zap.L().Error("Dropping undecodable change event",
			zap.String("message_id", msg.Id),
			zap.String("tag", msg.Tag),
			zap.Error(err))
		c.ack(ctx, msg)
		return
	}

	if err := c.processor.Process(ctx, ev); err != nil {
		if updater.IsPermanent(err) {
			zap.L().Error("Dropping change event that cannot be applied",
				zap.String("message_id", msg.Id),
				zap.String("event_id", ev.Id),
				zap.Error(err))
			c.ack(ctx, msg)
			return
		}
		zap.L().Warn("Change event left for redelivery",
			zap.String("message_id", msg.Id),
			zap.String("event_id", ev.Id),
			zap.Error(err))
		return
	}

	c.markProcessed(msg.Id)
	c.ack(ctx, msg)
}

func (c *Consumer) ack(ctx context.Context, msg Message) {
	if err := c.source.Ack(ctx, msg); err != nil {
		zap.L().Error("Failed to ack message",
			zap.String("message_id", msg.Id),
			zap.Error(err))
	}
}
