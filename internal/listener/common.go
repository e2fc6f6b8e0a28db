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
	"sync"
	"time"

	"loyalty-analytics-go/internal/cache"
	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
)

const (
	defaultReceiveConcurrency = 10
	defaultDedupeWindow       = 10 * time.Minute
	defaultCleanupInterval    = time.Minute
	receiveErrorBackoff       = time.Second
)

// MessageSource delivers change-event messages. Messages that are not acked
// are redelivered after the broker's invisibility timeout.
type MessageSource interface {
	Start() error
	Stop() error
	Receive(ctx context.Context) ([]Message, error)
	Ack(ctx context.Context, msg Message) error
}

// Processor applies one change event to the aggregates.
type Processor interface {
	Process(ctx context.Context, ev models.ChangeEvent) error
}

// ConsumerConfig contains configuration for Consumer
type ConsumerConfig struct {
	Source             MessageSource
	Processor          Processor
	ReceiveConcurrency int
	DedupeWindow       time.Duration
	CleanupInterval    time.Duration
	Clock              cache.Clock
}

// Consumer receives change events and feeds them to the updater
type Consumer struct {
	source    MessageSource
	processor Processor
	clock     cache.Clock

	// State management for processed message ids
	processedIds    map[string]time.Time
	mutex           sync.RWMutex
	concurrency     int
	dedupeWindow    time.Duration
	cleanupInterval time.Duration

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewConsumer creates a new change-event consumer
func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.ReceiveConcurrency <= 0 {
		cfg.ReceiveConcurrency = defaultReceiveConcurrency
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = defaultDedupeWindow
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = cache.SystemClock{}
	}
	return &Consumer{
		source:          cfg.Source,
		processor:       cfg.Processor,
		clock:           cfg.Clock,
		processedIds:    make(map[string]time.Time),
		concurrency:     cfg.ReceiveConcurrency,
		dedupeWindow:    cfg.DedupeWindow,
		cleanupInterval: cfg.CleanupInterval,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// isProcessed checks if we've already applied this message
func (c *Consumer) isProcessed(id string) bool {
	if id == "" {
		return false
	}
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, exists := c.processedIds[id]
	return exists
}

// markProcessed marks a message as applied
func (c *Consumer) markProcessed(id string) {
	if id == "" {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.processedIds[id] = c.clock.Now()
}

// cleanupLoop periodically cleans old processed message ids
func (c *Consumer) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupProcessed()
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// cleanupProcessed removes entries older than the dedupe window
func (c *Consumer) cleanupProcessed() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cutoff := c.clock.Now().Add(-c.dedupeWindow)
	cleaned := 0

	for id, processedTime := range c.processedIds {
		if processedTime.Before(cutoff) {
			delete(c.processedIds, id)
			cleaned++
		}
	}

	if cleaned > 0 {
		zap.L().Debug("Cleaned up old processed message ids",
			zap.Int("cleaned", cleaned),
			zap.Int("remaining", len(c.processedIds)))
	}
}
