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

package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loyalty-analytics-go/internal/cache"
	"loyalty-analytics-go/internal/metrics"
	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
)

var (
	ErrUnknownSource    = errors.New("unknown change event source")
	ErrUnknownEventKind = errors.New("unknown change event kind")
)

// IsPermanent reports whether redelivering the event could ever succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnknownSource) || errors.Is(err, ErrUnknownEventKind)
}

// AggregateWriter applies counter deltas to the aggregate table.
type AggregateWriter interface {
	UpdateDelta(ctx context.Context, t models.AggregateType, id string, deltas map[string]float64) (bool, error)
	IncrementMember(ctx context.Context, t models.AggregateType, id, member string, delta float64) (bool, error)
	IncrementMemberFields(ctx context.Context, t models.AggregateType, id, member string, fields map[string]float64) (bool, error)
}

// TierResolver looks up the tier name of a user.
type TierResolver interface {
	UserTier(ctx context.Context, userId string) (string, error)
}

type Options struct {
	Catalog     *models.TierCatalog
	Clock       cache.Clock
	Location    *time.Location
	TierLookup  bool
	DefaultTier string
	// Weekly keeps the rolling-window leaderboards current between seeds.
	Weekly bool
	// RetryWindow bounds how long a partly applied event remembers the
	// writes that already landed.
	RetryWindow time.Duration
}

// Updater turns change events into aggregate counter deltas.
type Updater struct {
	writer      AggregateWriter
	tiers       TierResolver
	catalog     *models.TierCatalog
	clock       cache.Clock
	loc         *time.Location
	tierLookup  bool
	defaultTier string
	weekly      bool
	journal     *journal
}

func New(writer AggregateWriter, tiers TierResolver, opts Options) *Updater {
	if opts.Catalog == nil {
		opts.Catalog = models.DefaultTierCatalog()
	}
	if opts.Clock == nil {
		opts.Clock = cache.SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultTier == "" {
		opts.DefaultTier = models.TierBronze
	}
	return &Updater{
		writer:      writer,
		tiers:       tiers,
		catalog:     opts.Catalog,
		clock:       opts.Clock,
		loc:         opts.Location,
		tierLookup:  opts.TierLookup && tiers != nil,
		defaultTier: opts.DefaultTier,
		weekly:      opts.Weekly,
		journal:     newJournal(opts.RetryWindow),
	}
}

// EventError pairs a failed event with its cause.
type EventError struct {
	EventId string
	Source  models.SourceEntity
	Err     error
}

// BatchResult summarizes one ProcessBatch call.
type BatchResult struct {
	Processed int
	Failed    int
	Errors    []EventError
}

// ProcessBatch applies each event independently. A failing event is logged
// and recorded; the rest of the batch still runs.
func (u *Updater) ProcessBatch(ctx context.Context, events []models.ChangeEvent) BatchResult {
	var result BatchResult
	for _, ev := range events {
		if err := u.Process(ctx, ev); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, EventError{EventId: ev.Id, Source: ev.Source, Err: err})
			continue
		}
		result.Processed++
	}
	if result.Failed > 0 {
		zap.L().Warn("Change event batch completed with failures",
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed))
	}
	return result
}

// Process applies one change event.
func (u *Updater) Process(ctx context.Context, ev models.ChangeEvent) error {
	err := u.dispatch(ctx, ev)
	if err == nil {
		u.journal.forget(ev.Id)
	}
	if pruned := u.journal.prune(u.clock.Now()); pruned > 0 {
		zap.L().Warn("Dropped partly applied change events past the retry window", zap.Int("count", pruned))
	}

	outcome := "applied"
	if err != nil {
		outcome = "failed"
		zap.L().Error("Failed to apply change event",
			zap.String("event_id", ev.Id),
			zap.String("source", ev.Source.String()),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err))
	}
	metrics.ChangeEvents.WithLabelValues(ev.Source.String(), string(ev.Kind), outcome).Inc()
	return err
}

func (u *Updater) dispatch(ctx context.Context, ev models.ChangeEvent) error {
	switch ev.Kind {
	case models.EventInsert, models.EventModify, models.EventRemove:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventKind, ev.Kind)
	}

	switch ev.Source {
	case models.SourceWallet:
		return u.handleWallet(ctx, ev)
	case models.SourceReferral:
		return u.handleCounted(ctx, ev, models.FieldTodayReferralsCount, models.FieldDailyReferrals, models.LeaderboardTopReferrers)
	case models.SourceLead:
		return u.handleCounted(ctx, ev, models.FieldTodayLeadsCount, models.FieldDailyLeads, models.LeaderboardTopLeadGenerators)
	case models.SourceWithdrawal:
		return u.handleWithdrawal(ctx, ev)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSource, ev.Source)
	}
}

func (u *Updater) today() string {
	return u.clock.Now().In(u.loc).Format(models.DateLayout)
}

// step runs one aggregate write of ev unless an earlier delivery of the same
// event already landed it.
func (u *Updater) step(ev models.ChangeEvent, name string, write func() error) error {
	if u.journal.done(ev.Id, name) {
		zap.L().Debug("Skipping aggregate write applied by an earlier delivery",
			zap.String("event_id", ev.Id),
			zap.String("step", name))
		return nil
	}
	if err := write(); err != nil {
		return err
	}
	u.journal.mark(ev.Id, name, u.clock.Now())
	return nil
}

func (u *Updater) apply(ctx context.Context, ev models.ChangeEvent, t models.AggregateType, id string, deltas map[string]float64) error {
	return u.step(ev, string(t)+"/"+id, func() error {
		applied, err := u.writer.UpdateDelta(ctx, t, id, deltas)
		if err != nil {
			return err
		}
		if applied {
			metrics.AggregateWrites.WithLabelValues(string(t)).Inc()
		}
		return nil
	})
}

func (u *Updater) handleWallet(ctx context.Context, ev models.ChangeEvent) error {
	d := WalletDeltas(ev.OldImage, ev.NewImage)
	if d.IsZero() {
		return nil
	}

	if err := u.apply(ctx, ev, models.AggregateGlobal, models.GlobalStatsId, map[string]float64{
		models.FieldTotalCoins:       d.Coins,
		models.FieldActiveUsersCount: float64(d.Active),
	}); err != nil {
		return err
	}

	userId := ev.NewImage.String("userId")
	if userId == "" {
		userId = ev.OldImage.String("userId")
	}
	if err := u.step(ev, "tier", func() error {
		tier := u.resolveTier(ctx, userId)
		applied, err := u.writer.UpdateDelta(ctx, models.AggregateTier, tier, map[string]float64{
			models.FieldTierCoins:  d.Coins,
			models.FieldTierRupees: d.Coins * u.catalog.RateFor(tier),
			models.FieldTierUsers:  float64(d.Active),
		})
		if applied {
			metrics.AggregateWrites.WithLabelValues(string(models.AggregateTier)).Inc()
		}
		return err
	}); err != nil {
		return err
	}

	if u.weekly && d.Coins > 0 && userId != "" {
		return u.step(ev, "weekly", func() error {
			_, err := u.writer.IncrementMember(ctx, models.AggregateWeeklyLeaderboard, models.LeaderboardTopCoinHolders, userId, d.Coins)
			return err
		})
	}
	return nil
}

// resolveTier attributes a wallet change to the same tier a full seed would:
// users without a resolvable tier, or with no user record, count as Unknown.
// The default tier applies only when lookup is off or the lookup fails.
func (u *Updater) resolveTier(ctx context.Context, userId string) string {
	if !u.tierLookup {
		return u.defaultTier
	}
	if userId == "" {
		return models.TierUnknown
	}
	tier, err := u.tiers.UserTier(ctx, userId)
	if err != nil {
		zap.L().Warn("Tier lookup failed, using default tier",
			zap.String("user_id", userId),
			zap.String("default_tier", u.defaultTier),
			zap.Error(err))
		return u.defaultTier
	}
	if tier == "" {
		return models.TierUnknown
	}
	return tier
}

// handleCounted maintains the today and per-date counters shared by
// referrals and leads. Modifications do not change counts.
func (u *Updater) handleCounted(ctx context.Context, ev models.ChangeEvent, todayField, dailyField, weeklyBoard string) error {
	delta := CountDelta(ev.Kind)
	if delta == 0 {
		return nil
	}

	image := countedImage(ev)
	created := models.ParseDate(image["created_time"], u.loc)

	if created != "" && created == u.today() {
		if err := u.apply(ctx, ev, models.AggregateGlobal, models.GlobalStatsId, map[string]float64{
			todayField: float64(delta),
		}); err != nil {
			return err
		}
	}

	if created != "" {
		if err := u.apply(ctx, ev, models.AggregateDaily, created, map[string]float64{
			dailyField: float64(delta),
		}); err != nil {
			return err
		}
	} else {
		zap.L().Debug("Change event has no parseable creation date",
			zap.String("event_id", ev.Id),
			zap.String("source", ev.Source.String()))
	}

	userId := image.String("userId")
	if u.weekly && ev.Kind == models.EventInsert && userId != "" {
		return u.step(ev, "weekly", func() error {
			_, err := u.writer.IncrementMember(ctx, models.AggregateWeeklyLeaderboard, weeklyBoard, userId, 1)
			return err
		})
	}
	return nil
}

func (u *Updater) handleWithdrawal(ctx context.Context, ev models.ChangeEvent) error {
	d := WithdrawalDeltas(ev.OldImage, ev.NewImage)
	if !d.IsZero() {
		if err := u.apply(ctx, ev, models.AggregateGlobal, models.GlobalStatsId, map[string]float64{
			models.FieldPendingWithdrawalsCount:  float64(d.Count),
			models.FieldPendingWithdrawalsAmount: d.Amount,
		}); err != nil {
			return err
		}
	}

	userId := ev.NewImage.String("userId")
	if u.weekly && ev.Kind == models.EventInsert && userId != "" {
		return u.step(ev, "weekly", func() error {
			_, err := u.writer.IncrementMemberFields(ctx, models.AggregateWeeklyLeaderboard, models.LeaderboardTopWithdrawers, userId, map[string]float64{
				"count":  1,
				"amount": ev.NewImage.Decimal("requestedAmount").InexactFloat64(),
			})
			return err
		})
	}
	return nil
}
