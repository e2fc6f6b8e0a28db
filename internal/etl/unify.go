package etl

import (
	"context"
	"errors"

	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/objectstore"
	"loyalty-analytics-go/internal/warehouse"

	"go.uber.org/zap"
)

// lookups are the hash indexes shared by every unified table.
type lookups struct {
	users   map[string]Record // user_id
	wallets map[string]Record // user_id
	tiers   map[string]Record // tier_id
	phones  map[string]Record // phone_normalized
}

// unifier builds one warehouse table from one processed source table.
type unifier struct {
	table  string
	source string
	enrich func(rec Record, ix lookups) Record
}

var unifiers = []unifier{
	{table: "dim_tier", source: models.TableTiers},
	{
		table:  "dim_loyalty_users",
		source: models.TableUsers,
		enrich: func(rec Record, ix lookups) Record {
			tierName := ix.tiers[rec["tier_id"]]["tier_name"]
			if tierName == "" {
				tierName = models.TierUnknown
			}
			rec["tier_name"] = tierName

			wallet := ix.wallets[rec["user_id"]]
			rec["remaining_coins"] = orZero(wallet["remaining_amount"])
			rec["total_earned"] = orZero(wallet["total_amount"])
			rec["total_used"] = orZero(wallet["used_amount"])
			return rec
		},
	},
	{table: "fact_wallet_transactions", source: models.TableWalletTransactions},
	{
		table:  "fact_referrals",
		source: models.TableReferrals,
		enrich: func(rec Record, ix lookups) Record {
			rec["referrer_name"] = ix.users[rec["referrer_user_id"]]["user_name"]
			referred := ix.phones[rec["referred_phone_normalized"]]
			rec["referred_name"] = referred["user_name"]
			rec["referred_user_id"] = referred["user_id"]
			return rec
		},
	},
	{
		table:  "fact_leads",
		source: models.TableLeads,
		enrich: func(rec Record, ix lookups) Record {
			rec["generator_name"] = ix.users[rec["generator_user_id"]]["user_name"]
			return rec
		},
	},
	{
		table:  "fact_withdrawals",
		source: models.TableWithdrawals,
		enrich: func(rec Record, ix lookups) Record {
			rec["user_name"] = ix.users[rec["user_id"]]["user_name"]
			return rec
		},
	},
	{
		table:  "fact_orders",
		source: models.TableOrders,
		enrich: func(rec Record, ix lookups) Record {
			user := ix.users[rec["user_id"]]
			rec["user_name"] = user["user_name"]
			rec["phone_number"] = user["phone_number"]
			return rec
		},
	},
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

// Unify joins the processed tables into the warehouse layout. A table whose
// source is missing reports -1; the other tables are still written.
func (p *Pipeline) Unify(ctx context.Context) (map[string]int, error) {
	users := p.readLookup(ctx, models.TableUsers)
	ix := lookups{
		users:   IndexBy(users, column("user_id")),
		wallets: IndexBy(p.readLookup(ctx, models.TableWallets), column("user_id")),
		tiers:   IndexBy(p.readLookup(ctx, models.TableTiers), column("tier_id")),
		phones:  IndexBy(users, column("phone_normalized")),
	}

	counts := make(map[string]int, len(unifiers))
	for _, u := range unifiers {
		n, err := p.unifyTable(ctx, u, ix)
		if err != nil {
			zap.L().Error("Failed to unify table",
				zap.String("table", u.table),
				zap.String("source", u.source),
				zap.Error(err))
			p.recordFailure(StageUnify, u.table)
			counts[u.table] = -1
			continue
		}
		p.recordRows(StageUnify, u.table, n)
		counts[u.table] = n
	}
	return counts, nil
}

func (p *Pipeline) unifyTable(ctx context.Context, u unifier, ix lookups) (int, error) {
	table, ok := warehouse.TableByName(u.table)
	if !ok {
		return 0, errors.New("no warehouse definition")
	}

	records, err := p.readProcessed(ctx, u.source)
	if err != nil {
		return 0, err
	}

	columns := table.ColumnNames()
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		if u.enrich != nil {
			rec = u.enrich(rec, ix)
		}
		rows = append(rows, project(rec, columns))
	}

	body, err := encodeCSV(columns, rows)
	if err != nil {
		return 0, err
	}
	if err := p.opts.Objects.Put(ctx, p.paths.Unified(u.table), body, contentTypeCSV); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// readLookup reads a processed table used only for joins. A missing table
// yields no records so every reference resolves to its default.
func (p *Pipeline) readLookup(ctx context.Context, source string) []Record {
	records, err := p.readProcessed(ctx, source)
	if err != nil {
		zap.L().Warn("Lookup table unavailable",
			zap.String("table", source),
			zap.Error(err))
		return nil
	}
	return records
}

func column(name string) func(Record) string {
	return func(r Record) string { return r[name] }
}

func (p *Pipeline) readProcessed(ctx context.Context, source string) ([]Record, error) {
	body, err := p.opts.Objects.Get(ctx, p.paths.Processed(source))
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return nil, errMissingInput
		}
		return nil, err
	}
	_, records, err := decodeCSV(body)
	return records, err
}
