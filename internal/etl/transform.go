package etl

import (
	"strings"
	"time"

	"loyalty-analytics-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// mapper flattens one source table into CSV columns.
type mapper struct {
	table   string
	columns []string
	row     func(item gjson.Result) []string
}

// sourceTables lists the extracted tables in extraction order.
var sourceTables = []string{
	models.TableUsers,
	models.TableWallets,
	models.TableWalletTransactions,
	models.TableReferrals,
	models.TableTiers,
	models.TableLeads,
	models.TableWithdrawals,
	models.TableOrders,
}

func (p *Pipeline) mappers() map[string]mapper {
	loc := p.opts.Location
	catalog := p.opts.Catalog

	list := []mapper{
		{
			table: models.TableUsers,
			columns: []string{"user_id", "user_name", "phone_number", "phone_normalized",
				"email", "tier_id", "referral_code", "signup_date"},
			row: func(item gjson.Result) []string {
				phone := str(item, "phoneNumber")
				return []string{
					str(item, "userId"), str(item, "userName"), phone, models.NormalizePhone(phone),
					str(item, "emailId"), str(item, "tierId"), str(item, "referralCode"),
					ts(item, "created_time", loc),
				}
			},
		},
		{
			table:   models.TableWallets,
			columns: []string{"wallet_id", "user_id", "remaining_amount", "total_amount", "used_amount"},
			row: func(item gjson.Result) []string {
				return []string{
					str(item, "walletId"), str(item, "userId"),
					num(item, "remainingAmount").String(), num(item, "totalAmount").String(),
					num(item, "usedAmount").String(),
				}
			},
		},
		{
			table: models.TableWalletTransactions,
			columns: []string{"transaction_id", "user_id", "transaction_type", "title",
				"amount", "reason", "status", "created_at"},
			row: func(item gjson.Result) []string {
				amount := num(item, "amount")
				return []string{
					str(item, "transactionId"), str(item, "userId"),
					models.TransactionType(amount.InexactFloat64()), str(item, "title"),
					amount.String(), str(item, "reason"), str(item, "status"),
					ts(item, "created_time", loc),
				}
			},
		},
		{
			table: models.TableReferrals,
			columns: []string{"referral_id", "referrer_user_id", "referred_phone",
				"referred_phone_normalized", "referral_code", "status", "created_at"},
			row: func(item gjson.Result) []string {
				sentTo := str(item, "sentTo")
				code := str(item, "appliedCode")
				return []string{
					str(item, "tierReferralId"), str(item, "userId"), sentTo,
					models.NormalizePhone(sentTo), code, models.ReferralStatus(code),
					ts(item, "created_time", loc),
				}
			},
		},
		{
			table:   models.TableTiers,
			columns: []string{"tier_id", "tier_name", "redemption_rate"},
			row: func(item gjson.Result) []string {
				tierType := str(item, "tierType")
				if strings.TrimSpace(tierType) == "" {
					tierType = "BRONZE"
				}
				info := catalog.ByType(tierType)
				return []string{
					str(item, "tierId"), info.Name, decimal.NewFromFloat(info.Rate).String(),
				}
			},
		},
		{
			table: models.TableLeads,
			columns: []string{"lead_id", "generator_user_id", "lead_name", "lead_phone",
				"occasion_name", "lead_stage", "estimated_value", "created_at"},
			row: func(item gjson.Result) []string {
				return []string{
					str(item, "leadId"), str(item, "userId"), str(item, "leadName"),
					str(item, "leadPhoneNumber"), str(item, "occasionName"), str(item, "leadStage"),
					num(item, "estimatedValue").String(), ts(item, "created_time", loc),
				}
			},
		},
		{
			table: models.TableWithdrawals,
			columns: []string{"withdrawal_id", "user_id", "requested_amount", "approved_amount",
				"status", "bank_id", "upi_id", "created_at", "processed_at"},
			row: func(item gjson.Result) []string {
				approved := ""
				if a := num(item, "approvedAmount"); !a.IsZero() {
					approved = a.String()
				}
				return []string{
					str(item, "requestedId"), str(item, "userId"), num(item, "requestedAmount").String(),
					approved, str(item, "status"), str(item, "bankId"), str(item, "upiId"),
					ts(item, "created_time", loc), ts(item, "updated_time", loc),
				}
			},
		},
		{
			table: models.TableOrders,
			columns: []string{"order_id", "user_id", "grand_total", "sub_total", "discount",
				"coins_used", "order_status", "payment_mode", "created_at"},
			row: func(item gjson.Result) []string {
				return []string{
					str(item, "orderId"), str(item, "userId"),
					num(item, "grandTotal").String(), num(item, "subTotal").String(),
					num(item, "discount").String(), num(item, "coinsUsed").String(),
					str(item, "orderStatus"), str(item, "paymentMode"), ts(item, "created_time", loc),
				}
			},
		},
	}

	out := make(map[string]mapper, len(list))
	for _, m := range list {
		out[m.table] = m
	}
	return out
}

// transformDocument maps every element of an extracted JSON array.
func transformDocument(m mapper, doc []byte) ([]byte, int, error) {
	parsed := gjson.ParseBytes(doc)
	if !parsed.IsArray() {
		return nil, 0, errNotArray
	}

	var rows [][]string
	parsed.ForEach(func(_, item gjson.Result) bool {
		rows = append(rows, m.row(item))
		return true
	})

	body, err := encodeCSV(m.columns, rows)
	if err != nil {
		return nil, 0, err
	}
	return body, len(rows), nil
}

func str(item gjson.Result, field string) string {
	r := item.Get(field)
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return r.Str
	default:
		return r.Raw
	}
}

// num reads a numeric or numeric-string field. Anything else is zero.
func num(item gjson.Result, field string) decimal.Decimal {
	r := item.Get(field)
	switch r.Type {
	case gjson.Number:
		if d, err := decimal.NewFromString(r.Raw); err == nil {
			return d
		}
		return decimal.NewFromFloat(r.Num)
	case gjson.String:
		if d, err := decimal.NewFromString(strings.TrimSpace(r.Str)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// ts renders epoch numbers in loc; strings pass through.
func ts(item gjson.Result, field string, loc *time.Location) string {
	r := item.Get(field)
	switch r.Type {
	case gjson.Number:
		return models.FormatTimestamp(r.Float(), loc)
	case gjson.String:
		return r.Str
	default:
		return ""
	}
}
