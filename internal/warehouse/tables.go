package warehouse

import (
	"fmt"
	"strings"
)

// DefaultSchema holds the loyalty dimension and fact tables.
const DefaultSchema = "loyalty"

// Column is one warehouse column in load order
type Column struct {
	Name string
	Type string
}

// Table is a warehouse table loaded from one unified CSV
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in load order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnList is the comma separated column list used by COPY.
func (t Table) ColumnList() string {
	return strings.Join(t.ColumnNames(), ", ")
}

// DDL returns a CREATE TABLE IF NOT EXISTS statement for the table.
func (t Table) DDL(schema string) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = fmt.Sprintf("%s %s", c.Name, c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (%s)", schema, t.Name, strings.Join(cols, ", "))
}

const (
	typeText      = "VARCHAR(512)"
	typeNumber    = "DOUBLE PRECISION"
	typeTimestamp = "TIMESTAMP"
)

// Tables lists every warehouse table in load order. The CSV header written by
// the unify stage must match these column lists exactly.
var Tables = []Table{
	{Name: "dim_tier", Columns: []Column{
		{"tier_id", typeText}, {"tier_name", typeText}, {"redemption_rate", typeNumber},
	}},
	{Name: "dim_loyalty_users", Columns: []Column{
		{"user_id", typeText}, {"user_name", typeText}, {"phone_number", typeText},
		{"phone_normalized", typeText}, {"email", typeText}, {"tier_id", typeText},
		{"tier_name", typeText}, {"referral_code", typeText}, {"remaining_coins", typeNumber},
		{"total_earned", typeNumber}, {"total_used", typeNumber}, {"signup_date", typeTimestamp},
	}},
	{Name: "fact_wallet_transactions", Columns: []Column{
		{"transaction_id", typeText}, {"user_id", typeText}, {"transaction_type", typeText},
		{"title", typeText}, {"amount", typeNumber}, {"reason", typeText},
		{"status", typeText}, {"created_at", typeTimestamp},
	}},
	{Name: "fact_referrals", Columns: []Column{
		{"referral_id", typeText}, {"referrer_user_id", typeText}, {"referred_phone", typeText},
		{"referred_phone_normalized", typeText}, {"referral_code", typeText}, {"status", typeText},
		{"created_at", typeTimestamp}, {"referrer_name", typeText}, {"referred_name", typeText},
		{"referred_user_id", typeText},
	}},
	{Name: "fact_leads", Columns: []Column{
		{"lead_id", typeText}, {"generator_user_id", typeText}, {"lead_name", typeText},
		{"lead_phone", typeText}, {"occasion_name", typeText}, {"lead_stage", typeText},
		{"estimated_value", typeNumber}, {"created_at", typeTimestamp}, {"generator_name", typeText},
	}},
	{Name: "fact_withdrawals", Columns: []Column{
		{"withdrawal_id", typeText}, {"user_id", typeText}, {"requested_amount", typeNumber},
		{"approved_amount", typeNumber}, {"status", typeText}, {"bank_id", typeText},
		{"upi_id", typeText}, {"created_at", typeTimestamp}, {"processed_at", typeTimestamp},
		{"user_name", typeText},
	}},
	{Name: "fact_orders", Columns: []Column{
		{"order_id", typeText}, {"user_id", typeText}, {"user_name", typeText},
		{"phone_number", typeText}, {"grand_total", typeNumber}, {"sub_total", typeNumber},
		{"discount", typeNumber}, {"coins_used", typeNumber}, {"order_status", typeText},
		{"payment_mode", typeText}, {"created_at", typeTimestamp},
	}},
}

// TableByName looks up a warehouse table definition.
func TableByName(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
