package etl

import (
	"fmt"
	"time"

	"loyalty-analytics-go/internal/models"
)

// Paths lays out one partition date's objects. Reruns for the same date
// overwrite the same keys.
type Paths struct {
	date   time.Time
	schema string
}

func NewPaths(date time.Time, schema string) Paths {
	return Paths{date: date, schema: schema}
}

// Date is the partition date as YYYY-MM-DD.
func (p Paths) Date() string {
	return p.date.Format(models.DateLayout)
}

func (p Paths) partition() string {
	return fmt.Sprintf("year=%04d/month=%02d/day=%02d", p.date.Year(), int(p.date.Month()), p.date.Day())
}

// Raw is the extracted JSON document of a source table.
func (p Paths) Raw(table string) string {
	return fmt.Sprintf("raw/dynamodb/%s/%s/data.json", table, p.partition())
}

// Processed is the flattened CSV of a source table.
func (p Paths) Processed(table string) string {
	return fmt.Sprintf("processed/dynamodb/%s/%s/data.csv", table, p.partition())
}

// Unified is the joined CSV of a warehouse table.
func (p Paths) Unified(table string) string {
	return fmt.Sprintf("processed/unified/%s/%s/%s/data.csv", p.schema, table, p.partition())
}

func (p Paths) CopyCommands() string {
	return fmt.Sprintf("metadata/runs/%s/%s/copy_commands.sql", p.schema, p.partition())
}

func (p Paths) ExecutionLog() string {
	return fmt.Sprintf("metadata/runs/%s/%s/execution_log.json", p.schema, p.partition())
}
