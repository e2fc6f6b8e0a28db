package warehouse

import (
	"fmt"
	"strings"
	"time"

	"loyalty-analytics-go/internal/models"
)

// Period narrows a leaderboard to recent activity
type Period string

const (
	PeriodAll   Period = "all"
	PeriodWeek  Period = "week"
	PeriodToday Period = "today"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PeriodAll:
		return PeriodAll, nil
	case PeriodWeek, PeriodToday:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Since returns the inclusive lower bound of the period; ok is false for all.
func (p Period) Since(now time.Time) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodWeek:
		return today.AddDate(0, 0, -7), true
	case PeriodToday:
		return today, true
	default:
		return time.Time{}, false
	}
}

// predicate renders the created_at filter for a column and its arguments.
func (p Period) predicate(column string, now time.Time) (string, []any) {
	since, ok := p.Since(now)
	if !ok {
		return "", nil
	}
	return fmt.Sprintf("AND %s >= ?", column), []any{since.Format(models.TimestampLayout)}
}
