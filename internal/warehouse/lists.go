package warehouse

import (
	"context"
)

// Page is one page of a list view plus the unpaginated total
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// UserRow is a loyalty user as loaded into the warehouse
type UserRow struct {
	UserId         string  `json:"userId" gorm:"column:user_id"`
	UserName       string  `json:"userName" gorm:"column:user_name"`
	PhoneNumber    string  `json:"phoneNumber" gorm:"column:phone_number"`
	Email          string  `json:"email" gorm:"column:email"`
	TierName       string  `json:"tierName" gorm:"column:tier_name"`
	RemainingCoins float64 `json:"remainingCoins" gorm:"column:remaining_coins"`
	TotalEarned    float64 `json:"totalEarned" gorm:"column:total_earned"`
	TotalUsed      float64 `json:"totalUsed" gorm:"column:total_used"`
	SignupDate     string  `json:"signupDate" gorm:"column:signup_date"`
}

// TransactionRow is a wallet transaction as loaded into the warehouse
type TransactionRow struct {
	TransactionId   string  `json:"transactionId" gorm:"column:transaction_id"`
	UserId          string  `json:"userId" gorm:"column:user_id"`
	TransactionType string  `json:"transactionType" gorm:"column:transaction_type"`
	Title           string  `json:"title" gorm:"column:title"`
	Amount          float64 `json:"amount" gorm:"column:amount"`
	Reason          string  `json:"reason" gorm:"column:reason"`
	Status          string  `json:"status" gorm:"column:status"`
	CreatedAt       string  `json:"createdAt" gorm:"column:created_at"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ListUsers returns a page of users ordered by id. Pages start at 1.
func (s *Service) ListUsers(ctx context.Context, page, size int) (Page[UserRow], error) {
	return paginate[UserRow](ctx, s, queryListUsers, queryCountUsers, page, size)
}

// ListTransactions returns a page of transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, page, size int) (Page[TransactionRow], error) {
	return paginate[TransactionRow](ctx, s, queryListTransactions, queryCountTransactions, page, size)
}

func paginate[T any](ctx context.Context, s *Service, listQuery, countQuery string, page, size int) (Page[T], error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	var total int64
	if err := s.raw(ctx, &total, s.sql(countQuery, "")); err != nil {
		return Page[T]{}, err
	}

	items := []T{}
	if err := s.raw(ctx, &items, s.sql(listQuery, ""), size, (page-1)*size); err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, Total: total, Page: page, PageSize: size}, nil
}
