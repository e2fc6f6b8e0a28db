package warehouse

import (
	"context"
	"errors"
	"sync"
	"time"

	"loyalty-analytics-go/internal/cache"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrStatementNotFound = errors.New("statement not found")

// StatementState is the lifecycle of a submitted statement
type StatementState string

const (
	StatementSubmitted StatementState = "SUBMITTED"
	StatementStarted   StatementState = "STARTED"
	StatementFinished  StatementState = "FINISHED"
	StatementFailed    StatementState = "FAILED"
)

// Done reports whether the statement reached a final state.
func (s StatementState) Done() bool {
	return s == StatementFinished || s == StatementFailed
}

// StatementStatus describes a submitted statement
type StatementStatus struct {
	Id          string
	State       StatementState
	Error       string
	SubmittedAt time.Time
	FinishedAt  time.Time
}

// StatementExecutor submits SQL without waiting for it and reports progress.
type StatementExecutor interface {
	Execute(ctx context.Context, sql string) (string, error)
	Describe(ctx context.Context, id string) (StatementStatus, error)
}

// AsyncExecutor runs each statement on its own goroutine over the warehouse pool.
type AsyncExecutor struct {
	db         *gorm.DB
	timeout    time.Duration
	clock      cache.Clock
	mutex      sync.RWMutex
	statements map[string]*StatementStatus
}

func NewAsyncExecutor(db *gorm.DB, timeout time.Duration, clock cache.Clock) *AsyncExecutor {
	if clock == nil {
		clock = cache.SystemClock{}
	}
	return &AsyncExecutor{
		db:         db,
		timeout:    timeout,
		clock:      clock,
		statements: make(map[string]*StatementStatus),
	}
}

// Execute returns as soon as the statement is queued. The statement outlives
// ctx and is bounded by the executor timeout instead.
func (e *AsyncExecutor) Execute(_ context.Context, sql string) (string, error) {
	id := uuid.NewString()

	e.mutex.Lock()
	e.statements[id] = &StatementStatus{Id: id, State: StatementSubmitted, SubmittedAt: e.clock.Now()}
	e.mutex.Unlock()

	go e.run(id, sql)
	return id, nil
}

func (e *AsyncExecutor) run(id, sql string) {
	e.setState(id, StatementStarted, "")

	ctx := context.Background()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := e.db.WithContext(ctx).Exec(sql).Error; err != nil {
		zap.L().Error("Warehouse statement failed", zap.String("statement_id", id), zap.Error(err))
		e.setState(id, StatementFailed, err.Error())
		return
	}
	e.setState(id, StatementFinished, "")
}

func (e *AsyncExecutor) setState(id string, state StatementState, errMsg string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	st, ok := e.statements[id]
	if !ok {
		return
	}
	st.State = state
	st.Error = errMsg
	if state.Done() {
		st.FinishedAt = e.clock.Now()
	}
}

func (e *AsyncExecutor) Describe(_ context.Context, id string) (StatementStatus, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	st, ok := e.statements[id]
	if !ok {
		return StatementStatus{}, ErrStatementNotFound
	}
	return *st, nil
}
