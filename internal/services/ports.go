package services

import (
	"context"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// ExpenseStore is the storage surface the expense service needs.
// *storage.SQLiteStore satisfies it; tests substitute fakes.
type ExpenseStore interface {
	InsertExpense(ctx context.Context, e core.Expense) (int64, error)
	ExpensesInRange(ctx context.Context, start, end int64) ([]core.Expense, error)
	SumInRange(ctx context.Context, start, end int64) (float64, error)
	WatchRange(ctx context.Context, start, end int64) <-chan storage.RangeUpdate
}

// EventPublisher announces persisted expenses to interested consumers,
// typically other processes sharing the same database.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, id, dateMillis int64) error
}
