package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// ExpenseService is the use-case layer: it validates new expenses before
// persistence and translates day selections into date-range queries.
type ExpenseService struct {
	store  ExpenseStore
	events EventPublisher
}

// NewExpenseService wires the service. events may be nil when no event
// feed is configured.
func NewExpenseService(store ExpenseStore, events EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:  store,
		events: events,
	}
}

// AddExpense validates and persists one expense, returning it with the
// assigned id. Validation failures reject the input before any write.
// Event publishing is best effort: the expense is already saved locally,
// so a publish failure is logged and never fails the request.
func (s *ExpenseService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	id, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	if s.events != nil {
		if err := s.events.PublishExpenseCreated(ctx, id, e.DateMillis); err != nil {
			slog.ErrorContext(ctx, "Failed to publish expense created event",
				"id", id,
				"error", err)
		}
	}

	return e, nil
}

// ExpensesForDay returns the expenses of day's calendar date, newest
// first.
func (s *ExpenseService) ExpensesForDay(ctx context.Context, day time.Time) ([]core.Expense, error) {
	start, end := core.DayBounds(day)
	expenses, err := s.store.ExpensesInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("expenses for day: %w", err)
	}
	return expenses, nil
}

// TotalForDay returns the amount sum for day's calendar date.
func (s *ExpenseService) TotalForDay(ctx context.Context, day time.Time) (float64, error) {
	start, end := core.DayBounds(day)
	total, err := s.store.SumInRange(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("total for day: %w", err)
	}
	return total, nil
}

// WatchDay returns a live query over day's calendar date. The stream
// follows the storage WatchRange contract: cancelled by ctx only.
func (s *ExpenseService) WatchDay(ctx context.Context, day time.Time) <-chan storage.RangeUpdate {
	start, end := core.DayBounds(day)
	return s.store.WatchRange(ctx, start, end)
}
