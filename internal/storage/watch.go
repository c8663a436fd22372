package storage

import (
	"context"
	"log/slog"

	"expensetracker/internal/core"
)

// RangeUpdate is one emission of a live range query: a fresh, fully
// materialized list, or an empty list plus the error that prevented it.
type RangeUpdate struct {
	Expenses []core.Expense
	Err      error
}

// WatchRange returns a live query over start <= date <= end. The channel
// emits an initial snapshot immediately, then a fresh list every time a
// change signal falls inside the range. It never terminates on its own;
// cancelling ctx releases the subscription and closes the channel.
//
// A failed re-query emits RangeUpdate{Err: ...} with an empty list and
// keeps the subscription alive, so a later change (or a retry insert)
// recovers the stream without re-subscribing.
func (s *SQLiteStore) WatchRange(ctx context.Context, start, end int64) <-chan RangeUpdate {
	out := make(chan RangeUpdate, 1)
	signals, unsubscribe := s.notifier.Subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		emit := func() bool {
			update := RangeUpdate{}
			expenses, err := s.ExpensesInRange(ctx, start, end)
			if err != nil {
				slog.ErrorContext(ctx, "Live range query failed",
					"start", start,
					"end", end,
					"error", err)
				update.Err = err
			} else {
				update.Expenses = expenses
			}

			select {
			case out <- update:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case date := <-signals:
				if date != 0 && (date < start || date > end) {
					continue
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}
