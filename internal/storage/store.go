package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists expenses in a single sqlite table and broadcasts
// a change signal after every successful insert so live range queries
// can re-materialize.
type SQLiteStore struct {
	db       *sql.DB
	notifier *Notifier
}

func Open(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{
		db:       db,
		notifier: NewNotifier(),
	}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Notifier exposes the change feed so external sources (the AMQP event
// consumer) can inject signals for inserts made by other processes.
func (s *SQLiteStore) Notifier() *Notifier {
	return s.notifier
}

// InsertExpense writes one row and returns its id. A zero ID lets
// sqlite assign a fresh one; a non-zero ID replaces the existing row.
// The store does not validate, that already happened upstream.
func (s *SQLiteStore) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	receipt := sql.NullString{String: e.ReceiptImageURI, Valid: e.ReceiptImageURI != ""}

	var id int64
	if e.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO expenses (title, amount, category, notes, date, receipt_image_uri)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.Title, e.Amount, e.Category, e.Notes, e.DateMillis, receipt)
		if err != nil {
			return 0, fmt.Errorf("insert expense: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}
	} else {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO expenses (id, title, amount, category, notes, date, receipt_image_uri)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Title, e.Amount, e.Category, e.Notes, e.DateMillis, receipt)
		if err != nil {
			return 0, fmt.Errorf("replace expense: %w", err)
		}
		id = e.ID
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"title", e.Title,
		"amount", e.Amount,
		"category", e.Category,
		"date", e.DateMillis)

	s.notifier.Broadcast(e.DateMillis)

	return id, nil
}

// ExpensesInRange returns all expenses with start <= date <= end,
// ordered by date descending.
func (s *SQLiteStore) ExpensesInRange(ctx context.Context, start, end int64) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, amount, category, notes, date, receipt_image_uri
		 FROM expenses
		 WHERE date BETWEEN ? AND ?
		 ORDER BY date DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("query expenses in range: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var receipt sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &e.Amount, &e.Category, &e.Notes, &e.DateMillis, &receipt); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		e.ReceiptImageURI = receipt.String
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense rows: %w", err)
	}

	return expenses, nil
}

// SumInRange returns sum(amount) over the same predicate as
// ExpensesInRange. No matching rows yields zero, not an error.
func (s *SQLiteStore) SumInRange(ctx context.Context, start, end int64) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM expenses WHERE date BETWEEN ? AND ?`,
		start, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses in range: %w", err)
	}
	if !total.Valid {
		return 0, nil
	}
	return total.Float64, nil
}
