package core

import (
	"errors"
	"strings"
)

var (
	ErrBlankTitle    = errors.New("expense title cannot be blank")
	ErrInvalidAmount = errors.New("expense amount must be positive")
)

// Expense is one recorded spending event. ID is zero until the store
// assigns one on insert. DateMillis is the instant the expense occurred,
// in milliseconds since the Unix epoch.
type Expense struct {
	ID              int64
	Title           string
	Amount          float64
	Category        string
	Notes           string
	DateMillis      int64
	ReceiptImageURI string
}

// Validate enforces the entry-time invariants. The store does not
// re-validate, so callers must check before persisting.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrBlankTitle
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
