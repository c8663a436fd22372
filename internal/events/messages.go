package events

import (
	"encoding/json"
	"time"
)

// ExpenseCreated announces a persisted expense. It carries only the id
// and occurrence date; consumers holding the same database re-query for
// the full row.
type ExpenseCreated struct {
	ID        int64     `json:"id"`
	Date      int64     `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseCreated(id, dateMillis int64) *ExpenseCreated {
	return &ExpenseCreated{
		ID:        id,
		Date:      dateMillis,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseCreated) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseCreatedFromJSON(data []byte) (*ExpenseCreated, error) {
	var msg ExpenseCreated
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
