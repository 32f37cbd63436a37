package amqp

import (
	"encoding/json"
	"time"
)

// MessageVersion is the schema version of ExpenseCreatedMessage.
const MessageVersion = 1

// ExpenseCreatedMessage announces a new expense. Consumers fetch the full
// expense by ID.
type ExpenseCreatedMessage struct {
	ID        int64     `json:"id"`
	BudgetID  int64     `json:"budgetId"`
	Source    string    `json:"source"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(id, budgetID int64, source string) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:        id,
		BudgetID:  budgetID,
		Source:    source,
		Version:   MessageVersion,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
