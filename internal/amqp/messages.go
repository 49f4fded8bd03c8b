package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"recur/internal/core"
)

type ExpenseEventType string

const (
	ExpenseCreated ExpenseEventType = "expense.created"
	ExpenseDeleted ExpenseEventType = "expense.deleted"
)

// ExpenseEventMessage carries a full copy of the expense so consumers never
// need to read it back from the database.
type ExpenseEventMessage struct {
	Type      ExpenseEventType `json:"type"`
	Expense   core.Expense     `json:"expense"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewExpenseEventMessage(t ExpenseEventType, e core.Expense) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Type:      t,
		Expense:   e,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON decodes and checks the event type.
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case ExpenseCreated, ExpenseDeleted:
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformedMessage, msg.Type)
	}
	if msg.Expense.ID == "" {
		return nil, fmt.Errorf("%w: missing expense id", ErrMalformedMessage)
	}
	return &msg, nil
}

type RenewalReminderMessage struct {
	Reminder  core.Reminder `json:"reminder"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewRenewalReminderMessage(r core.Reminder) *RenewalReminderMessage {
	return &RenewalReminderMessage{Reminder: r, Timestamp: time.Now()}
}

func (m *RenewalReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RenewalReminderMessageFromJSON(data []byte) (*RenewalReminderMessage, error) {
	var msg RenewalReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
