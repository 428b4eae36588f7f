package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType discriminates the envelopes that flow through the work queue.
type MessageType string

const (
	// TypeExpenseSync asks the worker to back an expense row up to the
	// configured spreadsheet. The worker fetches the full row itself.
	TypeExpenseSync MessageType = "expense.sync"
	// TypeExpenseDelete asks the worker to remove a previously backed-up
	// row from the spreadsheet.
	TypeExpenseDelete MessageType = "expense.delete"
	// TypeForecastRequest asks the worker to run a spending forecast job.
	TypeForecastRequest MessageType = "forecast.request"
)

// Message is the single wire envelope. Only the fields relevant to the
// message type are set.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`

	ExpenseID int64  `json:"expense_id,omitempty"`
	Owner     string `json:"owner,omitempty"`
	JobID     string `json:"job_id,omitempty"`
}

func NewExpenseSyncMessage(expenseID int64) *Message {
	return &Message{Type: TypeExpenseSync, ExpenseID: expenseID, Timestamp: time.Now()}
}

func NewExpenseDeleteMessage(expenseID int64, owner string) *Message {
	return &Message{Type: TypeExpenseDelete, ExpenseID: expenseID, Owner: owner, Timestamp: time.Now()}
}

func NewForecastRequestMessage(jobID, owner string) *Message {
	return &Message{Type: TypeForecastRequest, JobID: jobID, Owner: owner, Timestamp: time.Now()}
}

func (m *Message) Validate() error {
	switch m.Type {
	case TypeExpenseSync, TypeExpenseDelete:
		if m.ExpenseID <= 0 {
			return fmt.Errorf("%s message missing expense id", m.Type)
		}
	case TypeForecastRequest:
		if m.JobID == "" {
			return errors.New("forecast request missing job id")
		}
		if m.Owner == "" {
			return errors.New("forecast request missing owner")
		}
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
