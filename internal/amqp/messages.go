package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ExpenseSyncMessage announces a stored expense that must be copied to the
// spreadsheet. The worker loads the full expense from the database.
type ExpenseSyncMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseSyncMessage(id, userID string) *ExpenseSyncMessage {
	return &ExpenseSyncMessage{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseSyncMessageFromJSON decodes a message; an empty id is rejected.
func ExpenseSyncMessageFromJSON(data []byte) (*ExpenseSyncMessage, error) {
	var msg ExpenseSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("sync message without expense id")
	}
	return &msg, nil
}
