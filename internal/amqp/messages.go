package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Bill event actions carried on the wire.
const (
	ActionCreated    = "created"
	ActionUpdated    = "updated"
	ActionDeleted    = "deleted"
	ActionRolledOver = "rolled_over"
)

// BillEventMessage is a lightweight notification that a bill changed.
// Consumers fetch the full record from the database; the message carries
// only identities plus a unique event id for deduplication.
type BillEventMessage struct {
	EventID   string    `json:"event_id"`
	Action    string    `json:"action"`
	BillID    int64     `json:"bill_id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBillEventMessage creates an event message with a fresh event id.
func NewBillEventMessage(action string, billID, userID int64) *BillEventMessage {
	return &BillEventMessage{
		EventID:   uuid.NewString(),
		Action:    action,
		BillID:    billID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *BillEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillEventMessageFromJSON creates a message from JSON bytes.
func BillEventMessageFromJSON(data []byte) (*BillEventMessage, error) {
	var msg BillEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
