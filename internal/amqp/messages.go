package amqp

import (
	"encoding/json"
	"time"
)

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// TransactionEventMessage is published after every successful transaction
// mutation. It carries identifiers only; consumers that need the full record
// fetch it from the store.
type TransactionEventMessage struct {
	Action        string    `json:"action"` // created, updated, deleted
	TransactionID int64     `json:"transactionId"`
	UserID        int64     `json:"userId"`
	AmountCents   int64     `json:"amountCents"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event message stamped with the current time.
func NewTransactionEvent(action string, transactionID, userID, amountCents int64, txnType string) *TransactionEventMessage {
	return &TransactionEventMessage{
		Action:        action,
		TransactionID: transactionID,
		UserID:        userID,
		AmountCents:   amountCents,
		Type:          txnType,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON creates a message from JSON bytes
func TransactionEventFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
