package amqp

import (
	"encoding/json"
	"time"
)

// Event names published after a successful write.
const (
	TransactionCreated = "transaction.created"
	TransactionUpdated = "transaction.updated"
	TransactionDeleted = "transaction.deleted"
	CategoryCreated    = "category.created"
	CategoryUpdated    = "category.updated"
	CategoryDeleted    = "category.deleted"
	LabelCreated       = "label.created"
	LabelUpdated       = "label.updated"
	LabelDeleted       = "label.deleted"
)

// LedgerEvent is a lightweight change notification. Consumers fetch the
// entity itself if they need more than its id.
type LedgerEvent struct {
	Event     string    `json:"event"`
	OwnerID   string    `json:"owner_id"`
	EntityID  string    `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(event, ownerID, entityID string) *LedgerEvent {
	return &LedgerEvent{
		Event:     event,
		OwnerID:   ownerID,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
