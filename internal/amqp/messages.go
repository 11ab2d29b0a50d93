package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by an AuditMessage.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// AuditMessage describes one mutation of a user's record store. The
// worker persists these into the audit trail; the record body travels
// with the message so the worker never reads the live stores.
type AuditMessage struct {
	Username  string    `json:"username"`
	RecordID  string    `json:"record_id"`
	Action    string    `json:"action"`
	Kind      string    `json:"kind,omitempty"`
	Date      string    `json:"date,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAuditMessage creates an audit message stamped with the current time
func NewAuditMessage(username, recordID, action string) *AuditMessage {
	return &AuditMessage{
		Username:  username,
		RecordID:  recordID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AuditMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AuditMessageFromJSON creates a message from JSON bytes
func AuditMessageFromJSON(data []byte) (*AuditMessage, error) {
	var msg AuditMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
