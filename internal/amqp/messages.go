package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"ridesdash/internal/core"
)

// DatasetImportedMessage announces that a new snapshot was written to SQLite.
// It carries the row counts only; consumers read the data from the store.
type DatasetImportedMessage struct {
	core.Import
}

// NewDatasetImportedMessage wraps a finished import.
func NewDatasetImportedMessage(imp core.Import) *DatasetImportedMessage {
	return &DatasetImportedMessage{Import: imp}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ErrInvalidMessage marks a message that can never be processed. Such
// deliveries are dropped instead of requeued.
var ErrInvalidMessage = errors.New("invalid dataset imported message")

// DatasetImportedMessageFromJSON decodes and checks a message body.
func DatasetImportedMessageFromJSON(data []byte) (*DatasetImportedMessage, error) {
	var msg DatasetImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("%w: no import_id", ErrInvalidMessage)
	}
	return &msg, nil
}
