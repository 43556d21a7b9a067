package events

import (
	"encoding/json"
	"time"
)

// ArchiveMessage asks the worker to archive one transaction. It carries
// only the identifier and version; the worker loads the record from the
// store.
type ArchiveMessage struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewArchiveMessage(id string, version int64) *ArchiveMessage {
	return &ArchiveMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *ArchiveMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ArchiveMessageFromJSON(data []byte) (*ArchiveMessage, error) {
	var msg ArchiveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
