package amqp

import (
	"encoding/json"
	"time"
)

const (
	KindSync   = "transaction.sync"
	KindDelete = "transaction.delete"
)

// Envelope wraps every queue message with its kind so one queue carries
// both syncs and deletes.
type Envelope struct {
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// SyncMessage asks the export worker to push one transaction to the
// spreadsheet. It carries only the row identity; the worker loads the
// full row from storage.
type SyncMessage struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

// DeleteMessage asks the export worker to remove one transaction from the
// spreadsheet.
type DeleteMessage struct {
	ID string `json:"id"`
}

func NewEnvelope(kind string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Kind: kind, Payload: raw, Timestamp: time.Now()}, nil
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Sync decodes the payload as a SyncMessage.
func (e *Envelope) Sync() (*SyncMessage, error) {
	var m SyncMessage
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete decodes the payload as a DeleteMessage.
func (e *Envelope) Delete() (*DeleteMessage, error) {
	var m DeleteMessage
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
