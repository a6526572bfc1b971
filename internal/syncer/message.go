package syncer

import (
	"encoding/json"
	"fmt"

	"github.com/dvloznov/ledgr/internal/domain"
)

// Message is one side of a sync exchange. It carries either a bare version
// or a full snapshot. On the wire a bare version is {"version": n} and a
// snapshot is the snapshot document itself.
type Message struct {
	Version  int64
	Snapshot *domain.Snapshot
}

// VersionOnly builds a message announcing version without content.
func VersionOnly(version int64) Message {
	return Message{Version: version}
}

// WithSnapshot builds a message carrying snap.
func WithSnapshot(snap domain.Snapshot) Message {
	return Message{Version: snap.Version, Snapshot: &snap}
}

// HasContent reports whether the message carries a snapshot.
func (m Message) HasContent() bool {
	return m.Snapshot != nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	if m.Snapshot != nil {
		snap := *m.Snapshot
		snap.Version = m.Version
		return json.Marshal(snap)
	}
	return json.Marshal(struct {
		Version int64 `json:"version"`
	}{m.Version})
}

// UnmarshalJSON treats a document with both accounts and transactions as a
// snapshot and anything else as a bare version.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode sync message: %w", err)
	}

	_, hasAccounts := fields["accounts"]
	_, hasTransactions := fields["transactions"]
	if hasAccounts && hasTransactions {
		var snap domain.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("decode sync snapshot: %w", err)
		}
		*m = WithSnapshot(snap)
		return nil
	}

	raw, ok := fields["version"]
	if !ok {
		return fmt.Errorf("decode sync message: version is missing")
	}
	var version int64
	if err := json.Unmarshal(raw, &version); err != nil {
		return fmt.Errorf("decode sync version: %w", err)
	}
	*m = VersionOnly(version)
	return nil
}
