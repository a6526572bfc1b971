package domain

// Snapshot is a full, versioned export of one user's ledger. It is the backup
// payload and the sync payload. Categories may be absent in older snapshots.
type Snapshot struct {
	Version      int64         `json:"version"`
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
	Categories   []Category    `json:"categories,omitempty"`
}

// Metadata is the durable part of the sync state.
type Metadata struct {
	Version  int64 `json:"version"`
	LastSync int64 `json:"lastSync"`
}
