package entities

import (
	"encoding/json"
	"fmt"
)

// SyncAction is the kind of mutation recorded in the sync queue.
type SyncAction string

const (
	SyncActionCreate SyncAction = "create"
	SyncActionUpdate SyncAction = "update"
	SyncActionDelete SyncAction = "delete"
)

// Valid reports whether a is a known action.
func (a SyncAction) Valid() bool {
	switch a {
	case SyncActionCreate, SyncActionUpdate, SyncActionDelete:
		return true
	}
	return false
}

// SyncQueueItem is a mutation made while offline, awaiting replay against the
// remote database. Synced only ever goes from false to true.
type SyncQueueItem struct {
	ID         string          `json:"id"`
	Action     SyncAction      `json:"action"`
	Collection string          `json:"table"`
	Payload    json.RawMessage `json:"data"`
	Timestamp  int64           `json:"timestamp"` // unix milliseconds
	Synced     bool            `json:"synced"`
}

// Validate checks that the item can be replayed.
func (i *SyncQueueItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("sync item without id")
	}
	if !i.Action.Valid() {
		return fmt.Errorf("sync item %s: unknown action %q", i.ID, i.Action)
	}
	if i.Collection == "" {
		return fmt.Errorf("sync item %s: no collection", i.ID)
	}
	return nil
}

// CoinsDelta is the payload of an offline coin change queued for replay.
type CoinsDelta struct {
	UserID     string `json:"user_id"`
	CoinsDelta int    `json:"coins_delta"`
}
