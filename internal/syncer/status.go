package syncer

import "time"

// State is the progress of one sync direction.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateDone    State = "done"
	StateError   State = "error"
)

// Status is the sync state of one list, per direction.
type Status struct {
	ListID    string     `json:"list_id"`
	Pull      State      `json:"pull"`
	Push      State      `json:"push"`
	LastPull  *time.Time `json:"last_pull_at,omitempty"`
	LastPush  *time.Time `json:"last_push_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// StatusCallback is notified whenever a session's status changes.
type StatusCallback func(Status)

func idleStatus(listID string) Status {
	return Status{ListID: listID, Pull: StateIdle, Push: StateIdle}
}
