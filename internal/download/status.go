package download

import (
	"context"
	"time"
)

// Status tracks download state.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusRemoved     Status = "removed"
)

// validTransitions defines allowed state transitions.
// Key is the "from" status, value is list of valid "to" statuses.
var validTransitions = map[Status][]Status{
	StatusQueued:      {StatusDownloading, StatusCompleted, StatusFailed, StatusRemoved},
	StatusDownloading: {StatusCompleted, StatusFailed, StatusRemoved},
	StatusCompleted:   {},
	StatusFailed:      {},
	StatusRemoved:     {},
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, v := range validTransitions[s] {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this status has no valid outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRemoved
}

// terminalStatuses lists statuses excluded by Filter.Active.
var terminalStatuses = []Status{StatusCompleted, StatusFailed, StatusRemoved}

// TransitionEvent records a status change of a tracked download.
type TransitionEvent struct {
	DownloadID int64
	ItemID     int64
	From       Status
	To         Status
	At         time.Time
	Download   Download // snapshot after the change
}

// TransitionHandler is called after a transition is persisted, with the
// context of the call that made it.
type TransitionHandler func(ctx context.Context, e TransitionEvent)
