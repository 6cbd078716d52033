// Package history records grab, import and failure events per library item.
package history

import (
	"time"

	"github.com/vmunix/fetcharr/internal/quality"
)

// EventType classifies a history record.
type EventType string

const (
	EventGrabbed  EventType = "grabbed"
	EventImported EventType = "imported"
	EventFailed   EventType = "failed"
	EventDeleted  EventType = "deleted"
	EventIgnored  EventType = "ignored"
)

// grabEvents are the event types MostRecentForItem considers.
var grabEvents = []EventType{EventGrabbed, EventImported, EventFailed}

// Record is one append-only history entry.
type Record struct {
	ID             int64
	ItemID         int64
	EventType      EventType
	Date           time.Time
	SourceTitle    string
	Quality        quality.Model
	CustomFormats  []string
	DownloadClient string
	DownloadID     string
	Indexer        string
}

// Filter specifies criteria for listing history.
type Filter struct {
	ItemID    *int64
	EventType *EventType
	Limit     int // 0 = no limit
}
