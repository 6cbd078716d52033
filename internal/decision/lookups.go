package decision

import (
	"context"

	"github.com/vmunix/fetcharr/internal/download"
	"github.com/vmunix/fetcharr/internal/history"
	"github.com/vmunix/fetcharr/pkg/release"
)

//go:generate mockgen -destination=mocks/mock_lookups.go -package=mocks github.com/vmunix/fetcharr/internal/decision HistoryLookup,QueueLookup,ProtocolLookup

// HistoryLookup returns the latest grab-class event for an item, or nil.
// Implemented by *history.Store.
type HistoryLookup interface {
	MostRecentForItem(ctx context.Context, itemID int64) (*history.Record, error)
}

// QueueLookup returns the tracked downloads still in flight for an item.
// Implemented by *download.Store.
type QueueLookup interface {
	ActiveForItem(ctx context.Context, itemID int64) ([]*download.Download, error)
}

// ProtocolLookup reports whether any enabled client handles a protocol.
// Implemented by *download.Registry.
type ProtocolLookup interface {
	HasProtocol(p release.Protocol) bool
}
