// Package download submits releases to download clients and tracks their progress.
package download

import (
	"context"
	"time"

	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/pkg/release"
)

// Kind groups clients by how they hand work to the downloader.
type Kind string

const (
	// KindFileDrop clients write a job file into a folder another program watches.
	KindFileDrop Kind = "filedrop"
	// KindRPC clients talk to a download agent over its API.
	KindRPC Kind = "rpc"
)

// Capabilities lists optional operations a client supports.
type Capabilities struct {
	Remove      bool // can remove jobs it has accepted
	Discography bool // can take a combined multi-item release
}

// Submission is what a client needs to start a download.
type Submission struct {
	Title       string
	DownloadURL string
	Protocol    release.Protocol
	Discography bool
	Category    string
}

// Item is a job as reported by a client.
type Item struct {
	ID           string // opaque, client-specific
	Title        string
	Client       string
	Status       Status
	Progress     float64 // 0-100
	Size         int64
	Remaining    int64
	OutputPath   string
	CanBeRemoved bool
}

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/vmunix/fetcharr/internal/download Client

// Client is a download client: SABnzbd, qBittorrent, a watch folder, etc.
//
// Transport failures are returned wrapped but otherwise unchanged. Operations
// a client cannot perform return a *CapabilityError.
type Client interface {
	// Name is the configured instance name.
	Name() string
	Kind() Kind
	Protocol() release.Protocol
	Capabilities() Capabilities
	// Submit hands a release to the client and returns its id for the job.
	Submit(ctx context.Context, s *Submission) (string, error)
	// Items returns a snapshot of the client's jobs.
	Items(ctx context.Context) ([]*Item, error)
	// RemoveItem removes a job, deleting downloaded data when asked.
	RemoveItem(ctx context.Context, item *Item, deleteData bool) error
}

// Download is a tracked submission for one library item.
type Download struct {
	ID               int64
	ItemID           int64
	Client           string
	ClientID         string // ID in the download client
	Status           Status
	ReleaseName      string
	Indexer          string
	Quality          quality.Model
	CustomFormats    []string
	OutputPath       string
	AddedAt          time.Time
	CompletedAt      *time.Time
	LastTransitionAt time.Time
}

// Filter specifies criteria for listing downloads.
type Filter struct {
	ItemID   *int64
	Status   *Status
	Client   *string
	ClientID *string
	Active   bool // if true, exclude terminal statuses
}
