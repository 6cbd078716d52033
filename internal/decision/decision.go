// Package decision decides whether a candidate release should be grabbed.
//
// A Pipeline runs an explicit, ordered list of Specifications against a
// Candidate and stops at the first rejection. Rejections are values; errors
// from a rule's dependencies are returned to the caller untouched.
package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/pkg/release"
)

// RejectionType tells the caller whether a rejected candidate may be tried
// again on a later cycle.
type RejectionType int

const (
	// Permanent rejections are not retried for the same release.
	Permanent RejectionType = iota
	// Temporary rejections may pass on a later cycle.
	Temporary
)

func (t RejectionType) String() string {
	if t == Temporary {
		return "temporary"
	}
	return "permanent"
}

// Priority orders rules in a pipeline. Cheap local checks run first.
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityParsing
	PriorityDatabase
)

func (p Priority) String() string {
	switch p {
	case PriorityParsing:
		return "parsing"
	case PriorityDatabase:
		return "database"
	default:
		return "default"
	}
}

// Decision is the outcome of evaluating a candidate.
type Decision struct {
	Accepted bool
	Reason   string
	Type     RejectionType
	Rule     string // rule that rejected; empty when accepted
}

// Accept returns an accepting decision.
func Accept() Decision {
	return Decision{Accepted: true}
}

// Reject returns a rejecting decision with a formatted reason.
func Reject(t RejectionType, format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...), Type: t}
}

func (d Decision) String() string {
	if d.Accepted {
		return "accepted"
	}
	return fmt.Sprintf("rejected (%s) by %s: %s", d.Type, d.Rule, d.Reason)
}

// Release is what an indexer reported.
type Release struct {
	Title       string
	GUID        string
	Indexer     string
	DownloadURL string
	Protocol    release.Protocol
	Size        int64
	PublishDate time.Time
}

// Candidate is a release proposed for a set of library items. It is not
// modified while a pipeline evaluates it.
type Candidate struct {
	Release       Release
	Parsed        release.Info
	Quality       quality.Model
	CustomFormats []quality.CustomFormat
	Discography   bool
	Items         []*library.Item
	Profile       *quality.Profile
}

// NewCandidate parses the release title and matches custom formats.
func NewCandidate(r Release, items []*library.Item, profile *quality.Profile, formats []quality.CustomFormat) *Candidate {
	info := release.Parse(r.Title)
	return &Candidate{
		Release:       r,
		Parsed:        info,
		Quality:       quality.FromInfo(info),
		CustomFormats: quality.MatchFormats(formats, r.Title),
		Discography:   info.Discography,
		Items:         items,
		Profile:       profile,
	}
}

// ItemIDs returns the ids of the candidate's items.
func (c *Candidate) ItemIDs() []int64 {
	ids := make([]int64, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// SearchContext marks an evaluation as the result of a search the user asked
// for. A nil *SearchContext means an automatic scan.
type SearchContext struct {
	ItemIDs []int64
	Query   string
}

// Config is the configuration snapshot a run is evaluated against.
type Config struct {
	Now                             time.Time
	EnableCompletedDownloadHandling bool
	MaximumSizeMB                   int64 // 0 = no limit
	MinimumAgeMinutes               int
	RetentionDays                   int // 0 = unlimited
}

// now returns the snapshot time, falling back to the wall clock.
func (c *Config) now() time.Time {
	if c == nil || c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// Specification is a single acceptance rule.
type Specification interface {
	Name() string
	Priority() Priority
	Evaluate(ctx context.Context, cfg *Config, c *Candidate, search *SearchContext) (Decision, error)
}
