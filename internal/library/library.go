// Package library tracks the wanted items and the quality of what is on disk.
package library

import (
	"time"

	"github.com/vmunix/fetcharr/internal/quality"
)

// Item is a wanted media item.
type Item struct {
	ID             int64
	Title          string
	Year           int
	QualityProfile string
	File           *File // nil when nothing is on disk
	AddedAt        time.Time
	UpdatedAt      time.Time
}

// File describes the quality of the file currently on disk for an item.
type File struct {
	Quality       quality.Model
	CustomFormats []string
}

// HasFile reports whether the item has a file on disk.
func (i *Item) HasFile() bool {
	return i.File != nil
}

// Filter specifies criteria for listing items.
type Filter struct {
	QualityProfile *string
	Title          *string
	Year           *int
	Missing        bool // only items without a file
	Limit          int  // 0 = no limit
	Offset         int
}
