package search

import "errors"

var (
	// ErrNoIndexers indicates no indexers are configured.
	ErrNoIndexers = errors.New("no indexers configured")

	// ErrNoItems indicates a search request named no library items.
	ErrNoItems = errors.New("search request has no items")
)
