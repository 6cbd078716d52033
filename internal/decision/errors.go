package decision

import "errors"

// ErrInvalidCandidate indicates a candidate without a profile or items.
var ErrInvalidCandidate = errors.New("invalid candidate")
