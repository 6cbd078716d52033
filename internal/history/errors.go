package history

import "errors"

// ErrInvalidRecord is returned when a record is missing its item or event type.
var ErrInvalidRecord = errors.New("invalid history record")
