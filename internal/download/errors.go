package download

import (
	"errors"
	"fmt"
)

// Sentinel errors for the download package.
var (
	// ErrClientUnavailable is returned when the download client cannot be reached.
	ErrClientUnavailable = errors.New("download client unavailable")

	// ErrInvalidAPIKey is returned when the API key is rejected by the client.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// ErrDownloadNotFound is returned when a download is not found in the client.
	ErrDownloadNotFound = errors.New("download not found in client")

	// ErrNotFound is returned when a download record is not found in the database.
	ErrNotFound = errors.New("download not found")

	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnsupported is matched by every *CapabilityError.
	ErrUnsupported = errors.New("operation not supported")

	// ErrInvalidSettings is returned when a client is constructed with unusable settings.
	ErrInvalidSettings = errors.New("invalid download client settings")

	// ErrAuthFailed is returned when a client rejects the credentials or the session expired.
	ErrAuthFailed = errors.New("download client authentication failed")

	// ErrNoClient is returned when no enabled client handles a protocol.
	ErrNoClient = errors.New("no download client available")
)

// Operations that a client may not support.
const (
	OpRemove      = "remove"
	OpDiscography = "discography"
	OpProtocol    = "protocol"
)

// CapabilityError reports an operation the client cannot perform. It is a
// permanent property of the client, not a transient failure.
type CapabilityError struct {
	Client string
	Op     string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("download client %s: %s not supported", e.Client, e.Op)
}

// Unwrap lets errors.Is(err, ErrUnsupported) match.
func (e *CapabilityError) Unwrap() error {
	return ErrUnsupported
}

func unsupported(client, op string) error {
	return &CapabilityError{Client: client, Op: op}
}
