package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeMissingToken       = "missing_token"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeUnsupportedVersion = "unsupported_version"
	ErrCodeNotInRoom          = "not_in_room"
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthenticated    = "unauthenticated"
)

var (
	ErrNotInRoom       = errors.New("not in room")
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthenticated = errors.New("connection not authenticated")
	ErrQueueFull       = errors.New("send queue full")
	ErrConnClosed      = errors.New("connection closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func coreError(code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}

// IsDeliveryFailure reports whether err came from a failed enqueue to a peer.
func IsDeliveryFailure(err error) bool {
	return errors.Is(err, ErrQueueFull) || errors.Is(err, ErrConnClosed)
}
