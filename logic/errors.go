package logic

import "fmt"

type StatusCode int

const (
	StatusInvalidArgument StatusCode = iota
	StatusFailedPrecondition
)

// Error message constants for the storefront domain.
const (
	ErrMsgActionTypeRequired = "Action type is required"
	ErrMsgPayloadRequired    = "Action payload is required"
	ErrMsgPayloadNotString   = "Payload must be an item id string"
	ErrMsgPayloadNotBool     = "Payload must be a boolean"
	ErrMsgPayloadNotItems    = "Payload must be a list of items"
	ErrMsgItemIDRequired     = "Item ID is required"
	ErrMsgNegativePrice      = "Prices cannot be negative"
	ErrMsgPriceAboveOriginal = "Current price exceeds original price"
	ErrMsgDuplicateItemID    = "Duplicate item ID"
)

func (s StatusCode) String() string {
	switch s {
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusFailedPrecondition:
		return "FAILED_PRECONDITION"
	default:
		return "UNKNOWN"
	}
}

// CommandError is returned when an action cannot be accepted at the wire
// boundary. Reducers themselves never fail.
type CommandError struct {
	Code    StatusCode
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

func NewInvalidArgument(message string) *CommandError {
	return &CommandError{Code: StatusInvalidArgument, Message: message}
}

func NewInvalidArgumentf(format string, args ...interface{}) *CommandError {
	return &CommandError{Code: StatusInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func NewFailedPrecondition(message string) *CommandError {
	return &CommandError{Code: StatusFailedPrecondition, Message: message}
}

func NewFailedPreconditionf(format string, args ...interface{}) *CommandError {
	return &CommandError{Code: StatusFailedPrecondition, Message: fmt.Sprintf(format, args...)}
}
