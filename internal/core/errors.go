package core

import "errors"

// Error codes carried by ERROR replies.
const (
	ErrCodeUnknownCommand   = "UnknownCommand"
	ErrCodeNotRegistered    = "NotRegistered"
	ErrCodeInvalidUsername  = "InvalidUsername"
	ErrCodeInvalidRoomName  = "InvalidRoomName"
	ErrCodeRoomExists       = "RoomExists"
	ErrCodeJoinFailed       = "JoinFailed"
	ErrCodeNotInRoom        = "NotInRoom"
	ErrCodeEmptyMessage     = "EmptyMessage"
	ErrCodePayloadTooLong   = "PayloadTooLong"
	ErrCodeRateLimited      = "RateLimited"
	ErrCodeCapacityExceeded = "CapacityExceeded"
)

var (
	ErrCapacityExceeded  = errors.New("connection limit reached")
	ErrAlreadyRegistered = errors.New("client already registered")
	ErrHubStopped        = errors.New("hub stopped")
)

// ProtocolError is reported to the offending client; the connection stays open.
type ProtocolError struct {
	Code string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Code
}

func protocolError(code string) *ProtocolError {
	return &ProtocolError{Code: code}
}
