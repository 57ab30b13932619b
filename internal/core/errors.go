package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeProtocol       = "protocol_error"
	ErrCodeAuth           = "auth_error"
	ErrCodeNotFound       = "not_found"
	ErrCodeMembership     = "membership_error"
	ErrCodeAlreadyMember  = "already_member"
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnknownCommand = "unknown_command"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeTransport      = "transport_error"
	ErrCodeInternal       = "internal_error"
)

var (
	ErrGroupNotFound   = coreError(ErrCodeNotFound, "Group does not exist")
	ErrMessageNotFound = coreError(ErrCodeNotFound, "Message not found")
	ErrUserNotFound    = coreError(ErrCodeNotFound, "User is not connected")
	ErrNotMember       = coreError(ErrCodeMembership, "You are not a member of this group")
	ErrAlreadyMember   = coreError(ErrCodeAlreadyMember, "Already a member of this group")
	ErrUsernameTaken   = coreError(ErrCodeAuth, "Username already exists. Please choose another.")
	ErrUnknownCommand  = coreError(ErrCodeUnknownCommand, "Unknown command")
	ErrRateLimited     = coreError(ErrCodeRateLimited, "Too many commands, slow down")

	ErrMailboxFull   = errors.New("mailbox full")
	ErrSessionClosed = errors.New("session closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is matches any CoreError carrying the same code and message, so detailed
// copies of a sentinel still satisfy errors.Is.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a CoreError with a custom message.
func NewError(code, msg string) *CoreError {
	return coreError(code, msg)
}

// CodeOf extracts the error code, falling back to internal_error.
func CodeOf(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternal
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
