package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a relay failure detected by the engine.
//
// Errors returned by application bodies are never wrapped in a
// RuntimeError; they reach the caller unchanged.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Correlation identifies the affected object, if any.
	Correlation string

	// Member names the affected member, if any.
	Member string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnsupported indicates a member that never works over this link.
	ErrCodeUnsupported RuntimeErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeUnknownMember indicates a name with no matching member.
	ErrCodeUnknownMember RuntimeErrorCode = "UNKNOWN_MEMBER"

	// ErrCodeShapeMismatch indicates values or descriptors that disagree
	// with the declared shape.
	ErrCodeShapeMismatch RuntimeErrorCode = "SHAPE_MISMATCH"

	// ErrCodeNotPermitted indicates this node's roles may not send the
	// member's operation.
	ErrCodeNotPermitted RuntimeErrorCode = "NOT_PERMITTED"

	// ErrCodeIdentityMismatch indicates an envelope for an object this node
	// does not hold, or a duplicate attach.
	ErrCodeIdentityMismatch RuntimeErrorCode = "IDENTITY_MISMATCH"

	// ErrCodeRemote indicates a failure reported by the responding peer.
	ErrCodeRemote RuntimeErrorCode = "REMOTE_FAILURE"

	// ErrCodeClosed indicates an object or node that has been closed.
	ErrCodeClosed RuntimeErrorCode = "CLOSED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.Correlation != "" && e.Member != "":
		return fmt.Sprintf("%s: %s (object=%s, member=%s)", e.Code, e.Message, e.Correlation, e.Member)
	case e.Member != "":
		return fmt.Sprintf("%s: %s (member=%s)", e.Code, e.Message, e.Member)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnsupported returns true if err reports an unsupported operation.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool { return hasCode(err, ErrCodeUnsupported) }

// IsUnknownMember returns true if err reports an unknown member.
func IsUnknownMember(err error) bool { return hasCode(err, ErrCodeUnknownMember) }

// IsShapeMismatch returns true if err reports a shape mismatch.
func IsShapeMismatch(err error) bool { return hasCode(err, ErrCodeShapeMismatch) }

// IsNotPermitted returns true if err reports a direction refusal.
func IsNotPermitted(err error) bool { return hasCode(err, ErrCodeNotPermitted) }

// IsIdentityMismatch returns true if err reports an identity problem.
func IsIdentityMismatch(err error) bool { return hasCode(err, ErrCodeIdentityMismatch) }

// IsRemoteFailure returns true if err reports a failure on a peer.
func IsRemoteFailure(err error) bool { return hasCode(err, ErrCodeRemote) }

// IsClosed returns true if err reports a closed node or object.
func IsClosed(err error) bool { return hasCode(err, ErrCodeClosed) }

// NewUnsupportedError creates the fixed error for unsupported members.
func NewUnsupportedError(correlation, member string) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeUnsupported,
		Message:     "operation not supported over this link",
		Correlation: correlation,
		Member:      member,
	}
}

func newError(code RuntimeErrorCode, correlation, member, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:        code,
		Message:     fmt.Sprintf(format, args...),
		Correlation: correlation,
		Member:      member,
	}
}
