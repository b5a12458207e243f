package sim

import (
	"errors"
	"fmt"
)

// Error is a kernel failure with a category code.
//
// Kernel errors include:
//   - Uninitialized property: get on a cell with no value and no default
//   - Missing required property: create without a value for a property
//     that has no default; no entity is allocated
//   - Invalid time: scheduling into the past or at a non-finite time
//   - Duplicate registration: a name registered twice
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Name is the property, entity type or global involved, if any.
	Name string

	// Entity is the affected entity, if any.
	Entity string
}

// ErrorCode categorizes kernel errors.
type ErrorCode string

const (
	ErrCodeUninitializedProperty   ErrorCode = "UNINITIALIZED_PROPERTY"
	ErrCodeMissingRequiredProperty ErrorCode = "MISSING_REQUIRED_PROPERTY"
	ErrCodeInvalidTime             ErrorCode = "INVALID_TIME"
	ErrCodeDuplicateRegistration   ErrorCode = "DUPLICATE_REGISTRATION"

	// ErrCodeUnknownEntity indicates a handle that does not name a live row
	// of its entity type in this context.
	ErrCodeUnknownEntity ErrorCode = "UNKNOWN_ENTITY"

	// ErrCodeInvalidProperty indicates a property used with the wrong
	// entity type, a property initialized twice, or a NaN value.
	ErrCodeInvalidProperty ErrorCode = "INVALID_PROPERTY"

	ErrCodeUnknownGlobal    ErrorCode = "UNKNOWN_GLOBAL"
	ErrCodeGlobalAlreadySet ErrorCode = "GLOBAL_ALREADY_SET"
	ErrCodeInvalidGlobal    ErrorCode = "INVALID_GLOBAL"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Entity != "" && e.Name != "":
		return fmt.Sprintf("%s: %s (entity=%s, name=%s)", e.Code, e.Message, e.Entity, e.Name)
	case e.Name != "":
		return fmt.Sprintf("%s: %s (name=%s)", e.Code, e.Message, e.Name)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsUninitializedProperty reports whether err is an uninitialized property
// error. Uses errors.As to handle wrapped errors.
func IsUninitializedProperty(err error) bool {
	return hasCode(err, ErrCodeUninitializedProperty)
}

// IsMissingRequiredProperty reports whether err is a missing required
// property error.
func IsMissingRequiredProperty(err error) bool {
	return hasCode(err, ErrCodeMissingRequiredProperty)
}

// IsInvalidTime reports whether err is an invalid time error.
func IsInvalidTime(err error) bool {
	return hasCode(err, ErrCodeInvalidTime)
}

// IsDuplicateRegistration reports whether err is a duplicate registration
// error.
func IsDuplicateRegistration(err error) bool {
	return hasCode(err, ErrCodeDuplicateRegistration)
}

// IsUnknownEntity reports whether err is an unknown entity error.
func IsUnknownEntity(err error) bool {
	return hasCode(err, ErrCodeUnknownEntity)
}

func duplicateError(kind, name string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateRegistration,
		Message: fmt.Sprintf("%s %q is already registered", kind, name),
		Name:    name,
	}
}

// PlansExceededError is returned by Run when a context configured with
// WithMaxPlans executes more plans than allowed.
type PlansExceededError struct {
	Executed int
	Limit    int
	Time     float64
}

func (e *PlansExceededError) Error() string {
	return fmt.Sprintf("executed %d plans, limit %d (time=%v)", e.Executed, e.Limit, e.Time)
}

// IsPlansExceeded reports whether err is a PlansExceededError.
func IsPlansExceeded(err error) bool {
	var pe *PlansExceededError
	return errors.As(err, &pe)
}
