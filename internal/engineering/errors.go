package engineering

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input. The command that
// produced it has not changed any state.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// ResourceConstraintError reports a command that was well formed but would
// violate a budget or exclusivity constraint (power budget, droid pool,
// strain cap, duplicate task or boost). State is unchanged.
type ResourceConstraintError struct {
	Reason string
}

func (e *ResourceConstraintError) Error() string {
	return "resource constraint: " + e.Reason
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func constraintf(format string, args ...interface{}) error {
	return &ResourceConstraintError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsResourceConstraint reports whether err is a ResourceConstraintError.
func IsResourceConstraint(err error) bool {
	var re *ResourceConstraintError
	return errors.As(err, &re)
}
