package relmodel

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common failure classes.
var (
	// ErrBindingMismatch is returned when a property or navigation is bound
	// against a projection whose entity type is unrelated to the member's
	// declaring type. It signals a caller-programming error, not a data error.
	ErrBindingMismatch = errors.New("relmodel: binding mismatch")

	// ErrModelNotFinalized is returned when a relational schema is requested
	// for a model that has not been finalized yet.
	ErrModelNotFinalized = errors.New("relmodel: model not finalized")

	// ErrSchemaFrozen is returned when a structural mutation is attempted on
	// a schema that has already been published.
	ErrSchemaFrozen = errors.New("relmodel: schema frozen")
)

// BindingError represents a binding-contract violation: a property or
// navigation whose declaring entity type is neither an ancestor nor a
// descendant of the entity type it is bound against.
type BindingError struct {
	Member    string // Property or navigation name.
	Declaring string // Name of the member's declaring entity type.
	Target    string // Name of the entity type the member was bound against.
}

// Error returns the error string.
func (e *BindingError) Error() string {
	return fmt.Sprintf("relmodel: member %q declared on %q is unrelated to entity type %q", e.Member, e.Declaring, e.Target)
}

// Is reports whether the target error matches BindingError.
// This allows errors.Is(bindErr, ErrBindingMismatch) to return true.
func (e *BindingError) Is(err error) bool {
	return err == ErrBindingMismatch
}

// NewBindingError returns a new BindingError for the given member.
func NewBindingError(member, declaring, target string) *BindingError {
	return &BindingError{Member: member, Declaring: declaring, Target: target}
}

// IsBindingError returns true if the error is a BindingError.
func IsBindingError(err error) bool {
	if err == nil {
		return false
	}
	var e *BindingError
	return errors.As(err, &e) || errors.Is(err, ErrBindingMismatch)
}

// StateError represents a misuse of the build-once lifecycle: building a
// schema from an unfinalized model, re-entering a build, or mutating a
// frozen schema.
type StateError struct {
	Op    string // The rejected operation.
	State string // The lifecycle state the object was in.
}

// Error returns the error string.
func (e *StateError) Error() string {
	return fmt.Sprintf("relmodel: cannot %s in state %q", e.Op, e.State)
}

// Is reports whether the target error matches StateError.
// This allows errors.Is(stateErr, ErrSchemaFrozen) to return true for
// operations rejected on a frozen schema.
func (e *StateError) Is(err error) bool {
	return err == ErrSchemaFrozen && e.State == "frozen"
}

// NewStateError returns a new StateError for the given operation.
func NewStateError(op, state string) *StateError {
	return &StateError{Op: op, State: state}
}

// IsStateError returns true if the error is a StateError.
func IsStateError(err error) bool {
	if err == nil {
		return false
	}
	var e *StateError
	return errors.As(err, &e)
}

// ConfigurationError represents an unsupported configuration combination,
// such as a delete behavior that has no referential action mapping. It is
// fatal: it signals a missing case in a closed enumeration.
type ConfigurationError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("relmodel: unsupported configuration: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.wrap
}

// NewConfigurationError returns a new ConfigurationError with the given message.
func NewConfigurationError(msg string, wrap error) *ConfigurationError {
	return &ConfigurationError{msg: msg, wrap: wrap}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}
