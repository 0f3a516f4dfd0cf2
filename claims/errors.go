/*
errors.go - Error kinds returned by claim operations

PURPOSE:
  Every operation reports failure through one of three error types so the
  transport layer can classify it without string matching.

ERROR KINDS:
  ValidationError: aggregated field and business-rule violations (400)
  NotFoundError:   primary resource absent (404)
  InternalError:   unexpected store failure (500, message not exposed)

  Conflicts (duplicate claim number, already-linked sub-entity, existing
  affected coverage) are violations of kind ViolationConflict inside a
  ValidationError. errors.Is(err, ErrConflict) reports them.

AGGREGATION:
  Violations are collected, never thrown. A check that fails appends to the
  collector and the next check still runs.

SEE ALSO:
  - service.go: Builds these errors
  - api/handlers.go: Maps them onto HTTP status codes
*/
package claims

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound matches NotFoundError and any ValidationError carrying a
	// not-found violation.
	ErrNotFound = errors.New("not found")

	// ErrConflict matches any ValidationError carrying a conflict violation.
	ErrConflict = errors.New("conflict")

	// ErrInvalid matches any ValidationError carrying an input violation.
	ErrInvalid = errors.New("invalid input")

	// ErrDuplicate is returned by stores when a natural-key uniqueness
	// constraint rejects a write.
	ErrDuplicate = errors.New("duplicate natural key")
)

// =============================================================================
// VIOLATIONS
// =============================================================================

type ViolationKind string

const (
	ViolationInvalid  ViolationKind = "invalid"
	ViolationNotFound ViolationKind = "not_found"
	ViolationConflict ViolationKind = "conflict"
)

type Violation struct {
	Kind    ViolationKind
	Message string
}

// Violations collects rule failures in the order checks run.
type Violations []Violation

func (v *Violations) Invalid(format string, args ...any) {
	v.add(ViolationInvalid, format, args...)
}

func (v *Violations) NotFound(format string, args ...any) {
	v.add(ViolationNotFound, format, args...)
}

func (v *Violations) Conflict(format string, args ...any) {
	v.add(ViolationConflict, format, args...)
}

func (v *Violations) Append(other ...Violation) {
	*v = append(*v, other...)
}

func (v *Violations) add(kind ViolationKind, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	*v = append(*v, Violation{Kind: kind, Message: msg})
}

func (v Violations) Empty() bool { return len(v) == 0 }

func (v Violations) Messages() []string {
	out := make([]string, len(v))
	for i, violation := range v {
		out[i] = violation.Message
	}
	return out
}

// Err returns nil when nothing was collected, otherwise a *ValidationError.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: clone(v)}
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError lists every violation found by one operation.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations.Messages(), "; ")
}

func (e *ValidationError) Messages() []string {
	return e.Violations.Messages()
}

func (e *ValidationError) Is(target error) bool {
	var kind ViolationKind
	switch target {
	case ErrNotFound:
		kind = ViolationNotFound
	case ErrConflict:
		kind = ViolationConflict
	case ErrInvalid:
		kind = ViolationInvalid
	default:
		return false
	}
	for _, v := range e.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// NotFoundError reports that the primary resource of an operation is absent.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InternalError wraps an unexpected store failure. Op names the step that failed.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the request itself.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound returns true if the primary resource was missing.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInternal returns true for store failures.
func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}
