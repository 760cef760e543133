package rdb

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	// ErrUsage is matched by every UsageError.
	ErrUsage = errors.New("rdb: invalid builder usage")

	// ErrRebind is matched by every RebindError.
	ErrRebind = errors.New("rdb: entity type already bound")

	// ErrNotExecutable is matched by every NotExecutableError.
	ErrNotExecutable = errors.New("rdb: builder not executable")

	// ErrInvalidRelationType is matched by every InvalidRelationTypeError.
	ErrInvalidRelationType = errors.New("rdb: invalid relation type")

	// ErrUnknownRelation is matched by every UnknownRelationError.
	ErrUnknownRelation = errors.New("rdb: unknown relation")
)

// UsageError reports a fluent call made with an argument shape the builder
// does not accept, e.g. Order without a target or a key without a value.
type UsageError struct {
	Op  string // Builder method, e.g. "where", "order".
	Msg string
}

// Error returns the error string.
func (e *UsageError) Error() string {
	return fmt.Sprintf("rdb: %s: %s", e.Op, e.Msg)
}

// Is reports whether the target error matches UsageError.
func (e *UsageError) Is(err error) bool {
	return err == ErrUsage
}

// NewUsageError returns a new UsageError for the given builder method.
func NewUsageError(op, msg string) *UsageError {
	return &UsageError{Op: op, Msg: msg}
}

// IsUsageError returns true if the error is a UsageError.
func IsUsageError(err error) bool {
	if err == nil {
		return false
	}
	var e *UsageError
	return errors.As(err, &e) || errors.Is(err, ErrUsage)
}

// RebindError reports an attempt to change an already bound entity type.
type RebindError struct {
	Bound     string // Entity type bound first.
	Requested string // Entity type the caller tried to bind.
}

// Error returns the error string.
func (e *RebindError) Error() string {
	return fmt.Sprintf("rdb: cannot change bound entity type %q to %q", e.Bound, e.Requested)
}

// Is reports whether the target error matches RebindError.
func (e *RebindError) Is(err error) bool {
	return err == ErrRebind
}

// NewRebindError returns a new RebindError.
func NewRebindError(bound, requested string) *RebindError {
	return &RebindError{Bound: bound, Requested: requested}
}

// IsRebindError returns true if the error is a RebindError.
func IsRebindError(err error) bool {
	if err == nil {
		return false
	}
	var e *RebindError
	return errors.As(err, &e) || errors.Is(err, ErrRebind)
}

// NotExecutableError reports a terminal operation invoked before an entity
// type was bound to the builder.
type NotExecutableError struct {
	Op string // Terminal operation, e.g. "find", "count".
}

// Error returns the error string.
func (e *NotExecutableError) Error() string {
	return fmt.Sprintf("rdb: %s: builder not executable, method 'from' must be called", e.Op)
}

// Is reports whether the target error matches NotExecutableError.
func (e *NotExecutableError) Is(err error) bool {
	return err == ErrNotExecutable
}

// NewNotExecutableError returns a new NotExecutableError.
func NewNotExecutableError(op string) *NotExecutableError {
	return &NotExecutableError{Op: op}
}

// IsNotExecutable returns true if the error is a NotExecutableError.
func IsNotExecutable(err error) bool {
	if err == nil {
		return false
	}
	var e *NotExecutableError
	return errors.As(err, &e) || errors.Is(err, ErrNotExecutable)
}

// InvalidRelationTypeError reports an operation that is only valid for
// another kind of relation, e.g. selecting middle table columns of a
// one-to-many relation.
type InvalidRelationTypeError struct {
	Relation string
	Type     string // Declared type of the relation.
	Want     string // Type the operation requires.
}

// Error returns the error string.
func (e *InvalidRelationTypeError) Error() string {
	return fmt.Sprintf("rdb: relation %q is %s, operation requires %s", e.Relation, e.Type, e.Want)
}

// Is reports whether the target error matches InvalidRelationTypeError.
func (e *InvalidRelationTypeError) Is(err error) bool {
	return err == ErrInvalidRelationType
}

// NewInvalidRelationTypeError returns a new InvalidRelationTypeError.
func NewInvalidRelationTypeError(relation, typ, want string) *InvalidRelationTypeError {
	return &InvalidRelationTypeError{Relation: relation, Type: typ, Want: want}
}

// IsInvalidRelationType returns true if the error is an InvalidRelationTypeError.
func IsInvalidRelationType(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidRelationTypeError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidRelationType)
}

// UnknownRelationError reports a relation name the entity metadata does not define.
type UnknownRelationError struct {
	Entity   string
	Relation string
}

// Error returns the error string.
func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("rdb: entity %s has no relation %q", e.Entity, e.Relation)
}

// Is reports whether the target error matches UnknownRelationError.
func (e *UnknownRelationError) Is(err error) bool {
	return err == ErrUnknownRelation
}

// NewUnknownRelationError returns a new UnknownRelationError.
func NewUnknownRelationError(entity, relation string) *UnknownRelationError {
	return &UnknownRelationError{Entity: entity, Relation: relation}
}

// QueryError wraps a storage error with the entity type and operation that
// produced it. The storage error stays reachable through errors.As.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "select", "count", "max")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("rdb: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("rdb: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}
