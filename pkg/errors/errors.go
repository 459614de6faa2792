// Package errors provides structured error handling for the schemaui runtime.
//
// Errors fall into the categories the runtime treats differently: schema
// validation and unscoped channel use are fatal to the operation that hit
// them, not-found conditions are reported and rendering continues, and
// reaction or hook failures are isolated to the component that raised them.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind identifies the category of an error.
type Kind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindValidation indicates a malformed schema.
	KindValidation
	// KindScope indicates a channel used without module origin metadata.
	KindScope
	// KindNotFound indicates a missing route or mount target.
	KindNotFound
	// KindReaction indicates a reaction that failed while re-running.
	KindReaction
	// KindLoad indicates a schema module that could not be loaded.
	KindLoad
	// KindHook indicates a failing lifecycle hook or event handler.
	KindHook
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindScope:
		return "scope"
	case KindNotFound:
		return "not-found"
	case KindReaction:
		return "reaction"
	case KindLoad:
		return "load"
	case KindHook:
		return "hook"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Sentinel errors. Match them with Is.
var (
	// ErrUnscopedChannel is returned when a channel is bound or emitted from a
	// component that has no declaring module.
	ErrUnscopedChannel = stderrors.New("channel used by a component without module origin")
	// ErrRouteNotFound is reported when no route matches a path.
	ErrRouteNotFound = stderrors.New("route not found")
	// ErrMountTargetMissing is reported when the mount target does not exist.
	ErrMountTargetMissing = stderrors.New("mount target missing")
	// ErrModuleNotFound is returned when a schema module URL is not registered.
	ErrModuleNotFound = stderrors.New("schema module not found")
	// ErrDestroyed is returned when an operation targets a destroyed context.
	ErrDestroyed = stderrors.New("context destroyed")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// New returns an error that formats as the given text.
func New(text string) error { return stderrors.New(text) }

// Join returns an error that wraps the given errors.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// Error represents a structured runtime error.
type Error struct {
	// Op is the operation that failed (e.g., "core.Mount").
	Op string
	// Kind categorizes the error.
	Kind Kind
	// Err is the underlying error.
	Err error
	// Channel is the channel name, if applicable.
	Channel string
	// Path is the schema path or URL involved, if applicable.
	Path string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *Error) Error() string {
	switch {
	case e.Channel != "":
		return fmt.Sprintf("%s [%s] channel=%s: %v", e.Op, e.Kind, e.Channel, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s [%s] path=%s: %v", e.Op, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError describes a schema node that cannot be compiled.
type ValidationError struct {
	// Path locates the node inside the schema tree (e.g., "div/children[2]").
	Path string
	// Reason is a short description of the problem.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "invalid schema: " + e.Reason
	}
	return fmt.Sprintf("invalid schema at %s: %s", e.Path, e.Reason)
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "reactive.Reaction").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Handler receives errors reported by the runtime.
type Handler interface {
	// HandleError is called when an error is reported.
	HandleError(err *Error)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
