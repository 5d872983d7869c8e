// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import "fmt"

// ErrorKind categorizes lowering errors. Every kind is deterministic for a
// given (kernel, dialect) input; none is worth retrying.
type ErrorKind uint8

const (
	// ErrUnsupportedType indicates a type the target dialect cannot spell.
	ErrUnsupportedType ErrorKind = iota

	// ErrUnsupportedAddressSpace indicates a (memory space, dialect) pair
	// with no legal spelling.
	ErrUnsupportedAddressSpace

	// ErrUnsupportedIntrinsic indicates a built-in with no native lowering
	// for the dialect and operand type.
	ErrUnsupportedIntrinsic

	// ErrIntrinsicArityMismatch indicates a built-in call with the wrong
	// argument count.
	ErrIntrinsicArityMismatch

	// ErrUnsupportedAtomic indicates an (atomic op, element type) pair
	// with no native equivalent. Atomics are never silently widened.
	ErrUnsupportedAtomic

	// ErrLaneIndexOutOfRange indicates a vector lane access beyond the
	// vector's width.
	ErrLaneIndexOutOfRange

	// ErrInvalidSignature indicates malformed kernel parameter bindings or
	// bindings beyond the dialect's addressable limit.
	ErrInvalidSignature

	// ErrAlreadyFinalized indicates reuse of a finalized source assembler.
	ErrAlreadyFinalized

	// ErrInternal indicates a defect in the lowering core itself.
	ErrInternal
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedType:
		return "UnsupportedType"
	case ErrUnsupportedAddressSpace:
		return "UnsupportedAddressSpace"
	case ErrUnsupportedIntrinsic:
		return "UnsupportedIntrinsic"
	case ErrIntrinsicArityMismatch:
		return "IntrinsicArityMismatch"
	case ErrUnsupportedAtomic:
		return "UnsupportedAtomic"
	case ErrLaneIndexOutOfRange:
		return "LaneIndexOutOfRange"
	case ErrInvalidSignature:
		return "InvalidSignature"
	case ErrAlreadyFinalized:
		return "AlreadyFinalized"
	case ErrInternal:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error is a lowering failure. A failed pass never returns partial source;
// the error carries the dialect and enough context for the caller to
// report a precise message.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string

	// Dialect is the target dialect of the failed pass.
	Dialect Dialect
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("cpp %s [%s]: %s", e.Kind, e.Dialect, e.Message)
}

// Is reports whether target is an *Error of the same kind, letting callers
// match with errors.Is against a bare kind value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func errorf(d Dialect, kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Dialect: d,
	}
}
