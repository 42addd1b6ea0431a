// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind identifies the class of a failure surfaced by the engine.
type ErrorKind string

const (
	// KindTransport covers connection, timeout and TLS failures
	KindTransport ErrorKind = "transport"

	// KindAuth indicates rejected credentials or an expired session
	KindAuth ErrorKind = "auth"

	// KindNotFound indicates the addressed entity does not exist on the device
	KindNotFound ErrorKind = "not-found"

	// KindConflict indicates the entity already exists or was concurrently modified
	KindConflict ErrorKind = "conflict"

	// KindSchemaMismatch indicates a wire value does not match its field descriptor
	KindSchemaMismatch ErrorKind = "schema-mismatch"

	// KindScope indicates the device context lacks a scope segment the kind needs
	KindScope ErrorKind = "scope"

	// KindTerminalState indicates an operation on a deleted object
	KindTerminalState ErrorKind = "terminal-state"

	// KindInvalidState indicates an operation not valid in the object's current state
	KindInvalidState ErrorKind = "invalid-state"

	// KindValidation indicates a locally rejected value (unknown field, wrong type)
	KindValidation ErrorKind = "validation"

	// KindDevice covers any other error reported by the device
	KindDevice ErrorKind = "device"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrTransport      = errors.New("panos: transport error")
	ErrAuth           = errors.New("panos: authentication error")
	ErrNotFound       = errors.New("panos: not found")
	ErrConflict       = errors.New("panos: conflict")
	ErrSchemaMismatch = errors.New("panos: schema mismatch")
	ErrScope          = errors.New("panos: scope error")
	ErrTerminalState  = errors.New("panos: object is deleted")
	ErrInvalidState   = errors.New("panos: invalid object state")
	ErrValidation     = errors.New("panos: validation error")
	ErrDevice         = errors.New("panos: device error")
)

var kindSentinels = map[ErrorKind]error{
	KindTransport:      ErrTransport,
	KindAuth:           ErrAuth,
	KindNotFound:       ErrNotFound,
	KindConflict:       ErrConflict,
	KindSchemaMismatch: ErrSchemaMismatch,
	KindScope:          ErrScope,
	KindTerminalState:  ErrTerminalState,
	KindInvalidState:   ErrInvalidState,
	KindValidation:     ErrValidation,
	KindDevice:         ErrDevice,
}

var kindCodes = map[ErrorKind]codes.Code{
	KindTransport:      codes.Unavailable,
	KindAuth:           codes.Unauthenticated,
	KindNotFound:       codes.NotFound,
	KindConflict:       codes.AlreadyExists,
	KindSchemaMismatch: codes.DataLoss,
	KindScope:          codes.InvalidArgument,
	KindTerminalState:  codes.FailedPrecondition,
	KindInvalidState:   codes.FailedPrecondition,
	KindValidation:     codes.InvalidArgument,
	KindDevice:         codes.Unknown,
}

// Error is the structured error returned by every engine and session operation
type Error struct {
	// Kind classifies the failure
	Kind ErrorKind

	// Op is the operation that failed (refresh, create, update, ...)
	Op string

	// Entity is "<kind>/<name>" when the failure concerns one object
	Entity string

	// Code is the PAN-OS response code, 0 when none was reported
	Code int

	// Message is the human-readable error message
	Message string

	// InternalMsg carries raw device output for debug logging only
	InternalMsg string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	prefix := "panos: " + e.Op
	if e.Entity != "" {
		prefix += " " + e.Entity
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s failed: %s (code %d)", prefix, msg, e.Code)
	}
	return fmt.Sprintf("%s failed: %s", prefix, msg)
}

// DetailedError returns the error message including raw device output.
//
// Only use this in logging contexts where disclosing device output is acceptable.
func (e *Error) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	return fmt.Sprintf("%s (internal: %s)", e.Error(), e.InternalMsg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel (ErrNotFound, ErrConflict, ...)
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// GRPCStatus maps the error onto a canonical gRPC status so that
// status.Code(err) works for services that proxy this library.
func (e *Error) GRPCStatus() *status.Status {
	code, ok := kindCodes[e.Kind]
	if !ok {
		code = codes.Unknown
	}
	return status.New(code, e.Error())
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsTransient reports whether err is a transport-class failure or an expired
// session, where repeating the request can succeed.
//
// Nothing in this package retries on its own. A write that failed this way
// may still have been applied, so refresh before retrying an update.
func IsTransient(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind == KindTransport || pe.Code == CodeSessionTimedOut
}

func newError(kind ErrorKind, op, msg string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(msg, args...)}
}

func wrapError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// withOp fills in operation and entity on an *Error coming from a lower layer
// and leaves other errors wrapped as device errors.
func withOp(err error, op, entity string) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		cp := *pe
		if cp.Op == "" || cp.Op == "request" || cp.Op == "decode" || cp.Op == "resolve" || cp.Op == "encode" {
			cp.Op = op
		}
		if cp.Entity == "" {
			cp.Entity = entity
		}
		return &cp
	}
	e := wrapError(KindDevice, op, err)
	e.Entity = entity
	return e
}

// PAN-OS API response codes (XML API and REST API share the numbering)
const (
	CodeUnknownCommand      = 1
	CodeBadXPath            = 6
	CodeObjectNotPresent    = 7
	CodeObjectNotUnique     = 8
	CodeReferenceNotZero    = 10
	CodeInvalidObject       = 12
	CodeOperationNotAllowed = 14
	CodeOperationDenied     = 15
	CodeUnauthorized        = 16
	CodeInvalidCommand      = 17
	CodeMalformedCommand    = 18
	CodeSuccess             = 19
	CodeSuccessChanged      = 20
	CodeInternalError       = 21
	CodeSessionTimedOut     = 22

	// CodeRESTObjectNotFound is the REST API's "Object Not Found"
	CodeRESTObjectNotFound = 5
)

// kindForCode maps a PAN-OS error code to an error kind
func kindForCode(code int, transport Transport) ErrorKind {
	switch code {
	case CodeObjectNotPresent:
		return KindNotFound
	case CodeRESTObjectNotFound:
		if transport == TransportREST {
			return KindNotFound
		}
	case CodeObjectNotUnique:
		return KindConflict
	case CodeUnauthorized, CodeSessionTimedOut:
		return KindAuth
	}
	return KindDevice
}
