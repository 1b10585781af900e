package kcv

import (
	"errors"
	"fmt"

	rpccode "google.golang.org/genproto/googleapis/rpc/code"
)

// ErrorKind collapses the backend's separately-named remote error types
// into one tagged storage-error kind carrying a cause code. Callers already
// treat the remote failures uniformly, so nothing is lost by folding them.
type ErrorKind uint8

const (
	// ErrRemoteTimeout means the backend timed out servicing the request.
	ErrRemoteTimeout ErrorKind = iota
	// ErrRemoteUnavailable means the backend reported insufficient replicas.
	ErrRemoteUnavailable
	// ErrRemoteInvalid means the backend rejected the request outright.
	ErrRemoteInvalid
	// ErrRemoteTransport means the call failed below the RPC layer.
	ErrRemoteTransport
	// ErrInternalInterrupt means an oracle sleep was interrupted.
	ErrInternalInterrupt
	// ErrArgument means the caller passed an invalid argument, e.g. a
	// colStart greater than colEnd.
	ErrArgument
)

func (k ErrorKind) String() string {
	switch k {
	case ErrRemoteTimeout:
		return "REMOTE_TIMEOUT"
	case ErrRemoteUnavailable:
		return "REMOTE_UNAVAILABLE"
	case ErrRemoteInvalid:
		return "REMOTE_INVALID"
	case ErrRemoteTransport:
		return "REMOTE_TRANSPORT"
	case ErrInternalInterrupt:
		return "INTERNAL_INTERRUPT"
	case ErrArgument:
		return "ARGUMENT"
	default:
		return "UNKNOWN"
	}
}

// rpcCode maps a storage-error kind to a canonical RPC status code, so any
// HTTP or gRPC façade sitting on top of the Store reports a status without
// re-deriving the mapping itself.
func (k ErrorKind) rpcCode() rpccode.Code {
	switch k {
	case ErrRemoteTimeout:
		return rpccode.Code_DEADLINE_EXCEEDED
	case ErrRemoteUnavailable:
		return rpccode.Code_UNAVAILABLE
	case ErrRemoteInvalid:
		return rpccode.Code_INVALID_ARGUMENT
	case ErrRemoteTransport:
		return rpccode.Code_ABORTED
	case ErrInternalInterrupt:
		return rpccode.Code_INTERNAL
	case ErrArgument:
		return rpccode.Code_INVALID_ARGUMENT
	default:
		return rpccode.Code_UNKNOWN
	}
}

// StorageError is the single error type the Store raises. All remote
// errors except not-found (which becomes a result, not an error) surface
// through this type unchanged in kind.
type StorageError struct {
	Kind  ErrorKind
	Cause error
}

func (e *StorageError) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// Code returns the canonical RPC status code for this error.
func (e *StorageError) Code() rpccode.Code { return e.Kind.rpcCode() }

func newStorageError(kind ErrorKind, cause error) *StorageError {
	return &StorageError{Kind: kind, Cause: cause}
}

// AsStorageError reports whether err is (or wraps) a *StorageError and
// returns it.
func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
