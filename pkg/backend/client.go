// Package backend declares the row-oriented RPC contract the Store
// consumes from the wide-column backend. It mirrors the Thrift-shaped
// get/get_slice/insert/remove/batch_mutate calls without depending on a
// generated Thrift stub — the real backend client is an external
// collaborator, referenced only by this contract.
package backend

import "context"

// ConsistencyLevel is the backend's replica-agreement parameter. The Store
// always issues ALL; other levels exist only so the contract matches the
// backend's actual enum.
type ConsistencyLevel uint8

const (
	ConsistencyOne ConsistencyLevel = iota
	ConsistencyQuorum
	ConsistencyAll
)

// ColumnParent names the column family a slice or insert operates within.
type ColumnParent struct {
	ColumnFamily string
}

// ColumnPath names a single (column family, column) coordinate for point
// reads and deletes.
type ColumnPath struct {
	ColumnFamily string
	Column       []byte
}

// SliceRange selects columns by a backend-native range. Both endpoints are
// inclusive; the backend has no exclusivity flags. An empty Finish with a
// non-empty Start (or vice versa) selects an open-ended range.
type SliceRange struct {
	Start    []byte
	Finish   []byte
	Reversed bool
	Count    int
}

// SlicePredicate selects columns either by explicit name list or by range.
// Exactly one of the two is populated.
type SlicePredicate struct {
	ColumnNames [][]byte
	Range       *SliceRange
}

// Column is a single column/value/timestamp triple as the backend returns
// or accepts it.
type Column struct {
	Name      []byte
	Value     []byte
	Timestamp int64
}

// ColumnOrSuperColumn wraps a single Column the way the backend's get and
// get_slice responses do.
type ColumnOrSuperColumn struct {
	Column *Column
}

// Deletion is a column-name-predicate deletion carrying a timestamp that
// applies to every named column.
type Deletion struct {
	Timestamp int64
	Predicate SlicePredicate
}

// Mutation is either a column insertion or a column-set deletion, matching
// the backend's tagged-union Mutation type.
type Mutation struct {
	ColumnInsertion *Column
	Deletion        *Deletion
}

// ErrNotFound is returned by Client.Get when the requested column does not
// exist. It is not a RemoteError: callers of Get treat absence as a result,
// not a failure.
var ErrNotFound = newNotFoundError()

type notFoundError struct{}

func (notFoundError) Error() string { return "backend: column not found" }

func newNotFoundError() error { return notFoundError{} }

// RemoteErrorKind classifies a backend failure the way the Thrift IDL
// separates timeout/unavailable/invalid-request/transport exceptions.
type RemoteErrorKind uint8

const (
	RemoteTimeout RemoteErrorKind = iota
	RemoteUnavailable
	RemoteInvalid
	RemoteTransport
)

// RemoteError is what Client implementations return for every failure
// except absence on Get.
type RemoteError struct {
	Kind  RemoteErrorKind
	Cause error
}

func (e *RemoteError) Error() string {
	return e.Cause.Error()
}

func (e *RemoteError) Unwrap() error { return e.Cause }

// Client is the backend RPC contract the Store consumes. Every method
// call happens over a single borrowed connection.
type Client interface {
	Get(ctx context.Context, key []byte, path ColumnPath, consistency ConsistencyLevel) (*ColumnOrSuperColumn, error)
	GetSlice(ctx context.Context, key []byte, parent ColumnParent, predicate SlicePredicate, consistency ConsistencyLevel) ([]ColumnOrSuperColumn, error)
	Insert(ctx context.Context, key []byte, parent ColumnParent, column Column, consistency ConsistencyLevel) error
	Remove(ctx context.Context, key []byte, path ColumnPath, timestamp int64, consistency ConsistencyLevel) error
	BatchMutate(ctx context.Context, mutations map[string]map[string][]Mutation, consistency ConsistencyLevel) error
}
