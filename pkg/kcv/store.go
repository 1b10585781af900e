package kcv

import (
	"context"
	"errors"
	"fmt"

	"kcvstore/pkg/backend"
	"kcvstore/pkg/pool"
)

// consistency is the replica-agreement level for every RPC this package
// issues. Fixed by design; parameterizing it is a future concern.
const consistency = backend.ConsistencyAll

// Store binds one (keyspace, column family) pair and exposes the ordered
// key-column-value interface over the backend's row RPC protocol. It is
// stateless beyond that identity, its pool handle and its timestamp
// oracle, and is safe for concurrent use.
type Store struct {
	keyspace     string
	columnFamily string
	pool         pool.Pool
	oracle       *timestampOracle
}

func New(keyspace, columnFamily string, p pool.Pool) (*Store, error) {
	if keyspace == "" || columnFamily == "" {
		return nil, newStorageError(ErrArgument,
			fmt.Errorf("keyspace %q and column family %q must be non-empty", keyspace, columnFamily))
	}
	return newStore(keyspace, columnFamily, p, systemTime{}), nil
}

func newStore(keyspace, columnFamily string, p pool.Pool, tp iTimeProvider) *Store {
	return &Store{
		keyspace:     keyspace,
		columnFamily: columnFamily,
		pool:         p,
		oracle:       newOracle(tp),
	}
}

// withClient borrows a connection, runs fn against its client and returns
// the connection on every exit path. The borrowed client must not escape fn.
func (s *Store) withClient(fn func(backend.Client) error) error {
	conn, err := s.pool.Borrow(s.keyspace)
	if err != nil {
		return newStorageError(ErrRemoteTransport, err)
	}
	defer s.pool.Return(s.keyspace, conn)
	return fn(conn.Client())
}

// wrapRemote folds a backend failure into the storage-error taxonomy.
func wrapRemote(err error) error {
	var re *backend.RemoteError
	if errors.As(err, &re) {
		switch re.Kind {
		case backend.RemoteTimeout:
			return newStorageError(ErrRemoteTimeout, err)
		case backend.RemoteUnavailable:
			return newStorageError(ErrRemoteUnavailable, err)
		case backend.RemoteInvalid:
			return newStorageError(ErrRemoteInvalid, err)
		}
	}
	return newStorageError(ErrRemoteTransport, err)
}

// Get returns the value stored under (key, column). Absence is a result,
// not an error: found is false and err is nil.
func (s *Store) Get(ctx context.Context, key Key, column Column, txh TxHandle) (Value, bool, error) {
	path := backend.ColumnPath{ColumnFamily: s.columnFamily, Column: clone(column)}

	var value Value
	var found bool
	err := s.withClient(func(c backend.Client) error {
		cosc, err := c.Get(ctx, clone(key), path, consistency)
		if err != nil {
			if errors.Is(err, backend.ErrNotFound) {
				return nil
			}
			return wrapRemote(err)
		}
		if cosc != nil && cosc.Column != nil {
			value = clone(cosc.Column.Value)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// ContainsKey reports whether at least one column exists under key. It is
// a count-1 slice over the unbounded column range.
func (s *Store) ContainsKey(ctx context.Context, key Key, txh TxHandle) (bool, error) {
	predicate := backend.SlicePredicate{
		Range: &backend.SliceRange{Start: []byte{}, Finish: []byte{}, Count: 1},
	}

	var found bool
	err := s.withClient(func(c backend.Client) error {
		rows, err := c.GetSlice(ctx, clone(key), backend.ColumnParent{ColumnFamily: s.columnFamily}, predicate, consistency)
		if err != nil {
			return wrapRemote(err)
		}
		found = len(rows) > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// ContainsKeyColumn reports whether (key, column) exists. Absence is never
// an error on this path.
func (s *Store) ContainsKeyColumn(ctx context.Context, key Key, column Column, txh TxHandle) (bool, error) {
	predicate := backend.SlicePredicate{ColumnNames: [][]byte{clone(column)}}

	var found bool
	err := s.withClient(func(c backend.Client) error {
		rows, err := c.GetSlice(ctx, clone(key), backend.ColumnParent{ColumnFamily: s.columnFamily}, predicate, consistency)
		if err != nil {
			return wrapRemote(err)
		}
		found = len(rows) > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Insert writes every entry under key with one oracle timestamp, issuing
// one remote call per entry over the same borrowed connection. A failure
// midway leaves earlier entries applied (at-least-once; the batched path
// is all-or-nothing per RPC).
func (s *Store) Insert(ctx context.Context, key Key, entries []Entry, txh TxHandle) error {
	if len(entries) == 0 {
		return nil
	}
	timestamp, err := s.oracle.nextTimestamp(ctx)
	if err != nil {
		return err
	}

	parent := backend.ColumnParent{ColumnFamily: s.columnFamily}
	return s.withClient(func(c backend.Client) error {
		for _, e := range entries {
			column := backend.Column{
				Name:      clone(e.Column),
				Value:     clone(e.Value),
				Timestamp: timestamp,
			}
			if err := c.Insert(ctx, clone(key), parent, column, consistency); err != nil {
				return wrapRemote(err)
			}
		}
		return nil
	})
}

// Delete removes every named column under key with one oracle timestamp,
// one remote call per column over the same borrowed connection.
func (s *Store) Delete(ctx context.Context, key Key, columns []Column, txh TxHandle) error {
	if len(columns) == 0 {
		return nil
	}
	timestamp, err := s.oracle.nextTimestamp(ctx)
	if err != nil {
		return err
	}

	return s.withClient(func(c backend.Client) error {
		for _, col := range columns {
			path := backend.ColumnPath{ColumnFamily: s.columnFamily, Column: clone(col)}
			if err := c.Remove(ctx, clone(key), path, timestamp, consistency); err != nil {
				return wrapRemote(err)
			}
		}
		return nil
	})
}

// Mutate applies deletions, then additions. The two halves obtain
// separate oracle timestamps, so a column named in both halves ends up
// inserted: the addition's timestamp is strictly greater. Callers relying
// on that delete-then-add resolution get it from the ordering here.
func (s *Store) Mutate(ctx context.Context, key Key, additions []Entry, deletions []Column, txh TxHandle) error {
	if len(deletions) > 0 {
		if err := s.Delete(ctx, key, deletions, txh); err != nil {
			return err
		}
	}
	if len(additions) > 0 {
		return s.Insert(ctx, key, additions, txh)
	}
	return nil
}

// AcquireLock is a contractual no-op: optimistic locking is not
// implemented by this adapter, and callers that speculatively request
// locks must still proceed. Do not remove.
func (s *Store) AcquireLock(ctx context.Context, key Key, column Column, expectedValue Value, txh TxHandle) error {
	return nil
}

// IsLocalKey reports every key as local: the adapter cannot inspect the
// backend's partitioning, so it answers conservatively.
func (s *Store) IsLocalKey(key Key) bool {
	return true
}

// Close is a no-op; the pool, not the Store, owns the connections.
func (s *Store) Close() error {
	return nil
}
