// Package fake is a deterministic in-memory implementation of the
// backend contract, ordered by unsigned lexicographic comparison. It
// reproduces the slice and timestamp semantics the adapter depends on —
// inclusive-inclusive ranges, rejection of equal non-empty endpoints,
// higher-timestamp-wins with lexical value tiebreak — so the adapter's
// boundary behavior can be exercised without a live cluster.
package fake

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/zhangyunhao116/skipmap"

	"kcvstore/pkg/backend"
)

type cell struct {
	value     []byte
	timestamp int64
}

type row = skipmap.FuncMap[[]byte, cell]

func newRow() *row {
	return skipmap.NewFunc[[]byte, cell](func(a, b []byte) bool {
		return bytes.Compare(a, b) < 0
	})
}

// Backend implements backend.Client in memory.
type Backend struct {
	mu   sync.Mutex
	rows map[string]*row

	calls    map[string]int
	batchTS  []int64
	failNext error
}

func New() *Backend {
	return &Backend{
		rows:  make(map[string]*row),
		calls: make(map[string]int),
	}
}

// FailNext makes the next call fail with err instead of executing.
func (b *Backend) FailNext(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = err
}

// Calls reports how many times the named RPC (get, get_slice, insert,
// remove, batch_mutate) has been invoked.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// BatchTimestamps returns the timestamp carried by each batch_mutate
// call, in call order.
func (b *Backend) BatchTimestamps() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int64(nil), b.batchTS...)
}

func (b *Backend) enter(op string) error {
	b.calls[op]++
	if err := b.failNext; err != nil {
		b.failNext = nil
		return err
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, key []byte, path backend.ColumnPath, consistency backend.ConsistencyLevel) (*backend.ColumnOrSuperColumn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("get"); err != nil {
		return nil, err
	}

	r, ok := b.rows[string(key)]
	if !ok {
		return nil, backend.ErrNotFound
	}
	c, ok := r.Load(path.Column)
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &backend.ColumnOrSuperColumn{Column: &backend.Column{
		Name:      append([]byte(nil), path.Column...),
		Value:     append([]byte(nil), c.value...),
		Timestamp: c.timestamp,
	}}, nil
}

func (b *Backend) GetSlice(ctx context.Context, key []byte, parent backend.ColumnParent, predicate backend.SlicePredicate, consistency backend.ConsistencyLevel) ([]backend.ColumnOrSuperColumn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("get_slice"); err != nil {
		return nil, err
	}

	r := b.rows[string(key)]

	if predicate.Range == nil {
		return b.sliceByNames(r, predicate.ColumnNames), nil
	}
	return b.sliceByRange(r, predicate.Range)
}

func (b *Backend) sliceByNames(r *row, names [][]byte) []backend.ColumnOrSuperColumn {
	if r == nil {
		return nil
	}
	sorted := make([][]byte, len(names))
	copy(sorted, names)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	var out []backend.ColumnOrSuperColumn
	for _, name := range sorted {
		if c, ok := r.Load(name); ok {
			out = append(out, wrapColumn(name, c))
		}
	}
	return out
}

func (b *Backend) sliceByRange(r *row, sr *backend.SliceRange) ([]backend.ColumnOrSuperColumn, error) {
	// The real backend rejects equal (or inverted) non-empty endpoints;
	// the translator above must never issue them.
	if len(sr.Start) > 0 && len(sr.Finish) > 0 && bytes.Compare(sr.Start, sr.Finish) >= 0 {
		return nil, &backend.RemoteError{
			Kind:  backend.RemoteInvalid,
			Cause: errors.New("fake: slice range start must be strictly less than finish"),
		}
	}
	if r == nil {
		return nil, nil
	}

	var out []backend.ColumnOrSuperColumn
	r.Range(func(name []byte, c cell) bool {
		if len(sr.Start) > 0 && bytes.Compare(name, sr.Start) < 0 {
			return true
		}
		if len(sr.Finish) > 0 && bytes.Compare(name, sr.Finish) > 0 {
			return false
		}
		out = append(out, wrapColumn(name, c))
		return len(out) < sr.Count
	})
	return out, nil
}

func wrapColumn(name []byte, c cell) backend.ColumnOrSuperColumn {
	return backend.ColumnOrSuperColumn{Column: &backend.Column{
		Name:      append([]byte(nil), name...),
		Value:     append([]byte(nil), c.value...),
		Timestamp: c.timestamp,
	}}
}

func (b *Backend) Insert(ctx context.Context, key []byte, parent backend.ColumnParent, column backend.Column, consistency backend.ConsistencyLevel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("insert"); err != nil {
		return err
	}
	b.applyInsert(key, column)
	return nil
}

func (b *Backend) Remove(ctx context.Context, key []byte, path backend.ColumnPath, timestamp int64, consistency backend.ConsistencyLevel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("remove"); err != nil {
		return err
	}
	b.applyRemove(key, path.Column, timestamp)
	return nil
}

func (b *Backend) BatchMutate(ctx context.Context, mutations map[string]map[string][]backend.Mutation, consistency backend.ConsistencyLevel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("batch_mutate"); err != nil {
		return err
	}

	recorded := false
	for key, families := range mutations {
		for _, muts := range families {
			for _, m := range muts {
				switch {
				case m.ColumnInsertion != nil:
					if !recorded {
						b.batchTS = append(b.batchTS, m.ColumnInsertion.Timestamp)
						recorded = true
					}
					b.applyInsert([]byte(key), *m.ColumnInsertion)
				case m.Deletion != nil:
					if !recorded {
						b.batchTS = append(b.batchTS, m.Deletion.Timestamp)
						recorded = true
					}
					for _, name := range m.Deletion.Predicate.ColumnNames {
						b.applyRemove([]byte(key), name, m.Deletion.Timestamp)
					}
				}
			}
		}
	}
	return nil
}

// applyInsert resolves collisions the way the backend does: the higher
// timestamp wins, and equal timestamps fall back to lexical comparison
// on value.
func (b *Backend) applyInsert(key []byte, column backend.Column) {
	r, ok := b.rows[string(key)]
	if !ok {
		r = newRow()
		b.rows[string(key)] = r
	}
	next := cell{
		value:     append([]byte(nil), column.Value...),
		timestamp: column.Timestamp,
	}
	name := append([]byte(nil), column.Name...)
	if prev, ok := r.Load(name); ok {
		if prev.timestamp > next.timestamp {
			return
		}
		if prev.timestamp == next.timestamp && bytes.Compare(prev.value, next.value) >= 0 {
			return
		}
	}
	r.Store(name, next)
}

// applyRemove drops the column unless a strictly newer write shadows the
// tombstone.
func (b *Backend) applyRemove(key, name []byte, timestamp int64) {
	r, ok := b.rows[string(key)]
	if !ok {
		return
	}
	if prev, ok := r.Load(name); ok && prev.timestamp <= timestamp {
		r.Delete(name)
	}
}
