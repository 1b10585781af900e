package kcv

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"kcvstore/pkg/backend"
)

// GetSlice returns, in ascending column order, up to limit entries whose
// column names lie in the interval (colStart, colEnd) under the given
// inclusivity flags.
//
// The backend's slice primitive is inclusive on both endpoints and
// rejects equal ones, so the translation works in three regimes:
//
//   - colStart == colEnd with both flags set degenerates to a point read
//     and yields a one-element result when the column exists;
//   - colStart == colEnd with either flag clear is a provably empty
//     interval and returns without a remote call;
//   - colStart < colEnd issues one backend slice and drops the boundary
//     columns client-side. Exclusivity cannot be emulated by adjusting
//     endpoints, because byte sequences have no defined successor; the
//     filter is O(returned) and bounded by limit.
//
// colStart > colEnd is an ARGUMENT error. A negative limit is coerced to
// 0 with a warning, and limit 0 returns empty without a remote call.
func (s *Store) GetSlice(ctx context.Context, key Key, colStart, colEnd Column, startInclusive, endInclusive bool, limit int, txh TxHandle) ([]Entry, error) {
	if limit < 0 {
		slog.Warn("coercing negative slice limit to 0", "limit", limit)
		limit = 0
	}
	if limit == 0 {
		return nil, nil
	}

	switch compareBytes(colStart, colEnd) {
	case 1:
		return nil, newStorageError(ErrArgument,
			fmt.Errorf("column range start %x is greater than end %x", colStart, colEnd))
	case 0:
		if !startInclusive || !endInclusive {
			// Mixed inclusivity on equal endpoints is a provably
			// empty interval, not a request worth a remote call.
			return nil, nil
		}
		value, found, err := s.Get(ctx, key, colStart, txh)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return []Entry{{Column: clone(colStart), Value: value}}, nil
	}

	// colStart < colEnd: one backend slice, boundaries filtered here.
	predicate := backend.SlicePredicate{
		Range: &backend.SliceRange{
			Start:  clone(colStart),
			Finish: clone(colEnd),
			Count:  limit,
		},
	}

	var rows []backend.ColumnOrSuperColumn
	err := s.withClient(func(c backend.Client) error {
		var err error
		rows, err = c.GetSlice(ctx, clone(key), backend.ColumnParent{ColumnFamily: s.columnFamily}, predicate, consistency)
		if err != nil {
			return wrapRemote(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The result is at most len(rows), and up to two smaller depending
	// on the inclusivity flags.
	result := make([]Entry, 0, len(rows))
	for _, r := range rows {
		c := r.Column
		if c == nil {
			continue
		}
		if !startInclusive && compareBytes(c.Name, colStart) <= 0 {
			continue
		}
		if !endInclusive && compareBytes(colEnd, c.Name) <= 0 {
			continue
		}
		result = append(result, Entry{Column: clone(c.Name), Value: clone(c.Value)})
	}
	return result, nil
}

// GetSliceAll is the no-limit variant of GetSlice.
func (s *Store) GetSliceAll(ctx context.Context, key Key, colStart, colEnd Column, startInclusive, endInclusive bool, txh TxHandle) ([]Entry, error) {
	return s.GetSlice(ctx, key, colStart, colEnd, startInclusive, endInclusive, math.MaxInt32, txh)
}
