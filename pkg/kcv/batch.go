package kcv

import (
	"context"

	"kcvstore/pkg/backend"
)

// Mutation groups the additions and deletions to apply to one key in a
// MutateMany call.
type Mutation struct {
	Additions []Entry
	Deletions []Column
}

// MutateMany folds a per-key additions/deletions map into the backend's
// batched mutation RPC. Keys are raw row-key bytes carried as strings.
//
// All deletions across all keys are submitted first in one remote call
// under one oracle timestamp, then all insertions in a second remote call
// under a later timestamp. The delete-then-insert split preserves
// Mutate's per-key resolution at bulk scale — a (key, column) pair named
// in both halves ends up inserted — while collapsing O(keys x columns)
// remote calls to two. A half with no work across every key is skipped
// entirely.
func (s *Store) MutateMany(ctx context.Context, mutations map[string]Mutation, txh TxHandle) error {
	insertions := make(map[string][]Entry, len(mutations))
	deletions := make(map[string][]Column, len(mutations))
	for key, m := range mutations {
		if len(m.Additions) > 0 {
			insertions[key] = m.Additions
		}
		if len(m.Deletions) > 0 {
			deletions[key] = m.Deletions
		}
	}

	if err := s.deleteMany(ctx, deletions); err != nil {
		return err
	}
	return s.insertMany(ctx, insertions)
}

func (s *Store) insertMany(ctx context.Context, insertions map[string][]Entry) error {
	if len(insertions) == 0 {
		return nil
	}
	timestamp, err := s.oracle.nextTimestamp(ctx)
	if err != nil {
		return err
	}

	batch := make(map[string]map[string][]backend.Mutation, len(insertions))
	for key, entries := range insertions {
		muts := make([]backend.Mutation, 0, len(entries))
		for _, e := range entries {
			muts = append(muts, backend.Mutation{
				ColumnInsertion: &backend.Column{
					Name:      clone(e.Column),
					Value:     clone(e.Value),
					Timestamp: timestamp,
				},
			})
		}
		batch[key] = map[string][]backend.Mutation{s.columnFamily: muts}
	}
	return s.batchMutate(ctx, batch)
}

func (s *Store) deleteMany(ctx context.Context, deletions map[string][]Column) error {
	if len(deletions) == 0 {
		return nil
	}
	timestamp, err := s.oracle.nextTimestamp(ctx)
	if err != nil {
		return err
	}

	batch := make(map[string]map[string][]backend.Mutation, len(deletions))
	for key, columns := range deletions {
		muts := make([]backend.Mutation, 0, len(columns))
		for _, col := range columns {
			muts = append(muts, backend.Mutation{
				Deletion: &backend.Deletion{
					Timestamp: timestamp,
					Predicate: backend.SlicePredicate{ColumnNames: [][]byte{clone(col)}},
				},
			})
		}
		batch[key] = map[string][]backend.Mutation{s.columnFamily: muts}
	}
	return s.batchMutate(ctx, batch)
}

func (s *Store) batchMutate(ctx context.Context, batch map[string]map[string][]backend.Mutation) error {
	return s.withClient(func(c backend.Client) error {
		if err := c.BatchMutate(ctx, batch, consistency); err != nil {
			return wrapRemote(err)
		}
		return nil
	})
}
