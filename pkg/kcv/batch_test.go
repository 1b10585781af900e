package kcv

import (
	"context"
	"testing"

	"kcvstore/pkg/backend/fake"
)

func TestMutateMany_TwoPhases(t *testing.T) {
	ctx := context.Background()
	b := fake.New()
	s, p := newTestStore(t, b)

	k1, k2 := []byte("k1"), []byte("k2")
	if err := s.Insert(ctx, k1, []Entry{{Column: []byte("c'"), Value: []byte("x")}}, nil); err != nil {
		t.Fatalf("seed Insert failed: %v", err)
	}
	if err := s.Insert(ctx, k2, []Entry{{Column: []byte("c''"), Value: []byte("y")}}, nil); err != nil {
		t.Fatalf("seed Insert failed: %v", err)
	}

	err := s.MutateMany(ctx, map[string]Mutation{
		string(k1): {
			Additions: []Entry{{Column: []byte("c"), Value: []byte("v")}},
			Deletions: []Column{[]byte("c'")},
		},
		string(k2): {
			Deletions: []Column{[]byte("c''")},
		},
	}, nil)
	if err != nil {
		t.Fatalf("MutateMany failed: %v", err)
	}

	// One batched call for the deletion phase, one for the insertion
	// phase, regardless of key count.
	if n := b.Calls("batch_mutate"); n != 2 {
		t.Fatalf("expected 2 batch_mutate calls, got %d", n)
	}

	// The deletion batch must carry the smaller timestamp.
	ts := b.BatchTimestamps()
	if len(ts) != 2 {
		t.Fatalf("expected 2 recorded batch timestamps, got %d", len(ts))
	}
	if ts[0] >= ts[1] {
		t.Fatalf("deletion timestamp %d must precede insertion timestamp %d", ts[0], ts[1])
	}

	value, found, err := s.Get(ctx, k1, []byte("c"), nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || string(value) != "v" {
		t.Fatalf("expected (k1, c)=v, got found=%v value=%q", found, value)
	}
	if _, found, _ := s.Get(ctx, k1, []byte("c'"), nil); found {
		t.Fatal("(k1, c') should be deleted")
	}
	if _, found, _ := s.Get(ctx, k2, []byte("c''"), nil); found {
		t.Fatal("(k2, c'') should be deleted")
	}

	if p.borrows != p.returns {
		t.Fatalf("lease leak: %d borrows vs %d returns", p.borrows, p.returns)
	}
}

func TestMutateMany_SkipsEmptyHalves(t *testing.T) {
	ctx := context.Background()
	b := fake.New()
	s, _ := newTestStore(t, b)

	err := s.MutateMany(ctx, map[string]Mutation{
		"k": {Additions: []Entry{{Column: []byte("c"), Value: []byte("v")}}},
	}, nil)
	if err != nil {
		t.Fatalf("MutateMany failed: %v", err)
	}
	if n := b.Calls("batch_mutate"); n != 1 {
		t.Fatalf("insert-only batch should make exactly 1 call, got %d", n)
	}

	if err := s.MutateMany(ctx, map[string]Mutation{}, nil); err != nil {
		t.Fatalf("empty MutateMany failed: %v", err)
	}
	if n := b.Calls("batch_mutate"); n != 1 {
		t.Fatalf("empty batch must not call the backend, got %d calls", n)
	}
}

func TestMutateMany_SameColumnInBothHalves(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, fake.New())

	key := []byte("k")
	if err := s.Insert(ctx, key, []Entry{{Column: []byte("c"), Value: []byte("old")}}, nil); err != nil {
		t.Fatalf("seed Insert failed: %v", err)
	}

	err := s.MutateMany(ctx, map[string]Mutation{
		string(key): {
			Additions: []Entry{{Column: []byte("c"), Value: []byte("new")}},
			Deletions: []Column{[]byte("c")},
		},
	}, nil)
	if err != nil {
		t.Fatalf("MutateMany failed: %v", err)
	}

	value, found, err := s.Get(ctx, key, []byte("c"), nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || string(value) != "new" {
		t.Fatalf("delete-then-insert must leave the insertion, got found=%v value=%q", found, value)
	}
}
