package fake

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"kcvstore/pkg/backend"
)

func insert(t *testing.T, b *Backend, key, name, value []byte, ts int64) {
	t.Helper()
	err := b.Insert(context.Background(), key, backend.ColumnParent{ColumnFamily: "cf"},
		backend.Column{Name: name, Value: value, Timestamp: ts}, backend.ConsistencyAll)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
}

func TestBackend_SliceRangeIsInclusiveBothEnds(t *testing.T) {
	ctx := context.Background()
	b := New()
	key := []byte("k")
	insert(t, b, key, []byte{0x01}, []byte("A"), 1)
	insert(t, b, key, []byte{0x02}, []byte("B"), 1)
	insert(t, b, key, []byte{0x03}, []byte("C"), 1)

	rows, err := b.GetSlice(ctx, key, backend.ColumnParent{ColumnFamily: "cf"}, backend.SlicePredicate{
		Range: &backend.SliceRange{Start: []byte{0x01}, Finish: []byte{0x03}, Count: 10},
	}, backend.ConsistencyAll)
	if err != nil {
		t.Fatalf("GetSlice failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("inclusive range must return both endpoints, got %d rows", len(rows))
	}
	if !bytes.Equal(rows[0].Column.Name, []byte{0x01}) || !bytes.Equal(rows[2].Column.Name, []byte{0x03}) {
		t.Fatal("rows out of order or endpoints missing")
	}
}

func TestBackend_SliceRejectsEqualEndpoints(t *testing.T) {
	ctx := context.Background()
	b := New()

	_, err := b.GetSlice(ctx, []byte("k"), backend.ColumnParent{ColumnFamily: "cf"}, backend.SlicePredicate{
		Range: &backend.SliceRange{Start: []byte{0x01}, Finish: []byte{0x01}, Count: 10},
	}, backend.ConsistencyAll)

	var re *backend.RemoteError
	if !errors.As(err, &re) || re.Kind != backend.RemoteInvalid {
		t.Fatalf("expected invalid-request, got %v", err)
	}
}

func TestBackend_SliceEmptyEndpointsAreUnbounded(t *testing.T) {
	ctx := context.Background()
	b := New()
	key := []byte("k")
	insert(t, b, key, []byte{0x01}, []byte("A"), 1)
	insert(t, b, key, []byte{0xFE}, []byte("Z"), 1)

	rows, err := b.GetSlice(ctx, key, backend.ColumnParent{ColumnFamily: "cf"}, backend.SlicePredicate{
		Range: &backend.SliceRange{Start: []byte{}, Finish: []byte{}, Count: 10},
	}, backend.ConsistencyAll)
	if err != nil {
		t.Fatalf("GetSlice failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("unbounded range must return everything, got %d rows", len(rows))
	}
}

func TestBackend_SliceCountBounds(t *testing.T) {
	ctx := context.Background()
	b := New()
	key := []byte("k")
	for i := byte(1); i <= 5; i++ {
		insert(t, b, key, []byte{i}, []byte{i}, 1)
	}

	rows, err := b.GetSlice(ctx, key, backend.ColumnParent{ColumnFamily: "cf"}, backend.SlicePredicate{
		Range: &backend.SliceRange{Start: []byte{}, Finish: []byte{}, Count: 2},
	}, backend.ConsistencyAll)
	if err != nil {
		t.Fatalf("GetSlice failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("count 2 must bound the slice, got %d rows", len(rows))
	}
}

func TestBackend_HigherTimestampWins(t *testing.T) {
	ctx := context.Background()
	b := New()
	key := []byte("k")

	insert(t, b, key, []byte("c"), []byte("new"), 10)
	insert(t, b, key, []byte("c"), []byte("stale"), 5)

	cosc, err := b.Get(ctx, key, backend.ColumnPath{ColumnFamily: "cf", Column: []byte("c")}, backend.ConsistencyAll)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(cosc.Column.Value) != "new" {
		t.Fatalf("stale write must lose, got %q", cosc.Column.Value)
	}
}

func TestBackend_EqualTimestampLexicalTiebreak(t *testing.T) {
	ctx := context.Background()
	b := New()
	key := []byte("k")

	insert(t, b, key, []byte("c"), []byte("aaa"), 7)
	insert(t, b, key, []byte("c"), []byte("zzz"), 7)
	insert(t, b, key, []byte("c"), []byte("mmm"), 7)

	cosc, err := b.Get(ctx, key, backend.ColumnPath{ColumnFamily: "cf", Column: []byte("c")}, backend.ConsistencyAll)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(cosc.Column.Value) != "zzz" {
		t.Fatalf("lexically greatest value must win the tie, got %q", cosc.Column.Value)
	}
}

func TestBackend_RemoveShadowedByNewerWrite(t *testing.T) {
	ctx := context.Background()
	b := New()
	key := []byte("k")

	insert(t, b, key, []byte("c"), []byte("v"), 10)
	if err := b.Remove(ctx, key, backend.ColumnPath{ColumnFamily: "cf", Column: []byte("c")}, 5, backend.ConsistencyAll); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, err := b.Get(ctx, key, backend.ColumnPath{ColumnFamily: "cf", Column: []byte("c")}, backend.ConsistencyAll); err != nil {
		t.Fatal("older tombstone must not delete a newer write")
	}

	if err := b.Remove(ctx, key, backend.ColumnPath{ColumnFamily: "cf", Column: []byte("c")}, 11, backend.ConsistencyAll); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := b.Get(ctx, key, backend.ColumnPath{ColumnFamily: "cf", Column: []byte("c")}, backend.ConsistencyAll); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}

func TestBackend_SliceByNames(t *testing.T) {
	ctx := context.Background()
	b := New()
	key := []byte("k")
	insert(t, b, key, []byte("b"), []byte("2"), 1)
	insert(t, b, key, []byte("a"), []byte("1"), 1)

	rows, err := b.GetSlice(ctx, key, backend.ColumnParent{ColumnFamily: "cf"}, backend.SlicePredicate{
		ColumnNames: [][]byte{[]byte("b"), []byte("a"), []byte("missing")},
	}, backend.ConsistencyAll)
	if err != nil {
		t.Fatalf("GetSlice failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected the two existing columns, got %d", len(rows))
	}
	if !bytes.Equal(rows[0].Column.Name, []byte("a")) {
		t.Fatal("name-list slice must come back in column order")
	}
}
