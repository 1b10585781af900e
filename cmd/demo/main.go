// Command demo walks the key-column-value adapter through its main
// operations against the in-memory backend and prints what happens.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"kcvstore/pkg/backend"
	"kcvstore/pkg/backend/fake"
	"kcvstore/pkg/kcv"
	"kcvstore/pkg/pool"
)

type conn struct {
	client backend.Client
}

func (c *conn) Client() backend.Client { return c.client }
func (c *conn) Close() error           { return nil }

func main() {
	ctx := context.Background()

	shared := fake.New()
	dial := func(addr string) (pool.Connection, error) {
		return &conn{client: shared}, nil
	}
	connPool := pool.NewFixed([]string{"local"}, 4, 10*time.Second, dial)
	defer connPool.Close()

	store, err := kcv.New("graph", "edgestore", connPool)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	key := []byte("vertex:42")

	fmt.Println("[demo] insert columns 0x01..0x03")
	err = store.Insert(ctx, key, []kcv.Entry{
		{Column: []byte{0x01}, Value: []byte("A")},
		{Column: []byte{0x02}, Value: []byte("B")},
		{Column: []byte{0x03}, Value: []byte("C")},
	}, nil)
	if err != nil {
		log.Fatal(err)
	}

	value, found, err := store.Get(ctx, key, []byte{0x02}, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("[demo] get 0x02 -> %q found=%v\n", value, found)

	entries, err := store.GetSlice(ctx, key, []byte{0x01}, []byte{0x03}, false, false, 10, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("[demo] exclusive slice (0x01, 0x03) -> %d entries\n", len(entries))
	for _, e := range entries {
		fmt.Printf("[demo]   column=%x value=%q\n", e.Column, e.Value)
	}

	fmt.Println("[demo] mutate: delete 0x02, re-add it in the same call")
	err = store.Mutate(ctx, key,
		[]kcv.Entry{{Column: []byte{0x02}, Value: []byte("B2")}},
		[]kcv.Column{{0x02}}, nil)
	if err != nil {
		log.Fatal(err)
	}
	value, _, _ = store.Get(ctx, key, []byte{0x02}, nil)
	fmt.Printf("[demo] get 0x02 -> %q (re-add wins)\n", value)

	fmt.Println("[demo] batch mutate over two keys")
	err = store.MutateMany(ctx, map[string]kcv.Mutation{
		string(key): {Deletions: []kcv.Column{{0x01}}},
		"vertex:43": {Additions: []kcv.Entry{{Column: []byte{0x10}, Value: []byte("D")}}},
	}, nil)
	if err != nil {
		log.Fatal(err)
	}

	has, _ := store.ContainsKeyColumn(ctx, key, []byte{0x01}, nil)
	fmt.Printf("[demo] contains (vertex:42, 0x01) after batch delete -> %v\n", has)
	has, _ = store.ContainsKey(ctx, []byte("vertex:43"), nil)
	fmt.Printf("[demo] contains vertex:43 -> %v\n", has)
}
