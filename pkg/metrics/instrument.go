package metrics

import (
	"context"
	"time"

	"kcvstore/pkg/backend"
)

// InstrumentedClient decorates a backend client with per-operation call
// counters and latency observations. It changes no behavior.
type InstrumentedClient struct {
	inner backend.Client
	rec   Collector
}

func Instrument(inner backend.Client, rec Collector) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, rec: rec}
}

func (ic *InstrumentedClient) observe(op string, start time.Time, err error) {
	ic.rec.ObserveLatency(op, time.Since(start))
	ic.rec.IncCounter("rpc_"+op, 1)
	if err != nil {
		ic.rec.IncCounter("rpc_"+op+"_errors", 1)
	}
}

func (ic *InstrumentedClient) Get(ctx context.Context, key []byte, path backend.ColumnPath, consistency backend.ConsistencyLevel) (*backend.ColumnOrSuperColumn, error) {
	start := time.Now()
	cosc, err := ic.inner.Get(ctx, key, path, consistency)
	ic.observe("get", start, err)
	return cosc, err
}

func (ic *InstrumentedClient) GetSlice(ctx context.Context, key []byte, parent backend.ColumnParent, predicate backend.SlicePredicate, consistency backend.ConsistencyLevel) ([]backend.ColumnOrSuperColumn, error) {
	start := time.Now()
	rows, err := ic.inner.GetSlice(ctx, key, parent, predicate, consistency)
	ic.observe("get_slice", start, err)
	return rows, err
}

func (ic *InstrumentedClient) Insert(ctx context.Context, key []byte, parent backend.ColumnParent, column backend.Column, consistency backend.ConsistencyLevel) error {
	start := time.Now()
	err := ic.inner.Insert(ctx, key, parent, column, consistency)
	ic.observe("insert", start, err)
	return err
}

func (ic *InstrumentedClient) Remove(ctx context.Context, key []byte, path backend.ColumnPath, timestamp int64, consistency backend.ConsistencyLevel) error {
	start := time.Now()
	err := ic.inner.Remove(ctx, key, path, timestamp, consistency)
	ic.observe("remove", start, err)
	return err
}

func (ic *InstrumentedClient) BatchMutate(ctx context.Context, mutations map[string]map[string][]backend.Mutation, consistency backend.ConsistencyLevel) error {
	start := time.Now()
	err := ic.inner.BatchMutate(ctx, mutations, consistency)
	ic.observe("batch_mutate", start, err)
	return err
}
