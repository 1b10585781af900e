package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	r.IncCounter("rpc_get", 1)
	r.IncCounter("rpc_get", 2)
	if got := r.Counter("rpc_get"); got != 3 {
		t.Fatalf("expected counter 3, got %d", got)
	}
	if got := r.Counter("never_touched"); got != 0 {
		t.Fatalf("expected 0 for unknown counter, got %d", got)
	}
}

func TestRegistry_LatencyDrainsEventually(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	r.ObserveLatency("get_slice", 2*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for r.LatencyAvg("get_slice") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("latency sample never drained")
		}
		time.Sleep(time.Millisecond)
	}
	if avg := r.LatencyAvg("get_slice"); avg < 1000 {
		t.Fatalf("expected average around 2000us, got %.1f", avg)
	}
}

func TestRegistry_CloseDrainsQueuedSamples(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 100; i++ {
		r.ObserveLatency("insert", time.Millisecond)
	}
	r.Close()

	if r.LatencyAvg("insert") == 0 {
		t.Fatal("samples queued before Close must be reflected")
	}
}

func TestRegistry_DumpIsOrdered(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	r.IncCounter("zeta", 1)
	r.IncCounter("alpha", 1)
	r.IncCounter("mid", 1)

	var sb strings.Builder
	if _, err := r.WriteTo(&sb); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	dump := sb.String()

	alpha := strings.Index(dump, "alpha")
	mid := strings.Index(dump, "mid")
	zeta := strings.Index(dump, "zeta")
	if alpha == -1 || mid == -1 || zeta == -1 {
		t.Fatalf("dump missing counters:\n%s", dump)
	}
	if !(alpha < mid && mid < zeta) {
		t.Fatalf("dump not in name order:\n%s", dump)
	}
}
