// Package metrics keeps operational counters and per-operation RPC
// latency averages. Latency samples travel through a lock-free queue so
// that recording one never blocks the calling RPC path.
package metrics

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/alphadose/zenq/v2"
	"github.com/zhangyunhao116/skipmap"
)

// Collector captures counters and latency observations.
type Collector interface {
	IncCounter(name string, delta int64)
	ObserveLatency(op string, d time.Duration)
}

const (
	queueCapacity = 1 << 14
	averageWindow = 128
)

type sample struct {
	op     string
	micros float64
}

// latencyAvg guards a moving average: the drain goroutine writes while
// dump and probe callers read.
type latencyAvg struct {
	mu sync.Mutex
	ma *movingaverage.MovingAverage
}

func newLatencyAvg() *latencyAvg {
	return &latencyAvg{ma: movingaverage.New(averageWindow)}
}

func (l *latencyAvg) add(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ma.Add(v)
}

func (l *latencyAvg) avg() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ma.Avg()
}

// Registry is the process-local metrics store. Counters and averages
// live in ordered maps so a dump is stable across calls.
type Registry struct {
	counters *skipmap.StringMap[*atomic.Int64]
	latency  *skipmap.StringMap[*latencyAvg]

	queue *zenq.ZenQ[sample]
	done  chan struct{}
}

func NewRegistry() *Registry {
	r := &Registry{
		counters: skipmap.NewString[*atomic.Int64](),
		latency:  skipmap.NewString[*latencyAvg](),
		queue:    zenq.New[sample](queueCapacity),
		done:     make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *Registry) IncCounter(name string, delta int64) {
	c, ok := r.counters.Load(name)
	if !ok {
		c, _ = r.counters.LoadOrStore(name, &atomic.Int64{})
	}
	c.Add(delta)
}

// Counter returns the current value of the named counter.
func (r *Registry) Counter(name string) int64 {
	c, ok := r.counters.Load(name)
	if !ok {
		return 0
	}
	return c.Load()
}

// ObserveLatency queues one latency sample for the named operation. The
// sample is folded into the moving average by the drain goroutine.
func (r *Registry) ObserveLatency(op string, d time.Duration) {
	r.queue.Write(sample{op: op, micros: float64(d.Microseconds())})
}

// LatencyAvg returns the moving-average latency in microseconds for op,
// or 0 when nothing has been recorded yet.
func (r *Registry) LatencyAvg(op string) float64 {
	l, ok := r.latency.Load(op)
	if !ok {
		return 0
	}
	return l.avg()
}

func (r *Registry) drain() {
	defer close(r.done)
	for {
		s, open := r.queue.Read()
		if !open {
			return
		}
		l, ok := r.latency.Load(s.op)
		if !ok {
			l, _ = r.latency.LoadOrStore(s.op, newLatencyAvg())
		}
		l.add(s.micros)
	}
}

// WriteTo dumps every counter and latency average in name order.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	var total int64
	var err error

	write := func(format string, args ...any) bool {
		if err != nil {
			return false
		}
		var n int
		n, err = fmt.Fprintf(w, format, args...)
		total += int64(n)
		return err == nil
	}

	r.counters.Range(func(name string, c *atomic.Int64) bool {
		return write("counter %s %d\n", name, c.Load())
	})
	r.latency.Range(func(op string, l *latencyAvg) bool {
		return write("latency_avg_us %s %.1f\n", op, l.avg())
	})
	return total, err
}

// Close stops the drain goroutine after the queued samples are consumed.
func (r *Registry) Close() {
	r.queue.Close()
	<-r.done
}
