// Package pool manages backend RPC connections. The Store borrows one
// connection per operation and returns it on every exit path; the pool
// owns the connections themselves.
package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/google/uuid"
	"github.com/zhangyunhao116/skipset"

	"kcvstore/pkg/backend"
)

var (
	ErrExhausted = errors.New("pool: no idle connection and capacity reached")
	ErrNoHosts   = errors.New("pool: no backend hosts configured")
	ErrClosed    = errors.New("pool: closed")
)

// Connection is one leased backend channel. A returned Connection must
// not be used further.
type Connection interface {
	Client() backend.Client
	Close() error
}

// Pool hands out connections keyed by keyspace. Borrow may fail; Return
// never does.
type Pool interface {
	Borrow(keyspace string) (Connection, error)
	Return(keyspace string, conn Connection)
}

// Dial opens one backend connection to addr.
type Dial func(addr string) (Connection, error)

const (
	watchdogTick  = 10 * time.Millisecond
	watchdogWheel = 512
)

// lease wraps a pooled connection with the bookkeeping the pool needs to
// recognise it on return.
type lease struct {
	Connection
	id       string
	keyspace string
	timer    *timingwheel.Timer
}

// FixedPool keeps at most size open connections per keyspace, borrowed
// round-robin across the configured hosts. Every outstanding lease is
// tracked in an ordered set; a lease still out when its watchdog timer
// fires is logged as a suspected leak. The watchdog never force-closes
// anything, it only surfaces the overrun.
type FixedPool struct {
	dial           Dial
	size           int
	leaseWarnAfter time.Duration

	mu     sync.Mutex
	hosts  []string
	next   int
	idle   map[string][]Connection
	open   map[string]int
	closed bool

	leases *skipset.StringSet
	wheel  *timingwheel.TimingWheel
}

func NewFixed(hosts []string, size int, leaseWarnAfter time.Duration, dial Dial) *FixedPool {
	p := &FixedPool{
		dial:           dial,
		size:           size,
		leaseWarnAfter: leaseWarnAfter,
		hosts:          append([]string(nil), hosts...),
		idle:           make(map[string][]Connection),
		open:           make(map[string]int),
		leases:         skipset.NewString(),
		wheel:          timingwheel.NewTimingWheel(watchdogTick, watchdogWheel),
	}
	go p.wheel.Start()
	return p
}

// SetHosts replaces the host list used for new connections. Existing
// connections, idle or borrowed, are untouched and stay in the pool
// until Close.
func (p *FixedPool) SetHosts(hosts []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hosts = append([]string(nil), hosts...)
	if p.next >= len(p.hosts) {
		p.next = 0
	}
	slog.Info("pool host list updated", "hosts", len(hosts))
}

func (p *FixedPool) Borrow(keyspace string) (Connection, error) {
	conn, err := p.takeConn(keyspace)
	if err != nil {
		return nil, err
	}

	l := &lease{
		Connection: conn,
		id:         uuid.NewString(),
		keyspace:   keyspace,
	}
	p.leases.Add(l.id)
	if p.leaseWarnAfter > 0 {
		l.timer = p.wheel.AfterFunc(p.leaseWarnAfter, func() {
			if p.leases.Contains(l.id) {
				slog.Warn("connection lease outstanding past deadline, possible leak",
					"lease", l.id, "keyspace", keyspace, "after", p.leaseWarnAfter)
			}
		})
	}
	return l, nil
}

func (p *FixedPool) takeConn(keyspace string) (Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if free := p.idle[keyspace]; len(free) > 0 {
		conn := free[len(free)-1]
		p.idle[keyspace] = free[:len(free)-1]
		return conn, nil
	}
	if p.open[keyspace] >= p.size {
		return nil, fmt.Errorf("%w: keyspace=%s size=%d", ErrExhausted, keyspace, p.size)
	}
	if len(p.hosts) == 0 {
		return nil, ErrNoHosts
	}

	host := p.hosts[p.next%len(p.hosts)]
	p.next++

	conn, err := p.dial(host)
	if err != nil {
		return nil, fmt.Errorf("pool: dial %s: %w", host, err)
	}
	p.open[keyspace]++
	return conn, nil
}

// Return puts the connection back. It never fails: a connection the pool
// does not recognise is closed and dropped with a warning.
func (p *FixedPool) Return(keyspace string, conn Connection) {
	l, ok := conn.(*lease)
	if !ok || l.keyspace != keyspace {
		slog.Warn("returned connection does not belong to this pool, closing it", "keyspace", keyspace)
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	if !p.leases.Remove(l.id) {
		slog.Warn("connection returned twice, dropping", "lease", l.id, "keyspace", keyspace)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.open[keyspace]--
		_ = l.Connection.Close()
		return
	}
	p.idle[keyspace] = append(p.idle[keyspace], l.Connection)
}

// Outstanding reports how many leases are currently borrowed.
func (p *FixedPool) Outstanding() int {
	return p.leases.Len()
}

func (p *FixedPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.wheel.Stop()
	for ks, free := range p.idle {
		for _, conn := range free {
			_ = conn.Close()
			p.open[ks]--
		}
		p.idle[ks] = nil
	}
	return nil
}
