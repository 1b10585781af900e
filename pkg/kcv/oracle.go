package kcv

import (
	"context"
	"log/slog"
	"time"

	"github.com/zhangyunhao116/fastrand"

	"kcvstore/pkg/clock"
)

const (
	// clockRegressionWarn is how far the last issued timestamp may run
	// ahead of the wall clock before the oracle starts warning. A delta
	// beyond this usually means the system clock jumped backwards.
	clockRegressionWarn = 50 * time.Millisecond

	// casRetryJitterMillis bounds the random backoff after losing a
	// compare-and-set race against another writer.
	casRetryJitterMillis = 10
)

type iTimeProvider interface {
	Now() time.Time
}

type systemTime struct{}

func (systemTime) Now() time.Time { return time.Now() }

// timestampOracle issues strictly increasing millisecond timestamps for
// the writes of one Store instance.
//
// The backend resolves write collisions (multiple writes with identical
// timestamps) by lexical comparison on value. Callers sometimes issue a
// pair of mutations on a given key-column coordinate in series; if both
// land within the same millisecond, that tiebreak cannot guarantee the
// latter takes precedence. The oracle therefore never returns the same
// value twice and never returns values faster than one per millisecond,
// so timestamps stay real UNIX epoch millis.
//
// The guarantee covers only the owning Store. Other instances, let alone
// other clients on remote hosts, can still issue colliding writes; that
// is out of scope here.
type timestampOracle struct {
	last *clock.AtomicClock
	tp   iTimeProvider
}

func newOracle(tp iTimeProvider) *timestampOracle {
	return &timestampOracle{
		last: clock.NewAtomic(tp.Now().UnixMilli()),
		tp:   tp,
	}
}

// nextTimestamp returns a millisecond timestamp strictly greater than
// every value it previously returned. It blocks until the wall clock
// passes the last issued value and retries with random backoff when a
// concurrent caller wins the transition.
func (o *timestampOracle) nextTimestamp(ctx context.Context) (int64, error) {
	firstTry := true

	for {
		// Back off for a random period if we just collided with
		// another writer.
		if !firstTry {
			jitter := time.Duration(fastrand.Int63n(casRetryJitterMillis)) * time.Millisecond
			if err := o.sleep(ctx, jitter); err != nil {
				return 0, err
			}
		}
		firstTry = false

		last := o.last.Val()

		// Sleep until the current time is greater than last. The loop
		// condition, not the sleep duration, guards against early
		// wakeups.
		next := o.tp.Now().UnixMilli()
		for next <= last {
			delta := time.Duration(last-next) * time.Millisecond
			if delta > clockRegressionWarn {
				slog.Warn("last issued timestamp exceeds current time; the system clock may have moved backwards",
					"delta_ms", last-next, "now_ms", next, "last_ms", last)
			}
			if err := o.sleep(ctx, delta+time.Millisecond); err != nil {
				return 0, err
			}
			next = o.tp.Now().UnixMilli()
		}

		if o.last.Advance(last, next) {
			return next, nil
		}
	}
}

func (o *timestampOracle) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return newStorageError(ErrInternalInterrupt, ctx.Err())
	}
}
