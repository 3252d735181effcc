package sandbox

import (
	"context"
	"sort"
	"time"

	"github.com/dop251/goja"
)

// maxPendingTimers bounds how many callbacks one script may schedule
const maxPendingTimers = 1000

type timer struct {
	id   int64
	due  time.Time
	fn   goja.Callable
	args []goja.Value
}

// timerQueue backs setTimeout/clearTimeout. It is only touched from the
// goroutine running the script, so it needs no locking.
type timerQueue struct {
	nextID  int64
	pending []*timer
}

func newTimerQueue() *timerQueue {
	return &timerQueue{}
}

func (q *timerQueue) add(delay time.Duration, fn goja.Callable, args []goja.Value) (int64, bool) {
	if len(q.pending) >= maxPendingTimers {
		return 0, false
	}
	if delay < 0 {
		delay = 0
	}

	q.nextID++
	q.pending = append(q.pending, &timer{
		id:   q.nextID,
		due:  time.Now().Add(delay),
		fn:   fn,
		args: args,
	})
	return q.nextID, true
}

func (q *timerQueue) remove(id int64) {
	for i, t := range q.pending {
		if t.id == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

func (q *timerQueue) len() int {
	return len(q.pending)
}

// next returns the timer due first; ties fire in scheduling order
func (q *timerQueue) next() *timer {
	if len(q.pending) == 0 {
		return nil
	}
	sort.SliceStable(q.pending, func(i, j int) bool {
		if q.pending[i].due.Equal(q.pending[j].due) {
			return q.pending[i].id < q.pending[j].id
		}
		return q.pending[i].due.Before(q.pending[j].due)
	})
	return q.pending[0]
}

// drain fires timers in due order until none remain or ctx ends.
// Callbacks may schedule or clear further timers.
func (q *timerQueue) drain(ctx context.Context, fire func(*timer) error) error {
	for {
		t := q.next()
		if t == nil {
			return nil
		}

		if wait := time.Until(t.due); wait > 0 {
			clock := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				clock.Stop()
				return ctx.Err()
			case <-clock.C:
			}
		}

		q.remove(t.id)
		if err := fire(t); err != nil {
			return err
		}
	}
}
