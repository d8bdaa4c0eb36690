// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lockqueue

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// marker is one acquirer's claim. done closes when the claim is released.
type marker struct {
	done chan struct{}
	once sync.Once
}

func newMarker() *marker {
	return &marker{done: make(chan struct{})}
}

func (m *marker) complete() {
	m.once.Do(func() { close(m.done) })
}

func (m *marker) finished() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Queue grants exclusive use of resources keyed by K, first come first
// served per key. The zero value is not usable; call New.
//
// Acquiring keys while already holding others that a queued acquirer needs
// can deadlock. The queue does not detect this.
type Queue[K cmp.Ordered] struct {
	mu      sync.Mutex
	holders map[K]*marker
	onWait  func(time.Duration)
}

type options struct {
	onWait func(time.Duration)
}

type Option func(*options)

// WithWaitObserver reports how long each successful Acquire waited
func WithWaitObserver(fn func(time.Duration)) Option {
	return func(o *options) {
		o.onWait = fn
	}
}

func New[K cmp.Ordered](opts ...Option) *Queue[K] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Queue[K]{holders: make(map[K]*marker), onWait: o.onWait}
}

// Lock is held until Release is called
type Lock[K cmp.Ordered] struct {
	q    *Queue[K]
	ids  []K
	mine *marker
}

// Acquire queues behind whoever currently holds or waits for any of keys
// and returns once they have all released. Duplicate keys are ignored.
//
// If ctx ends first, Acquire returns ctx.Err(). The claim it already
// queued is released in the background once the earlier holders finish,
// so later acquirers are never left waiting on it.
func (q *Queue[K]) Acquire(ctx context.Context, keys ...K) (*Lock[K], error) {
	ids := slices.Clone(keys)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	mine := newMarker()
	var priors []*marker

	q.mu.Lock()
	for _, id := range ids {
		if prev, ok := q.holders[id]; ok && !prev.finished() {
			priors = append(priors, prev)
		}
		q.holders[id] = mine
	}
	q.mu.Unlock()

	lock := &Lock[K]{q: q, ids: ids, mine: mine}
	start := time.Now()

	for i, prev := range priors {
		select {
		case <-prev.done:
		case <-ctx.Done():
			pending := priors[i:]
			go func() {
				for _, p := range pending {
					<-p.done
				}
				lock.Release()
			}()
			return nil, ctx.Err()
		}
	}

	if q.onWait != nil {
		q.onWait(time.Since(start))
	}
	return lock, nil
}

// Release hands the keys to the next acquirer. It is safe to call more
// than once.
func (l *Lock[K]) Release() {
	if l == nil {
		return
	}

	l.q.mu.Lock()
	for _, id := range l.ids {
		if l.q.holders[id] == l.mine {
			delete(l.q.holders, id)
		}
	}
	l.q.mu.Unlock()

	l.mine.complete()
}

// Held returns how many keys currently have a holder or waiter. Intended
// for tests and metrics.
func (q *Queue[K]) Held() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.holders)
}
