// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package lockqueue provides mutual exclusion keyed by resource id.

	q := lockqueue.New[int]()
	lock, err := q.Acquire(ctx, groupID)
	if err != nil {
		return err
	}
	defer lock.Release()

Each key has at most one current claim. Acquire swaps its own claim in for
every key under one short critical section, then waits for the claims it
replaced, so acquirers of the same key run strictly in arrival order.
Unrelated keys never wait on each other. Keys are any ordered type; weight
exports lock "<subset>/<group id>" strings because group ids repeat across
subsets.

# Cancellation

A cancelled Acquire returns the context error, but its claim stays queued
until the earlier holders release and is then released by a background
goroutine. No key is left claimed by a caller that gave up.

# Thread Safety

Queue and Lock are safe for concurrent use.
*/
package lockqueue
