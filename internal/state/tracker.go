// Package state keeps client-side views of back-office entities in sync with
// the services: the current list page, a loaded record, the dashboard and
// the signed-in session.
//
// Every operation takes a request token when it starts. Only the holder of
// the newest token may clear the loading flag. Reads that replace state are
// dropped when a newer request has started, so a slow response never
// overwrites a newer one. Writes patch local state whenever the server
// accepted them.
package state

import (
	"errors"
	"sync"
)

var errNoID = errors.New("no record id provided")

type tracker struct {
	mu      sync.Mutex
	seq     uint64
	loading bool
	err     string
}

// begin issues a new request token. snapshot, if set, runs under the lock
// so the request parameters are read consistently.
func (t *tracker) begin(snapshot func()) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.loading = true
	t.err = ""
	if snapshot != nil {
		snapshot()
	}
	return t.seq
}

// finish settles the request identified by token. A stale token is
// ignored and finish reports false. Otherwise err is recorded, or apply
// runs under the lock.
func (t *tracker) finish(token uint64, err error, apply func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if token != t.seq {
		return false
	}
	t.loading = false
	if err != nil {
		t.err = err.Error()
		return true
	}
	if apply != nil {
		apply()
	}
	return true
}

// settle closes a write. The patch is applied whenever err is nil, whatever
// the token; only the newest token clears loading.
func (t *tracker) settle(token uint64, err error, apply func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if token == t.seq {
		t.loading = false
	}
	if err != nil {
		t.err = err.Error()
		return
	}
	if apply != nil {
		apply()
	}
}

// Loading reports whether the newest request is still in flight.
func (t *tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Err is the message of the last failed request, or "".
func (t *tracker) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *tracker) ClearError() {
	t.mu.Lock()
	t.err = ""
	t.mu.Unlock()
}

func (t *tracker) read(fn func()) {
	t.mu.Lock()
	fn()
	t.mu.Unlock()
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func replaceWhere[T any](items []T, match func(T) bool, v T) {
	for i := range items {
		if match(items[i]) {
			items[i] = v
		}
	}
}

func removeWhere[T any](items []T, match func(T) bool) []T {
	out := items[:0]
	for _, it := range items {
		if !match(it) {
			out = append(out, it)
		}
	}
	return out
}

// track runs a read under a fresh token and hands its result to apply when
// the token is still the newest.
func track[T any](t *tracker, call func() (T, error), apply func(T)) (T, error) {
	token := t.begin(nil)
	v, err := call()
	t.finish(token, err, func() {
		if apply != nil {
			apply(v)
		}
	})
	return v, err
}

// mutate runs a write under a fresh token and applies its result to local
// state once the call succeeds.
func mutate[T any](t *tracker, call func() (T, error), apply func(T)) (T, error) {
	token := t.begin(nil)
	v, err := call()
	t.settle(token, err, func() {
		if apply != nil {
			apply(v)
		}
	})
	return v, err
}
