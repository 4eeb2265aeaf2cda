// Package loader keeps list views consistent with a remote tree that can only be read, not
// subscribed to: every load carries a generation token and a watchdog timeout, and views are
// refreshed by polling.
package loader

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/golang/glog"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 30 * time.Second
)

var (
	// ErrStale is returned by a load that was superseded by a newer one.
	ErrStale = errors.New("load superseded by a newer one")
	// ErrTimeout is returned by a load that outlived its watchdog.
	ErrTimeout = errors.New("load timed out")
)

// FetchFunc reads the data behind a view.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// View is the last loaded state of one logical list view.
type View[T any] struct {
	name    string
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	value      T
	loaded     bool
	err        error
}

// NewView creates a View. A timeout <= 0 uses DefaultTimeout.
func NewView[T any](name string, timeout time.Duration) *View[T] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &View[T]{name: name, timeout: timeout}
}

// Load runs fetch and, unless a newer Load started in the meantime, makes its result the
// view's state. Starting a Load cancels the one in flight. The timeout is authoritative: once
// it fires the load fails with ErrTimeout even if fetch ignores its context.
func (v *View[T]) Load(ctx context.Context, fetch FetchFunc[T]) (T, error) {
	var zero T

	v.mu.Lock()
	v.generation++
	gen := v.generation
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	v.cancel = cancel
	v.mu.Unlock()
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fetch(ctx)
		done <- result{value, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
		if errors.Is(res.err, context.DeadlineExceeded) {
			res.err = ErrTimeout
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		glog.V(2).Infof("discarding stale load of %s (generation %d, current %d)", v.name, gen, v.generation)
		return zero, ErrStale
	}
	if res.err != nil {
		v.err = res.err
		return zero, res.err
	}
	v.value, v.loaded, v.err = res.value, true, nil
	return res.value, nil
}

// Snapshot returns the last loaded value, whether any load has succeeded, and the error of the
// most recent load. A failed load keeps the previous value so callers can tell "load failed"
// from "empty".
func (v *View[T]) Snapshot() (value T, loaded bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.loaded, v.err
}

// Generation returns the number of loads started so far.
func (v *View[T]) Generation() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generation
}

// Watch loads the view now and then every interval until ctx is done, calling onLoad after
// every load that was not superseded.
func (v *View[T]) Watch(ctx context.Context, interval time.Duration, fetch FetchFunc[T], onLoad func(T, error)) {
	Poll(ctx, interval, func(ctx context.Context) error {
		value, err := v.Load(ctx, fetch)
		if errors.Is(err, ErrStale) {
			return nil
		}
		if onLoad != nil {
			onLoad(value, err)
		}
		return err
	})
}

// Poll calls refresh right away and then every interval plus up to a tenth of interval of
// random jitter, until ctx is done. A failing refresh is logged and polling continues.
func Poll(ctx context.Context, interval time.Duration, refresh func(ctx context.Context) error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		if err := refresh(ctx); err != nil && ctx.Err() == nil {
			glog.Warningf("refresh failed, retrying in %s: %v\n", interval, err)
		}

		timer := time.NewTimer(interval + jitter(interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func jitter(interval time.Duration) time.Duration {
	spread := interval / 10
	if spread <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(spread)))
}
