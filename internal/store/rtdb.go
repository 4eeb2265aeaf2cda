package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"firebase.google.com/go/db"
	"github.com/golang/glog"
)

const (
	defaultHeartbeatPath     = "subjects/s1"
	defaultHeartbeatInterval = 15 * time.Second
	heartbeatTimeout         = 5 * time.Second
)

// RTDB is a Store backed by the Firebase Realtime Database.
type RTDB struct {
	client *db.Client

	heartbeatPath     string
	heartbeatInterval time.Duration

	mu           sync.Mutex
	connected    bool
	listeners    map[int]func(bool)
	nextListener int
}

// NewRTDB wraps a Realtime Database client. Connectivity is unknown (reported as false) until
// StartHeartbeat has completed its first read.
func NewRTDB(client *db.Client) *RTDB {
	return &RTDB{
		client:            client,
		heartbeatPath:     defaultHeartbeatPath,
		heartbeatInterval: defaultHeartbeatInterval,
		listeners:         make(map[int]func(bool)),
	}
}

func (r *RTDB) Read(ctx context.Context, path string) (interface{}, error) {
	var v interface{}
	if err := r.client.NewRef(path).Get(ctx, &v); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, nil
}

func (r *RTDB) ReadEqual(ctx context.Context, path, field string, value interface{}) ([]Node, error) {
	results, err := r.client.NewRef(path).OrderByChild(field).EqualTo(value).GetOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying %s by %s: %w", path, field, err)
	}
	return toNodes(results)
}

func (r *RTDB) ReadLastN(ctx context.Context, path, field string, n int) ([]Node, error) {
	results, err := r.client.NewRef(path).OrderByChild(field).LimitToLast(n).GetOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying last %d of %s: %w", n, path, err)
	}
	return toNodes(results)
}

func (r *RTDB) Write(ctx context.Context, path string, value interface{}) error {
	if value == nil {
		return r.Remove(ctx, path)
	}
	if err := r.client.NewRef(path).Set(ctx, value); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (r *RTDB) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := r.client.NewRef(path).Update(ctx, fields); err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}
	return nil
}

func (r *RTDB) Push(ctx context.Context, path string, value interface{}) (string, error) {
	ref, err := r.client.NewRef(path).Push(ctx, value)
	if err != nil {
		return "", fmt.Errorf("pushing to %s: %w", path, err)
	}
	return ref.Key, nil
}

func (r *RTDB) Remove(ctx context.Context, path string) error {
	if err := r.client.NewRef(path).Delete(ctx); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// casRef is the part of a database reference a transaction needs.
type casRef interface {
	GetWithETag(ctx context.Context, v interface{}) (string, error)
	SetIfUnchanged(ctx context.Context, etag string, v interface{}) (bool, error)
}

var _ casRef = (*db.Ref)(nil)

// Transact runs a compare-and-swap loop on the location's ETag.
func (r *RTDB) Transact(ctx context.Context, path string, fn TransactFn) error {
	return transact(ctx, r.client.NewRef(path), path, fn)
}

func transact(ctx context.Context, ref casRef, path string, fn TransactFn) error {
	for attempt := 0; attempt < MaxTransactRetries; attempt++ {
		var current interface{}
		etag, err := ref.GetWithETag(ctx, &current)
		if err != nil {
			return fmt.Errorf("reading %s for transaction: %w", path, err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		ok, err := ref.SetIfUnchanged(ctx, etag, next)
		if err != nil {
			return fmt.Errorf("writing %s in transaction: %w", path, err)
		}
		if ok {
			return nil
		}
		glog.V(1).Infof("transaction on %s lost a race, retrying (attempt %d)", path, attempt+1)
	}
	return ErrTooManyRetries
}

func (r *RTDB) OnConnectedChange(fn func(connected bool)) func() {
	r.mu.Lock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn
	connected := r.connected
	r.mu.Unlock()

	fn(connected)
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// StartHeartbeat periodically reads a small location and reports connectivity changes to the
// registered listeners until ctx is cancelled. The Admin SDK exposes no connection state, so a
// successful read is the connectivity signal.
func (r *RTDB) StartHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		r.heartbeat(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *RTDB) heartbeat(ctx context.Context) {
	hbCtx, cancel := context.WithTimeout(ctx, heartbeatTimeout)
	defer cancel()

	var v interface{}
	err := r.client.NewRef(r.heartbeatPath).Get(hbCtx, &v)
	if err != nil && ctx.Err() != nil {
		return
	}
	r.setConnected(err == nil)
	if err != nil {
		glog.Warningf("realtime database heartbeat failed: %v\n", err)
	}
}

func (r *RTDB) setConnected(connected bool) {
	r.mu.Lock()
	if r.connected == connected {
		r.mu.Unlock()
		return
	}
	r.connected = connected
	fns := make([]func(bool), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(connected)
	}
}

func toNodes(results []db.QueryNode) ([]Node, error) {
	nodes := make([]Node, 0, len(results))
	for _, qn := range results {
		var v interface{}
		if err := qn.Unmarshal(&v); err != nil {
			return nil, err
		}
		nodes = append(nodes, Node{Key: qn.Key(), Value: v})
	}
	return nodes, nil
}
