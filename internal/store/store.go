// Package store defines the tree-structured remote document store that backs every piece of
// persistent state, together with its Firebase Realtime Database and in-memory implementations.
package store

import (
	"context"
	"errors"
	"strings"
)

// MaxTransactRetries bounds the compare-and-swap loop of Transact.
const MaxTransactRetries = 25

var (
	ErrTooManyRetries = errors.New("transaction aborted after too many concurrent modifications")
	ErrUnavailable    = errors.New("store is unavailable")
	ErrInvalidPath    = errors.New("invalid store path")
)

// Node is a keyed child returned by the query operations.
type Node struct {
	Key   string
	Value interface{}
}

// TransactFn computes the new value of a location from its current value. It may be called
// more than once and must not touch the store itself. Returning an error aborts the transaction
// without writing.
type TransactFn func(current interface{}) (interface{}, error)

// Store is the remote document tree. Paths are slash-separated segments; absent locations read
// as nil.
type Store interface {
	// Read returns the value at path, or nil when nothing is stored there.
	Read(ctx context.Context, path string) (interface{}, error)
	// ReadEqual returns the children of path whose field equals value.
	ReadEqual(ctx context.Context, path, field string, value interface{}) ([]Node, error)
	// ReadLastN returns the last n children of path ordered by field, in ascending order.
	ReadLastN(ctx context.Context, path, field string, n int) ([]Node, error)
	// Write replaces the value at path. Writing nil removes it.
	Write(ctx context.Context, path string, value interface{}) error
	// Update patches the listed children of path, leaving the others alone.
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	// Push appends value under a new, time-sortable generated key and returns the key.
	Push(ctx context.Context, path string, value interface{}) (string, error)
	// Remove deletes path and everything under it.
	Remove(ctx context.Context, path string) error
	// Transact atomically replaces the value at path with fn(current), retrying on concurrent
	// modification.
	Transact(ctx context.Context, path string, fn TransactFn) error
	// OnConnectedChange registers fn for connectivity changes. fn is called once right away with
	// the current state.
	OnConnectedChange(fn func(connected bool)) (unsubscribe func())
}

// ServerTimestamp returns the sentinel the backend replaces with its own clock, in
// milliseconds since the epoch, at write time.
func ServerTimestamp() map[string]interface{} {
	return map[string]interface{}{".sv": "timestamp"}
}

// Join builds a path from segments, skipping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// ValidKey reports whether s can be used as a single path segment.
func ValidKey(s string) bool {
	if s == "" || len(s) > 768 {
		return false
	}
	return !strings.ContainsAny(s, ".#$[]/\x7f") && strings.TrimSpace(s) == s
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
