package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store with the same value semantics as the Realtime Database:
// values are JSON-normalized, nil and empty objects are pruned, and server timestamps are
// resolved from the clock at write time. All access is serialized.
type Memory struct {
	mu    sync.Mutex
	root  map[string]interface{}
	clock func() time.Time

	online       bool
	listeners    map[int]func(bool)
	nextListener int
}

// NewMemory creates an empty Memory store. A nil clock defaults to time.Now.
func NewMemory(clock func() time.Time) *Memory {
	if clock == nil {
		clock = time.Now
	}
	return &Memory{
		root:      make(map[string]interface{}),
		clock:     clock,
		online:    true,
		listeners: make(map[int]func(bool)),
	}
}

// SetOnline simulates losing or regaining the connection. While offline every operation fails
// with ErrUnavailable.
func (m *Memory) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	fns := m.listenerSnapshot()
	m.mu.Unlock()

	if changed {
		for _, fn := range fns {
			fn(online)
		}
	}
}

func (m *Memory) Read(ctx context.Context, path string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}

	return clone(m.get(splitPath(path))), nil
}

func (m *Memory) ReadEqual(ctx context.Context, path, field string, value interface{}) ([]Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}

	want, err := normalize(value)
	if err != nil {
		return nil, err
	}
	var nodes []Node
	for _, n := range m.children(splitPath(path)) {
		if child, ok := n.Value.(map[string]interface{}); ok && equalValues(child[field], want) {
			nodes = append(nodes, Node{Key: n.Key, Value: clone(n.Value)})
		}
	}
	return nodes, nil
}

func (m *Memory) ReadLastN(ctx context.Context, path, field string, n int) ([]Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}

	nodes := m.children(splitPath(path))
	sort.SliceStable(nodes, func(i, j int) bool {
		c := compareValues(fieldOf(nodes[i].Value, field), fieldOf(nodes[j].Value, field))
		if c != 0 {
			return c < 0
		}
		return nodes[i].Key < nodes[j].Key
	})
	if n >= 0 && len(nodes) > n {
		nodes = nodes[len(nodes)-n:]
	}
	out := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, Node{Key: node.Key, Value: clone(node.Value)})
	}
	return out, nil
}

func (m *Memory) Write(ctx context.Context, path string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}

	v, err := m.prepare(value)
	if err != nil {
		return err
	}
	return m.set(splitPath(path), v)
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}

	prepared := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if len(splitPath(k)) == 0 {
			return fmt.Errorf("%w: empty update key", ErrInvalidPath)
		}
		p, err := m.prepare(v)
		if err != nil {
			return err
		}
		prepared[k] = p
	}
	base := splitPath(path)
	for k, v := range prepared {
		if err := m.set(append(append([]string{}, base...), splitPath(k)...), v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Push(ctx context.Context, path string, value interface{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	key := id.String()
	v, err := m.prepare(value)
	if err != nil {
		return "", err
	}
	if err := m.set(append(splitPath(path), key), v); err != nil {
		return "", err
	}
	return key, nil
}

func (m *Memory) Remove(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}

	return m.set(splitPath(path), nil)
}

// Transact holds the store lock across fn, so it never has to retry.
func (m *Memory) Transact(ctx context.Context, path string, fn TransactFn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}

	segments := splitPath(path)
	next, err := fn(clone(m.get(segments)))
	if err != nil {
		return err
	}
	v, err := m.prepare(next)
	if err != nil {
		return err
	}
	return m.set(segments, v)
}

func (m *Memory) OnConnectedChange(fn func(connected bool)) func() {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	online := m.online
	m.mu.Unlock()

	fn(online)
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Helpers

func (m *Memory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.online {
		return ErrUnavailable
	}
	return nil
}

func (m *Memory) listenerSnapshot() []func(bool) {
	fns := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// prepare normalizes value and resolves server timestamps.
func (m *Memory) prepare(value interface{}) (interface{}, error) {
	v, err := normalize(value)
	if err != nil {
		return nil, err
	}
	now := float64(m.clock().UnixMilli())
	return prune(resolveTimestamps(v, now)), nil
}

func (m *Memory) get(segments []string) interface{} {
	var node interface{} = m.root
	for _, s := range segments {
		switch n := node.(type) {
		case map[string]interface{}:
			node = n[s]
		case []interface{}:
			i, err := strconv.Atoi(s)
			if err != nil || i < 0 || i >= len(n) {
				return nil
			}
			node = n[i]
		default:
			return nil
		}
		if node == nil {
			return nil
		}
	}
	return node
}

func (m *Memory) set(segments []string, value interface{}) error {
	if len(segments) == 0 {
		root, ok := value.(map[string]interface{})
		if value != nil && !ok {
			return fmt.Errorf("%w: root must hold an object", ErrInvalidPath)
		}
		if root == nil {
			root = make(map[string]interface{})
		}
		m.root = root
		return nil
	}
	for _, s := range segments {
		if !ValidKey(s) {
			return fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
	}

	parents := make([]map[string]interface{}, 0, len(segments))
	node := m.root
	for _, s := range segments[:len(segments)-1] {
		parents = append(parents, node)
		child, ok := node[s].(map[string]interface{})
		if !ok {
			if value == nil {
				return nil
			}
			child = arrayToMap(node[s])
			node[s] = child
		}
		node = child
	}

	last := segments[len(segments)-1]
	if value == nil {
		delete(node, last)
	} else {
		node[last] = value
	}

	// Drop objects emptied by the write, like the Realtime Database does.
	for i := len(parents) - 1; i >= 0 && len(node) == 0; i-- {
		delete(parents[i], segments[i])
		node = parents[i]
	}
	return nil
}

func (m *Memory) children(segments []string) []Node {
	var nodes []Node
	switch n := m.get(segments).(type) {
	case map[string]interface{}:
		for k, v := range n {
			nodes = append(nodes, Node{Key: k, Value: v})
		}
	case []interface{}:
		for i, v := range n {
			if v != nil {
				nodes = append(nodes, Node{Key: strconv.Itoa(i), Value: v})
			}
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
	return nodes
}

func arrayToMap(v interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if arr, ok := v.([]interface{}); ok {
		for i, e := range arr {
			if e != nil {
				out[strconv.Itoa(i)] = e
			}
		}
	}
	return out
}

// normalize turns any JSON-marshalable value into maps, slices, float64, string and bool.
func normalize(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value is not storable: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func clone(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	}
	return v
}

func resolveTimestamps(v interface{}, now float64) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if len(t) == 1 && t[".sv"] == "timestamp" {
			return now
		}
		for k, e := range t {
			t[k] = resolveTimestamps(e, now)
		}
	case []interface{}:
		for i, e := range t {
			t[i] = resolveTimestamps(e, now)
		}
	}
	return v
}

func prune(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			if p := prune(e); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
	case []interface{}:
		if len(t) == 0 {
			return nil
		}
		for i, e := range t {
			t[i] = prune(e)
		}
	}
	return v
}

func fieldOf(v interface{}, field string) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m[field]
	}
	return nil
}

func equalValues(a, b interface{}) bool {
	return a != nil && compareValues(a, b) == 0
}

// compareValues orders values the way the Realtime Database orders children: missing, false,
// true, numbers, strings, then objects.
func compareValues(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func rank(v interface{}) int {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 2
		}
		return 1
	case float64:
		return 3
	case string:
		return 4
	}
	return 5
}
