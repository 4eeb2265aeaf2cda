package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// racingRef is a location whose value is changed by another writer between the read and the
// write of the next lostRaces transactions.
type racingRef struct {
	mu        sync.Mutex
	value     interface{}
	version   int
	lostRaces int
	reads     int
	writes    int
}

func (f *racingRef) GetWithETag(ctx context.Context, v interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	*(v.(*interface{})) = f.value
	return fmt.Sprint(f.version), nil
}

func (f *racingRef) SetIfUnchanged(ctx context.Context, etag string, v interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lostRaces > 0 {
		f.lostRaces--
		f.version++
		f.value = fmt.Sprintf("concurrent-%d", f.version)
	}
	if etag != fmt.Sprint(f.version) {
		return false, nil
	}
	f.writes++
	f.version++
	f.value = v
	return true, nil
}

func TestTransactRetriesLostRaces(t *testing.T) {
	ref := &racingRef{value: "initial", lostRaces: 3}

	var seen []interface{}
	err := transact(context.Background(), ref, "subjects/s1", func(current interface{}) (interface{}, error) {
		seen = append(seen, current)
		return fmt.Sprint(current) + "+1", nil
	})
	if err != nil {
		t.Fatalf("Expected the transaction to succeed, got %v", err)
	}

	if ref.reads != 4 || len(seen) != 4 {
		t.Errorf("Expected 4 attempts, got %d reads and %d calls", ref.reads, len(seen))
	}
	if ref.writes != 1 {
		t.Errorf("Expected exactly one write, got %d", ref.writes)
	}
	// The last attempt must build on the value left by the concurrent writer.
	if ref.value != "concurrent-3+1" {
		t.Errorf("Expected the final value to be concurrent-3+1, got %v", ref.value)
	}
}

func TestTransactGivesUp(t *testing.T) {
	ref := &racingRef{value: "initial", lostRaces: MaxTransactRetries}

	calls := 0
	err := transact(context.Background(), ref, "admins", func(current interface{}) (interface{}, error) {
		calls++
		return "mine", nil
	})
	if !errors.Is(err, ErrTooManyRetries) {
		t.Errorf("Expected ErrTooManyRetries, got %v", err)
	}
	if calls != MaxTransactRetries || ref.writes != 0 {
		t.Errorf("Expected %d attempts and no write, got %d attempts and %d writes", MaxTransactRetries, calls, ref.writes)
	}
}

func TestTransactAbort(t *testing.T) {
	ref := &racingRef{value: "initial"}
	abort := errors.New("duplicate")

	err := transact(context.Background(), ref, "admins", func(current interface{}) (interface{}, error) {
		return nil, abort
	})
	if !errors.Is(err, abort) {
		t.Errorf("Expected the abort error, got %v", err)
	}
	if ref.writes != 0 || ref.value != "initial" {
		t.Errorf("Expected an aborted transaction to leave the value alone, got %v", ref.value)
	}
}
