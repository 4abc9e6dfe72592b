package rate

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	interval := 10 * time.Millisecond
	r := NewLimiter(Config{Burst: 1, Interval: interval, Expiry: time.Hour})
	defer r.Stop()

	tooshort := 1 * time.Millisecond

	client := "user-1"
	expected := []bool{true, false, true, true, false, false}
	waits := []time.Duration{tooshort, interval, interval, tooshort, tooshort, tooshort}
	for i, exp := range expected {
		if got := r.Allow(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	r := NewLimiter(Config{Burst: 1, Interval: time.Hour, Expiry: time.Hour})
	defer r.Stop()

	if !r.Allow("a") {
		t.Fatal("first call for a should pass")
	}
	if r.Allow("a") {
		t.Fatal("second call for a should be limited")
	}
	if !r.Allow("b") {
		t.Fatal("b must not share a's bucket")
	}
}

func TestLimiterEvict(t *testing.T) {
	r := NewLimiter(Config{Burst: 1, Interval: time.Hour, Expiry: time.Minute})
	defer r.Stop()

	r.Allow("a")
	r.evict(time.Now().Add(2 * time.Minute))

	r.mu.Lock()
	n := len(r.clients)
	r.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected idle client to be evicted, %d left", n)
	}

	if !r.Allow("a") {
		t.Fatal("evicted client should start with a fresh bucket")
	}
}
