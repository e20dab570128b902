package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests advance time manually.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(maxRequests int, period time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(maxRequests, period)
	l.now = clock.now
	return l, clock
}

func TestAdmitSequence(t *testing.T) {
	l, _ := newTestLimiter(2, 60*time.Second)

	got := []bool{l.Admit("u1"), l.Admit("u1"), l.Admit("u1")}
	want := []bool{true, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("admit %d = %v, want %v", i+1, got[i], want[i])
		}
	}
}

func TestWindowExpiry(t *testing.T) {
	l, clock := newTestLimiter(2, 60*time.Second)

	l.Admit("u1")
	l.Admit("u1")
	if l.Admit("u1") {
		t.Fatal("third admit within window should be rejected")
	}

	clock.advance(61 * time.Second)
	if !l.Admit("u1") {
		t.Error("admit after window expiry should succeed")
	}
}

func TestRejectionNotRecorded(t *testing.T) {
	l, clock := newTestLimiter(1, 60*time.Second)

	l.Admit("u1")
	// Hammer the limit; rejections must not push the window forward.
	for i := 0; i < 10; i++ {
		clock.advance(time.Second)
		if l.Admit("u1") {
			t.Fatalf("admit %d should be rejected", i)
		}
	}

	// 61s after the only admitted request, a new one gets through.
	clock.advance(51 * time.Second)
	if !l.Admit("u1") {
		t.Error("admit after original window expired should succeed")
	}
}

func TestUsersIsolated(t *testing.T) {
	l, _ := newTestLimiter(1, 60*time.Second)

	if !l.Admit("u1") {
		t.Fatal("first admit for u1")
	}
	if !l.Admit("u2") {
		t.Error("u2 should have an independent window")
	}
	if l.Admit("u1") {
		t.Error("u1 second admit should be rejected")
	}
}

func TestPartialExpiry(t *testing.T) {
	l, clock := newTestLimiter(3, 60*time.Second)

	l.Admit("u1") // t=0
	clock.advance(30 * time.Second)
	l.Admit("u1") // t=30
	l.Admit("u1") // t=30
	if l.Admit("u1") {
		t.Fatal("fourth admit should be rejected")
	}

	// t=61: only the first timestamp has aged out, freeing one slot.
	clock.advance(31 * time.Second)
	if !l.Admit("u1") {
		t.Error("one slot should have freed up")
	}
	if l.Admit("u1") {
		t.Error("window should be full again")
	}
}

func TestConcurrentSameUser(t *testing.T) {
	l := New(5, 10*time.Minute)

	var wg sync.WaitGroup
	admitted := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admitted <- l.Admit("u1")
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	if count != 5 {
		t.Errorf("admitted %d concurrent requests, want exactly 5", count)
	}
}
