package timeutil

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_After(t *testing.T) {
	clock := RealClock{}

	select {
	case <-clock.After(10 * time.Millisecond):
	case <-time.After(time.Second):
		t.Error("After did not fire")
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)

	if !clock.Now().Equal(fixedTime) {
		t.Errorf("got %v, want %v", clock.Now(), fixedTime)
	}

	newTime := fixedTime.Add(time.Hour)
	clock.Set(newTime)
	if !clock.Now().Equal(newTime) {
		t.Errorf("got %v, want %v", clock.Now(), newTime)
	}
}

func TestMockClock_AdvanceFiresWaiters(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)

	short := clock.After(time.Second)
	long := clock.After(time.Minute)
	if got := clock.Waiters(); got != 2 {
		t.Fatalf("Waiters() = %d, want 2", got)
	}

	clock.Advance(2 * time.Second)
	select {
	case got := <-short:
		if !got.Equal(start.Add(2 * time.Second)) {
			t.Errorf("short fired at %v", got)
		}
	default:
		t.Fatal("short waiter did not fire")
	}
	select {
	case <-long:
		t.Fatal("long waiter fired early")
	default:
	}
	if got := clock.Waiters(); got != 1 {
		t.Errorf("Waiters() = %d, want 1", got)
	}
	if got := clock.Since(start); got != 2*time.Second {
		t.Errorf("Since() = %v, want 2s", got)
	}
}

func TestMockClock_AfterNonPositive(t *testing.T) {
	clock := NewMockClock(time.Time{})

	select {
	case <-clock.After(0):
	default:
		t.Error("After(0) should fire immediately")
	}
	if clock.Waiters() != 0 {
		t.Error("After(0) should not register a waiter")
	}
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 16*time.Second)

	var got []time.Duration
	for range 13 {
		got = append(got, b.Next())
	}
	want := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
		160 * time.Millisecond,
		320 * time.Millisecond,
		640 * time.Millisecond,
		1280 * time.Millisecond,
		2560 * time.Millisecond,
		5120 * time.Millisecond,
		10240 * time.Millisecond,
		16 * time.Second,
		16 * time.Second,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("backoff sequence mismatch (-want +got):\n%s", diff)
	}

	b.Reset()
	if d := b.Next(); d != 10*time.Millisecond {
		t.Errorf("after Reset Next() = %v, want 10ms", d)
	}
}
