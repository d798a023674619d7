package backoff

import (
	"testing"
	"time"
)

func TestNextDoublesAndClamps(t *testing.T) {
	b := New(10*time.Millisecond, 100*time.Millisecond, 0)

	d1 := b.Next()
	if d1 != 10*time.Millisecond {
		t.Fatalf("first delay = %v, want %v", d1, 10*time.Millisecond)
	}

	d2 := b.Next()
	if d2 != 20*time.Millisecond {
		t.Fatalf("second delay = %v, want %v", d2, 20*time.Millisecond)
	}

	for i := 0; i < 10; i++ {
		b.Next()
	}
	if got := b.Next(); got != 100*time.Millisecond {
		t.Fatalf("clamped delay = %v, want %v", got, 100*time.Millisecond)
	}
}

func TestResetRestartsAttemptCount(t *testing.T) {
	b := New(10*time.Millisecond, 1*time.Second, 0)
	b.Next()
	b.Next()
	b.Reset()
	if got := b.Attempt(); got != 1 {
		t.Fatalf("Attempt() after Reset = %d, want 1", got)
	}
	if got := b.Next(); got != 10*time.Millisecond {
		t.Fatalf("delay after Reset = %v, want %v", got, 10*time.Millisecond)
	}
}

func TestJitterWithinBounds(t *testing.T) {
	b := New(10*time.Millisecond, 10*time.Millisecond, 5*time.Millisecond)
	for i := 0; i < 50; i++ {
		d := b.Next()
		if d < 10*time.Millisecond || d > 15*time.Millisecond {
			t.Fatalf("delay %v out of bounds [10ms,15ms]", d)
		}
	}
}
