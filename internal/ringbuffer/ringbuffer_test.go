package ringbuffer

import (
	"math/rand"
	"testing"
)

func TestNewCapacity(t *testing.T) {
	rb := New(DefaultCapacity)
	if rb.Cap() != DefaultCapacity {
		t.Errorf("expected capacity %d, got %d", DefaultCapacity, rb.Cap())
	}
	if rb.Free() != DefaultCapacity-1 {
		t.Errorf("expected %d free slots, got %d", DefaultCapacity-1, rb.Free())
	}
}

func TestPopEmpty(t *testing.T) {
	rb := New(8)
	if s := rb.Pop(); s != 0 {
		t.Errorf("expected silence from empty buffer, got %d", s)
	}
	if rb.Len() != 0 {
		t.Errorf("expected count 0 after empty pop, got %d", rb.Len())
	}
}

func TestFillAndDrainFIFO(t *testing.T) {
	rb := New(8)
	for i := 0; i < 7; i++ {
		if !rb.Push(int16(i + 1)) {
			t.Fatalf("push %d rejected", i)
		}
	}
	if rb.Len() != 7 {
		t.Fatalf("expected 7 buffered, got %d", rb.Len())
	}
	if rb.Push(99) {
		t.Error("push into full buffer should be rejected")
	}
	if rb.Len() != 7 {
		t.Errorf("rejected push changed count to %d", rb.Len())
	}

	for i := 0; i < 7; i++ {
		if s := rb.Pop(); s != int16(i+1) {
			t.Errorf("pop %d: expected %d, got %d", i, i+1, s)
		}
	}
	if rb.Len() != 0 {
		t.Errorf("expected empty buffer, got %d", rb.Len())
	}
}

func TestWrapAround(t *testing.T) {
	rb := New(4)

	// Walk the indices around the ring several times.
	next := int16(0)
	want := int16(0)
	for round := 0; round < 10; round++ {
		for rb.Free() > 0 {
			rb.Push(next)
			next++
		}
		for i := 0; i < 2; i++ {
			if s := rb.Pop(); s != want {
				t.Fatalf("round %d: expected %d, got %d", round, want, s)
			}
			want++
		}
	}
}

func TestCountInvariantRandomOps(t *testing.T) {
	rb := New(16)
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 10000; i++ {
		if r.Intn(2) == 0 {
			rb.Push(int16(i))
		} else {
			rb.Pop()
		}
		if rb.Len() < 0 || rb.Len() > rb.Cap()-1 {
			t.Fatalf("op %d: count %d out of range [0, %d]", i, rb.Len(), rb.Cap()-1)
		}
		if got := (rb.end - rb.start + rb.capacity) % rb.capacity; got != rb.count {
			t.Fatalf("op %d: count %d disagrees with indices (%d)", i, rb.count, got)
		}
	}
}

func TestReset(t *testing.T) {
	rb := New(8)
	rb.Push(1)
	rb.Push(2)
	rb.Reset()
	if rb.Len() != 0 {
		t.Errorf("expected 0 after reset, got %d", rb.Len())
	}
	if s := rb.Pop(); s != 0 {
		t.Errorf("expected silence after reset, got %d", s)
	}
}
