package drift

import "testing"

func TestComputeAtOrAboveSetpointPassesThrough(t *testing.T) {
	c := New(3)
	for _, buffered := range []int{2400, 3000, 7999} {
		got := c.Compute(buffered, 800, 800, 48000, 60)
		if got.Ratio != 1.0 {
			t.Errorf("buffered %d: expected ratio 1.0, got %v", buffered, got.Ratio)
		}
		if got.OutputFrames != 800 {
			t.Errorf("buffered %d: expected 800 output frames, got %d", buffered, got.OutputFrames)
		}
		if got.Deficit != 0 {
			t.Errorf("buffered %d: expected no deficit, got %d", buffered, got.Deficit)
		}
	}
}

func TestComputeRatioMonotonicInDeficit(t *testing.T) {
	c := New(3)
	prev := 1.0
	// Walk the fill level down from just under the setpoint to empty.
	for buffered := 2399; buffered >= 0; buffered -= 800 {
		got := c.Compute(buffered, 800, 800, 48000, 60.0988)
		if got.Ratio <= 1.0 {
			t.Errorf("buffered %d: expected ratio > 1.0, got %v", buffered, got.Ratio)
		}
		if got.Ratio <= prev {
			t.Errorf("buffered %d: ratio %v did not increase over %v", buffered, got.Ratio, prev)
		}
		if got.OutputFrames != 800+got.Deficit {
			t.Errorf("buffered %d: expected %d output frames, got %d", buffered, 800+got.Deficit, got.OutputFrames)
		}
		prev = got.Ratio
	}
}

func TestComputeFormula(t *testing.T) {
	got := New(3).Compute(800, 800, 800, 48000, 60)
	if got.FramesQueued != 1 || got.Deficit != 2 {
		t.Fatalf("expected 1 queued / deficit 2, got %d / %d", got.FramesQueued, got.Deficit)
	}
	want := (48000.0 + 60.0*2) / 48000.0
	if got.Ratio != want {
		t.Errorf("expected ratio %v, got %v", want, got.Ratio)
	}
}

func TestComputeSmallBufferScenario(t *testing.T) {
	// Capacity of 8 single-sample frames, empty buffer.
	got := New(3).Compute(0, 1, 1, 60, 60)
	if got.FramesQueued != 0 || got.Deficit != 3 {
		t.Fatalf("expected 0 queued / deficit 3, got %d / %d", got.FramesQueued, got.Deficit)
	}
	if got.OutputFrames != 4 {
		t.Errorf("expected 4 output frames, got %d", got.OutputFrames)
	}
	if got.Ratio != 4.0 {
		t.Errorf("expected ratio 4.0, got %v", got.Ratio)
	}
}

func TestComputeDegenerateInputs(t *testing.T) {
	c := New(0)
	if c.Setpoint != DefaultSetpoint {
		t.Errorf("expected default setpoint, got %d", c.Setpoint)
	}
	got := c.Compute(0, 0, 100, 48000, 60)
	if got.Ratio != 1.0 || got.OutputFrames != 100 {
		t.Errorf("zero spf: expected pass-through, got %+v", got)
	}
}
