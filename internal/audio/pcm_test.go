package audio

import (
	"math"
	"testing"
)

func TestFloatToShortSaturates(t *testing.T) {
	tests := []struct {
		name        string
		in          float32
		want        int16
		wantClipped bool
	}{
		{"zero", 0, 0, false},
		{"half", 0.5, 16384, false},
		{"negative_half", -0.5, -16384, false},
		{"exact_max", 32767.0 / 32768.0, 32767, false},
		{"unit", 1.0, 32767, true},
		{"over", 1.7, 32767, true},
		{"exact_min", -1.0, -32768, false},
		{"under", -3.2, -32768, true},
		{"huge", float32(math.MaxFloat32), 32767, true},
		{"huge_negative", -float32(math.MaxFloat32), -32768, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, clipped := FloatToShort(tc.in)
			if got != tc.want {
				t.Errorf("FloatToShort(%v) = %d, want %d", tc.in, got, tc.want)
			}
			if clipped != tc.wantClipped {
				t.Errorf("FloatToShort(%v) clipped = %v, want %v", tc.in, clipped, tc.wantClipped)
			}
		})
	}
}

func TestShortToFloatScale(t *testing.T) {
	in := []int16{0, 16384, -32768, 32767}
	out := ShortToFloat(in, make([]float32, 8))
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	want := []float32{0, 0.5, -1, 32767.0 / 32768.0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], out[i])
		}
	}

	// Round trip is exact for in-range values.
	for i, f := range out {
		s, clipped := FloatToShort(f)
		if s != in[i] || clipped {
			t.Errorf("round trip %d: expected %d, got %d (clipped=%v)", i, in[i], s, clipped)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234}
	b := Int16ToBytesInto(samples, make([]byte, len(samples)*2))
	if b[2] != 0x01 || b[3] != 0x00 {
		t.Errorf("expected little-endian encoding, got % x", b[2:4])
	}

	back := BytesToInt16Into(append(b, 0x7f), make([]int16, len(samples)))
	if len(back) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(back))
	}
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], back[i])
		}
	}
}

func TestOscillatorContinuity(t *testing.T) {
	o := NewOscillator(1000, 48000, 2)
	whole := make([]int16, 96)
	NewOscillator(1000, 48000, 2).FillInto(whole)

	first := make([]int16, 48)
	second := make([]int16, 48)
	o.FillInto(first)
	o.FillInto(second)

	joined := append(first, second...)
	for i := range whole {
		if joined[i] != whole[i] {
			t.Fatalf("sample %d: block boundary changed output (%d vs %d)", i, joined[i], whole[i])
		}
	}
	for i := 0; i < len(whole); i += 2 {
		if whole[i] != whole[i+1] {
			t.Fatalf("frame %d: channels differ", i/2)
		}
	}
}
