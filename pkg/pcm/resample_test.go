package pcm

import "testing"

func TestResampleHalvesLength(t *testing.T) {
	in := make([]float32, 32000)
	out := Resample(in, 32000, 16000)
	if len(out) != 16000 {
		t.Fatalf("len(Resample) = %d, want 16000", len(out))
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, 0.2}
	out := Resample(in, 16000, 16000)
	if &out[0] != &in[0] {
		t.Fatalf("Resample() copied input for equal rates")
	}
}

func TestDownmixInterleaved(t *testing.T) {
	out := DownmixInterleaved([]float32{1, 0, 0.5, 0.5}, 2)
	if len(out) != 2 || out[0] != 0.5 || out[1] != 0.5 {
		t.Fatalf("DownmixInterleaved() = %v, want [0.5 0.5]", out)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS([]float32{0.5, -0.5, 0.5, -0.5}); got != 0.5 {
		t.Fatalf("RMS() = %v, want 0.5", got)
	}
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v, want 0", got)
	}
}
