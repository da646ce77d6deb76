package pcm

import (
	"errors"
	"time"
)

// Clip is a captured mono recording, float32 samples in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
}

func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

func (c Clip) Empty() bool { return len(c.Samples) == 0 }

// Fit truncates or zero-pads samples to exactly n.
func Fit(samples []float32, n int) []float32 {
	if n <= 0 {
		return nil
	}
	if len(samples) >= n {
		return samples[:n]
	}
	out := make([]float32, n)
	copy(out, samples)
	return out
}

var errNoSamples = errors.New("clip has no samples")
