package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"time"

	"emovox/pkg/audioconv"
	"emovox/pkg/pcm"
)

// Replay stands in for the microphone by serving the same decoded file on
// every capture, trimmed or padded to the configured duration.
type Replay struct {
	path       string
	sampleRate int
	duration   time.Duration
	trigger    Trigger
	clip       *pcm.Clip
}

func NewReplay(path string, sampleRate int, duration time.Duration, trigger Trigger) *Replay {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Replay{path: path, sampleRate: sampleRate, duration: duration, trigger: trigger}
}

func (r *Replay) Capture(ctx context.Context) (pcm.Clip, error) {
	if err := waitTrigger(ctx, r.trigger); err != nil {
		return pcm.Clip{}, err
	}
	if r.clip != nil {
		return *r.clip, nil
	}

	samples, err := audioconv.DecodeFile(ctx, r.path, audioconv.Options{SampleRate: r.sampleRate})
	if err != nil {
		return pcm.Clip{}, fmt.Errorf("%w: replay %s: %w", ErrDeviceUnavailable, r.path, err)
	}
	if r.duration > 0 {
		samples = pcm.Fit(samples, int(r.duration.Seconds()*float64(r.sampleRate)))
	}
	clip := pcm.Clip{Samples: samples, SampleRate: r.sampleRate}
	r.clip = &clip

	log.Info("Replaying clip", "path", r.path, "duration", clip.Duration())
	return clip, nil
}
