package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"emovox/pkg/pcm"
)

// ErrDeviceUnavailable means no input device could be opened. A session
// cannot continue without one.
var ErrDeviceUnavailable = errors.New("audio: input device unavailable")

// Trigger blocks until the operator asks for a recording.
type Trigger interface {
	Wait(ctx context.Context) error
}

type Config struct {
	SampleRate int
	Channels   int
	Duration   time.Duration
	Trigger    Trigger
	OnStart    func() // cue played right before recording
	Ducker     Ducker // optional
}

// Ducker lowers other playback while the microphone is open.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, fade time.Duration) error
	UnduckOthers(ctx context.Context, fade time.Duration) error
}

// Recorder captures fixed-length clips from the default input device.
type Recorder struct {
	cfg Config
}

func NewRecorder(cfg Config) *Recorder {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 5 * time.Second
	}
	return &Recorder{cfg: cfg}
}

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if _, err := portaudio.DefaultInputDevice(); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture waits for the trigger, then blocks for exactly the configured
// duration while recording.
func (r *Recorder) Capture(ctx context.Context) (pcm.Clip, error) {
	if err := waitTrigger(ctx, r.cfg.Trigger); err != nil {
		return pcm.Clip{}, err
	}
	if r.cfg.OnStart != nil {
		r.cfg.OnStart()
	}

	if r.cfg.Ducker != nil {
		if err := r.cfg.Ducker.DuckOthers(ctx, 0.3, 150*time.Millisecond); err != nil {
			log.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			if err := r.cfg.Ducker.UnduckOthers(context.WithoutCancel(ctx), 300*time.Millisecond); err != nil {
				log.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}

	log.Info("Recording...", "duration", r.cfg.Duration)
	samples, err := r.record(ctx)
	if err != nil {
		return pcm.Clip{}, err
	}
	log.Info("Recording complete", "samples", len(samples), "rms", fmt.Sprintf("%.4f", pcm.RMS(samples)))

	return pcm.Clip{Samples: samples, SampleRate: r.cfg.SampleRate}, nil
}

func (r *Recorder) record(ctx context.Context) ([]float32, error) {
	const frameSize = 320 // 20ms @ 16 kHz

	ch := r.cfg.Channels
	total := int(r.cfg.Duration.Seconds()*float64(r.cfg.SampleRate)) * ch

	buf := make([]float32, frameSize*ch)
	out := make([]float32, 0, total)

	stream, err := portaudio.OpenDefaultStream(ch, 0, float64(r.cfg.SampleRate), frameSize, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: open stream: %w", ErrDeviceUnavailable, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("%w: start stream: %w", ErrDeviceUnavailable, err)
	}
	defer stream.Stop()

	for len(out) < total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			// Overflow only drops frames; keep recording.
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return nil, fmt.Errorf("%w: read: %w", ErrDeviceUnavailable, err)
		}
		out = append(out, buf...)
	}

	return pcm.DownmixInterleaved(out[:total], ch), nil
}

func waitTrigger(ctx context.Context, t Trigger) error {
	if t == nil {
		return ctx.Err()
	}
	return t.Wait(ctx)
}
