package pcm

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const (
	bitDepth  = 16
	formatPCM = 1
)

// EncodeWAV serializes the clip as a 16-bit PCM mono WAV file.
func EncodeWAV(c Clip) ([]byte, error) {
	if c.Empty() {
		return nil, errNoSamples
	}
	if c.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}

	// the encoder seeks back to patch chunk sizes on Close
	out := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(out, c.SampleRate, bitDepth, 1, formatPCM)

	data := make([]int, len(c.Samples))
	for i, s := range c.Samples {
		data[i] = int(math.Round(float64(clamp(s)) * math.MaxInt16))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: c.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("wav write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav close: %w", err)
	}
	raw, err := io.ReadAll(out.Reader())
	if err != nil {
		return nil, fmt.Errorf("wav read back: %w", err)
	}
	return raw, nil
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
