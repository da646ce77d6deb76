// Package audioconv decodes pre-recorded clips into mono PCM.
package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"

	"emovox/pkg/pcm"
)

// Options controls decoding. SampleRate is the target rate (default 16 kHz);
// MaxSamples truncates the result when positive.
type Options struct {
	SampleRate int
	MaxSamples int
}

func (o Options) rate() int {
	if o.SampleRate <= 0 {
		return 16000
	}
	return o.SampleRate
}

// finish downmixes, resamples and truncates decoded interleaved samples.
func (o Options) finish(x []float32, channels, rate int) []float32 {
	x = pcm.DownmixInterleaved(x, channels)
	x = pcm.Resample(x, rate, o.rate())
	if o.MaxSamples > 0 && len(x) > o.MaxSamples {
		x = x[:o.MaxSamples]
	}
	return x
}

// DecodeFile decodes a wav, mp3 or ogg (vorbis/opus) file into mono float32
// samples at the target rate. Unknown extensions are sniffed by magic bytes.
func DecodeFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	kind := strings.ToLower(filepath.Ext(path))
	if kind != ".wav" && kind != ".mp3" && kind != ".ogg" && kind != ".oga" {
		magic, _ := bufio.NewReader(f).Peek(4)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		switch string(magic) {
		case "RIFF":
			kind = ".wav"
		case "OggS":
			kind = ".ogg"
		default:
			return nil, fmt.Errorf("unsupported format: %s (supported: wav/mp3/ogg-vorbis/ogg-opus)", kind)
		}
	}

	switch kind {
	case ".wav":
		return decodeWAV(f, opt)
	case ".mp3":
		return decodeMP3(f, opt)
	default:
		x, verr := decodeOggVorbis(f, opt)
		if verr == nil {
			return x, nil
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		x, oerr := decodeOggOpus(f, opt)
		if oerr != nil {
			return nil, fmt.Errorf("cannot decode ogg as vorbis (%v) or opus: %w", verr, oerr)
		}
		return x, nil
	}
}

func decodeWAV(r io.ReadSeeker, opt Options) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	channels, rate := 1, 44100
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}
	return opt.finish(intsToFloat32(buf.Data, depth), channels, rate), nil
}

// go-mp3 always yields 16-bit little-endian stereo.
func decodeMP3(r io.Reader, opt Options) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}
	frames := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &frames); err != nil {
		return nil, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	return opt.finish(int16sToFloat32(frames), 2, rate), nil
}

func decodeOggVorbis(r io.Reader, opt Options) ([]float32, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}
	return opt.finish(samples, format.Channels, format.SampleRate), nil
}

// Opus always decodes at 48 kHz.
func decodeOggOpus(r io.ReadSeeker, opt Options) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	channels := dec.ChannelCount()
	if channels <= 0 {
		channels = 1
	}

	var (
		all   []float32
		chunk = make([]int16, 24_000*channels)
	)
	for {
		n, err := dec.Read(chunk) // n is samples per channel
		if n > 0 {
			all = append(all, int16sToFloat32(chunk[:n*channels])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(all) == 0 {
		return nil, errors.New("empty opus stream")
	}
	return opt.finish(all, channels, 48000), nil
}

func intsToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		x := float64(v) * scale
		if x > 1 {
			x = 1
		} else if x < -1 {
			x = -1
		}
		out[i] = float32(x)
	}
	return out
}

func int16sToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768
	}
	return out
}
