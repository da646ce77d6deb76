// Package whispercpp runs whisper.cpp models behind the stt.Engine interface.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	bind "github.com/ggerganov/whisper.cpp/bindings/go"
	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"emovox/pkg/stt"
)

// Transcriber runs one whisper.cpp model. Load is expensive, so a Transcriber
// is created once and reused for every clip.
type Transcriber struct {
	name  string
	model whisper.Model
}

func NewTranscriber(modelPath string) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, stt.Classify(fmt.Errorf("load model %s: %w", modelPath, err))
	}
	return &Transcriber{name: modelPath, model: m}, nil
}

func (t *Transcriber) Name() string { return t.name }

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// TranscribePCM decodes mono 16 kHz float32 samples.
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm16k []float32, opt stt.Options) (stt.Result, error) {
	if t.model == nil {
		return stt.Result{}, errors.New("nil model")
	}
	if len(pcm16k) == 0 {
		return stt.Result{}, errors.New("no audio samples provided")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return stt.Result{}, stt.Classify(fmt.Errorf("new context: %w", err))
	}
	if err := configure(wctx, opt); err != nil {
		return stt.Result{}, err
	}

	if err := wctx.Process(pcm16k, nil, nil, nil); err != nil {
		return stt.Result{}, processError(err)
	}

	var (
		segs  []stt.Segment
		parts []string
	)
	for {
		if err := ctx.Err(); err != nil {
			return stt.Result{}, err
		}
		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("next segment: %w", err)
		}
		segs = append(segs, stt.Segment{
			Text:     s.Text,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
		})
		parts = append(parts, s.Text)
	}

	lang := wctx.DetectedLanguage()
	if lang == "" {
		lang = wctx.Language()
	}

	return stt.Result{
		Text:     strings.TrimSpace(strings.Join(parts, "")),
		Segments: segs,
		Language: lang,
	}, nil
}

// processError tags a failed whisper_full as resource exhaustion. The binding
// drops the native return code and reports one fixed sentinel, and on an
// already loaded model the failure left is the compute buffer allocation.
func processError(err error) error {
	if errors.Is(err, bind.ErrConversionFailed) || errors.Is(err, whisper.ErrProcessingFailed) {
		return fmt.Errorf("%w: process: %w", stt.ErrResourceExhausted, err)
	}
	return stt.Classify(fmt.Errorf("process: %w", err))
}

func configure(wctx whisper.Context, opt stt.Options) error {
	if opt.Language == "" {
		opt.Language = "auto"
	}
	if err := wctx.SetLanguage(opt.Language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(opt.TranslateToEn)

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.BeamSize > 1 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}
	if opt.Temperature != 0 {
		wctx.SetTemperature(opt.Temperature)
	}
	return nil
}
