// Package speech turns captured clips into transcripts. A primary whisper
// model runs first; when it runs out of memory the same clip is retried once
// on a heavier fallback model that is loaded on first use and then kept.
package speech

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"emovox/internal/outcome"
	"emovox/pkg/pcm"
	"emovox/pkg/stt"
)

const (
	SilentInput        = "[Unintelligible or silent input]"
	TranscriptionError = "[transcription error]"

	modelRate = 16000
)

var ErrNoSpeech = errors.New("speech: no speech recognized")

// Loader builds the fallback engine.
type Loader func() (stt.Engine, error)

type Transcriber struct {
	primary  stt.Engine
	fallback lazyEngine
	opt      stt.Options

	// OnFallback, when set, is called each time the fallback model is tried.
	OnFallback func(reason error)
}

func NewTranscriber(primary stt.Engine, fallback Loader, opt stt.Options) *Transcriber {
	return &Transcriber{
		primary:  primary,
		fallback: lazyEngine{load: fallback},
		opt:      opt,
	}
}

// Transcribe never fails: real text is Ok, both sentinels come back Degraded.
func (t *Transcriber) Transcribe(ctx context.Context, clip pcm.Clip) outcome.Result[string] {
	samples := pcm.Resample(clip.Samples, clip.SampleRate, modelRate)

	text, err := t.run(ctx, t.primary, samples)
	if err == nil {
		return settle(text)
	}
	if !stt.IsResourceExhausted(err) {
		log.Error("Transcription failed", "err", err)
		return outcome.Degraded(TranscriptionError, err)
	}

	log.Warn("Primary model exhausted, retrying on fallback", "err", err)
	if t.OnFallback != nil {
		t.OnFallback(err)
	}

	engine, lerr := t.fallback.get()
	if lerr != nil {
		log.Error("Failed to load fallback model", "err", lerr)
		return outcome.Degraded(TranscriptionError, fmt.Errorf("load fallback: %w", lerr))
	}
	text, err = t.run(ctx, engine, samples)
	if err != nil {
		log.Error("Fallback transcription failed", "err", err)
		return outcome.Degraded(TranscriptionError, fmt.Errorf("fallback: %w", err))
	}
	return settle(text)
}

// Close releases the fallback model if it was ever loaded. The primary
// engine belongs to the caller.
func (t *Transcriber) Close() error {
	return t.fallback.close()
}

func (t *Transcriber) run(ctx context.Context, e stt.Engine, samples []float32) (string, error) {
	if e == nil {
		return "", errors.New("no engine")
	}
	res, err := e.TranscribePCM(ctx, samples, t.opt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func settle(text string) outcome.Result[string] {
	text = strings.TrimSpace(text)
	if text == "" {
		return outcome.Degraded(SilentInput, ErrNoSpeech)
	}
	return outcome.Ok(text)
}

type lazyEngine struct {
	load   Loader
	engine stt.Engine
}

func (l *lazyEngine) get() (stt.Engine, error) {
	if l.engine != nil {
		return l.engine, nil
	}
	if l.load == nil {
		return nil, errors.New("no fallback model configured")
	}
	e, err := l.load()
	if err != nil {
		return nil, err
	}
	l.engine = e
	return e, nil
}

func (l *lazyEngine) close() error {
	if l.engine == nil {
		return nil
	}
	err := l.engine.Close()
	l.engine = nil
	return err
}
