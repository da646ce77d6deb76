package speech

import (
	"context"
	"errors"
	"testing"

	"emovox/pkg/pcm"
	"emovox/pkg/stt"
)

type fakeEngine struct {
	text   string
	err    error
	calls  int
	closed bool
	gotLen int
}

func (f *fakeEngine) TranscribePCM(_ context.Context, pcm16k []float32, _ stt.Options) (stt.Result, error) {
	f.calls++
	f.gotLen = len(pcm16k)
	if f.err != nil {
		return stt.Result{}, f.err
	}
	return stt.Result{Text: f.text}, nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func clip() pcm.Clip {
	return pcm.Clip{Samples: make([]float32, 16000), SampleRate: 16000}
}

func TestTranscribeReturnsTrimmedPrimaryText(t *testing.T) {
	primary := &fakeEngine{text: "  I am fine  "}
	tr := NewTranscriber(primary, nil, stt.Options{})

	res := tr.Transcribe(context.Background(), clip())
	if res.Degraded() {
		t.Fatalf("Transcribe() degraded: %v", res.Reason)
	}
	if res.Value != "I am fine" {
		t.Fatalf("Value = %q, want %q", res.Value, "I am fine")
	}
}

func TestTranscribeEmptyTextIsSilentSentinel(t *testing.T) {
	tr := NewTranscriber(&fakeEngine{text: " "}, nil, stt.Options{})

	res := tr.Transcribe(context.Background(), clip())
	if res.Value != SilentInput {
		t.Fatalf("Value = %q, want %q", res.Value, SilentInput)
	}
	if !errors.Is(res.Reason, ErrNoSpeech) {
		t.Fatalf("Reason = %v, want ErrNoSpeech", res.Reason)
	}
}

func TestTranscribeOtherFailureIsErrorSentinelWithoutFallback(t *testing.T) {
	loads := 0
	tr := NewTranscriber(&fakeEngine{err: errors.New("bad language")}, func() (stt.Engine, error) {
		loads++
		return &fakeEngine{text: "unused"}, nil
	}, stt.Options{})

	res := tr.Transcribe(context.Background(), clip())
	if res.Value != TranscriptionError {
		t.Fatalf("Value = %q, want %q", res.Value, TranscriptionError)
	}
	if loads != 0 {
		t.Fatalf("fallback loads = %d, want 0", loads)
	}
}

func TestTranscribeExhaustionRetriesOnFallbackOnce(t *testing.T) {
	primary := &fakeEngine{err: errors.New("CUDA out of memory")}
	fallback := &fakeEngine{text: "hello there"}
	loads := 0
	fallbacks := 0
	tr := NewTranscriber(primary, func() (stt.Engine, error) {
		loads++
		return fallback, nil
	}, stt.Options{})
	tr.OnFallback = func(error) { fallbacks++ }

	res := tr.Transcribe(context.Background(), clip())
	if res.Degraded() || res.Value != "hello there" {
		t.Fatalf("Transcribe() = %+v, want Ok(hello there)", res)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fallback.calls)
	}
	if fallbacks != 1 {
		t.Fatalf("OnFallback calls = %d, want 1", fallbacks)
	}

	res = tr.Transcribe(context.Background(), clip())
	if res.Value != "hello there" {
		t.Fatalf("second Value = %q, want %q", res.Value, "hello there")
	}
	if loads != 1 {
		t.Fatalf("fallback loads = %d, want 1 (cached)", loads)
	}
	if fallback.calls != 2 {
		t.Fatalf("fallback calls = %d, want 2", fallback.calls)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fallback.closed {
		t.Fatalf("fallback engine not closed")
	}
}

func TestTranscribeFallbackFailureDegrades(t *testing.T) {
	tr := NewTranscriber(&fakeEngine{err: stt.ErrResourceExhausted}, func() (stt.Engine, error) {
		return &fakeEngine{err: stt.ErrResourceExhausted}, nil
	}, stt.Options{})

	res := tr.Transcribe(context.Background(), clip())
	if res.Value != TranscriptionError || !res.Degraded() {
		t.Fatalf("Transcribe() = %+v, want Degraded(%q)", res, TranscriptionError)
	}
}

func TestTranscribeFallbackSilentIsSilentSentinel(t *testing.T) {
	tr := NewTranscriber(&fakeEngine{err: stt.ErrResourceExhausted}, func() (stt.Engine, error) {
		return &fakeEngine{text: ""}, nil
	}, stt.Options{})

	res := tr.Transcribe(context.Background(), clip())
	if res.Value != SilentInput {
		t.Fatalf("Value = %q, want %q", res.Value, SilentInput)
	}
}

func TestTranscribeFallbackLoadFailureDegrades(t *testing.T) {
	tr := NewTranscriber(&fakeEngine{err: stt.ErrResourceExhausted}, func() (stt.Engine, error) {
		return nil, errors.New("model file missing")
	}, stt.Options{})

	res := tr.Transcribe(context.Background(), clip())
	if res.Value != TranscriptionError {
		t.Fatalf("Value = %q, want %q", res.Value, TranscriptionError)
	}
}

func TestTranscribeResamplesToModelRate(t *testing.T) {
	primary := &fakeEngine{text: "ok"}
	tr := NewTranscriber(primary, nil, stt.Options{})

	tr.Transcribe(context.Background(), pcm.Clip{Samples: make([]float32, 48000), SampleRate: 48000})
	if primary.gotLen != 16000 {
		t.Fatalf("engine got %d samples, want 16000", primary.gotLen)
	}
}
