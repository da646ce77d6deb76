package whispercpp

import (
	"errors"
	"fmt"
	"testing"

	bind "github.com/ggerganov/whisper.cpp/bindings/go"
	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"emovox/pkg/stt"
)

func TestProcessErrorMapsBindingSentinels(t *testing.T) {
	for _, err := range []error{
		bind.ErrConversionFailed,
		whisper.ErrProcessingFailed,
		fmt.Errorf("whisper_full: %w", bind.ErrConversionFailed),
	} {
		got := processError(err)
		if !stt.IsResourceExhausted(got) {
			t.Fatalf("processError(%v) = %v, want resource exhausted", err, got)
		}
		if !errors.Is(got, err) {
			t.Fatalf("processError(%v) lost the cause: %v", err, got)
		}
	}
}

func TestProcessErrorKeepsOtherFailures(t *testing.T) {
	cause := errors.New("invalid language")
	got := processError(cause)
	if stt.IsResourceExhausted(got) {
		t.Fatalf("processError(%v) = %v, want not exhausted", cause, got)
	}
	if !errors.Is(got, cause) {
		t.Fatalf("processError(%v) lost the cause: %v", cause, got)
	}
}

func TestProcessErrorKeepsMessageMarkers(t *testing.T) {
	got := processError(errors.New("ggml: failed to allocate compute buffer"))
	if !stt.IsResourceExhausted(got) {
		t.Fatalf("processError() = %v, want resource exhausted", got)
	}
}

func TestNewTranscriberRejectsEmptyPath(t *testing.T) {
	if _, err := NewTranscriber(""); err == nil {
		t.Fatal("NewTranscriber(\"\") expected error")
	}
}
