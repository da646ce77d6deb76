package stt

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsResourceExhausted(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":          {nil, false},
		"sentinel":     {fmt.Errorf("wrap: %w", ErrResourceExhausted), true},
		"cuda message": {errors.New("CUDA out of memory. Tried to allocate 20 MiB"), true},
		"ggml alloc":   {errors.New("ggml: failed to allocate buffer"), true},
		"other":        {errors.New("invalid language"), false},
	}
	for name, tc := range cases {
		if got := IsResourceExhausted(tc.err); got != tc.want {
			t.Fatalf("%s: IsResourceExhausted() = %v, want %v", name, got, tc.want)
		}
	}
}

func TestClassifyTagsExhaustionWithSentinel(t *testing.T) {
	err := Classify(errors.New("process: out of memory"))
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("Classify() = %v, want wrapped ErrResourceExhausted", err)
	}
	plain := errors.New("process: bad input")
	if got := Classify(plain); got != plain {
		t.Fatalf("Classify() = %v, want unchanged error", got)
	}
}
