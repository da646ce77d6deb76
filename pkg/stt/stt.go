package stt

import "context"

type Options struct {
	Language      string // e.g. "auto", "en"
	TranslateToEn bool
	Threads       int // <=0 => NumCPU()
	BeamSize      int // <=1 = greedy decoding
	InitialPrompt string
	Temperature   float32 // 0 = default
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string // detected or forced
}

// Engine is a loaded speech-to-text model. pcm16k must be mono @ 16 kHz,
// float32 in [-1, 1].
type Engine interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error)
	Close() error
}
