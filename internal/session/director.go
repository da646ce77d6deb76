// Package session drives one scripted, emotion-aware voice interaction.
//
// Each stage of the script speaks (compose, generate, speak, log) and then
// listens (capture, transcribe, classify, log). Only a capture failure ends
// a session early; every other collaborator returns a degraded default.
package session

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/google/uuid"

	"emovox/internal/outcome"
	"emovox/internal/ser"
	"emovox/pkg/pcm"
)

type Capturer interface {
	Capture(ctx context.Context) (pcm.Clip, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, clip pcm.Clip) outcome.Result[string]
}

type Classifier interface {
	Classify(ctx context.Context, clip pcm.Clip) outcome.Result[ser.Emotion]
}

type Generator interface {
	Generate(ctx context.Context, prompt string) outcome.Result[string]
}

type Speaker interface {
	Speak(text string) error
}

// Observer receives progress notifications. Implementations must not block.
type Observer interface {
	StageStarted(sessionID, stage string)
	Listened(sessionID, stage, transcript string, emotion ser.Emotion)
	StageFinished(sessionID, stage string, d time.Duration)
	Degraded(boundary string, reason error)
}

// Boundary names reported to Observer.Degraded.
const (
	BoundaryTranscriber = "stt"
	BoundaryClassifier  = "ser"
	BoundaryGenerator   = "llm"
	BoundarySpeaker     = "tts"
)

// Result is the snapshot returned when the terminal stage completes.
type Result struct {
	SessionID        string  `json:"session_id"`
	Transcript       string  `json:"transcript"`
	SpeechEmotion    string  `json:"speech_emotion"`
	SpeechConfidence float64 `json:"speech_conf"`
	LLMResponse      string  `json:"llm_response"`
}

type Deps struct {
	Capture     Capturer
	Transcriber Transcriber
	Classifier  Classifier
	Generator   Generator
	Speaker     Speaker
	Observers   []Observer
}

type Director struct {
	id      string
	script  Script
	role    string
	deps    Deps
	history *History
}

// NewDirector returns a director for one session. An empty script runs
// DefaultScript; an empty role uses DefaultRole.
func NewDirector(deps Deps, script Script, role string) (*Director, error) {
	if deps.Capture == nil || deps.Transcriber == nil || deps.Classifier == nil || deps.Generator == nil {
		return nil, errors.New("session: capture, transcriber, classifier and generator are required")
	}
	if len(script) == 0 {
		script = DefaultScript()
	}
	if role == "" {
		role = DefaultRole
	}
	return &Director{
		id:      uuid.NewString(),
		script:  script,
		role:    role,
		deps:    deps,
		history: &History{},
	}, nil
}

func (d *Director) ID() string { return d.id }

// History exposes the session log; it stays valid after Run returns.
func (d *Director) History() *History { return d.history }

type listen struct {
	transcript string
	emotion    ser.Emotion
}

// Run executes every stage in order and returns after the terminal one.
func (d *Director) Run(ctx context.Context) (Result, error) {
	last := listen{emotion: ser.Emotion{Label: ser.Neutral, Confidence: 1}}
	var reply string

	log.Info("Session started", "id", d.id, "stages", len(d.script))

	for _, act := range d.script {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("stage %s: %w", act.Stage, err)
		}

		start := time.Now()
		d.notify(func(o Observer) { o.StageStarted(d.id, act.Stage.String()) })
		log.Info("Stage", "stage", act.Stage.String())

		emotion := ser.Neutral
		if act.CarryEmotion {
			emotion = last.emotion.Label
		}
		reply = d.speak(ctx, act, emotion)

		heard, err := d.listen(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("stage %s: %w", act.Stage, err)
		}
		last = heard
		d.notify(func(o Observer) { o.Listened(d.id, act.Stage.String(), heard.transcript, heard.emotion) })
		d.notify(func(o Observer) { o.StageFinished(d.id, act.Stage.String(), time.Since(start)) })
	}

	log.Info("Session finished", "id", d.id, "turns", d.history.Len())

	return Result{
		SessionID:        d.id,
		Transcript:       last.transcript,
		SpeechEmotion:    last.emotion.Label,
		SpeechConfidence: last.emotion.Confidence,
		LLMResponse:      reply,
	}, nil
}

// speak always logs exactly one assistant turn. Placeholder replies are
// logged but not voiced.
func (d *Director) speak(ctx context.Context, act Activity, emotion string) string {
	prompt := Compose(act.Direction, emotion, d.history.Digest(), d.role)

	res := d.deps.Generator.Generate(ctx, prompt)
	if res.Degraded() {
		d.degraded(BoundaryGenerator, res.Reason)
	}
	log.Info("LLM response", "text", res.Value)

	if !res.Degraded() && d.deps.Speaker != nil {
		if err := d.deps.Speaker.Speak(res.Value); err != nil {
			log.Error("Failed to voice out", "err", err)
			d.degraded(BoundarySpeaker, err)
		}
	}

	d.history.Append(Turn{Role: RoleAssistant, Text: res.Value})
	return res.Value
}

// listen fails only when no audio could be captured.
func (d *Director) listen(ctx context.Context) (listen, error) {
	clip, err := d.deps.Capture.Capture(ctx)
	if err != nil {
		return listen{}, fmt.Errorf("capture: %w", err)
	}
	log.Debug("Recorded", "samples", len(clip.Samples), "duration", clip.Duration())

	text := d.deps.Transcriber.Transcribe(ctx, clip)
	if text.Degraded() {
		d.degraded(BoundaryTranscriber, text.Reason)
	}
	emo := d.deps.Classifier.Classify(ctx, clip)
	if emo.Degraded() {
		d.degraded(BoundaryClassifier, emo.Reason)
	}

	log.Info("SER", "emotion", emo.Value.Label, "confidence", fmt.Sprintf("%.2f", emo.Value.Confidence))
	log.Info("Transcript", "text", text.Value)

	d.history.Append(Turn{Role: RoleUser, Text: text.Value})
	return listen{transcript: text.Value, emotion: emo.Value}, nil
}

func (d *Director) degraded(boundary string, reason error) {
	log.Warn("Degraded", "boundary", boundary, "reason", reason)
	d.notify(func(o Observer) { o.Degraded(boundary, reason) })
}

func (d *Director) notify(f func(Observer)) {
	for _, o := range d.deps.Observers {
		if o != nil {
			f(o)
		}
	}
}
