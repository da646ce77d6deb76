// Package config reads the runtime settings of an emovox session from the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"emovox/internal/llm"
	"emovox/internal/ser"
	"emovox/internal/session"
)

// Modes recognised by the session. Only ModeVoice is built.
const (
	ModeVoice  = "voice"
	ModeFace   = "face"
	ModeFusion = "fusion"
)

// LLM backend shapes.
const (
	LLMReply  = "reply"
	LLMOpenAI = "openai"
)

// DefaultReplyURL is the reply-shaped chat relay; it forwards to the model
// server on :8000, which answers in the choices shape.
const DefaultReplyURL = "http://localhost:8002/chat"

var ErrModeUnavailable = errors.New("mode not available in this build")

type Config struct {
	Mode string

	SampleRate int
	Channels   int
	Duration   time.Duration

	Vocabulary []string

	Language      string
	BeamSize      int
	Threads       int
	ComputeType   string
	PrimaryModel  string
	FallbackModel string

	SERURL     string
	SERTimeout time.Duration

	LLMAPI       string
	LLMURL       string
	LLMModel     string
	LLMMaxTokens int
	LLMTimeout   time.Duration
	OpenAIAPIKey string

	Persona string
	Role    string

	TTSLanguage string
	TTSRate     int

	BeepPath  string
	AudioDuck bool
	BusURL    string

	MetricsNamespace string
}

// Load reads environment variables and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		Mode:             strings.ToLower(envOrDefault("MODE", ModeVoice)),
		SampleRate:       16000,
		Channels:         1,
		Duration:         5 * time.Second,
		Vocabulary:       append([]string(nil), ser.DefaultVocabulary...),
		Language:         envOrDefault("STT_LANGUAGE", "en"),
		BeamSize:         1,
		Threads:          0,
		ComputeType:      strings.ToLower(envOrDefault("STT_COMPUTE_TYPE", "float16")),
		PrimaryModel:     envOrDefault("STT_PRIMARY_MODEL", "models/ggml-small.en.bin"),
		FallbackModel:    envOrDefault("STT_FALLBACK_MODEL", "models/ggml-medium.en.bin"),
		SERURL:           envOrDefault("SER_URL", "http://localhost:8001/ser"),
		SERTimeout:       30 * time.Second,
		LLMAPI:           strings.ToLower(envOrDefault("LLM_API", LLMReply)),
		LLMURL:           envOrDefault("LLM_URL", DefaultReplyURL),
		LLMModel:         envOrDefault("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:     512,
		LLMTimeout:       60 * time.Second,
		OpenAIAPIKey:     trimmedEnv("OPENAI_API_KEY"),
		Persona:          envOrDefault("LLM_PERSONA", llm.SystemPersona),
		Role:             envOrDefault("AGENT_ROLE", session.DefaultRole),
		TTSLanguage:      envOrDefault("TTS_LANGUAGE", "en"),
		TTSRate:          160,
		BeepPath:         trimmedEnv("BEEP_PATH"),
		BusURL:           trimmedEnv("BUS_URL"),
		MetricsNamespace: envOrDefault("METRICS_NAMESPACE", "emovox"),
	}
	if v := trimmedEnv("EMOTIONS"); v != "" {
		cfg.Vocabulary = splitList(v)
	}

	var err error
	if cfg.SampleRate, err = intFromEnv("SAMPLE_RATE", cfg.SampleRate); err != nil {
		return Config{}, err
	}
	if cfg.Channels, err = intFromEnv("CHANNELS", cfg.Channels); err != nil {
		return Config{}, err
	}
	if cfg.Duration, err = durationFromEnv("RECORD_DURATION", cfg.Duration); err != nil {
		return Config{}, err
	}
	if cfg.BeamSize, err = intFromEnv("STT_BEAM_SIZE", cfg.BeamSize); err != nil {
		return Config{}, err
	}
	if cfg.Threads, err = intFromEnv("STT_THREADS", cfg.Threads); err != nil {
		return Config{}, err
	}
	if cfg.SERTimeout, err = durationFromEnv("SER_TIMEOUT", cfg.SERTimeout); err != nil {
		return Config{}, err
	}
	if cfg.LLMMaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens); err != nil {
		return Config{}, err
	}
	if cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout); err != nil {
		return Config{}, err
	}
	if cfg.TTSRate, err = intFromEnv("TTS_RATE", cfg.TTSRate); err != nil {
		return Config{}, err
	}
	if cfg.AudioDuck, err = boolFromEnv("AUDIO_DUCK", cfg.AudioDuck); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeVoice:
	case ModeFace, ModeFusion:
		return fmt.Errorf("MODE %q: %w", c.Mode, ErrModeUnavailable)
	default:
		return fmt.Errorf("MODE must be one of voice, face, fusion, got %q", c.Mode)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive")
	}
	if c.Channels <= 0 {
		return fmt.Errorf("CHANNELS must be positive")
	}
	if c.Duration < 500*time.Millisecond {
		return fmt.Errorf("RECORD_DURATION must be at least 500ms")
	}
	if len(c.Vocabulary) == 0 || !slices.Contains(c.Vocabulary, ser.Neutral) {
		return fmt.Errorf("EMOTIONS must include neutral")
	}
	if c.BeamSize <= 0 {
		return fmt.Errorf("STT_BEAM_SIZE must be positive")
	}
	if c.Threads < 0 {
		return fmt.Errorf("STT_THREADS must be >= 0")
	}
	switch c.ComputeType {
	case "int8", "float16", "float32":
	default:
		return fmt.Errorf("STT_COMPUTE_TYPE must be int8, float16 or float32, got %q", c.ComputeType)
	}
	if c.PrimaryModel == "" {
		return fmt.Errorf("STT_PRIMARY_MODEL is required")
	}
	switch c.LLMAPI {
	case LLMReply:
	case LLMOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_API=openai")
		}
	default:
		return fmt.Errorf("LLM_API must be reply or openai, got %q", c.LLMAPI)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.SERTimeout <= 0 || c.LLMTimeout <= 0 {
		return fmt.Errorf("SER_TIMEOUT and LLM_TIMEOUT must be positive")
	}
	if c.BusURL != "" && !strings.HasPrefix(c.BusURL, "ws://") && !strings.HasPrefix(c.BusURL, "wss://") {
		return fmt.Errorf("BUS_URL must be a ws:// or wss:// url")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := trimmedEnv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: invalid boolean %q", key, v)
	}
}
