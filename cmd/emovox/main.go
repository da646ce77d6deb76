package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"emovox/internal/audio"
	"emovox/internal/bus"
	"emovox/internal/config"
	"emovox/internal/duck"
	"emovox/internal/ipc"
	"emovox/internal/llm"
	"emovox/internal/notify"
	"emovox/internal/observability"
	"emovox/internal/proxy"
	"emovox/internal/ser"
	"emovox/internal/session"
	"emovox/internal/speech"
	"emovox/internal/trigger"
	"emovox/internal/tts"
	"emovox/pkg/stt"
	"emovox/pkg/stt/whispercpp"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	mode := cli.StringP("mode", "m", "", "Operating mode (voice, face, fusion); overrides MODE")
	scriptPath := cli.StringP("script", "s", "", "YAML file overriding stage directions")
	triggerKind := cli.StringP("trigger", "t", "keyboard", "Recording trigger (keyboard, socket)")
	input := cli.StringP("input", "i", "", "Replay this audio file instead of the microphone")
	metricsAddr := cli.String("metrics", "", "Serve Prometheus metrics on this address")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for backend calls")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}
	if *mode != "" {
		os.Setenv("MODE", *mode)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	script := session.DefaultScript()
	if *scriptPath != "" {
		script, err = session.LoadScript(*scriptPath)
		if err != nil {
			log.Error("Failed to load script", "path", *scriptPath, "err", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: metricsMux(metrics), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", "addr", *metricsAddr, "err", err)
			}
		}()
		defer srv.Close()
		log.Debug("Serving metrics", "addr", *metricsAddr)
	}

	serHTTP, err := proxy.NewClient(*proxyAddr, cfg.SERTimeout)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}
	llmHTTP, err := proxy.NewClient(*proxyAddr, cfg.LLMTimeout)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}

	gate, closeGate, err := newTrigger(*triggerKind)
	if err != nil {
		log.Error("Failed to set up trigger", "trigger", *triggerKind, "err", err)
		os.Exit(1)
	}
	defer closeGate()

	capturer, closeCapture, err := newCapturer(cfg, *input, gate)
	if err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer closeCapture()

	log.Debug("Loaded capture")

	primary, err := whispercpp.NewTranscriber(cfg.PrimaryModel)
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.PrimaryModel, "err", err)
		os.Exit(1)
	}
	defer primary.Close()

	var fallback speech.Loader
	if cfg.FallbackModel != "" {
		fallback = func() (stt.Engine, error) {
			log.Info("Loading fallback model", "model", cfg.FallbackModel)
			t, err := whispercpp.NewTranscriber(cfg.FallbackModel)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	}
	transcriber := speech.NewTranscriber(primary, fallback, stt.Options{
		Language: cfg.Language,
		Threads:  cfg.Threads,
		BeamSize: cfg.BeamSize,
	})
	transcriber.OnFallback = metrics.Fallback
	defer transcriber.Close()

	log.Debug("Loaded whisper", "compute_type", cfg.ComputeType)

	observers := []session.Observer{metrics}
	if cfg.BusURL != "" {
		pub, err := bus.Dial(cfg.BusURL, 5*time.Second, nil)
		if err != nil {
			log.Warn("Bus unavailable, continuing without it", "url", cfg.BusURL, "err", err)
		} else {
			defer pub.Close()
			observers = append(observers, pub)
		}
	}

	director, err := session.NewDirector(session.Deps{
		Capture:     capturer,
		Transcriber: transcriber,
		Classifier:  ser.NewClient(cfg.SERURL, cfg.Vocabulary, serHTTP),
		Generator:   llm.NewGenerator(newBackend(cfg, llmHTTP), cfg.Persona),
		Speaker:     tts.Espeak{Language: cfg.TTSLanguage, Rate: cfg.TTSRate},
		Observers:   observers,
	}, script, cfg.Role)
	if err != nil {
		log.Error("Failed to build session", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful", "session", director.ID(), "mode", cfg.Mode)

	res, err := director.Run(ctx)
	if err != nil {
		log.Error("Session aborted", "session", director.ID(), "err", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}

func newTrigger(kind string) (audio.Trigger, func(), error) {
	switch kind {
	case "keyboard":
		k := trigger.NewKeyboard(os.Stdin, os.Stdout)
		return k, func() { k.Close() }, nil
	case "socket":
		s, err := trigger.NewSocket(ipc.DefaultSocketPath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Waiting for triggers", "socket", ipc.DefaultSocketPath)
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown trigger %q", kind)
	}
}

func newCapturer(cfg config.Config, input string, gate audio.Trigger) (session.Capturer, func(), error) {
	if input != "" {
		log.Info("Replaying input file", "path", input)
		return audio.NewReplay(input, cfg.SampleRate, cfg.Duration, gate), func() {}, nil
	}

	rc := audio.Config{
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		Duration:   cfg.Duration,
		Trigger:    gate,
	}
	if cfg.BeepPath != "" {
		rc.OnStart = func() {
			if err := notify.Beep(cfg.BeepPath); err != nil {
				log.Warn("Failed to play cue", "path", cfg.BeepPath, "err", err)
			}
		}
	}
	if cfg.AudioDuck {
		rc.Ducker = duck.New([]string{"emovox", "espeak"}, 5)
	}

	rec := audio.NewRecorder(rc)
	if err := rec.Init(); err != nil {
		return nil, nil, err
	}
	return rec, rec.Close, nil
}

func newBackend(cfg config.Config, httpClient *http.Client) llm.Backend {
	if cfg.LLMAPI == config.LLMOpenAI {
		return llm.NewOpenAI(cfg.LLMURL, cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMMaxTokens, httpClient)
	}
	return llm.NewReplyClient(cfg.LLMURL, httpClient)
}

func metricsMux(m *observability.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
