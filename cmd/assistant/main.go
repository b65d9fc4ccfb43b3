package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"voice-commands/config"
	"voice-commands/internal/application"
	"voice-commands/internal/domain"
	"voice-commands/internal/infra/audio"
	"voice-commands/internal/infra/breaker"
	"voice-commands/internal/infra/browser"
	"voice-commands/internal/infra/deepgram"
	"voice-commands/internal/infra/google"
	"voice-commands/internal/infra/openai"
	"voice-commands/internal/infra/pushover"
	"voice-commands/internal/infra/tts"
)

// voiceEngine is a Speaker that can list its voices and switch to the
// resolved one before the loop starts.
type voiceEngine interface {
	application.Speaker
	application.VoiceCatalog
	UseVoice(id string)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	speaker, err := createSpeaker(cfg, logger)
	if err != nil {
		logger.Error("starting voice engine", "error", err)
		os.Exit(1)
	}

	profile, err := application.ResolveVoice(ctx, speaker, cfg.VoiceProfile(), os.Stdout, logger)
	if err != nil {
		logger.Warn("voice catalog unavailable, using configured voice", "error", err)
	}
	speaker.UseVoice(profile.ID)

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
	} else {
		notifier = &application.NoopNotifier{}
	}

	assistant := application.NewAssistant(
		createAudioSource(cfg.Audio, logger),
		createSpeechToText(cfg.Recognition, logger),
		speaker,
		browser.NewLauncher(cfg.Browser.Command, logger),
		application.NewDispatcher(domain.DefaultTriggers()),
		notifier,
		logger,
	).WithRetryDelay(cfg.Listen.RetryDelay)

	logger.Info("starting voice commands",
		"audio_source", cfg.Audio.Source,
		"recognition", cfg.Recognition.Provider,
		"voice_engine", cfg.Voice.Engine,
	)

	runErr := assistant.Run(ctx)

	logger.Info("stopping voice engine")
	if err := speaker.Close(); err != nil {
		logger.Warn("closing voice engine", "error", err)
	}
	logger.Info("done")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("assistant error", "error", runErr)
		os.Exit(1)
	}
}

func createAudioSource(cfg config.AudioConfig, logger *slog.Logger) application.AudioSource {
	switch cfg.Source {
	case "http":
		return audio.NewHTTPSource(cfg.HTTPAddr, cfg.AuthToken, logger)
	case "file":
		return audio.NewFileSource(afero.NewOsFs(), cfg.FileDir)
	default:
		return audio.NewMicrophoneSource(audio.MicrophoneConfig{
			SampleRate:       cfg.SampleRate,
			FrameSize:        cfg.FrameSize,
			SilenceThreshold: int16(cfg.SilenceThreshold),
			OnsetRatio:       cfg.OnsetRatio,
			PauseThreshold:   cfg.PauseThreshold,
			MaxDuration:      cfg.MaxDuration,
		}, logger)
	}
}

func createSpeechToText(cfg config.RecognitionConfig, logger *slog.Logger) application.SpeechToText {
	var stt application.SpeechToText
	switch cfg.Provider {
	case "google":
		if cfg.BaseURL != "" {
			stt = google.NewSpeechClientWithURL(cfg.APIKey, cfg.Language, cfg.BaseURL)
		} else {
			stt = google.NewSpeechClient(cfg.APIKey, cfg.Language)
		}
	case "deepgram":
		if cfg.BaseURL != "" {
			stt = deepgram.NewClientWithURL(cfg.APIKey, cfg.Language, cfg.Model, cfg.BaseURL)
		} else {
			stt = deepgram.NewClient(cfg.APIKey, cfg.Language, cfg.Model)
		}
	case "whisper":
		if cfg.BaseURL != "" {
			stt = openai.NewWhisperClientWithURL(cfg.APIKey, cfg.Language, cfg.BaseURL)
		} else {
			stt = openai.NewWhisperClient(cfg.APIKey, cfg.Language)
		}
	default:
		return &application.NoopSTT{}
	}

	return breaker.NewSpeechToText(stt, breaker.Settings{
		Name:             cfg.Provider,
		FailureThreshold: cfg.FailureThreshold,
		OpenTimeout:      cfg.OpenTimeout,
	}, logger)
}

func createSpeaker(cfg *config.Config, logger *slog.Logger) (voiceEngine, error) {
	profile := cfg.VoiceProfile()

	switch tts.Engine(cfg.Voice.Engine) {
	case tts.EngineEspeak, tts.EngineSay:
		return tts.NewExecSpeaker(tts.Engine(cfg.Voice.Engine), cfg.Voice.Binary, profile, logger)
	case tts.EngineOpenAI:
		player, err := tts.NewPlayer()
		if err != nil {
			return nil, err
		}
		client := openai.NewSpeechClient(cfg.SpeechAPIKey())
		return tts.NewSynthSpeaker(client, player, openai.SpeechSampleRate, profile, logger)
	case tts.EngineNone:
		return tts.NewSilentSpeaker(logger), nil
	default:
		return nil, fmt.Errorf("unknown voice engine: %s", cfg.Voice.Engine)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
