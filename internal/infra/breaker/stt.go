package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"voice-commands/internal/application"
)

type Settings struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// SpeechToText guards a transcription backend with a circuit breaker. Only
// service failures count: an utterance that was not understood means the
// service is healthy.
type SpeechToText struct {
	inner application.SpeechToText
	cb    *gobreaker.CircuitBreaker
}

func NewSpeechToText(inner application.SpeechToText, settings Settings, logger *slog.Logger) *SpeechToText {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("recognition circuit changed state", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &SpeechToText{inner: inner, cb: cb}
}

func (s *SpeechToText) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var passthrough error

	out, err := s.cb.Execute(func() (interface{}, error) {
		text, err := s.inner.Transcribe(ctx, audio)
		switch {
		case errors.Is(err, application.ErrNotUnderstood),
			errors.Is(err, application.ErrUnsupportedAudio),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			passthrough = err
			return "", nil
		case err != nil:
			return nil, err
		}
		return text, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("speech service circuit open: %w", err)
	}
	if err != nil {
		return "", err
	}
	if passthrough != nil {
		return "", passthrough
	}

	return out.(string), nil
}

func (s *SpeechToText) State() string {
	return s.cb.State().String()
}
