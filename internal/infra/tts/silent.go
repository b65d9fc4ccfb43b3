package tts

import (
	"context"
	"log/slog"

	"voice-commands/internal/domain"
)

// SilentSpeaker logs instead of speaking, for headless runs.
type SilentSpeaker struct {
	logger *slog.Logger
}

func NewSilentSpeaker(logger *slog.Logger) *SilentSpeaker {
	return &SilentSpeaker{logger: logger}
}

func (s *SilentSpeaker) Say(_ context.Context, text string) error {
	s.logger.Debug("speech output disabled", "text", text)
	return nil
}

func (s *SilentSpeaker) Voices(_ context.Context) ([]domain.Voice, error) {
	return nil, nil
}

func (s *SilentSpeaker) UseVoice(_ string) {}

func (s *SilentSpeaker) Close() error {
	return nil
}
