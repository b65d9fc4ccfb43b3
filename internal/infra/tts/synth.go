package tts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"voice-commands/internal/domain"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, profile domain.VoiceProfile) ([]int16, error)
	Voices(ctx context.Context) ([]domain.Voice, error)
}

// Player plays 16-bit mono PCM and blocks until playback ends.
type Player interface {
	Play(ctx context.Context, samples []int16, sampleRate int) error
	Close() error
}

// SynthSpeaker speaks through a remote synthesizer and a local player.
type SynthSpeaker struct {
	synth      Synthesizer
	player     Player
	profile    domain.VoiceProfile
	sampleRate int
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewSynthSpeaker(synth Synthesizer, player Player, sampleRate int, profile domain.VoiceProfile, logger *slog.Logger) (*SynthSpeaker, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &SynthSpeaker{
		synth:      synth,
		player:     player,
		profile:    profile,
		sampleRate: sampleRate,
		logger:     logger,
	}, nil
}

func (s *SynthSpeaker) UseVoice(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.ID = id
}

func (s *SynthSpeaker) Say(ctx context.Context, text string) error {
	s.mu.Lock()
	closed := s.closed
	profile := s.profile
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	s.logger.Debug("speaking", "engine", EngineOpenAI, "text", text)
	samples, err := s.synth.Synthesize(ctx, text, profile)
	if err != nil {
		return fmt.Errorf("synthesizing speech: %w", err)
	}

	if err := s.player.Play(ctx, applyVolume(samples, profile.Volume), s.sampleRate); err != nil {
		return fmt.Errorf("playing speech: %w", err)
	}
	return nil
}

func (s *SynthSpeaker) Voices(ctx context.Context) ([]domain.Voice, error) {
	return s.synth.Voices(ctx)
}

func (s *SynthSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.player.Close()
}

func applyVolume(samples []int16, volume float64) []int16 {
	if volume >= 1 {
		return samples
	}
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = int16(float64(s) * volume)
	}
	return out
}
