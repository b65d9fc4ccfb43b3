package application

import (
	"context"
	"errors"
	"fmt"

	"voice-commands/internal/domain"
)

// ErrNotUnderstood is returned by a SpeechToText when the audio holds no
// recognisable speech. The loop re-prompts and listens again.
var ErrNotUnderstood = errors.New("utterance not understood")

// ErrUnsupportedAudio marks a capture the recognizer cannot decode. It is a
// property of the input, not of the service.
var ErrUnsupportedAudio = errors.New("unsupported audio format")

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// NoopSTT is a no-op speech-to-text client for text-only sources (e.g., the HTTP /text endpoint).
// It returns an error if called with actual audio data.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "", fmt.Errorf("speech-to-text not configured: set recognition.provider to enable audio transcription")
}

// Speaker turns text into audible speech. Say blocks until playback finishes.
type Speaker interface {
	Say(ctx context.Context, text string) error
	Close() error
}

type VoiceCatalog interface {
	Voices(ctx context.Context) ([]domain.Voice, error)
}
