//go:build !portaudio
// +build !portaudio

package tts

import (
	"context"
	"fmt"
)

// PortAudioPlayer stub when portaudio is not available
type PortAudioPlayer struct{}

func NewPlayer() (*PortAudioPlayer, error) {
	return nil, fmt.Errorf("audio playback not available: rebuild with -tags portaudio")
}

func (p *PortAudioPlayer) Play(_ context.Context, _ []int16, _ int) error {
	return fmt.Errorf("audio playback not available")
}

func (p *PortAudioPlayer) Close() error {
	return nil
}
