//go:build portaudio
// +build portaudio

package tts

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const playbackFrames = 1024

type PortAudioPlayer struct{}

func NewPlayer() (*PortAudioPlayer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	return &PortAudioPlayer{}, nil
}

func (p *PortAudioPlayer) Play(ctx context.Context, samples []int16, sampleRate int) error {
	frame := make([]int16, playbackFrames)

	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(frame), frame)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting output stream: %w", err)
	}
	defer stream.Stop()

	for offset := 0; offset < len(samples); offset += len(frame) {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(frame, samples[offset:])
		for i := n; i < len(frame); i++ {
			frame[i] = 0
		}

		if err := stream.Write(); err != nil && err != portaudio.OutputUnderflowed {
			return fmt.Errorf("writing to output stream: %w", err)
		}
	}

	return nil
}

func (p *PortAudioPlayer) Close() error {
	return portaudio.Terminate()
}
