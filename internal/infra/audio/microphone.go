//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

// MicrophoneSource records one utterance per NextCommand from the default
// input device. The stream only runs while a command is being captured so
// the assistant's own prompts are not recorded.
type MicrophoneSource struct {
	cfg    MicrophoneConfig
	seg    *Segmenter
	stream *portaudio.Stream
	buffer []int16
	logger *slog.Logger
}

func NewMicrophoneSource(cfg MicrophoneConfig, logger *slog.Logger) *MicrophoneSource {
	cfg = cfg.withDefaults()
	return &MicrophoneSource{
		cfg:    cfg,
		seg:    NewSegmenter(cfg),
		logger: logger,
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	m.buffer = make([]int16, m.cfg.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.cfg.SampleRate), len(m.buffer), m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	m.stream = stream

	m.logger.Info("microphone ready", "sample_rate", m.cfg.SampleRate, "pause_threshold", m.cfg.PauseThreshold)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		if err := m.stream.Close(); err != nil {
			m.logger.Warn("closing microphone stream", "error", err)
		}
		m.stream = nil
	}
	return portaudio.Terminate()
}

func (m *MicrophoneSource) NextCommand(ctx context.Context) ([]byte, error) {
	if m.stream == nil {
		return nil, fmt.Errorf("microphone not started")
	}

	if err := m.stream.Start(); err != nil {
		return nil, fmt.Errorf("starting stream: %w", err)
	}
	defer m.stream.Stop()

	m.seg.Reset()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := m.stream.Read(); err != nil && err != portaudio.InputOverflowed {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}

		frame := make([]int16, len(m.buffer))
		copy(frame, m.buffer)

		if m.seg.Feed(frame) {
			break
		}
	}

	samples := m.seg.Samples()
	m.logger.Debug("captured utterance", "samples", len(samples))

	return EncodeWAV(samples, m.cfg.SampleRate)
}
