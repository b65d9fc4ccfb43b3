package audio

import (
	"math/cmplx"
	"time"

	"github.com/mjibson/go-dsp/fft"
)

const (
	DefaultFrameSize        = 1024
	DefaultSilenceThreshold = 500
	DefaultOnsetRatio       = 1.75
	DefaultPauseThreshold   = time.Second
	DefaultMaxDuration      = 10 * time.Second
)

type MicrophoneConfig struct {
	SampleRate       int
	FrameSize        int
	SilenceThreshold int16
	OnsetRatio       float64
	PauseThreshold   time.Duration
	MaxDuration      time.Duration
}

func (c MicrophoneConfig) withDefaults() MicrophoneConfig {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.FrameSize == 0 {
		c.FrameSize = DefaultFrameSize
	}
	if c.SilenceThreshold == 0 {
		c.SilenceThreshold = DefaultSilenceThreshold
	}
	if c.OnsetRatio == 0 {
		c.OnsetRatio = DefaultOnsetRatio
	}
	if c.PauseThreshold == 0 {
		c.PauseThreshold = DefaultPauseThreshold
	}
	if c.MaxDuration == 0 {
		c.MaxDuration = DefaultMaxDuration
	}
	return c
}

// Segmenter cuts one utterance out of a stream of frames. Speech starts on a
// voiced frame whose spectral flux jumps by OnsetRatio over the previous
// frame, and ends after PauseThreshold of frames below SilenceThreshold.
type Segmenter struct {
	cfg          MicrophoneConfig
	pauseSamples int
	maxSamples   int

	flux     fluxDetector
	preRoll  *ringBuffer
	lastFlux float64
	heard    bool
	silent   int
	samples  []int16
}

func NewSegmenter(cfg MicrophoneConfig) *Segmenter {
	cfg = cfg.withDefaults()
	return &Segmenter{
		cfg:          cfg,
		pauseSamples: int(float64(cfg.SampleRate) * cfg.PauseThreshold.Seconds()),
		maxSamples:   int(float64(cfg.SampleRate) * cfg.MaxDuration.Seconds()),
		preRoll:      newRingBuffer(cfg.FrameSize),
	}
}

// Feed consumes one frame and reports whether the utterance is complete.
func (s *Segmenter) Feed(frame []int16) bool {
	flux := s.flux.Flux(frame)
	voiced := isVoiced(frame, s.cfg.SilenceThreshold)

	if !s.heard {
		if voiced && (s.lastFlux == 0 || flux >= s.lastFlux*s.cfg.OnsetRatio) {
			s.heard = true
			s.samples = append(s.samples, s.preRoll.Read()...)
			s.samples = append(s.samples, frame...)
		} else {
			s.preRoll.Add(frame)
		}
		s.lastFlux = flux
		return false
	}

	s.samples = append(s.samples, frame...)

	if voiced {
		s.silent = 0
	} else {
		s.silent += len(frame)
	}

	return s.silent >= s.pauseSamples || len(s.samples) >= s.maxSamples
}

func (s *Segmenter) hasOnset() bool {
	return s.heard
}

func (s *Segmenter) Samples() []int16 {
	return s.samples
}

// Reset readies the segmenter for the next utterance.
func (s *Segmenter) Reset() {
	s.flux = fluxDetector{}
	s.preRoll.Clear()
	s.lastFlux = 0
	s.heard = false
	s.silent = 0
	s.samples = nil
}

func isVoiced(frame []int16, threshold int16) bool {
	for _, sample := range frame {
		if sample > threshold || sample < -threshold {
			return true
		}
	}
	return false
}

// fluxDetector computes the positive spectral flux between consecutive frames.
type fluxDetector struct {
	prev []float64
}

func (f *fluxDetector) Flux(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}

	x := make([]float64, len(frame))
	for i, s := range frame {
		x[i] = float64(s) / 32768
	}

	spectrum := fft.FFTReal(x)
	bins := len(spectrum)/2 + 1

	mags := make([]float64, bins)
	var flux float64
	for k := 0; k < bins; k++ {
		mags[k] = cmplx.Abs(spectrum[k])

		var prev float64
		if k < len(f.prev) {
			prev = f.prev[k]
		}
		if d := mags[k] - prev; d > 0 {
			flux += d
		}
	}

	f.prev = mags
	return flux
}
