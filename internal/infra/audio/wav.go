package audio

import (
	"bytes"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"voice-commands/internal/application"
)

const wavScratchName = "utterance.wav"

// EncodeWAV wraps 16-bit mono PCM in a WAV container. The encoder needs a
// seekable writer to patch the header sizes, so it writes to an in-memory file.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	fs := afero.NewMemMapFs()

	f, err := fs.Create(wavScratchName)
	if err != nil {
		return nil, fmt.Errorf("creating scratch file: %w", err)
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("writing samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing wav: %w", err)
	}

	out, err := afero.ReadFile(fs, wavScratchName)
	if err != nil {
		return nil, fmt.Errorf("reading encoded wav: %w", err)
	}
	return out, nil
}

// ReadWAVFormat validates a WAV payload and returns its format.
func ReadWAVFormat(data []byte) (application.AudioFormat, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return application.AudioFormat{}, fmt.Errorf("%w: not a valid wav file", application.ErrUnsupportedAudio)
	}

	return application.AudioFormat{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}, nil
}
