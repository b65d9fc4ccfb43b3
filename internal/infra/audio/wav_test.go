package audio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-commands/internal/application"
	"voice-commands/internal/infra/audio"
)

func TestEncodeWAV(t *testing.T) {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16(i % 128)
	}

	data, err := audio.EncodeWAV(samples, 16000)
	require.NoError(t, err)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Len(t, data, 44+len(samples)*2)

	format, err := audio.ReadWAVFormat(data)
	require.NoError(t, err)
	assert.Equal(t, 16000, format.SampleRate)
	assert.Equal(t, 1, format.Channels)
	assert.Equal(t, 16, format.BitDepth)
}

func TestReadWAVFormat_Invalid(t *testing.T) {
	_, err := audio.ReadWAVFormat([]byte("definitely not audio"))
	assert.ErrorIs(t, err, application.ErrUnsupportedAudio)
}
