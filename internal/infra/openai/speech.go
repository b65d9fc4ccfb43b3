package openai

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"voice-commands/internal/domain"
	"voice-commands/internal/infra"
)

// SpeechSampleRate is the rate of the raw PCM returned for the "pcm" format.
const SpeechSampleRate = 24000

const defaultSpeechVoice = goopenai.VoiceAlloy

var speechVoices = []goopenai.SpeechVoice{
	goopenai.VoiceAlloy,
	goopenai.VoiceEcho,
	goopenai.VoiceFable,
	goopenai.VoiceOnyx,
	goopenai.VoiceNova,
	goopenai.VoiceShimmer,
}

type SpeechClient struct {
	client *goopenai.Client
	model  goopenai.SpeechModel
	retry  infra.RetryConfig
}

func NewSpeechClient(apiKey string) *SpeechClient {
	return NewSpeechClientWithURL(apiKey, "")
}

func NewSpeechClientWithURL(apiKey, baseURL string) *SpeechClient {
	return &SpeechClient{
		client: newClient(apiKey, baseURL, 60*time.Second),
		model:  goopenai.TTSModel1,
		retry:  infra.DefaultRetryConfig(),
	}
}

func (c *SpeechClient) WithRetryConfig(cfg infra.RetryConfig) *SpeechClient {
	c.retry = cfg
	return c
}

// Voices lists the fixed OpenAI voice catalog.
func (c *SpeechClient) Voices(_ context.Context) ([]domain.Voice, error) {
	voices := make([]domain.Voice, 0, len(speechVoices))
	for _, v := range speechVoices {
		voices = append(voices, domain.Voice{ID: string(v), Name: string(v)})
	}
	return voices, nil
}

// Synthesize returns 16-bit mono PCM at SpeechSampleRate. Profile rate maps
// to the API speed relative to 200 words per minute.
func (c *SpeechClient) Synthesize(ctx context.Context, text string, profile domain.VoiceProfile) ([]int16, error) {
	voice := goopenai.SpeechVoice(profile.ID)
	if voice == "" {
		voice = defaultSpeechVoice
	}

	req := goopenai.CreateSpeechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: goopenai.SpeechResponseFormatPcm,
		Speed:          SpeedForRate(profile.Rate),
	}

	var pcm []byte
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		resp, err := c.client.CreateSpeech(ctx, req)
		if err != nil {
			return classify("speech", err)
		}
		defer resp.Close()

		pcm, err = io.ReadAll(resp)
		if err != nil {
			return fmt.Errorf("reading speech audio: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples, nil
}

func SpeedForRate(rate int) float64 {
	speed := float64(rate) / 200
	if speed < 0.25 {
		return 0.25
	}
	if speed > 4 {
		return 4
	}
	return speed
}
