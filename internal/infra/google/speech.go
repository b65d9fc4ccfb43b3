package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-commands/internal/application"
	"voice-commands/internal/infra"
	"voice-commands/internal/infra/audio"
)

// SpeechClient transcribes WAV audio with the Cloud Speech-to-Text v1 REST API.
type SpeechClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	language   string
	retry      infra.RetryConfig
}

func NewSpeechClient(apiKey, language string) *SpeechClient {
	return NewSpeechClientWithURL(apiKey, language, "https://speech.googleapis.com/v1")
}

func NewSpeechClientWithURL(apiKey, language, baseURL string) *SpeechClient {
	if language == "" {
		language = "en-US"
	}
	return &SpeechClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		language:   language,
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *SpeechClient) WithRetryConfig(cfg infra.RetryConfig) *SpeechClient {
	c.retry = cfg
	return c
}

type recognitionConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
	MaxAlternatives int    `json:"maxAlternatives"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type request struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type response struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *SpeechClient) Transcribe(ctx context.Context, wav []byte) (string, error) {
	format, err := audio.ReadWAVFormat(wav)
	if err != nil {
		return "", fmt.Errorf("google speech needs wav audio: %w", err)
	}

	reqBody := request{
		Config: recognitionConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: format.SampleRate,
			LanguageCode:    c.language,
			MaxAlternatives: 1,
		},
		Audio: recognitionAudio{
			Content: base64.StdEncoding.EncodeToString(wav),
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech:recognize", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return fmt.Errorf("google speech API error %d: %s (retryable)", resp.StatusCode, string(respBody))
			}
			return infra.Permanent(fmt.Errorf("google speech API error %d: %s", resp.StatusCode, string(respBody)))
		}

		result = response{}
		if err = json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	if result.Error != nil {
		return "", fmt.Errorf("google speech error: %s", result.Error.Message)
	}

	var parts []string
	for _, r := range result.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}

	if len(parts) == 0 {
		return "", application.ErrNotUnderstood
	}

	return strings.Join(parts, " "), nil
}
