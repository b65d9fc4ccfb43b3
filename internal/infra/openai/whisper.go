package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"voice-commands/internal/application"
	"voice-commands/internal/infra"
)

type WhisperClient struct {
	client   *goopenai.Client
	language string
	retry    infra.RetryConfig
}

func NewWhisperClient(apiKey, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, "")
}

func NewWhisperClientWithURL(apiKey, language, baseURL string) *WhisperClient {
	return &WhisperClient{
		client:   newClient(apiKey, baseURL, 30*time.Second),
		language: language,
		retry:    infra.DefaultRetryConfig(),
	}
}

func (c *WhisperClient) WithRetryConfig(cfg infra.RetryConfig) *WhisperClient {
	c.retry = cfg
	return c
}

func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var text string

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		resp, err := c.client.CreateTranscription(ctx, goopenai.AudioRequest{
			Model:    goopenai.Whisper1,
			FilePath: "audio.wav",
			Reader:   bytes.NewReader(audio),
			Language: c.language,
		})
		if err != nil {
			return classify("whisper", err)
		}
		text = resp.Text
		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", application.ErrNotUnderstood
	}

	return text, nil
}

func newClient(apiKey, baseURL string, timeout time.Duration) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return goopenai.NewClientWithConfig(cfg)
}

// classify wraps API errors and marks non-retryable HTTP statuses permanent.
func classify(api string, err error) error {
	status := 0

	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	wrapped := fmt.Errorf("%s API error: %w", api, err)
	if status != 0 && !infra.IsRetryableHTTPStatus(status) {
		return infra.Permanent(wrapped)
	}
	return wrapped
}
