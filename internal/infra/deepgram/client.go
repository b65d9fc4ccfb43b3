package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gws "github.com/gorilla/websocket"

	"voice-commands/internal/application"
	"voice-commands/internal/infra"
)

const (
	defaultEndpoint = "wss://api.deepgram.com/v1/listen"
	chunkSize       = 8000
	closeStreamMsg  = `{"type":"CloseStream"}`
)

// Client transcribes one recorded utterance over Deepgram's streaming
// endpoint: the audio is sent in chunks, the stream is closed, and every
// final result is collected until the server hangs up.
type Client struct {
	apiKey   string
	endpoint string
	language string
	model    string
	dialer   *gws.Dialer
	timeout  time.Duration
	retry    infra.RetryConfig
}

func NewClient(apiKey, language, model string) *Client {
	return NewClientWithURL(apiKey, language, model, defaultEndpoint)
}

func NewClientWithURL(apiKey, language, model, endpoint string) *Client {
	if language == "" {
		language = "en-US"
	}
	if model == "" {
		model = "nova-2"
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		language: language,
		model:    model,
		dialer:   &gws.Dialer{HandshakeTimeout: 10 * time.Second},
		timeout:  30 * time.Second,
		retry:    infra.DefaultRetryConfig(),
	}
}

func (c *Client) WithRetryConfig(cfg infra.RetryConfig) *Client {
	c.retry = cfg
	return c
}

type message struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var transcript string

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		text, err := c.stream(ctx, audio)
		if err != nil {
			return err
		}
		transcript = text
		return nil
	})
	if retryErr != nil {
		return "", retryErr
	}

	if transcript == "" {
		return "", application.ErrNotUnderstood
	}
	return transcript, nil
}

func (c *Client) stream(ctx context.Context, audio []byte) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", infra.Permanent(fmt.Errorf("parsing endpoint: %w", err))
	}
	q := u.Query()
	q.Set("model", c.model)
	q.Set("language", c.language)
	u.RawQuery = q.Encode()

	header := http.Header{
		"Authorization": {"Token " + c.apiKey},
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && !infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return "", infra.Permanent(fmt.Errorf("deepgram handshake failed with status %d: %w", resp.StatusCode, err))
		}
		return "", fmt.Errorf("dialing deepgram: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", fmt.Errorf("setting read deadline: %w", err)
	}

	for start := 0; start < len(audio); start += chunkSize {
		end := min(start+chunkSize, len(audio))
		if err := conn.WriteMessage(gws.BinaryMessage, audio[start:end]); err != nil {
			return "", c.wrap(ctx, "sending audio", err)
		}
	}

	if err := conn.WriteMessage(gws.TextMessage, []byte(closeStreamMsg)); err != nil {
		return "", c.wrap(ctx, "closing stream", err)
	}

	var parts []string
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if gws.IsCloseError(err, gws.CloseNormalClosure) {
				break
			}
			return "", c.wrap(ctx, "reading transcript", err)
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Type == "Metadata" {
			break
		}

		if msg.IsFinal && len(msg.Channel.Alternatives) > 0 {
			if text := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript); text != "" {
				parts = append(parts, text)
			}
		}
	}

	return strings.Join(parts, " "), nil
}

func (c *Client) wrap(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: %w", op, err)
}
