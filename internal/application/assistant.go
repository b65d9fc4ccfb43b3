package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"voice-commands/internal/domain"
)

const (
	msgSpeakNow         = "Speak now"
	msgNotRecognized    = "Command is not recognized. Try again"
	msgRecognizedPrefix = "Recognized command: "
	msgListeningAgain   = "Now i'm listening again"
	msgServiceDown      = "Speech service is unavailable"
	msgBrowserFailed    = "I could not open the browser"
	defaultRetryDelay   = 2 * time.Second
)

var errStopRequested = errors.New("stop requested")

type Assistant struct {
	audio      AudioSource
	stt        SpeechToText
	speaker    Speaker
	browser    Browser
	dispatcher *Dispatcher
	notifier   Notifier
	logger     *slog.Logger

	out        io.Writer
	retryDelay time.Duration
}

func NewAssistant(
	audio AudioSource,
	stt SpeechToText,
	speaker Speaker,
	browser Browser,
	dispatcher *Dispatcher,
	notifier Notifier,
	logger *slog.Logger,
) *Assistant {
	return &Assistant{
		audio:      audio,
		stt:        stt,
		speaker:    speaker,
		browser:    browser,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		out:        os.Stdout,
		retryDelay: defaultRetryDelay,
	}
}

// WithOutput sets where action messages are printed.
func (a *Assistant) WithOutput(w io.Writer) *Assistant {
	a.out = w
	return a
}

// WithRetryDelay sets the pause after a capture or service failure.
func (a *Assistant) WithRetryDelay(d time.Duration) *Assistant {
	a.retryDelay = d
	return a
}

// Run listens for commands until the stop phrase is heard (returns nil) or
// ctx is cancelled (returns ctx.Err()).
func (a *Assistant) Run(ctx context.Context) error {
	a.logger.Info("starting audio source", "source", a.audio.Name())
	if err := a.audio.Start(ctx); err != nil {
		return fmt.Errorf("starting audio: %w", err)
	}
	defer a.audio.Stop()

	a.logger.Info("assistant ready, listening for commands", "phrases", a.dispatcher.Phrases())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := a.processOneCommand(ctx)
		switch {
		case errors.Is(err, errStopRequested):
			a.logger.Info("stop phrase heard, exiting")
			return nil
		case isCancellation(err):
			return err
		case err != nil:
			a.logger.Error("processing command", "error", err)
			if !sleep(ctx, a.retryDelay) {
				return ctx.Err()
			}
			continue
		}

		a.say(ctx, msgListeningAgain)
	}
}

func (a *Assistant) processOneCommand(ctx context.Context) error {
	logger := a.logger.With("utterance_id", uuid.NewString())

	command, err := a.listen(ctx, logger)
	if err != nil {
		return err
	}

	trigger, ok := a.dispatcher.Match(command)
	if !ok {
		logger.Info("no trigger matched, ignoring", "command", command)
		return nil
	}

	logger.Info("matched trigger", "phrase", trigger.Phrase, "kind", trigger.Kind)

	return a.perform(ctx, trigger, logger)
}

// listen prompts until one utterance is understood and returns it lower-cased.
func (a *Assistant) listen(ctx context.Context, logger *slog.Logger) (string, error) {
	for attempt := 1; ; attempt++ {
		a.say(ctx, msgSpeakNow)

		logger.Info("listening", "attempt", attempt)
		data, err := a.audio.NextCommand(ctx)
		if err != nil {
			return "", fmt.Errorf("capturing audio: %w", err)
		}

		text, err := a.recognize(ctx, data, logger)
		switch {
		case errors.Is(err, ErrNotUnderstood):
			logger.Info("command not understood, retrying", "attempt", attempt)
			a.say(ctx, msgNotRecognized)
			continue
		case errors.Is(err, ErrUnsupportedAudio):
			logger.Warn("capture could not be decoded, retrying", "attempt", attempt, "error", err)
			a.say(ctx, msgNotRecognized)
			continue
		}
		if err != nil {
			if !isCancellation(err) {
				a.say(ctx, msgServiceDown)
			}
			return "", fmt.Errorf("transcribing: %w", err)
		}

		logger.Info("recognized command", "command", text, "attempts", attempt)
		a.say(ctx, msgRecognizedPrefix+text)
		return text, nil
	}
}

func (a *Assistant) recognize(ctx context.Context, data []byte, logger *slog.Logger) (string, error) {
	if len(data) == 0 {
		return "", ErrNotUnderstood
	}

	var text string
	if directText, isText := isTextCommand(data); isText {
		logger.Info("received text command directly", "text", directText)
		text = directText
	} else {
		logger.Info("received audio", "bytes", len(data))

		var err error
		text, err = a.stt.Transcribe(ctx, data)
		if err != nil {
			return "", err
		}
	}

	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", ErrNotUnderstood
	}
	return text, nil
}

func isTextCommand(data []byte) (string, bool) {
	if len(data) > len(domain.TextCommandPrefix) && string(data[:len(domain.TextCommandPrefix)]) == domain.TextCommandPrefix {
		return string(data[len(domain.TextCommandPrefix):]), true
	}
	return "", false
}

func (a *Assistant) perform(ctx context.Context, t domain.Trigger, logger *slog.Logger) error {
	switch t.Kind {
	case domain.ActionOpenURL:
		a.announce(ctx, t.Message)
		a.open(ctx, t.URL, t.Message, logger)
		return nil

	case domain.ActionSay:
		a.announce(ctx, t.Message)
		a.notify(ctx, t.Message, logger)
		return nil

	case domain.ActionStop:
		a.announce(ctx, t.Message)
		return errStopRequested

	case domain.ActionSearch:
		a.announce(ctx, t.Message)
		query, err := a.listen(ctx, logger)
		if err != nil {
			return fmt.Errorf("listening for follow-up: %w", err)
		}
		a.open(ctx, t.SearchURL(query), t.Phrase+": "+query, logger)
		return nil

	default:
		return fmt.Errorf("unknown action kind: %s", t.Kind)
	}
}

func (a *Assistant) open(ctx context.Context, url, summary string, logger *slog.Logger) {
	logger.Info("opening browser", "url", url)
	if err := a.browser.Open(url); err != nil {
		logger.Error("opening browser", "error", err, "url", url)
		a.say(ctx, msgBrowserFailed)
		return
	}
	a.notify(ctx, fmt.Sprintf("%s (%s)", summary, url), logger)
}

// announce speaks and prints a message.
func (a *Assistant) announce(ctx context.Context, message string) {
	a.say(ctx, message)
	fmt.Fprintln(a.out, message)
}

func (a *Assistant) say(ctx context.Context, text string) {
	a.logger.Info("saying", "text", text)
	if err := a.speaker.Say(ctx, text); err != nil && ctx.Err() == nil {
		a.logger.Warn("speaking", "error", err)
	}
}

func (a *Assistant) notify(ctx context.Context, message string, logger *slog.Logger) {
	if err := a.notifier.Notify(ctx, message); err != nil {
		logger.Error("notifying result", "error", err)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
