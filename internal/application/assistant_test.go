package application_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"voice-commands/internal/application"
	"voice-commands/internal/domain"
)

type mockAudioSource struct {
	commands [][]byte
	index    int
	started  bool
	stopped  bool
}

func (m *mockAudioSource) Start(_ context.Context) error {
	m.started = true
	return nil
}

func (m *mockAudioSource) Stop() error {
	m.stopped = true
	return nil
}

func (m *mockAudioSource) Name() string { return "mock" }

func (m *mockAudioSource) NextCommand(_ context.Context) ([]byte, error) {
	if m.index >= len(m.commands) {
		return nil, context.Canceled
	}
	audio := m.commands[m.index]
	m.index++
	return audio, nil
}

type mockSTT struct {
	transcriptions map[string]string
	failures       map[string]error
	calls          int
}

func (m *mockSTT) Transcribe(_ context.Context, audio []byte) (string, error) {
	m.calls++
	key := string(audio)
	if err, ok := m.failures[key]; ok {
		return "", err
	}
	if text, ok := m.transcriptions[key]; ok {
		return text, nil
	}
	return "", application.ErrNotUnderstood
}

type mockSpeaker struct {
	said []string
	err  error
}

func (m *mockSpeaker) Say(_ context.Context, text string) error {
	m.said = append(m.said, text)
	return m.err
}

func (m *mockSpeaker) Close() error { return nil }

func (m *mockSpeaker) count(text string) int {
	n := 0
	for _, s := range m.said {
		if s == text {
			n++
		}
	}
	return n
}

type mockBrowser struct {
	opened []string
	err    error
}

func (m *mockBrowser) Open(url string) error {
	m.opened = append(m.opened, url)
	return m.err
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

type fixture struct {
	audio    *mockAudioSource
	stt      *mockSTT
	speaker  *mockSpeaker
	browser  *mockBrowser
	notifier *recordingNotifier
	out      *bytes.Buffer
}

func newFixture(commands ...string) *fixture {
	f := &fixture{
		audio:    &mockAudioSource{},
		stt:      &mockSTT{transcriptions: map[string]string{}, failures: map[string]error{}},
		speaker:  &mockSpeaker{},
		browser:  &mockBrowser{},
		notifier: &recordingNotifier{},
		out:      &bytes.Buffer{},
	}
	for i, c := range commands {
		key := "utterance-" + string(rune('a'+i))
		f.audio.commands = append(f.audio.commands, []byte(key))
		if c != "" {
			f.stt.transcriptions[key] = c
		}
	}
	return f
}

func (f *fixture) run(t *testing.T) error {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assistant := application.NewAssistant(
		f.audio,
		f.stt,
		f.speaker,
		f.browser,
		application.NewDispatcher(domain.DefaultTriggers()),
		f.notifier,
		logger,
	).WithOutput(f.out).WithRetryDelay(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return assistant.Run(ctx)
}

func TestAssistant_PlayMusic(t *testing.T) {
	f := newFixture("Please Play Music now")

	err := f.run(t)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled once audio runs out", err)
	}

	if len(f.browser.opened) != 1 || f.browser.opened[0] != "https://www.spotify.com" {
		t.Errorf("opened: got %v, want [https://www.spotify.com]", f.browser.opened)
	}

	if !strings.Contains(f.out.String(), "Playing music now") {
		t.Errorf("output: got %q, want the music message printed", f.out.String())
	}

	if f.speaker.count("Recognized command: please play music now") != 1 {
		t.Errorf("expected lower-cased recognition feedback, said: %v", f.speaker.said)
	}

	if f.speaker.count("Now i'm listening again") != 1 {
		t.Errorf("expected one listening-again prompt, said: %v", f.speaker.said)
	}

	if !f.audio.started || !f.audio.stopped {
		t.Error("audio source should be started and stopped")
	}
}

func TestAssistant_SearchVideoFollowUp(t *testing.T) {
	f := newFixture("search video", "cats")

	_ = f.run(t)

	want := "https://www.youtube.com/results?search_query=cats"
	if len(f.browser.opened) != 1 || f.browser.opened[0] != want {
		t.Errorf("opened: got %v, want [%s]", f.browser.opened, want)
	}

	if f.speaker.count("What video should I search for?") != 1 {
		t.Errorf("expected the search prompt to be spoken, said: %v", f.speaker.said)
	}
}

func TestAssistant_FollowUpIsNotRematched(t *testing.T) {
	f := newFixture("find recipe", "stop", "news")

	err := f.run(t)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, follow-up 'stop' must not end the loop", err)
	}

	want := []string{
		"https://www.google.com/search?q=stop+recipe",
		"https://www.bbc.com/news",
	}
	if len(f.browser.opened) != len(want) {
		t.Fatalf("opened: got %v, want %v", f.browser.opened, want)
	}
	for i := range want {
		if f.browser.opened[i] != want[i] {
			t.Errorf("opened[%d]: got %s, want %s", i, f.browser.opened[i], want[i])
		}
	}
}

func TestAssistant_StopEndsLoop(t *testing.T) {
	f := newFixture("goodbye stop please", "play music")

	if err := f.run(t); err != nil {
		t.Fatalf("Run: got %v, want nil after stop phrase", err)
	}

	if f.audio.index != 1 {
		t.Errorf("audio captures: got %d, want 1 (no listening after stop)", f.audio.index)
	}

	if len(f.browser.opened) != 0 {
		t.Errorf("browser should not open, got %v", f.browser.opened)
	}

	last := f.speaker.said[len(f.speaker.said)-1]
	if last != "OK stopping now" {
		t.Errorf("last spoken: got %q, want farewell", last)
	}

	if !strings.Contains(f.out.String(), "OK stopping now") {
		t.Errorf("farewell should be printed, got %q", f.out.String())
	}
}

func TestAssistant_UnmatchedIsIgnored(t *testing.T) {
	f := newFixture("what's the weather", "tell me a joke")

	_ = f.run(t)

	if len(f.browser.opened) != 0 {
		t.Errorf("browser should not open, got %v", f.browser.opened)
	}

	if f.speaker.count("Why don't scientists trust atoms? Because they make up everything!") != 1 {
		t.Errorf("joke should follow the ignored command, said: %v", f.speaker.said)
	}

	if f.speaker.count("Now i'm listening again") != 2 {
		t.Errorf("expected a listening-again prompt after each command, said: %v", f.speaker.said)
	}
}

func TestAssistant_RetriesUntilUnderstood(t *testing.T) {
	f := newFixture("", "", "", "news")

	_ = f.run(t)

	if got := f.speaker.count("Command is not recognized. Try again"); got != 3 {
		t.Errorf("not-recognized prompts: got %d, want 3", got)
	}

	if got := f.speaker.count("Speak now"); got != 5 {
		t.Errorf("speak-now prompts: got %d, want 5 (4 attempts plus the final listen)", got)
	}

	if len(f.browser.opened) != 1 || f.browser.opened[0] != "https://www.bbc.com/news" {
		t.Errorf("opened: got %v, want bbc news", f.browser.opened)
	}

	if f.speaker.count("Recognized command: news") != 1 {
		t.Errorf("failed attempts must not leak into the transcript, said: %v", f.speaker.said)
	}
}

func TestAssistant_FollowUpRetriesUntilUnderstood(t *testing.T) {
	f := newFixture("read book", "", "moby dick")

	_ = f.run(t)

	want := "https://www.gutenberg.org/ebooks/search/?query=moby dick"
	if len(f.browser.opened) != 1 || f.browser.opened[0] != want {
		t.Errorf("opened: got %v, want [%s]", f.browser.opened, want)
	}

	if got := f.speaker.count("Command is not recognized. Try again"); got != 1 {
		t.Errorf("not-recognized prompts: got %d, want 1", got)
	}

	if f.stt.calls != 3 {
		t.Errorf("transcriptions: got %d, want 3", f.stt.calls)
	}
}

func TestAssistant_UndecodableCaptureIsRetried(t *testing.T) {
	f := newFixture("", "news")
	f.stt.failures["utterance-a"] = fmt.Errorf("google speech needs wav audio: %w", application.ErrUnsupportedAudio)

	_ = f.run(t)

	if f.speaker.count("Speech service is unavailable") != 0 {
		t.Errorf("bad input must not be reported as an outage, said: %v", f.speaker.said)
	}
	if f.speaker.count("Command is not recognized. Try again") != 1 {
		t.Errorf("expected a retry prompt, said: %v", f.speaker.said)
	}
	if len(f.browser.opened) != 1 || f.browser.opened[0] != "https://www.bbc.com/news" {
		t.Errorf("opened: got %v, want bbc news", f.browser.opened)
	}
}

func TestAssistant_ServiceErrorIsNotFatal(t *testing.T) {
	f := newFixture("play music", "news")
	f.stt.failures["utterance-a"] = errors.New("connection refused")

	_ = f.run(t)

	if f.speaker.count("Speech service is unavailable") != 1 {
		t.Errorf("expected outage to be spoken, said: %v", f.speaker.said)
	}

	if len(f.browser.opened) != 1 || f.browser.opened[0] != "https://www.bbc.com/news" {
		t.Errorf("opened: got %v, want only bbc news", f.browser.opened)
	}
}

func TestAssistant_BrowserFailureIsSpoken(t *testing.T) {
	f := newFixture("news")
	f.browser.err = errors.New("no display")

	_ = f.run(t)

	if f.speaker.count("I could not open the browser") != 1 {
		t.Errorf("expected browser failure to be spoken, said: %v", f.speaker.said)
	}

	if len(f.notifier.messages) != 0 {
		t.Errorf("failed opens should not notify, got %v", f.notifier.messages)
	}
}

func TestAssistant_NotifiesOpenedURL(t *testing.T) {
	f := newFixture("read book", "dracula")

	_ = f.run(t)

	if len(f.notifier.messages) != 1 {
		t.Fatalf("notifications: got %v, want 1", f.notifier.messages)
	}
	if !strings.Contains(f.notifier.messages[0], "https://www.gutenberg.org/ebooks/search/?query=dracula") {
		t.Errorf("notification: got %q", f.notifier.messages[0])
	}
}

func TestAssistant_TextCommandSkipsTranscription(t *testing.T) {
	f := newFixture()
	f.audio.commands = [][]byte{[]byte(domain.TextCommandPrefix + "Tell me a joke")}

	_ = f.run(t)

	if f.stt.calls != 0 {
		t.Errorf("STT should not be called for text commands, got %d calls", f.stt.calls)
	}

	if f.speaker.count("Recognized command: tell me a joke") != 1 {
		t.Errorf("text command should be lower-cased and recognized, said: %v", f.speaker.said)
	}
}

func TestAssistant_SpeakerErrorsDoNotStopLoop(t *testing.T) {
	f := newFixture("news")
	f.speaker.err = errors.New("audio device busy")

	_ = f.run(t)

	if len(f.browser.opened) != 1 {
		t.Errorf("opened: got %v, want the news url despite speech errors", f.browser.opened)
	}
}

func TestAssistant_CancelledContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := newFixture("news")

	assistant := application.NewAssistant(
		f.audio,
		f.stt,
		f.speaker,
		f.browser,
		application.NewDispatcher(domain.DefaultTriggers()),
		&application.NoopNotifier{},
		logger,
	).WithOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := assistant.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run: got %v, want context.Canceled", err)
	}

	if f.audio.index != 0 {
		t.Errorf("no audio should be captured after cancellation, got %d", f.audio.index)
	}
}
