package tts

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"voice-commands/internal/domain"
)

type Engine string

const (
	EngineEspeak Engine = "espeak"
	EngineSay    Engine = "say"
	EngineOpenAI Engine = "openai"
	EngineNone   Engine = "none"
)

var ErrClosed = errors.New("speech engine closed")

// Runner executes a command to completion and returns its output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// ExecSpeaker drives a command-line synthesizer (espeak on Linux, say on
// macOS). The command blocks until playback finishes.
type ExecSpeaker struct {
	engine  Engine
	binary  string
	profile domain.VoiceProfile
	run     Runner
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewExecSpeaker(engine Engine, binary string, profile domain.VoiceProfile, logger *slog.Logger) (*ExecSpeaker, error) {
	if binary == "" {
		binary = string(engine)
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("finding %s binary: %w", engine, err)
	}
	return NewExecSpeakerWithRunner(engine, path, profile, execRunner, logger)
}

func NewExecSpeakerWithRunner(engine Engine, binary string, profile domain.VoiceProfile, run Runner, logger *slog.Logger) (*ExecSpeaker, error) {
	if engine != EngineEspeak && engine != EngineSay {
		return nil, fmt.Errorf("unsupported command engine: %s", engine)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if binary == "" {
		binary = string(engine)
	}
	return &ExecSpeaker{
		engine:  engine,
		binary:  binary,
		profile: profile,
		run:     run,
		logger:  logger,
	}, nil
}

// UseVoice replaces the voice ID once it has been resolved against the catalog.
func (s *ExecSpeaker) UseVoice(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.ID = id
}

func (s *ExecSpeaker) Say(ctx context.Context, text string) error {
	s.mu.Lock()
	closed := s.closed
	args := s.sayArgs(text)
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	s.logger.Debug("speaking", "engine", s.engine, "text", text)
	if _, err := s.run(ctx, s.binary, args...); err != nil {
		return fmt.Errorf("running %s: %w", s.engine, err)
	}
	return nil
}

func (s *ExecSpeaker) sayArgs(text string) []string {
	switch s.engine {
	case EngineSay:
		args := []string{"-r", strconv.Itoa(s.profile.Rate)}
		if s.profile.ID != "" {
			args = append(args, "-v", s.profile.ID)
		}
		if s.profile.Volume < 1 {
			text = fmt.Sprintf("[[volm %.2f]] %s", s.profile.Volume, text)
		}
		return append(args, text)

	default:
		// espeak amplitude runs 0-200 with 100 as normal volume
		amplitude := int(math.Round(s.profile.Volume * 100))
		args := []string{"-s", strconv.Itoa(s.profile.Rate), "-a", strconv.Itoa(amplitude)}
		if s.profile.ID != "" {
			args = append(args, "-v", s.profile.ID)
		}
		return append(args, text)
	}
}

func (s *ExecSpeaker) Voices(ctx context.Context) ([]domain.Voice, error) {
	var args []string
	if s.engine == EngineSay {
		args = []string{"-v", "?"}
	} else {
		args = []string{"--voices"}
	}

	out, err := s.run(ctx, s.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s voices: %w", s.engine, err)
	}

	if s.engine == EngineSay {
		return parseSayVoices(out), nil
	}
	return parseEspeakVoices(out), nil
}

func (s *ExecSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// parseEspeakVoices reads `espeak --voices`:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
func parseEspeakVoices(out []byte) []domain.Voice {
	var voices []domain.Voice

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, domain.Voice{
			ID:       fields[1],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
		})
	}
	return voices
}

var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

// parseSayVoices reads `say -v ?`:
//
//	Alex                en_US    # Most people recognize me by my voice.
func parseSayVoices(out []byte) []domain.Voice {
	var voices []domain.Voice

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		m := sayVoiceLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		voices = append(voices, domain.Voice{ID: name, Name: name, Language: m[2]})
	}
	return voices
}
