package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	pkgbrowser "github.com/pkg/browser"
)

// Opener hands a URL to the system browser.
type Opener func(url string) error

// Runner starts a custom browser command without waiting for it to exit.
type Runner func(name string, args ...string) error

func startCommand(name string, args ...string) error {
	cmd := exec.CommandContext(context.Background(), name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Launcher opens URLs in a new browser window. With no command configured the
// platform default browser is used; otherwise the command is started with the
// URL appended as its last argument.
type Launcher struct {
	command []string
	open    Opener
	run     Runner
	logger  *slog.Logger
}

func NewLauncher(command string, logger *slog.Logger) *Launcher {
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard

	return &Launcher{
		command: strings.Fields(command),
		open:    pkgbrowser.OpenURL,
		run:     startCommand,
		logger:  logger,
	}
}

func (l *Launcher) WithOpener(open Opener) *Launcher {
	l.open = open
	return l
}

func (l *Launcher) WithRunner(run Runner) *Launcher {
	l.run = run
	return l
}

func (l *Launcher) Open(url string) error {
	if len(l.command) == 0 {
		l.logger.Debug("opening in default browser", "url", url)
		if err := l.open(url); err != nil {
			return fmt.Errorf("opening default browser: %w", err)
		}
		return nil
	}

	args := append(append([]string{}, l.command[1:]...), url)
	l.logger.Debug("opening with browser command", "command", l.command[0], "url", url)
	if err := l.run(l.command[0], args...); err != nil {
		return fmt.Errorf("starting %s: %w", l.command[0], err)
	}
	return nil
}
