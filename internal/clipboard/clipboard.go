// Package clipboard copies converted notes to the system clipboard.
package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
)

// ErrUnavailable is returned when neither a clipboard command nor a
// terminal fallback is available.
var ErrUnavailable = errors.New("clipboard: no clipboard available")

// Writer places text on a clipboard.
type Writer interface {
	Write(ctx context.Context, text string) error
}

// System writes through a platform clipboard command, falling back to an
// OSC 52 escape sequence on a terminal when no command is installed.
type System struct {
	cmd      []string
	terminal io.Writer
}

// Detect finds the clipboard command for this platform. terminal, when
// non-nil, receives OSC 52 sequences if no command exists.
func Detect(terminal io.Writer) *System {
	cmd, _ := detect(runtime.GOOS, exec.LookPath)
	return &System{cmd: cmd, terminal: terminal}
}

// Command returns the detected command line, if any.
func (s *System) Command() []string { return s.cmd }

// Write copies text.
func (s *System) Write(ctx context.Context, text string) error {
	if len(s.cmd) == 0 {
		if s.terminal == nil {
			return ErrUnavailable
		}
		if _, err := osc52.New(text).WriteTo(s.terminal); err != nil {
			return fmt.Errorf("clipboard: osc52: %w", err)
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, s.cmd[0], s.cmd[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("clipboard: %s: %w: %s", s.cmd[0], err, msg)
		}
		return fmt.Errorf("clipboard: %s: %w", s.cmd[0], err)
	}
	return nil
}

// clipboardArgs makes X11 tools target the clipboard rather than the
// primary selection.
var clipboardArgs = map[string][]string{
	"xclip": {"-selection", "clipboard"},
	"xsel":  {"--clipboard", "--input"},
}

func detect(goos string, lookPath func(string) (string, error)) ([]string, bool) {
	trySingle := func(candidates ...string) ([]string, bool) {
		for _, candidate := range candidates {
			if path, err := lookPath(candidate); err == nil && path != "" {
				return []string{path}, true
			}
		}
		return nil, false
	}

	if strings.EqualFold(goos, "windows") {
		if cmd, ok := trySingle("clip.exe", "clip"); ok {
			return cmd, true
		}
		for _, ps := range []string{"powershell", "powershell.exe", "pwsh"} {
			if path, err := lookPath(ps); err == nil && path != "" {
				return []string{path, "-NoLogo", "-NoProfile", "-Command", "$input | Set-Clipboard"}, true
			}
		}
	}

	for _, name := range []string{"pbcopy", "wl-copy", "xclip", "xsel"} {
		if resolved, err := lookPath(name); err == nil && resolved != "" {
			return append([]string{resolved}, clipboardArgs[name]...), true
		}
	}
	return nil, false
}
