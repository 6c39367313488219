package export

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

type Printer interface {
	Print(ctx context.Context, path string) error
}

type CommandRunner func(ctx context.Context, name string, args ...string) error

// SpoolPrinter sends documents to the operating system print spooler.
type SpoolPrinter struct {
	command []string
	goos    string
	run     CommandRunner
}

// NewSpoolPrinter uses command (the document path is appended as the last
// argument) when set, otherwise the platform default.
func NewSpoolPrinter(command string) *SpoolPrinter {
	return &SpoolPrinter{
		command: strings.Fields(command),
		goos:    runtime.GOOS,
		run:     runCommand,
	}
}

func (p *SpoolPrinter) Print(ctx context.Context, path string) error {
	name, args := p.commandFor(path)
	if err := p.run(ctx, name, args...); err != nil {
		return fmt.Errorf("print %s: %w", path, err)
	}
	return nil
}

func (p *SpoolPrinter) commandFor(path string) (string, []string) {
	if len(p.command) > 0 {
		args := append(append([]string{}, p.command[1:]...), path)
		return p.command[0], args
	}
	switch p.goos {
	case "windows":
		quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
		return "powershell", []string{"-NoProfile", "-Command", "Start-Process -FilePath " + quoted + " -Verb Print"}
	case "darwin":
		return "lpr", []string{path}
	default:
		return "lp", []string{path}
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, msg)
	}
	return nil
}
