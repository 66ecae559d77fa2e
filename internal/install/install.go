// Package install fetches missing tools with their vendors' official
// install scripts (curl | bash, or PowerShell's irm | iex on Windows).
// Tools without a script installer are reported, not guessed at.
package install

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/misty-step/foxglove/internal/lib"
	"github.com/misty-step/foxglove/internal/tool"
)

// script holds the per-platform install commands for one tool. Empty means
// no supported installer on that platform.
type script struct {
	unix    string
	windows string
	manual  string
}

var scripts = map[tool.Kind]script{
	tool.KindClaude: {
		unix:    "curl -fsSL https://claude.ai/install.sh | bash",
		windows: "irm https://claude.ai/install.ps1 | iex",
	},
	tool.KindCodex: {
		// Codex ships through package managers only; shelling out to npm is
		// off the table here.
		manual: "install codex with your package manager (e.g. brew install codex)",
	},
	tool.KindOpenCode: {
		unix:   "curl -fsSL https://opencode.ai/install | bash",
		manual: "see https://opencode.ai/docs for Windows installation",
	},
}

// Result reports what Install did for one tool.
type Result struct {
	Tool             tool.Kind
	AlreadyInstalled bool
	Binary           string
	Version          string
}

type Installer struct {
	Logger *slog.Logger
	Runner lib.Runner

	// GOOS is swapped in tests; defaults to runtime.GOOS.
	GOOS string
}

func New(logger *slog.Logger, runner lib.Runner) *Installer {
	return &Installer{Logger: logger, Runner: runner, GOOS: runtime.GOOS}
}

func (i *Installer) goos() string {
	if i.GOOS != "" {
		return i.GOOS
	}
	return runtime.GOOS
}

// Install runs the vendor's installer for one tool unless the binary is
// already on PATH. The returned version is a best-effort probe; an empty
// string means the probe failed but the install itself succeeded.
func (i *Installer) Install(ctx context.Context, a tool.Adapter, paths tool.Paths) (Result, error) {
	result := Result{Tool: a.Kind()}

	if detection := a.Detect(paths); detection.Installed {
		result.AlreadyInstalled = true
		result.Binary = detection.Binary
		result.Version = i.probeVersion(ctx, a)
		return result, nil
	}

	cmd, args, err := i.command(a.Kind())
	if err != nil {
		return result, err
	}

	if i.Logger != nil {
		i.Logger.InfoContext(ctx, "installing tool", "tool", a.Kind(), "command", lib.FormatCommand(cmd, args))
	}
	if _, err := i.Runner.Run(ctx, lib.RunRequest{Cmd: cmd, Args: args, Mutating: true}); err != nil {
		return result, fmt.Errorf("install %s: %w", a.Kind(), err)
	}

	detection := a.Detect(paths)
	if !detection.Installed {
		return result, fmt.Errorf("install %s: installer finished but %q is not on PATH (open a new shell and retry)", a.Kind(), a.BinaryName())
	}
	result.Binary = detection.Binary
	result.Version = i.probeVersion(ctx, a)
	return result, nil
}

func (i *Installer) command(kind tool.Kind) (string, []string, error) {
	s, ok := scripts[kind]
	if !ok {
		return "", nil, fmt.Errorf("no installer for tool %q", kind)
	}

	if i.goos() == "windows" {
		if s.windows == "" {
			return "", nil, manualErr(kind, s)
		}
		return "powershell", []string{"-NoProfile", "-Command", s.windows}, nil
	}
	if s.unix == "" {
		return "", nil, manualErr(kind, s)
	}
	return "bash", []string{"-c", s.unix}, nil
}

func manualErr(kind tool.Kind, s script) error {
	if s.manual != "" {
		return fmt.Errorf("no script installer for %s: %s", kind, s.manual)
	}
	return fmt.Errorf("no script installer for %s on this platform", kind)
}

func (i *Installer) probeVersion(ctx context.Context, a tool.Adapter) string {
	response, err := i.Runner.Run(ctx, lib.RunRequest{Cmd: a.BinaryName(), Args: []string{"--version"}})
	if err != nil {
		return ""
	}
	version := response.Stdout
	if idx := strings.IndexByte(version, '\n'); idx >= 0 {
		version = version[:idx]
	}
	return strings.TrimSpace(version)
}
