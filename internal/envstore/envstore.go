// Package envstore mutates the platform's persistent environment variable
// store. On Windows that is the per-user registry, reached through setx/reg
// subprocesses; elsewhere persistence is the shell profile block, so this
// package only answers lookups.
package envstore

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sort"

	"github.com/misty-step/foxglove/internal/lib"
)

// Store applies and reverts persistent env vars.
type Store struct {
	Logger *slog.Logger
	Runner lib.Runner

	// GOOS is swapped in tests; defaults to runtime.GOOS.
	GOOS string
}

func New(logger *slog.Logger, runner lib.Runner) *Store {
	return &Store{Logger: logger, Runner: runner, GOOS: runtime.GOOS}
}

func (s *Store) windows() bool {
	goos := s.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	return goos == "windows"
}

// Set persists env vars in the user registry. Only meaningful on Windows;
// a no-op elsewhere. Failures (setx missing, no rights) are logged and
// swallowed: the shell profile block still covers new shells, so a registry
// miss must not abort the configure flow. Returns the names it attempted.
func (s *Store) Set(ctx context.Context, vars map[string]string) []string {
	if !s.windows() || len(vars) == 0 {
		return nil
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, err := s.Runner.Run(ctx, lib.RunRequest{
			Cmd:      "setx",
			Args:     []string{name, vars[name]},
			Mutating: true,
		})
		if err != nil && s.Logger != nil {
			s.Logger.WarnContext(ctx, "setx failed; user env not persisted", "var", name, "err", err)
		}
	}
	return names
}

// Unset removes env vars from the user registry. Same non-fatal error
// posture as Set.
func (s *Store) Unset(ctx context.Context, names []string) {
	if !s.windows() {
		return
	}
	for _, name := range names {
		_, err := s.Runner.Run(ctx, lib.RunRequest{
			Cmd:      "reg",
			Args:     []string{"delete", `HKCU\Environment`, "/v", name, "/f"},
			Mutating: true,
		})
		if err != nil && s.Logger != nil {
			s.Logger.WarnContext(ctx, "reg delete failed; user env entry may remain", "var", name, "err", err)
		}
	}
}

// Lookup reads a variable from the current process environment. Both
// platforms resolve status checks this way; registry edits only reach new
// processes anyway.
func (s *Store) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}
