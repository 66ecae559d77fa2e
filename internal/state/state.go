// Package state persists the ledger of changes foxglove applied, so
// `fox remove` can revert exactly what `fox configure` did and re-running
// configure stays idempotent.
//
// State file location (default): ~/.config/fox/state.toml
package state

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
)

// ChangeKind classifies one reversible change.
type ChangeKind string

const (
	// ChangeFileKey is a key injected into a JSON or TOML config file.
	ChangeFileKey ChangeKind = "file-key"
	// ChangeShellBlock is a managed env block written to a shell profile.
	ChangeShellBlock ChangeKind = "shell-block"
	// ChangeWinEnv is a user environment variable set in the Windows registry.
	ChangeWinEnv ChangeKind = "win-env"
)

// Change records one reversible modification.
type Change struct {
	Kind ChangeKind `toml:"kind"`
	Path string     `toml:"path,omitempty"`
	Key  string     `toml:"key,omitempty"`
}

// ToolEntry records what was applied for one tool.
type ToolEntry struct {
	Gateway      string    `toml:"gateway"`
	Model        string    `toml:"model,omitempty"`
	ConfiguredAt time.Time `toml:"configured_at"`
	Changes      []Change  `toml:"changes,omitempty"`
}

// Meta carries ledger-wide metadata.
type Meta struct {
	Gateway   string    `toml:"gateway,omitempty"`
	UpdatedAt time.Time `toml:"updated_at,omitempty"`
}

// State is the TOML-backed change ledger.
type State struct {
	Meta  Meta                 `toml:"meta"`
	Tools map[string]ToolEntry `toml:"tools"`
}

// DefaultPath returns the default ledger path: ~/.config/fox/state.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "fox", "state.toml")
	}
	return filepath.Join(home, ".config", "fox", "state.toml")
}

func newState() *State {
	return &State{Tools: make(map[string]ToolEntry)}
}

// blockedDirs are system directories where ledger files must never be written.
var blockedDirs = []string{"/etc", "/usr", "/bin", "/sbin", "/dev", "/proc", "/sys"}

func validatePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("state path: cannot resolve %q: %w", path, err)
	}
	if filepath.Ext(abs) != ".toml" {
		return "", fmt.Errorf("state path: %q must have .toml extension", abs)
	}
	for _, dir := range blockedDirs {
		if strings.HasPrefix(abs, dir+string(os.PathSeparator)) {
			return "", fmt.Errorf("state path: %q is in a protected system directory", abs)
		}
	}
	return abs, nil
}

// Load reads the ledger from disk.
//
// A missing file yields an empty ledger and a nil error. A corrupt file is
// reported as an error rather than silently discarded.
func Load(path string) (*State, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("reading state: path is empty")
	}
	validated, err := validatePath(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(validated)
	if err != nil {
		if os.IsNotExist(err) {
			return newState(), nil
		}
		return nil, fmt.Errorf("reading state %q: %w", validated, err)
	}

	s := newState()
	if err := toml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("parsing state %q: %w", validated, err)
	}
	if s.Tools == nil {
		s.Tools = make(map[string]ToolEntry)
	}
	return s, nil
}

// Save writes the ledger as TOML, creating parent directories and replacing
// the file atomically. 0600 because change records can reference credential
// files.
func (s *State) Save(path string) error {
	if s == nil {
		return errors.New("saving state: nil receiver")
	}
	validated, err := validatePath(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(validated), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := renameio.WriteFile(validated, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing state %q: %w", validated, err)
	}
	return nil
}

// SetTool records the entry for a tool, stamping ConfiguredAt if unset.
func (s *State) SetTool(name string, entry ToolEntry) {
	if s == nil {
		return
	}
	if s.Tools == nil {
		s.Tools = make(map[string]ToolEntry)
	}
	if entry.ConfiguredAt.IsZero() {
		entry.ConfiguredAt = time.Now().UTC()
	}
	s.Tools[name] = entry
	s.Meta.UpdatedAt = time.Now().UTC()
}

// Tool returns the recorded entry for a tool.
func (s *State) Tool(name string) (ToolEntry, bool) {
	if s == nil {
		return ToolEntry{}, false
	}
	entry, ok := s.Tools[name]
	return entry, ok
}

// RemoveTool drops a tool's entry.
func (s *State) RemoveTool(name string) {
	if s == nil || s.Tools == nil {
		return
	}
	delete(s.Tools, name)
	s.Meta.UpdatedAt = time.Now().UTC()
}

// Names returns the sorted tool names present in the ledger.
func (s *State) Names() []string {
	if s == nil || len(s.Tools) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Tools))
	for name := range s.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
