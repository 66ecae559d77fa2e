// Package tool defines the coding assistants foxglove can rewire and the
// adapter each one implements. Adapters own the tool's config file layout;
// everything they change is reported as state.Change records so removal can
// revert precisely.
package tool

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/jsonfile"
	"github.com/misty-step/foxglove/internal/state"
	"github.com/misty-step/foxglove/internal/tomlfile"
)

// Kind identifies a supported coding assistant.
type Kind string

const (
	KindClaude   Kind = "claude"
	KindCodex    Kind = "codex"
	KindOpenCode Kind = "opencode"
)

// AllKinds returns the supported kinds in stable order.
func AllKinds() []Kind {
	return []Kind{KindClaude, KindCodex, KindOpenCode}
}

// ParseKind normalizes a user-supplied tool name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "claude", "claude-code", "claude_code", "claudecode":
		return KindClaude, nil
	case "codex", "windsurf":
		return KindCodex, nil
	case "opencode", "open-code":
		return KindOpenCode, nil
	default:
		return "", fmt.Errorf("unknown tool %q (supported: claude, codex, opencode)", s)
	}
}

// Paths resolves per-tool config locations.
type Paths struct {
	// Home is the user home directory.
	Home string

	// ProjectDir is the directory project-level configuration is scoped to.
	ProjectDir string
}

func (p Paths) claudeSettings(project bool) string {
	if project {
		return filepath.Join(p.ProjectDir, ".claude", "settings.json")
	}
	return filepath.Join(p.Home, ".claude", "settings.json")
}

func (p Paths) codexConfig(project bool) string {
	if project {
		return filepath.Join(p.ProjectDir, ".codex", "config.toml")
	}
	return filepath.Join(p.Home, ".codex", "config.toml")
}

func (p Paths) codexAuth() string {
	return filepath.Join(p.Home, ".codex", "auth.json")
}

func (p Paths) openCodeConfig(project bool) string {
	if project {
		return filepath.Join(p.ProjectDir, "opencode.json")
	}
	return filepath.Join(p.Home, ".config", "opencode", "opencode.json")
}

func (p Paths) openCodeAuth() string {
	return filepath.Join(p.Home, ".local", "share", "opencode", "auth.json")
}

// Detection reports whether a tool is present on this machine.
type Detection struct {
	Kind         Kind
	Installed    bool
	Binary       string
	ConfigPath   string
	ConfigExists bool
}

// Plan carries everything an adapter needs to route a tool through a
// gateway.
type Plan struct {
	Gateway gateway.Gateway
	Model   string
	APIKey  string
	Project bool
}

func (pl Plan) model() string {
	if pl.Model != "" {
		return pl.Model
	}
	return pl.Gateway.Model()
}

// Adapter rewires one tool.
type Adapter interface {
	Kind() Kind
	BinaryName() string

	// Detect probes the binary and the tool's config file.
	Detect(p Paths) Detection

	// Configure merges gateway routing into the tool's config files and
	// returns the changes it made.
	Configure(p Paths, plan Plan) ([]state.Change, error)

	// Remove reverts previously recorded changes. Unknown or already-gone
	// keys are ignored.
	Remove(p Paths, changes []state.Change) error

	// Routed reports whether the tool's config currently points at the
	// gateway.
	Routed(p Paths, gw gateway.Gateway, project bool) bool
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// For returns the adapter for a kind.
func For(kind Kind) (Adapter, error) {
	switch kind {
	case KindClaude:
		return &claudeAdapter{}, nil
	case KindCodex:
		return &codexAdapter{}, nil
	case KindOpenCode:
		return &openCodeAdapter{}, nil
	default:
		return nil, fmt.Errorf("no adapter for tool %q", kind)
	}
}

// All returns adapters for every supported kind.
func All() []Adapter {
	adapters := make([]Adapter, 0, len(AllKinds()))
	for _, kind := range AllKinds() {
		a, _ := For(kind)
		adapters = append(adapters, a)
	}
	return adapters
}

func detectBinary(name string) (string, bool) {
	path, err := lookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

// revertFileKeys deletes recorded file-key changes, grouped per file so each
// file is rewritten once. JSON and TOML files are told apart by extension.
func revertFileKeys(changes []state.Change) error {
	byPath := map[string][]string{}
	for _, c := range changes {
		if c.Kind != state.ChangeFileKey || c.Path == "" || c.Key == "" {
			continue
		}
		byPath[c.Path] = append(byPath[c.Path], c.Key)
	}

	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		var err error
		if filepath.Ext(path) == ".toml" {
			err = tomlfile.DeleteKeys(path, byPath[path])
		} else {
			err = jsonfile.DeleteKeys(path, byPath[path])
		}
		if err != nil {
			return fmt.Errorf("revert %s: %w", path, err)
		}
	}
	return nil
}

func fileKeyChanges(path string, keys []string) []state.Change {
	changes := make([]state.Change, 0, len(keys))
	for _, key := range keys {
		changes = append(changes, state.Change{Kind: state.ChangeFileKey, Path: path, Key: key})
	}
	return changes
}
