// Package shellenv maintains foxglove's managed environment block inside
// shell profile files. The block is delimited by marker comments so it can
// be replaced or stripped without touching anything the user wrote.
package shellenv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/misty-step/foxglove/internal/shellutil"
)

// Shell identifies the profile dialect being patched.
type Shell string

const (
	ShellPosix      Shell = "posix" // bash, zsh
	ShellFish       Shell = "fish"
	ShellPowerShell Shell = "powershell"
)

const (
	beginMarker = "# >>> foxglove env >>>"
	endMarker   = "# <<< foxglove env <<<"
)

// blockRE matches one managed block including its trailing newline.
// (?s) lets the body span lines; \r? tolerates CRLF profiles.
var blockRE = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(beginMarker) + `.*?` + regexp.QuoteMeta(endMarker) + `\r?\n?`)

// stripRE additionally consumes the one separator blank line Apply places
// before an appended block, so Strip restores the original bytes exactly.
var stripRE = regexp.MustCompile(`(?s)(?:\r?\n)?` + regexp.QuoteMeta(beginMarker) + `.*?` + regexp.QuoteMeta(endMarker) + `\r?\n?`)

// Profile is one shell profile file foxglove may patch.
type Profile struct {
	Path  string
	Shell Shell
}

// DefaultProfiles returns the candidate profile files for this platform.
// Only files that already exist are returned, except the primary one
// (.bashrc / PowerShell profile), which is created on demand by Apply.
func DefaultProfiles(home string) []Profile {
	if runtime.GOOS == "windows" {
		return []Profile{
			{Path: filepath.Join(home, "Documents", "WindowsPowerShell", "Microsoft.PowerShell_profile.ps1"), Shell: ShellPowerShell},
		}
	}

	candidates := []Profile{
		{Path: filepath.Join(home, ".bashrc"), Shell: ShellPosix},
		{Path: filepath.Join(home, ".zshrc"), Shell: ShellPosix},
		{Path: filepath.Join(home, ".profile"), Shell: ShellPosix},
		{Path: filepath.Join(home, ".config", "fish", "config.fish"), Shell: ShellFish},
	}

	profiles := make([]Profile, 0, len(candidates))
	for i, c := range candidates {
		if i == 0 {
			profiles = append(profiles, c)
			continue
		}
		if _, err := os.Stat(c.Path); err == nil {
			profiles = append(profiles, c)
		}
	}
	return profiles
}

// Render produces the managed block for the given dialect. Variables are
// emitted in sorted order so re-renders are stable.
func Render(shell Shell, vars map[string]string) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(beginMarker + "\n")
	b.WriteString("# Managed by foxglove. Run `fox remove` to delete this block.\n")
	for _, name := range names {
		switch shell {
		case ShellFish:
			fmt.Fprintf(&b, "set -gx %s %s\n", name, shellutil.Quote(vars[name]))
		case ShellPowerShell:
			fmt.Fprintf(&b, "$env:%s = %s\n", name, shellutil.PSQuote(vars[name]))
		default:
			fmt.Fprintf(&b, "export %s=%s\n", name, shellutil.Quote(vars[name]))
		}
	}
	b.WriteString(endMarker + "\n")
	return b.String()
}

// Apply writes the managed block into the profile. An existing block is
// replaced in place; otherwise the block is appended. Re-running with the
// same vars leaves the file unchanged.
func Apply(profile Profile, vars map[string]string) error {
	block := Render(profile.Shell, vars)

	raw, err := os.ReadFile(profile.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read profile %s: %w", profile.Path, err)
	}
	content := string(raw)

	var updated string
	switch {
	case blockRE.MatchString(content):
		replaced := false
		updated = blockRE.ReplaceAllStringFunc(content, func(old string) string {
			if replaced {
				// Collapse duplicate blocks left by older versions.
				return ""
			}
			replaced = true
			return block
		})
	case content == "":
		updated = block
	default:
		// The single "\n" either terminates an unterminated last line or
		// forms a blank separator line. stripRE consumes exactly this
		// newline, so Strip restores the original bytes in both cases.
		updated = content + "\n" + block
	}

	if updated == content {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(profile.Path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", profile.Path, err)
	}
	if err := renameio.WriteFile(profile.Path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write profile %s: %w", profile.Path, err)
	}
	return nil
}

// Strip removes every managed block from the profile, leaving the rest of
// the file byte-identical. Missing files and files without a block are
// no-ops.
func Strip(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read profile %s: %w", path, err)
	}
	content := string(raw)
	if !blockRE.MatchString(content) {
		return nil
	}

	updated := stripRE.ReplaceAllString(content, "")
	if err := renameio.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write profile %s: %w", path, err)
	}
	return nil
}

// HasBlock reports whether the profile contains a managed block.
func HasBlock(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return blockRE.Match(raw)
}
