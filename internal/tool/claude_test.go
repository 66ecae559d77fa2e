package tool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/jsonfile"
)

func TestClaudeConfigure_SystemLevel(t *testing.T) {
	p := Paths{Home: t.TempDir(), ProjectDir: t.TempDir()}
	a := &claudeAdapter{}

	changes, err := a.Configure(p, Plan{Gateway: gateway.OpenRouter(), APIKey: "sk-or-v1-x"})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if len(changes) == 0 {
		t.Fatal("expected recorded changes")
	}

	settings := p.claudeSettings(false)
	if got := jsonfile.Get(settings, "env.ANTHROPIC_BASE_URL").String(); got != "https://openrouter.ai/api" {
		t.Fatalf("ANTHROPIC_BASE_URL = %q", got)
	}
	if got := jsonfile.Get(settings, "env.ANTHROPIC_MODEL").String(); got != gateway.DefaultModelMiniMax {
		t.Fatalf("ANTHROPIC_MODEL = %q", got)
	}
	// The key must not be embedded in settings.json.
	if jsonfile.Get(settings, "env.ANTHROPIC_AUTH_TOKEN").Exists() {
		t.Fatal("API key must not land in settings.json")
	}

	if !a.Routed(p, gateway.OpenRouter(), false) {
		t.Fatal("Routed() = false after Configure")
	}
}

func TestClaudeConfigure_ProjectLevel(t *testing.T) {
	p := Paths{Home: t.TempDir(), ProjectDir: t.TempDir()}
	a := &claudeAdapter{}

	if _, err := a.Configure(p, Plan{Gateway: gateway.OpenRouter(), Project: true}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(p.ProjectDir, ".claude", "settings.json")); err != nil {
		t.Fatalf("project settings missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(p.Home, ".claude", "settings.json")); !os.IsNotExist(err) {
		t.Fatal("system settings should not be touched in project mode")
	}
}

func TestClaudeConfigure_PreservesExistingSettings(t *testing.T) {
	p := Paths{Home: t.TempDir(), ProjectDir: t.TempDir()}
	settings := p.claudeSettings(false)
	seed := `{"permissions": {"allow": ["Bash(git:*)"]}, "env": {"MY_VAR": "keep"}}`
	if err := os.MkdirAll(filepath.Dir(settings), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(settings, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	a := &claudeAdapter{}
	changes, err := a.Configure(p, Plan{Gateway: gateway.OpenRouter()})
	if err != nil {
		t.Fatal(err)
	}

	if got := jsonfile.Get(settings, "permissions.allow.0").String(); got != "Bash(git:*)" {
		t.Fatalf("permissions dropped: %q", got)
	}
	if got := jsonfile.Get(settings, "env.MY_VAR").String(); got != "keep" {
		t.Fatalf("user env var dropped: %q", got)
	}

	// Remove reverts only what Configure added.
	if err := a.Remove(p, changes); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if jsonfile.Get(settings, "env.ANTHROPIC_BASE_URL").Exists() {
		t.Fatal("routing keys should be gone after Remove")
	}
	if got := jsonfile.Get(settings, "env.MY_VAR").String(); got != "keep" {
		t.Fatalf("user env var removed: %q", got)
	}
	if got := jsonfile.Get(settings, "permissions.allow.0").String(); got != "Bash(git:*)" {
		t.Fatalf("permissions removed: %q", got)
	}
	if a.Routed(p, gateway.OpenRouter(), false) {
		t.Fatal("Routed() = true after Remove")
	}
}

func TestClaudeRemove_DeletesCreatedSettings(t *testing.T) {
	p := Paths{Home: t.TempDir(), ProjectDir: t.TempDir()}
	a := &claudeAdapter{}

	changes, err := a.Configure(p, Plan{Gateway: gateway.OpenRouter()})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Remove(p, changes); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	// Configure created the file, so Remove must not leave an {"env": {}}
	// husk behind.
	if _, err := os.Stat(p.claudeSettings(false)); !os.IsNotExist(err) {
		raw, _ := os.ReadFile(p.claudeSettings(false))
		t.Fatalf("settings.json should be gone after full revert, got:\n%s", raw)
	}
}

func TestClaudeConfigure_Idempotent(t *testing.T) {
	p := Paths{Home: t.TempDir(), ProjectDir: t.TempDir()}
	a := &claudeAdapter{}
	plan := Plan{Gateway: gateway.OpenRouter()}

	if _, err := a.Configure(p, plan); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(p.claudeSettings(false))
	if _, err := a.Configure(p, plan); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(p.claudeSettings(false))
	if string(first) != string(second) {
		t.Fatalf("second Configure changed settings:\n%s\nvs\n%s", first, second)
	}
}
