package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"
)

func TestSetKeys_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	written, err := SetKeys(path, map[string]any{
		"env.ANTHROPIC_BASE_URL": "https://openrouter.ai/api",
		"env.API_TIMEOUT_MS":     "600000",
	}, 0o644)
	if err != nil {
		t.Fatalf("SetKeys() error = %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("written = %v, want 2 keys", written)
	}

	if got := Get(path, "env.ANTHROPIC_BASE_URL").String(); got != "https://openrouter.ai/api" {
		t.Fatalf("round-trip base URL = %q", got)
	}
}

func TestSetKeys_PreservesUnrelatedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	seed := `{
  "permissions": {"allow": ["Bash(ls:*)"]},
  "env": {"EXISTING": "yes"},
  "model": "opus"
}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := SetKeys(path, map[string]any{"env.NEW": "v"}, 0o644); err != nil {
		t.Fatalf("SetKeys() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(raw)
	for key, want := range map[string]string{
		"permissions.allow.0": "Bash(ls:*)",
		"env.EXISTING":        "yes",
		"env.NEW":             "v",
		"model":               "opus",
	} {
		if got := gjson.Get(doc, key).String(); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestSetKeys_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	keys := map[string]any{"env.A": "1", "env.B": "2"}

	if _, err := SetKeys(path, keys, 0o644); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := SetKeys(path, keys, 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Fatalf("repeated SetKeys changed output:\n%s\nvs\n%s", first, second)
	}
}

func TestDeleteKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	seed := `{"env": {"A": "1", "KEEP": "yes"}, "other": true}`
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := DeleteKeys(path, []string{"env.A", "env.MISSING"}); err != nil {
		t.Fatalf("DeleteKeys() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(raw)
	if gjson.Get(doc, "env.A").Exists() {
		t.Fatal("env.A should be gone")
	}
	if gjson.Get(doc, "env.KEEP").String() != "yes" {
		t.Fatal("env.KEEP should survive")
	}
	if !gjson.Get(doc, "other").Bool() {
		t.Fatal("other should survive")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("perm = %v, want 0600 preserved", info.Mode().Perm())
	}
}

func TestDeleteKeys_PrunesEmptyParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opencode.json")
	seed := `{"theme": "tokyonight", "provider": {"openrouter": {"models": {"minimax/minimax-m2.5": {}}}}}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	key := Path("provider", "openrouter", "models", "minimax/minimax-m2.5")
	if err := DeleteKeys(path, []string{key}); err != nil {
		t.Fatalf("DeleteKeys() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(raw)
	if gjson.Get(doc, "provider").Exists() {
		t.Fatalf("emptied provider tree should be pruned:\n%s", doc)
	}
	if gjson.Get(doc, "theme").String() != "tokyonight" {
		t.Fatalf("theme should survive:\n%s", doc)
	}
}

func TestDeleteKeys_RemovesEmptiedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	keys := map[string]any{"env.ANTHROPIC_BASE_URL": "https://openrouter.ai/api", "env.ANTHROPIC_MODEL": "m"}
	written, err := SetKeys(path, keys, 0o644)
	if err != nil {
		t.Fatal(err)
	}

	if err := DeleteKeys(path, written); err != nil {
		t.Fatalf("DeleteKeys() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("reverting every injected key should delete the file")
	}
}

func TestDeleteKeys_KeepsFileWithUserKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	seed := `{"model": "opus", "env": {"INJECTED": "x"}}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := DeleteKeys(path, []string{"env.INJECTED"}); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file should survive while user keys remain: %v", err)
	}
	if gjson.GetBytes(raw, "env").Exists() {
		t.Fatalf("empty env object left behind:\n%s", raw)
	}
	if gjson.GetBytes(raw, "model").String() != "opus" {
		t.Fatalf("model dropped:\n%s", raw)
	}
}

func TestDeleteKeys_MissingFile(t *testing.T) {
	if err := DeleteKeys(filepath.Join(t.TempDir(), "absent.json"), []string{"a"}); err != nil {
		t.Fatalf("DeleteKeys() on missing file error = %v", err)
	}
}

func TestSetKeys_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := SetKeys(path, map[string]any{"a": 1}, 0o644); err == nil {
		t.Fatal("expected error for corrupt JSON")
	}
}

func TestPath_EscapesModelNames(t *testing.T) {
	p := Path("provider", "openrouter", "models", "moonshotai/kimi-k2.5")
	if p != `provider.openrouter.models.moonshotai/kimi-k2\.5` {
		t.Fatalf("Path() = %s", p)
	}

	path := filepath.Join(t.TempDir(), "opencode.json")
	if _, err := SetKeys(path, map[string]any{p: map[string]any{}}, 0o644); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(path)
	if !gjson.GetBytes(raw, p).Exists() {
		t.Fatalf("escaped model key not present in %s", raw)
	}
}
