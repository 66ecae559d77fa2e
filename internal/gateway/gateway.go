// Package gateway models the LLM gateway endpoints foxglove routes coding
// assistants through. One built-in profile (OpenRouter) ships with the
// binary; additional profiles come from a YAML file in the config dir.
package gateway

import (
	"fmt"
	"net/url"
	"strings"
)

// Gateway describes one routing target.
type Gateway struct {
	// Name identifies the profile (e.g. "openrouter").
	Name string `yaml:"name"`

	// AnthropicBaseURL is the Anthropic-compatible endpoint used by Claude
	// Code. Claude Code appends /v1/messages internally, so the base must
	// not already include /v1 or requests become /v1/v1/... and 404.
	AnthropicBaseURL string `yaml:"anthropic_base_url"`

	// OpenAIBaseURL is the OpenAI-compatible endpoint used by Codex and
	// OpenCode. This one does include /v1.
	OpenAIBaseURL string `yaml:"openai_base_url"`

	// KeyEnv names the environment variable holding the gateway API key.
	KeyEnv string `yaml:"key_env"`

	// DefaultModel is the model identifier in gateway format
	// (provider/model).
	DefaultModel string `yaml:"default_model"`

	// SmallModel is used where tools distinguish a fast/cheap model.
	// Falls back to DefaultModel when empty.
	SmallModel string `yaml:"small_model,omitempty"`

	// Environment adds or overrides env vars on top of the generated set.
	Environment map[string]string `yaml:"environment,omitempty"`
}

// Default model identifiers for the built-in profile.
const (
	DefaultModelMiniMax = "minimax/minimax-m2.5"
	DefaultModelKimi    = "moonshotai/kimi-k2.5"
	DefaultModelGLM     = "z-ai/glm-5"
)

// OpenRouter is the built-in gateway profile.
func OpenRouter() Gateway {
	return Gateway{
		Name:             "openrouter",
		AnthropicBaseURL: "https://openrouter.ai/api",
		OpenAIBaseURL:    "https://openrouter.ai/api/v1",
		KeyEnv:           "OPENROUTER_API_KEY",
		DefaultModel:     DefaultModelMiniMax,
		SmallModel:       DefaultModelKimi,
	}
}

// Builtins returns all built-in profiles keyed by name.
func Builtins() map[string]Gateway {
	or := OpenRouter()
	return map[string]Gateway{or.Name: or}
}

// Model returns the effective primary model.
func (g Gateway) Model() string {
	if g.DefaultModel != "" {
		return g.DefaultModel
	}
	return DefaultModelMiniMax
}

// FastModel returns the effective small/fast model.
func (g Gateway) FastModel() string {
	if g.SmallModel != "" {
		return g.SmallModel
	}
	return g.Model()
}

// Validate checks that the profile is usable.
func (g Gateway) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("gateway: name is required")
	}
	if err := checkURL("anthropic_base_url", g.AnthropicBaseURL); err != nil {
		return err
	}
	if err := checkURL("openai_base_url", g.OpenAIBaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(g.KeyEnv) == "" {
		return fmt.Errorf("gateway %q: key_env is required", g.Name)
	}
	if strings.Contains(g.Model(), " ") {
		return fmt.Errorf("gateway %q: invalid model %q", g.Name, g.Model())
	}
	if strings.HasSuffix(strings.TrimRight(g.AnthropicBaseURL, "/"), "/v1") {
		return fmt.Errorf("gateway %q: anthropic_base_url must not end in /v1 (Claude Code appends it)", g.Name)
	}
	return nil
}

func checkURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("gateway: %s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateway: %s %q is not an absolute URL", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("gateway: %s %q must be http or https", field, raw)
	}
	return nil
}

// ClaudeEnv returns the environment variables that point Claude Code at the
// gateway. The model is pinned across every model slot so subagents and
// background tasks route identically. Custom Environment entries are applied
// last so profile authors can override any generated value.
func (g Gateway) ClaudeEnv(model, key string) map[string]string {
	if model == "" {
		model = g.Model()
	}
	env := map[string]string{
		"ANTHROPIC_BASE_URL":             g.AnthropicBaseURL,
		"ANTHROPIC_MODEL":                model,
		"ANTHROPIC_SMALL_FAST_MODEL":     g.FastModel(),
		"ANTHROPIC_DEFAULT_OPUS_MODEL":   model,
		"ANTHROPIC_DEFAULT_SONNET_MODEL": model,
		"ANTHROPIC_DEFAULT_HAIKU_MODEL":  g.FastModel(),
		"CLAUDE_CODE_SUBAGENT_MODEL":     model,

		"CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC": "1",
		"API_TIMEOUT_MS":                           "600000",
	}
	if key != "" {
		env["ANTHROPIC_AUTH_TOKEN"] = key
	}
	for k, v := range g.Environment {
		env[k] = v
	}
	return env
}

// ShellEnv returns the variables exported into shell profiles: the gateway
// key under its canonical env name. Config files reference the env var
// rather than embedding the key, so rotating the key is a one-line edit.
func (g Gateway) ShellEnv(key string) map[string]string {
	if key == "" {
		return map[string]string{}
	}
	return map[string]string{g.KeyEnv: key}
}
