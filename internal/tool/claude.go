package tool

import (
	"fmt"
	"os"

	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/jsonfile"
	"github.com/misty-step/foxglove/internal/state"
)

// claudeAdapter rewires Claude Code through its settings.json env block.
// The API key itself is never written here; Claude Code picks up
// ANTHROPIC_AUTH_TOKEN from the process environment, which the shell
// profile block provides.
type claudeAdapter struct{}

func (a *claudeAdapter) Kind() Kind         { return KindClaude }
func (a *claudeAdapter) BinaryName() string { return "claude" }

func (a *claudeAdapter) Detect(p Paths) Detection {
	d := Detection{Kind: KindClaude, ConfigPath: p.claudeSettings(false)}
	d.Binary, d.Installed = detectBinary(a.BinaryName())
	_, err := os.Stat(d.ConfigPath)
	d.ConfigExists = err == nil
	return d
}

func (a *claudeAdapter) Configure(p Paths, plan Plan) ([]state.Change, error) {
	path := p.claudeSettings(plan.Project)

	env := plan.Gateway.ClaudeEnv(plan.model(), "")
	keys := make(map[string]any, len(env))
	for name, value := range env {
		keys[jsonfile.Path("env", name)] = value
	}

	written, err := jsonfile.SetKeys(path, keys, 0o644)
	if err != nil {
		return nil, fmt.Errorf("claude settings: %w", err)
	}
	return fileKeyChanges(path, written), nil
}

func (a *claudeAdapter) Remove(p Paths, changes []state.Change) error {
	return revertFileKeys(changes)
}

func (a *claudeAdapter) Routed(p Paths, gw gateway.Gateway, project bool) bool {
	got := jsonfile.Get(p.claudeSettings(project), "env.ANTHROPIC_BASE_URL")
	return got.Exists() && got.String() == gw.AnthropicBaseURL
}
