package tool

import (
	"fmt"
	"os"

	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/jsonfile"
	"github.com/misty-step/foxglove/internal/state"
	"github.com/misty-step/foxglove/internal/tomlfile"
)

// providerID is the model_providers table foxglove owns in Codex's
// config.toml and the provider block it owns in opencode.json.
const providerID = "foxglove"

// codexAdapter rewires Codex through ~/.codex/config.toml. The gateway is
// registered as a custom OpenAI-compatible model provider whose key comes
// from the gateway's env var; auth.json carries the key for subcommands
// that do not read the provider env.
type codexAdapter struct{}

func (a *codexAdapter) Kind() Kind         { return KindCodex }
func (a *codexAdapter) BinaryName() string { return "codex" }

func (a *codexAdapter) Detect(p Paths) Detection {
	d := Detection{Kind: KindCodex, ConfigPath: p.codexConfig(false)}
	d.Binary, d.Installed = detectBinary(a.BinaryName())
	_, err := os.Stat(d.ConfigPath)
	d.ConfigExists = err == nil
	return d
}

func (a *codexAdapter) Configure(p Paths, plan Plan) ([]state.Change, error) {
	configPath := p.codexConfig(plan.Project)
	gw := plan.Gateway

	patch := map[string]any{
		"model":          plan.model(),
		"model_provider": providerID,
		"model_providers": map[string]any{
			providerID: map[string]any{
				"name":     gw.Name + " via foxglove",
				"base_url": gw.OpenAIBaseURL,
				"env_key":  gw.KeyEnv,
				"wire_api": "chat",
			},
		},
	}
	if err := tomlfile.Merge(configPath, patch, 0o644); err != nil {
		return nil, fmt.Errorf("codex config: %w", err)
	}

	changes := fileKeyChanges(configPath, []string{
		"model",
		"model_provider",
		"model_providers." + providerID + ".name",
		"model_providers." + providerID + ".base_url",
		"model_providers." + providerID + ".env_key",
		"model_providers." + providerID + ".wire_api",
	})

	// Codex `login` state lives in auth.json; system-level runs get the key
	// mirrored there so headless invocations work without a login round.
	if !plan.Project && plan.APIKey != "" {
		authPath := p.codexAuth()
		written, err := jsonfile.SetKeys(authPath, map[string]any{
			"OPENAI_API_KEY": plan.APIKey,
		}, 0o600)
		if err != nil {
			return nil, fmt.Errorf("codex auth: %w", err)
		}
		changes = append(changes, fileKeyChanges(authPath, written)...)
	}

	return changes, nil
}

func (a *codexAdapter) Remove(p Paths, changes []state.Change) error {
	return revertFileKeys(changes)
}

func (a *codexAdapter) Routed(p Paths, gw gateway.Gateway, project bool) bool {
	got, ok := tomlfile.Get(p.codexConfig(project), "model_providers."+providerID+".base_url")
	return ok && got == gw.OpenAIBaseURL
}
