package tool

import (
	"fmt"
	"os"
	"strings"

	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/jsonfile"
	"github.com/misty-step/foxglove/internal/state"
)

// openCodeAdapter rewires OpenCode through opencode.json plus its auth
// store. OpenCode ships an "openrouter" provider; that ID is reused when the
// gateway is the stock profile so models resolve without extra provider
// plumbing. Custom gateways get their own provider block with an {env:...}
// key reference.
type openCodeAdapter struct{}

func (a *openCodeAdapter) Kind() Kind         { return KindOpenCode }
func (a *openCodeAdapter) BinaryName() string { return "opencode" }

func (a *openCodeAdapter) Detect(p Paths) Detection {
	d := Detection{Kind: KindOpenCode, ConfigPath: p.openCodeConfig(false)}
	d.Binary, d.Installed = detectBinary(a.BinaryName())
	_, err := os.Stat(d.ConfigPath)
	d.ConfigExists = err == nil
	return d
}

func (a *openCodeAdapter) providerFor(gw gateway.Gateway) string {
	if gw.Name == "openrouter" {
		return "openrouter"
	}
	return providerID
}

func (a *openCodeAdapter) Configure(p Paths, plan Plan) ([]state.Change, error) {
	configPath := p.openCodeConfig(plan.Project)
	gw := plan.Gateway
	provider := a.providerFor(gw)
	model := plan.model()

	keys := map[string]any{
		jsonfile.Path("$schema"):    "https://opencode.ai/config.json",
		jsonfile.Path("autoupdate"): false,
		jsonfile.Path("model"):      provider + "/" + model,
		jsonfile.Path("provider", provider, "models", model): map[string]any{},
	}
	if provider != "openrouter" {
		keys[jsonfile.Path("provider", provider, "options", "baseURL")] = gw.OpenAIBaseURL
		keys[jsonfile.Path("provider", provider, "options", "apiKey")] = "{env:" + gw.KeyEnv + "}"
	}

	written, err := jsonfile.SetKeys(configPath, keys, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opencode config: %w", err)
	}
	changes := fileKeyChanges(configPath, written)

	// auth.json is user-wide; project runs inherit it.
	if !plan.Project && plan.APIKey != "" {
		authPath := p.openCodeAuth()
		authWritten, err := jsonfile.SetKeys(authPath, map[string]any{
			jsonfile.Path(provider, "type"): "api",
			jsonfile.Path(provider, "key"):  plan.APIKey,
		}, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opencode auth: %w", err)
		}
		changes = append(changes, fileKeyChanges(authPath, authWritten)...)
	}

	return changes, nil
}

func (a *openCodeAdapter) Remove(p Paths, changes []state.Change) error {
	return revertFileKeys(changes)
}

func (a *openCodeAdapter) Routed(p Paths, gw gateway.Gateway, project bool) bool {
	doc := p.openCodeConfig(project)
	provider := a.providerFor(gw)
	if provider == "openrouter" {
		// OpenCode routes by the active model's provider prefix. A user's
		// own openrouter provider block alone proves nothing.
		model := jsonfile.Get(doc, "model").String()
		return strings.HasPrefix(model, "openrouter/")
	}
	got := jsonfile.Get(doc, jsonfile.Path("provider", provider, "options", "baseURL"))
	return got.Exists() && got.String() == gw.OpenAIBaseURL
}
