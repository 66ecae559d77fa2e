package gateway

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// profilesFile is the on-disk shape of gateways.yaml.
type profilesFile struct {
	Gateways []Gateway `yaml:"gateways"`
}

// LoadProfiles parses custom gateway profiles from a YAML file.
// A missing file is not an error; it simply contributes no profiles.
func LoadProfiles(path string) ([]Gateway, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading gateway profiles %q: %w", path, err)
	}

	var file profilesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing gateway profiles %q: %w", path, err)
	}
	for _, g := range file.Gateways {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("gateway profiles %q: %w", path, err)
		}
	}
	return file.Gateways, nil
}

// Resolve returns the named gateway, preferring user profiles from path over
// built-ins so a profile can override the stock OpenRouter definition.
func Resolve(path, name string) (Gateway, error) {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return Gateway{}, err
	}
	for _, g := range profiles {
		if g.Name == name {
			return g, nil
		}
	}
	if g, ok := Builtins()[name]; ok {
		return g, nil
	}
	return Gateway{}, fmt.Errorf("unknown gateway %q (available: %v)", name, availableNames(profiles))
}

// Available lists every resolvable gateway name, sorted.
func Available(path string) ([]string, error) {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return nil, err
	}
	return availableNames(profiles), nil
}

func availableNames(profiles []Gateway) []string {
	seen := map[string]bool{}
	var names []string
	for _, g := range profiles {
		if !seen[g.Name] {
			seen[g.Name] = true
			names = append(names, g.Name)
		}
	}
	for name := range Builtins() {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
