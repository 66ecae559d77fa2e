package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/misty-step/foxglove/internal/lib"
	"github.com/misty-step/foxglove/internal/tool"
)

// defaultPaths resolves the tool config locations. projectDir is empty for
// system-level runs; "." means the current directory.
func defaultPaths(projectDir string) (tool.Paths, error) {
	paths := tool.Paths{Home: lib.HomeDir()}
	if projectDir == "" {
		return paths, nil
	}
	if projectDir == "." {
		cwd, err := os.Getwd()
		if err != nil {
			return tool.Paths{}, err
		}
		paths.ProjectDir = cwd
		return paths, nil
	}
	info, err := os.Stat(projectDir)
	if err != nil {
		return tool.Paths{}, fmt.Errorf("project dir %q: %w", projectDir, err)
	}
	if !info.IsDir() {
		return tool.Paths{}, fmt.Errorf("project dir %q is not a directory", projectDir)
	}
	paths.ProjectDir = projectDir
	return paths, nil
}

// parseToolArgs maps positional args to adapters. With no args, every
// installed tool is selected; with args, the named tools are used whether
// installed or not (configure will surface the miss).
func parseToolArgs(args []string, paths tool.Paths, installedOnly bool) ([]tool.Adapter, error) {
	if len(args) == 0 {
		if !installedOnly {
			return tool.All(), nil
		}
		var adapters []tool.Adapter
		for _, a := range tool.All() {
			if a.Detect(paths).Installed {
				adapters = append(adapters, a)
			}
		}
		if len(adapters) == 0 {
			return nil, fmt.Errorf("no supported tools found on PATH; run `fox install <tool>` or name a tool explicitly")
		}
		return adapters, nil
	}

	seen := map[tool.Kind]bool{}
	adapters := make([]tool.Adapter, 0, len(args))
	for _, arg := range args {
		kind, err := tool.ParseKind(arg)
		if err != nil {
			return nil, err
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		a, err := tool.For(kind)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func kindList(adapters []tool.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, string(a.Kind()))
	}
	return strings.Join(names, ", ")
}
