// Package preflight verifies that configured tools are actually ready to
// talk to the selected gateway: binary present, config parseable, routing
// in place, key env var set.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/lib"
	"github.com/misty-step/foxglove/internal/tomlfile"
	"github.com/misty-step/foxglove/internal/tool"
)

type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

type CheckResult struct {
	Name    string
	Status  Status
	Message string
}

type ToolReport struct {
	Tool     tool.Kind
	Checks   []CheckResult
	Failures int
	Warnings int
}

type Report struct {
	Reports   []ToolReport
	Failures  int
	Warnings  int
	Checked   int
	Succeeded int
}

type Service struct {
	Logger *slog.Logger
	Runner lib.Runner
	Paths  tool.Paths

	// Lookup resolves an env var; swapped in tests. Defaults to
	// os.LookupEnv.
	Lookup func(string) (string, bool)
}

func NewService(logger *slog.Logger, runner lib.Runner, paths tool.Paths) *Service {
	return &Service{Logger: logger, Runner: runner, Paths: paths, Lookup: os.LookupEnv}
}

// CheckAll runs CheckTool for each adapter against the gateway.
func (s *Service) CheckAll(ctx context.Context, adapters []tool.Adapter, gw gateway.Gateway, project bool) (Report, error) {
	if len(adapters) == 0 {
		return Report{}, fmt.Errorf("no tools to check")
	}

	report := Report{}
	for _, a := range adapters {
		toolReport, err := s.CheckTool(ctx, a, gw, project)
		if err != nil {
			return Report{}, err
		}
		report.Reports = append(report.Reports, toolReport)
		report.Checked++
		report.Failures += toolReport.Failures
		report.Warnings += toolReport.Warnings
		if toolReport.Failures == 0 {
			report.Succeeded++
		}
	}
	return report, nil
}

// CheckTool probes one tool. A missing binary fails fast; the remaining
// checks only make sense for an installed tool.
func (s *Service) CheckTool(ctx context.Context, a tool.Adapter, gw gateway.Gateway, project bool) (ToolReport, error) {
	report := ToolReport{Tool: a.Kind()}
	add := func(name string, status Status, msg string) {
		report.Checks = append(report.Checks, CheckResult{Name: name, Status: status, Message: msg})
		switch status {
		case StatusFail:
			report.Failures++
		case StatusWarn:
			report.Warnings++
		}
	}

	detection := a.Detect(s.Paths)
	if !detection.Installed {
		add("binary_installed", StatusFail, fmt.Sprintf("%s not found on PATH (binary %q)", a.Kind(), a.BinaryName()))
		return report, nil
	}
	add("binary_installed", StatusPass, fmt.Sprintf("Binary at %s", detection.Binary))

	version, err := s.Runner.Run(ctx, lib.RunRequest{Cmd: a.BinaryName(), Args: []string{"--version"}})
	if err != nil {
		add("binary_version", StatusWarn, fmt.Sprintf("Version probe failed: %v", err))
	} else {
		add("binary_version", StatusPass, strings.TrimSpace(firstLine(version.Stdout)))
	}

	if !detection.ConfigExists {
		add("config_valid", StatusWarn, fmt.Sprintf("No config at %s (run configure)", detection.ConfigPath))
	} else if err := validateConfig(detection.ConfigPath); err != nil {
		add("config_valid", StatusFail, fmt.Sprintf("Config unreadable: %v", err))
		return report, nil
	} else {
		add("config_valid", StatusPass, fmt.Sprintf("Config parses (%s)", detection.ConfigPath))
	}

	if a.Routed(s.Paths, gw, project) {
		add("gateway_routed", StatusPass, fmt.Sprintf("Routed through %s", gw.Name))
	} else {
		add("gateway_routed", StatusFail, fmt.Sprintf("Not routed through %s", gw.Name))
	}

	lookup := s.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup(gw.KeyEnv); ok && strings.TrimSpace(value) != "" {
		add("key_env", StatusPass, fmt.Sprintf("%s is set", gw.KeyEnv))
	} else {
		add("key_env", StatusWarn, fmt.Sprintf("%s not set in this shell (new shells pick up the profile block)", gw.KeyEnv))
	}

	return report, nil
}

func validateConfig(path string) error {
	if strings.HasSuffix(path, ".toml") {
		_, err := tomlfile.Load(path)
		return err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%s is not valid JSON", path)
	}
	return nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
