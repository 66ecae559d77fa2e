package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/lib"
	"github.com/misty-step/foxglove/internal/preflight"
	"github.com/misty-step/foxglove/internal/state"
	"github.com/misty-step/foxglove/internal/tool"
)

type statusOptions struct {
	Gateway string
	Format  string
	Project bool
	Timeout time.Duration
}

type statusDeps struct {
	paths          func(projectDir string) (tool.Paths, error)
	resolveGateway func(name string) (gateway.Gateway, error)
	adapters       func() []tool.Adapter
	checkAll       func(ctx context.Context, paths tool.Paths, adapters []tool.Adapter, gw gateway.Gateway, project bool) (preflight.Report, error)
	loadState      func(path string) (*state.State, error)
	statePath      func() string
}

func defaultStatusDeps() statusDeps {
	logger := newLogger()
	return statusDeps{
		paths: defaultPaths,
		resolveGateway: func(name string) (gateway.Gateway, error) {
			return gateway.Resolve(lib.GatewaysPath(), name)
		},
		adapters: tool.All,
		checkAll: func(ctx context.Context, paths tool.Paths, adapters []tool.Adapter, gw gateway.Gateway, project bool) (preflight.Report, error) {
			service := preflight.NewService(logger, &lib.ExecRunner{Logger: logger}, paths)
			return service.CheckAll(ctx, adapters, gw, project)
		},
		loadState: state.Load,
		statePath: lib.StatePath,
	}
}

func newStatusCmd() *cobra.Command {
	return newStatusCmdWithDeps(defaultStatusDeps())
}

func newStatusCmdWithDeps(deps statusDeps) *cobra.Command {
	opts := statusOptions{
		Format:  "text",
		Timeout: 2 * time.Minute,
	}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether tools are routed through the gateway",
		Long: `Check whether tools are routed through the gateway.

For each supported tool: is the binary on PATH, does its config parse,
does it point at the gateway, and is the API key env var set. The
gateway defaults to whatever the last configure run used.

Use --format=json for machine-readable output.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, opts, deps)
		},
	}

	cmd.Flags().StringVar(&opts.Gateway, "gateway", "", "Gateway profile to check against (default: last configured)")
	cmd.Flags().StringVar(&opts.Format, "format", opts.Format, "Output format: json|text")
	cmd.Flags().BoolVar(&opts.Project, "project", false, "Check project-level config in the current directory")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Command timeout")

	return cmd
}

func runStatus(cmd *cobra.Command, opts statusOptions, deps statusDeps) error {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "json" && format != "text" {
		return errors.New("--format must be json or text")
	}

	gatewayName := opts.Gateway
	if gatewayName == "" {
		if s, err := deps.loadState(deps.statePath()); err == nil && s.Meta.Gateway != "" {
			gatewayName = s.Meta.Gateway
		} else {
			gatewayName = "openrouter"
		}
	}
	gw, err := deps.resolveGateway(gatewayName)
	if err != nil {
		return err
	}

	projectDir := ""
	if opts.Project {
		projectDir = "."
	}
	paths, err := deps.paths(projectDir)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	report, err := deps.checkAll(runCtx, paths, deps.adapters(), gw, opts.Project)
	if err != nil {
		return err
	}

	if format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else if err := writeStatusText(cmd.OutOrStdout(), gw.Name, report); err != nil {
		return err
	}

	if report.Failures > 0 {
		return &exitError{Code: 1, Err: fmt.Errorf("%d check(s) failed", report.Failures)}
	}
	return nil
}

func writeStatusText(out io.Writer, gatewayName string, report preflight.Report) error {
	if _, err := fmt.Fprintf(out, "Gateway: %s\n\n", gatewayName); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 2, 2, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "TOOL\tCHECK\tSTATUS\tDETAIL"); err != nil {
		return err
	}
	for _, toolReport := range report.Reports {
		for _, check := range toolReport.Checks {
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				toolReport.Tool, check.Name, statusLabel(check.Status), check.Message); err != nil {
				return err
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\n%d tool(s) checked, %d ready, %d failure(s), %d warning(s)\n",
		report.Checked, report.Succeeded, report.Failures, report.Warnings)
	return err
}

func statusLabel(s preflight.Status) string {
	switch s {
	case preflight.StatusPass:
		return color.GreenString("pass")
	case preflight.StatusWarn:
		return color.YellowString("warn")
	case preflight.StatusFail:
		return color.RedString("fail")
	default:
		return string(s)
	}
}
