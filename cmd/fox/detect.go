package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/misty-step/foxglove/internal/tool"
)

type detectOptions struct {
	Format  string
	Project bool
}

type detectDeps struct {
	paths    func(projectDir string) (tool.Paths, error)
	adapters func() []tool.Adapter
}

func defaultDetectDeps() detectDeps {
	return detectDeps{
		paths:    defaultPaths,
		adapters: tool.All,
	}
}

func newDetectCmd() *cobra.Command {
	return newDetectCmdWithDeps(defaultDetectDeps())
}

func newDetectCmdWithDeps(deps detectDeps) *cobra.Command {
	opts := detectOptions{Format: "text"}

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "List supported tools and whether they are installed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDetect(cmd, opts, deps)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", opts.Format, "Output format: json|text")
	cmd.Flags().BoolVar(&opts.Project, "project", false, "Report project-level config paths")

	return cmd
}

func runDetect(cmd *cobra.Command, opts detectOptions, deps detectDeps) error {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "json" && format != "text" {
		return errors.New("--format must be json or text")
	}

	projectDir := ""
	if opts.Project {
		projectDir = "."
	}
	paths, err := deps.paths(projectDir)
	if err != nil {
		return err
	}

	detections := make([]tool.Detection, 0, 3)
	for _, a := range deps.adapters() {
		detections = append(detections, a.Detect(paths))
	}

	if format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(detections)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "TOOL\tINSTALLED\tBINARY\tCONFIG"); err != nil {
		return err
	}
	for _, d := range detections {
		installed := "no"
		binary := "-"
		if d.Installed {
			installed = "yes"
			binary = d.Binary
		}
		config := d.ConfigPath
		if !d.ConfigExists {
			config += " (absent)"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Kind, installed, binary, config); err != nil {
			return err
		}
	}
	return tw.Flush()
}
