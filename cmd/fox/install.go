package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/misty-step/foxglove/internal/install"
	"github.com/misty-step/foxglove/internal/lib"
	"github.com/misty-step/foxglove/internal/prompt"
	"github.com/misty-step/foxglove/internal/tool"
)

type installOptions struct {
	Yes     bool
	DryRun  bool
	Timeout time.Duration
}

type installDeps struct {
	paths      func(projectDir string) (tool.Paths, error)
	adapterFor func(kind tool.Kind) (tool.Adapter, error)
	installOne func(ctx context.Context, a tool.Adapter, paths tool.Paths) (install.Result, error)
	confirm    func(question string, def bool) (bool, error)
}

func defaultInstallDeps(opts *installOptions) installDeps {
	logger := newLogger()
	prompter := prompt.New()
	return installDeps{
		paths:      defaultPaths,
		adapterFor: tool.For,
		installOne: func(ctx context.Context, a tool.Adapter, paths tool.Paths) (install.Result, error) {
			installer := install.New(logger, &lib.ExecRunner{Logger: logger})
			return installer.Install(ctx, a, paths)
		},
		confirm: prompter.Confirm,
	}
}

func newInstallCmd() *cobra.Command {
	opts := &installOptions{Timeout: 5 * time.Minute}
	return newInstallCmdWithDeps(opts, defaultInstallDeps(opts))
}

func newInstallCmdWithDeps(opts *installOptions, deps installDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <tool>...",
		Short: "Install a missing tool with its vendor's installer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args, *opts, deps)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip confirmation prompts")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show the installer command without running it")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Per-tool install timeout")

	return cmd
}

func runInstall(cmd *cobra.Command, args []string, opts installOptions, deps installDeps) error {
	paths, err := deps.paths("")
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	green := color.New(color.FgGreen).SprintFunc()

	var failed []string
	for _, arg := range args {
		kind, err := tool.ParseKind(arg)
		if err != nil {
			return err
		}
		adapter, err := deps.adapterFor(kind)
		if err != nil {
			return err
		}

		if opts.DryRun {
			if adapter.Detect(paths).Installed {
				_, _ = fmt.Fprintf(stderr, "%s already installed\n", kind)
			} else {
				_, _ = fmt.Fprintf(stderr, "would run the %s installer\n", kind)
			}
			continue
		}

		if !opts.Yes {
			confirmed, err := deps.confirm(fmt.Sprintf("Run the %s installer?", kind), true)
			if err != nil {
				return err
			}
			if !confirmed {
				_, _ = fmt.Fprintf(stderr, "skipped %s\n", kind)
				continue
			}
		}

		runCtx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
		result, err := deps.installOne(runCtx, adapter, paths)
		cancel()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "✗ %v\n", err)
			failed = append(failed, string(kind))
			continue
		}

		switch {
		case result.AlreadyInstalled:
			_, _ = fmt.Fprintf(stderr, "%s %s already installed (%s)\n", green("✓"), kind, result.Binary)
		case result.Version != "":
			_, _ = fmt.Fprintf(stderr, "%s %s installed: %s\n", green("✓"), kind, result.Version)
		default:
			_, _ = fmt.Fprintf(stderr, "%s %s installed at %s\n", green("✓"), kind, result.Binary)
		}
	}

	if len(failed) > 0 {
		return &exitError{Code: 1, Err: fmt.Errorf("install failed for: %s", strings.Join(failed, ", "))}
	}
	return nil
}
