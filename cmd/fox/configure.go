package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/misty-step/foxglove/internal/envstore"
	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/lib"
	"github.com/misty-step/foxglove/internal/prompt"
	"github.com/misty-step/foxglove/internal/shellenv"
	"github.com/misty-step/foxglove/internal/state"
	"github.com/misty-step/foxglove/internal/tool"
)

type configureOptions struct {
	Gateway string
	Model   string
	KeyEnv  string
	Project bool
	Yes     bool
	DryRun  bool
	Timeout time.Duration
}

type configureDeps struct {
	resolveGateway func(name string) (gateway.Gateway, error)
	paths          func(projectDir string) (tool.Paths, error)
	selectTools    func(args []string, paths tool.Paths) ([]tool.Adapter, error)
	profiles       func(home string) []shellenv.Profile
	applyBlock     func(p shellenv.Profile, vars map[string]string) error
	setWinEnv      func(ctx context.Context, vars map[string]string) []string
	statePath      func() string
	withState      func(path string, fn func(*state.State) error) error
	lookupEnv      func(string) (string, bool)
	confirm        func(question string, def bool) (bool, error)
	secret         func(label string) (string, error)
	goos           string
}

func defaultConfigureDeps() configureDeps {
	logger := newLogger()
	prompter := prompt.New()
	store := envstore.New(logger, &lib.ExecRunner{Logger: logger})
	return configureDeps{
		resolveGateway: func(name string) (gateway.Gateway, error) {
			return gateway.Resolve(lib.GatewaysPath(), name)
		},
		paths: defaultPaths,
		selectTools: func(args []string, paths tool.Paths) ([]tool.Adapter, error) {
			return parseToolArgs(args, paths, true)
		},
		profiles:   shellenv.DefaultProfiles,
		applyBlock: shellenv.Apply,
		setWinEnv:  store.Set,
		statePath:  lib.StatePath,
		withState:  state.WithLockedState,
		lookupEnv:  os.LookupEnv,
		confirm:    prompter.Confirm,
		secret:     prompter.Secret,
		goos:       store.GOOS,
	}
}

func newConfigureCmd() *cobra.Command {
	return newConfigureCmdWithDeps(defaultConfigureDeps())
}

func newConfigureCmdWithDeps(deps configureDeps) *cobra.Command {
	opts := configureOptions{
		Gateway: "openrouter",
		Timeout: 2 * time.Minute,
	}

	cmd := &cobra.Command{
		Use:   "configure [tool...]",
		Short: "Route coding assistants through the gateway",
		Long: `Route coding assistants through the gateway.

Without arguments, every supported tool found on PATH is configured.
Name tools explicitly (claude, codex, opencode) to configure a subset.

Configuration edits each tool's own config file, preserving everything
the user already has there, and exports the gateway API key via the
shell profile (or the user registry on Windows). Every change is
recorded so "fox remove" can revert it exactly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd, args, opts, deps)
		},
	}

	cmd.Flags().StringVar(&opts.Gateway, "gateway", opts.Gateway, "Gateway profile name")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Model identifier (provider/model); defaults to the gateway's model")
	cmd.Flags().StringVar(&opts.KeyEnv, "key-env", "", "Env var holding the gateway API key (overrides the profile)")
	cmd.Flags().BoolVar(&opts.Project, "project", false, "Write project-level config in the current directory instead of user-level")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip confirmation prompts")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would change without writing anything")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Command timeout")

	return cmd
}

func runConfigure(cmd *cobra.Command, args []string, opts configureOptions, deps configureDeps) error {
	gw, err := deps.resolveGateway(opts.Gateway)
	if err != nil {
		return err
	}
	if opts.KeyEnv != "" {
		gw.KeyEnv = strings.TrimSpace(opts.KeyEnv)
	}
	if err := gw.Validate(); err != nil {
		return err
	}
	model := opts.Model
	if model == "" {
		model = gw.Model()
	}

	projectDir := ""
	if opts.Project {
		projectDir = "."
	}
	paths, err := deps.paths(projectDir)
	if err != nil {
		return err
	}

	adapters, err := deps.selectTools(args, paths)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(stderr, "Routing %s through %s (model %s)\n", kindList(adapters), gw.Name, model)

	if opts.DryRun {
		return printConfigurePlan(cmd, adapters, paths, gw, opts)
	}

	if !opts.Yes {
		confirmed, err := deps.confirm(fmt.Sprintf("Rewrite config for %s?", kindList(adapters)), true)
		if err != nil {
			return err
		}
		if !confirmed {
			_, _ = fmt.Fprintln(stderr, "aborted")
			return nil
		}
	}

	key, err := resolveKey(stderr, gw, opts, deps)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	plan := tool.Plan{Gateway: gw, Model: opts.Model, APIKey: key, Project: opts.Project}
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	changesByTool := map[string][]state.Change{}
	var failed []string
	for _, a := range adapters {
		changes, err := configureOne(a, paths, plan, opts, deps)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%s %s: %v\n", red("✗"), a.Kind(), err)
			failed = append(failed, string(a.Kind()))
			continue
		}
		changesByTool[string(a.Kind())] = changes
		_, _ = fmt.Fprintf(stderr, "%s %s configured\n", green("✓"), a.Kind())
	}

	if len(changesByTool) > 0 {
		// Project runs stay inside the repository: no shell profiles, no
		// user registry. The key export is a user-level concern.
		if !opts.Project {
			envChanges, err := applyKeyEnv(runCtx, stderr, gw, key, paths.Home, deps)
			if err != nil {
				return err
			}
			// Env changes ride on every configured tool so remove only strips
			// them once no configured tool needs them anymore.
			for name := range changesByTool {
				changesByTool[name] = append(changesByTool[name], envChanges...)
			}
		}

		if err := deps.withState(deps.statePath(), func(s *state.State) error {
			for name, changes := range changesByTool {
				s.SetTool(name, state.ToolEntry{
					Gateway: gw.Name,
					Model:   model,
					Changes: changes,
				})
			}
			s.Meta.Gateway = gw.Name
			return nil
		}); err != nil {
			return fmt.Errorf("record state: %w", err)
		}
	}

	if len(failed) > 0 {
		return &exitError{Code: 1, Err: fmt.Errorf("configuration failed for: %s", strings.Join(failed, ", "))}
	}
	if opts.Project {
		_, _ = fmt.Fprintln(stderr, "Done.")
	} else {
		_, _ = fmt.Fprintf(stderr, "Done. Open a new shell to pick up %s.\n", gw.KeyEnv)
	}
	return nil
}

// configureOne applies one adapter, offering a single interactive retry on
// failure (transient problems like a locked config file clear on retry).
func configureOne(a tool.Adapter, paths tool.Paths, plan tool.Plan, opts configureOptions, deps configureDeps) ([]state.Change, error) {
	changes, err := a.Configure(paths, plan)
	if err == nil || opts.Yes {
		return changes, err
	}
	retry, confirmErr := deps.confirm(fmt.Sprintf("%s failed (%v). Retry?", a.Kind(), err), false)
	if confirmErr != nil || !retry {
		return nil, err
	}
	return a.Configure(paths, plan)
}

// resolveKey finds the gateway API key: the key env var if set, otherwise a
// hidden prompt. Proceeding without a key is allowed (routing still works
// once the user exports it themselves).
func resolveKey(stderr io.Writer, gw gateway.Gateway, opts configureOptions, deps configureDeps) (string, error) {
	if value, ok := deps.lookupEnv(gw.KeyEnv); ok && strings.TrimSpace(value) != "" {
		_, _ = fmt.Fprintf(stderr, "Using API key from %s\n", gw.KeyEnv)
		return strings.TrimSpace(value), nil
	}
	if opts.Yes {
		_, _ = fmt.Fprintf(stderr, "warning: %s not set; configs will reference it but no key was stored\n", gw.KeyEnv)
		return "", nil
	}
	key, err := deps.secret(fmt.Sprintf("%s API key (blank to skip)", gw.Name))
	if err != nil {
		return "", err
	}
	if key == "" {
		_, _ = fmt.Fprintf(stderr, "warning: no key provided; export %s yourself before using the tools\n", gw.KeyEnv)
	}
	return key, nil
}

// applyKeyEnv persists the gateway key for future shells: managed profile
// blocks on Unix, the user registry on Windows (plus the PowerShell profile
// block, which covers already-open sessions' profiles).
func applyKeyEnv(ctx context.Context, stderr io.Writer, gw gateway.Gateway, key, home string, deps configureDeps) ([]state.Change, error) {
	vars := gw.ShellEnv(key)
	if len(vars) == 0 {
		return nil, nil
	}

	var changes []state.Change
	if deps.goos == "windows" {
		for _, name := range deps.setWinEnv(ctx, vars) {
			changes = append(changes, state.Change{Kind: state.ChangeWinEnv, Key: name})
		}
	}
	for _, profile := range deps.profiles(home) {
		if err := deps.applyBlock(profile, vars); err != nil {
			return nil, err
		}
		changes = append(changes, state.Change{Kind: state.ChangeShellBlock, Path: profile.Path})
		_, _ = fmt.Fprintf(stderr, "Updated %s\n", profile.Path)
	}
	return changes, nil
}

func printConfigurePlan(cmd *cobra.Command, adapters []tool.Adapter, paths tool.Paths, gw gateway.Gateway, opts configureOptions) error {
	out := cmd.OutOrStdout()
	for _, a := range adapters {
		detection := a.Detect(paths)
		_, _ = fmt.Fprintf(out, "would configure %s (%s)\n", a.Kind(), detection.ConfigPath)
	}
	if !opts.Project {
		_, _ = fmt.Fprintf(out, "would export %s via shell profiles\n", gw.KeyEnv)
	}
	return nil
}
