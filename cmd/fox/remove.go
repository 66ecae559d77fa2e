package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/misty-step/foxglove/internal/envstore"
	"github.com/misty-step/foxglove/internal/lib"
	"github.com/misty-step/foxglove/internal/prompt"
	"github.com/misty-step/foxglove/internal/shellenv"
	"github.com/misty-step/foxglove/internal/state"
	"github.com/misty-step/foxglove/internal/tool"
)

type removeOptions struct {
	Yes     bool
	Timeout time.Duration
}

type removeDeps struct {
	paths       func(projectDir string) (tool.Paths, error)
	adapterFor  func(kind tool.Kind) (tool.Adapter, error)
	stripBlock  func(path string) error
	unsetWinEnv func(ctx context.Context, names []string)
	statePath   func() string
	withState   func(path string, fn func(*state.State) error) error
	confirm     func(question string, def bool) (bool, error)
}

func defaultRemoveDeps() removeDeps {
	logger := newLogger()
	prompter := prompt.New()
	store := envstore.New(logger, &lib.ExecRunner{Logger: logger})
	return removeDeps{
		paths:       defaultPaths,
		adapterFor:  tool.For,
		stripBlock:  shellenv.Strip,
		unsetWinEnv: store.Unset,
		statePath:   lib.StatePath,
		withState:   state.WithLockedState,
		confirm:     prompter.Confirm,
	}
}

func newRemoveCmd() *cobra.Command {
	return newRemoveCmdWithDeps(defaultRemoveDeps())
}

func newRemoveCmdWithDeps(deps removeDeps) *cobra.Command {
	opts := removeOptions{Timeout: 2 * time.Minute}

	cmd := &cobra.Command{
		Use:   "remove [tool...]",
		Short: "Revert gateway routing applied by configure",
		Long: `Revert gateway routing applied by configure.

Only the keys foxglove wrote are deleted; everything else in each
tool's config survives untouched. Shell profile blocks and Windows
registry entries are removed once no configured tool needs them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, args, opts, deps)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip confirmation prompts")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Command timeout")

	return cmd
}

func runRemove(cmd *cobra.Command, args []string, opts removeOptions, deps removeDeps) error {
	paths, err := deps.paths("")
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()

	return deps.withState(deps.statePath(), func(s *state.State) error {
		targets, err := removalTargets(args, s)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			_, _ = fmt.Fprintln(stderr, "nothing to remove")
			return nil
		}

		if !opts.Yes {
			confirmed, err := deps.confirm(fmt.Sprintf("Revert routing for %s?", strings.Join(targets, ", ")), true)
			if err != nil {
				return err
			}
			if !confirmed {
				_, _ = fmt.Fprintln(stderr, "aborted")
				return nil
			}
		}

		targetChanges := map[string][]state.Change{}
		for _, name := range targets {
			entry, _ := s.Tool(name)
			targetChanges[name] = entry.Changes
			kind, err := tool.ParseKind(name)
			if err != nil {
				return err
			}
			adapter, err := deps.adapterFor(kind)
			if err != nil {
				return err
			}
			if err := adapter.Remove(paths, entry.Changes); err != nil {
				return fmt.Errorf("revert %s: %w", name, err)
			}
			s.RemoveTool(name)
			_, _ = fmt.Fprintf(stderr, "✓ %s reverted\n", name)
		}

		// Shell blocks and registry entries are shared across tools; strip
		// only what no remaining tool still references.
		keep := map[state.Change]bool{}
		for _, name := range s.Names() {
			entry, _ := s.Tool(name)
			for _, c := range entry.Changes {
				keep[c] = true
			}
		}

		stripped := map[string]bool{}
		seenVar := map[string]bool{}
		var winVars []string
		for _, name := range targets {
			for _, c := range targetChanges[name] {
				if keep[c] {
					continue
				}
				switch c.Kind {
				case state.ChangeShellBlock:
					if stripped[c.Path] {
						continue
					}
					stripped[c.Path] = true
					if err := deps.stripBlock(c.Path); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(stderr, "Cleaned %s\n", c.Path)
				case state.ChangeWinEnv:
					if seenVar[c.Key] {
						continue
					}
					seenVar[c.Key] = true
					winVars = append(winVars, c.Key)
				}
			}
		}
		if len(winVars) > 0 {
			deps.unsetWinEnv(runCtx, winVars)
		}
		return nil
	})
}

// removalTargets returns the tools to revert: named args (which must exist
// in the ledger) or everything recorded.
func removalTargets(args []string, s *state.State) ([]string, error) {
	if len(args) == 0 {
		return s.Names(), nil
	}
	var targets []string
	for _, arg := range args {
		kind, err := tool.ParseKind(arg)
		if err != nil {
			return nil, err
		}
		if _, ok := s.Tool(string(kind)); !ok {
			return nil, fmt.Errorf("tool %q has no recorded configuration", kind)
		}
		targets = append(targets, string(kind))
	}
	return targets, nil
}
