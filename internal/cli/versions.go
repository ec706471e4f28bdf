package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/deputy/pkg/clients"
	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/semver"
	"github.com/matzehuels/deputy/pkg/versioning"
)

// =============================================================================
// versions
// =============================================================================

// versionsCommand creates the versions command.
func (c *CLI) versionsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "versions <registry> <name>",
		Short: "List the published versions of a package",
		Long: `List every published version of a package, newest first.

Registries:
  crates   crate name
  npm      package name, scoped names included
  github   owner/repo (release tags)
  wally    scope/name (see --index)`,
		Example: `  deputy versions crates serde
  deputy versions github rojo-rbx/rojo --limit 5`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeRegistry,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			registry, items, err := c.candidates(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			items = newestFirst(items)

			fmt.Fprintln(w, StyleTitle.Render(args[1])+" "+StyleDim.Render(fmt.Sprintf("%s · %d versions", registry, len(items))))
			for i, item := range items {
				if limit > 0 && i >= limit {
					printDetail(w, "… %d more", len(items)-limit)
					break
				}
				note := ""
				if item.Deprecated() {
					note = deprecatedLabel(registry)
				}
				printVersion(w, item.RawVersion(), item.Deprecated(), note)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n versions (0 for all)")
	return cmd
}

// =============================================================================
// latest
// =============================================================================

// latestResult is the outcome for one package argument of latest.
type latestResult struct {
	name    string
	version string
	latest  versioning.LatestVersion[versioning.Versioned]
	found   bool
}

// latestCommand creates the latest command.
func (c *CLI) latestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest <registry> <name@version>...",
		Short: "Find the latest version for dependencies",
		Long: `For each name@version, find the newest non-deprecated version and report
whether it is compatible with the given version. Prereleases are only
considered when they share the given version's major.minor.patch.

Packages are looked up concurrently.`,
		Example: `  deputy latest crates serde@1.0.100 tokio@^1.30
  deputy latest npm @types/node@20.1.0`,
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: completeRegistry,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			registry, err := clients.ParseRegistry(args[0])
			if err != nil {
				return err
			}

			prog := newProgress(loggerFromContext(ctx))
			results := make([]latestResult, len(args)-1)
			g, gctx := errgroup.WithContext(ctx)
			for i, arg := range args[1:] {
				name, version, err := splitNameVersion(arg)
				if err != nil {
					return err
				}
				g.Go(func() error {
					_, items, err := c.candidates(gctx, string(registry), name)
					if err != nil {
						return err
					}
					latest, ok := versioning.ExtractLatestWith(version, items, versioning.LatestOptions[versioning.Versioned]{
						KeepDeprecatedExact: true,
					})
					results[i] = latestResult{name: name, version: version, latest: latest, found: ok}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			prog.donef("Checked %d packages", len(results))

			for _, r := range results {
				printLatest(w, registry, r)
			}
			return nil
		},
	}
}

func printLatest(w io.Writer, registry clients.Registry, r latestResult) {
	if !r.found {
		printWarning(w, "%s@%s: no usable versions", r.name, r.version)
		return
	}
	item := r.latest.Item
	switch {
	case r.latest.IsExactlyCompatible && item.Deprecated():
		printError(w, "%s@%s is %s", r.name, r.version, deprecatedLabel(registry))
	case r.latest.IsExactlyCompatible:
		printSuccess(w, "%s@%s is the latest version", r.name, r.version)
	case r.latest.IsSemverCompatible:
		printInfo(w, "%s@%s %s %s", r.name, r.version, iconArrow, styleCompatible.Render(item.RawVersion()))
		printDetail(w, "compatible update")
	default:
		printInfo(w, "%s@%s %s %s", r.name, r.version, iconArrow, styleIncompatible.Render(item.RawVersion()))
		printDetail(w, "newer version outside the requirement")
	}
}

// splitNameVersion splits "name@version" on its last "@", so scoped npm
// names such as "@types/node@20" keep their leading "@".
func splitNameVersion(arg string) (name, version string, err error) {
	i := strings.LastIndex(arg, "@")
	if i <= 0 || i == len(arg)-1 {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "want name@version, got %q", arg)
	}
	return arg[:i], arg[i+1:], nil
}

// =============================================================================
// complete
// =============================================================================

// completeCommand creates the complete command.
func (c *CLI) completeCommand() *cobra.Command {
	var (
		limit       int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "complete <registry> <name> [typed]",
		Short: "Rank version completions for partially typed text",
		Long: `Rank the versions of a package as completions for partially typed version
text, the way an editor would. Requirement operators such as ^ and ~ are
ignored. Deprecated versions are never offered.

With --interactive, pick a version from the list and print it.`,
		Example: `  deputy complete crates serde 1.0.1
  deputy complete npm react ^18 --interactive`,
		Args:              cobra.RangeArgs(2, 3),
		ValidArgsFunction: completeRegistry,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			typed := ""
			if len(args) == 3 {
				typed = args[2]
			}
			_, items, err := c.candidates(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			completions := versioning.ExtractCompletions(typed, items)
			if limit > 0 && len(completions) > limit {
				completions = completions[:limit]
			}
			if len(completions) == 0 {
				printWarning(w, "no versions of %s start with %q", args[1], versioning.TrimSpecifiers(typed))
				return nil
			}

			if interactive {
				choice, err := pickVersion(ctx, args[1], completions)
				if err != nil || choice == "" {
					return err
				}
				fmt.Fprintln(w, choice)
				return nil
			}

			for i, comp := range completions {
				fmt.Fprintln(w, StyleDim.Render(versioning.SortText(i, len(completions)))+" "+comp.ItemVersionRaw)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "show at most n completions (0 for all)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick a version interactively")
	return cmd
}

// pickVersion runs the interactive version picker and returns the chosen
// version, or "" if the user quit.
func pickVersion(ctx context.Context, name string, completions []versioning.CompletionVersion[versioning.Versioned]) (string, error) {
	p := tea.NewProgram(NewVersionPickerModel(name, completions), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(VersionPickerModel)
	if !ok || m.Selected == nil {
		return "", nil
	}
	return m.Selected.ItemVersionRaw, nil
}

// =============================================================================
// Helpers
// =============================================================================

// candidates fetches the versions of name from the named registry.
func (c *CLI) candidates(ctx context.Context, registryName, name string) (clients.Registry, []versioning.Versioned, error) {
	registry, err := clients.ParseRegistry(registryName)
	if err != nil {
		return "", nil, err
	}
	var items []versioning.Versioned
	err = c.withRegistry(ctx, func(cl *clients.Clients) error {
		var ferr error
		items, ferr = cl.Candidates(ctx, registry, name)
		return ferr
	})
	return registry, items, err
}

// newestFirst sorts items by version, newest first. Unparseable versions go
// last in reverse lexical order.
func newestFirst(items []versioning.Versioned) []versioning.Versioned {
	type parsed struct {
		item versioning.Versioned
		v    semver.Version
		ok   bool
	}
	ps := make([]parsed, len(items))
	for i, item := range items {
		v, err := semver.ParseVersion(item.RawVersion())
		ps[i] = parsed{item: item, v: v, ok: err == nil}
	}
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		switch {
		case a.ok && b.ok:
			return b.v.Less(a.v)
		case a.ok != b.ok:
			return a.ok
		default:
			return a.item.RawVersion() > b.item.RawVersion()
		}
	})
	out := make([]versioning.Versioned, len(ps))
	for i, p := range ps {
		out[i] = p.item
	}
	return out
}

func deprecatedLabel(r clients.Registry) string {
	switch r {
	case clients.Crates:
		return "yanked"
	case clients.GitHub:
		return "draft"
	default:
		return "deprecated"
	}
}

func completeRegistry(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, len(clients.Registries))
	for i, r := range clients.Registries {
		names[i] = string(r)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
