package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/deputy/pkg/clients"
	"github.com/matzehuels/deputy/pkg/integrations/crates"
	"github.com/matzehuels/deputy/pkg/integrations/github"
	"github.com/matzehuels/deputy/pkg/integrations/npm"
	"github.com/matzehuels/deputy/pkg/integrations/wally"
	"github.com/matzehuels/deputy/pkg/versioning"
)

// =============================================================================
// search
// =============================================================================

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search crates.io",
		Long: `Search crates.io by name. Requests to the crates.io API are spaced out
to respect its crawler policy, so repeated searches may pause briefly.`,
		Example: `  deputy search serde`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			var results []crates.CrateData
			stop := c.startSpinner(ctx, "Searching crates.io...")
			err := c.withRegistry(ctx, func(cl *clients.Clients) error {
				var err error
				results, err = cl.Crates.SearchCrates(ctx, args[0])
				return err
			})
			stop()
			if err != nil {
				return err
			}
			if len(results) == 0 {
				printWarning(w, "no crates match %q", args[0])
				return nil
			}

			for i, crate := range results {
				if limit > 0 && i >= limit {
					break
				}
				fmt.Fprintln(w, StyleHighlight.Render(crate.Name)+" "+StyleValue.Render(crate.MaxVersion))
				if crate.Description != "" {
					printDetail(w, "%s", firstLine(crate.Description))
				}
			}
			printNewline(w)
			printNextStep(w, "Show details", "deputy info crates "+results[0].Name)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "show at most n results (0 for all)")
	return cmd
}

// =============================================================================
// info
// =============================================================================

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <registry> <name>",
		Short: "Show package details and the latest version",
		Example: `  deputy info crates tokio
  deputy info github rojo-rbx/rojo`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeRegistry,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			registry, err := clients.ParseRegistry(args[0])
			if err != nil {
				return err
			}
			name := args[1]

			stop := c.startSpinner(ctx, "Fetching "+name+"...")
			return c.withRegistry(ctx, func(cl *clients.Clients) error {
				defer stop()
				switch registry {
				case clients.Crates:
					return crateInfo(ctx, w, cl.Crates, name)
				case clients.Npm:
					return npmInfo(ctx, w, cl.Npm, name)
				case clients.GitHub:
					return githubInfo(ctx, w, cl.GitHub, name)
				default:
					return wallyInfo(ctx, w, cl.Wally, cl.WallyIndex(), name)
				}
			})
		},
	}
}

func crateInfo(ctx context.Context, w io.Writer, client *crates.Client, name string) error {
	var (
		data  crates.CrateData
		metas []crates.IndexMetadata
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data, err = client.CrateData(gctx, name)
		return err
	})
	g.Go(func() (err error) {
		metas, err = client.SparseIndexMetadatas(gctx, name)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(w, StyleTitle.Render(data.Name))
	if data.Description != "" {
		printDetail(w, "%s", firstLine(data.Description))
	}
	printKeyValue(w, "Latest", latestOf(metas))
	printKeyValue(w, "Versions", fmt.Sprintf("%d published", len(metas)))
	printKeyValue(w, "Downloads", fmt.Sprintf("%d (%d recent)", data.Downloads, data.RecentDownloads))
	printLink(w, "Repository", data.Repository)
	printLink(w, "Docs", data.Documentation)
	printLink(w, "Homepage", data.Homepage)

	if len(metas) > 0 {
		if features := metas[0].AllFeatures(); len(features) > 0 {
			printKeyValue(w, "Features", strings.Join(features, ", "))
		}
	}
	return nil
}

func npmInfo(ctx context.Context, w io.Writer, client *npm.Client, name string) error {
	meta, err := client.RegistryMetadata(ctx, name)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, StyleTitle.Render(meta.Name))
	if meta.Description != "" {
		printDetail(w, "%s", firstLine(meta.Description))
	}
	if latest, ok := meta.Latest(); ok {
		printKeyValue(w, "Latest", latest.Version)
	}
	printKeyValue(w, "Versions", fmt.Sprintf("%d published", len(meta.Versions)))
	if meta.License != nil && meta.License.Kind != "" {
		printKeyValue(w, "License", meta.License.Kind)
	}
	if meta.Author != nil && meta.Author.Name != "" {
		printKeyValue(w, "Author", meta.Author.Name)
	}
	if repo := meta.Repository.URL(); repo != "" {
		printKeyValue(w, "Repository", StyleLink.Render(repo))
	}
	if meta.Homepage != "" {
		printKeyValue(w, "Homepage", StyleLink.Render(meta.Homepage))
	}
	return nil
}

func githubInfo(ctx context.Context, w io.Writer, client *github.Client, ref string) error {
	owner, repo, err := github.ParseRepoRef(ref)
	if err != nil {
		return err
	}

	var (
		metrics  github.RepositoryMetrics
		releases []github.Release
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		metrics, err = client.RepositoryMetrics(gctx, owner, repo)
		return err
	})
	g.Go(func() (err error) {
		releases, err = client.RepositoryReleases(gctx, owner, repo)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(w, StyleTitle.Render(owner+"/"+repo))
	if metrics.Description != "" {
		printDetail(w, "%s", firstLine(metrics.Description))
	}
	printKeyValue(w, "Latest", latestOf(releases))
	printKeyValue(w, "Releases", fmt.Sprintf("%d recent", len(releases)))
	printKeyValue(w, "Health", fmt.Sprintf("%d%%", metrics.HealthPercentage))
	if metrics.Documentation != "" {
		printKeyValue(w, "Docs", StyleLink.Render(metrics.Documentation))
	}
	return nil
}

func wallyInfo(ctx context.Context, w io.Writer, client *wally.Client, index, name string) error {
	scope, pkg, _ := strings.Cut(name, "/")
	metas, err := client.IndexMetadatas(ctx, index, scope, pkg)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		printWarning(w, "%s has no published versions", name)
		return nil
	}
	latest := metas[0]
	if l, ok := versioning.ExtractLatest(latest.RawVersion(), metas); ok {
		latest = l.Item
	}
	p := latest.Package

	fmt.Fprintln(w, StyleTitle.Render(p.Name))
	if p.Description != "" {
		printDetail(w, "%s", firstLine(p.Description))
	}
	printKeyValue(w, "Latest", p.Version)
	printKeyValue(w, "Versions", fmt.Sprintf("%d published", len(metas)))
	printKeyValue(w, "Realm", p.Realm.Name())
	printKeyValue(w, "Section", "["+p.Realm.SectionName()+"]")
	if p.License != "" {
		printKeyValue(w, "License", p.License)
	}
	if len(p.Authors) > 0 {
		printKeyValue(w, "Authors", strings.Join(p.Authors, ", "))
	}
	if n := len(latest.Dependencies) + len(latest.ServerDependencies) + len(latest.DevDependencies); n > 0 {
		printKeyValue(w, "Depends on", fmt.Sprintf("%d packages", n))
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// latestOf returns the newest non-deprecated version, or "—".
func latestOf[T versioning.Versioned](items []T) string {
	completions := versioning.ExtractCompletions("", items)
	if len(completions) == 0 {
		return "—"
	}
	return completions[0].ItemVersionRaw
}

func printLink(w io.Writer, key string, url *string) {
	if url != nil && *url != "" {
		printKeyValue(w, key, StyleLink.Render(*url))
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
