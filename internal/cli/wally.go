package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/deputy/pkg/clients"
)

// wallyCommand creates the wally command and its subcommands.
func (c *CLI) wallyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wally",
		Short: "Browse a Wally package index",
		Long: `Browse the scopes and packages of a Wally index. The index and the
fallback registries listed in its config.json are searched together.`,
	}

	cmd.AddCommand(c.wallyIndexesCommand())
	cmd.AddCommand(c.wallyScopesCommand())
	cmd.AddCommand(c.wallyPackagesCommand())
	return cmd
}

func (c *CLI) wallyIndexesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "List the index and its fallback registries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			var urls []string
			err := c.withRegistry(ctx, func(cl *clients.Clients) (err error) {
				urls, err = cl.Wally.IndexURLs(ctx, cl.WallyIndex())
				return err
			})
			if err != nil {
				return err
			}
			for i, u := range urls {
				note := "fallback"
				if i == 0 {
					note = "main"
				}
				fmt.Fprintln(w, StyleLink.Render(u)+" "+StyleDim.Render(note))
			}
			return nil
		},
	}
}

func (c *CLI) wallyScopesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List the scopes of the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			var scopes []string
			err := c.withRegistry(ctx, func(cl *clients.Clients) (err error) {
				scopes, err = cl.Wally.IndexScopes(ctx, cl.WallyIndex())
				return err
			})
			if err != nil {
				return err
			}
			for _, s := range scopes {
				fmt.Fprintln(w, s)
			}
			return nil
		},
	}
}

func (c *CLI) wallyPackagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "packages <scope>",
		Short:   "List the packages published under a scope",
		Example: `  deputy wally packages evaera`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			scope := args[0]

			var names []string
			err := c.withRegistry(ctx, func(cl *clients.Clients) (err error) {
				names, err = cl.Wally.IndexPackages(ctx, cl.WallyIndex(), scope)
				return err
			})
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(w, scope+"/"+n)
			}
			if len(names) > 0 {
				printNewline(w)
				printNextStep(w, "List versions", "deputy versions wally "+scope+"/"+names[0])
			}
			return nil
		},
	}
}
