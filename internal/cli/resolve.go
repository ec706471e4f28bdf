package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/semver"
)

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <requirement> [version...]",
		Short: "Parse a version requirement and test versions against it",
		Long: `Parse a Cargo or npm style version requirement, print its normalized
form and minimum version, and report whether each given version satisfies it.`,
		Example: `  deputy resolve "^1.2"
  deputy resolve ">=1.0, <2" 1.4.0 2.0.0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			req, err := semver.ParseRequirement(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid requirement %q", args[0])
			}
			printKeyValue(w, "Requirement", req.String())
			printKeyValue(w, "Minimum", req.MinimumVersion().String())

			for _, raw := range args[1:] {
				v, err := semver.ParseVersion(strings.TrimPrefix(raw, "v"))
				switch {
				case err != nil:
					printError(w, "%s is not a version", raw)
				case req.Matches(v):
					printSuccess(w, "%s matches", v)
				default:
					printWarning(w, "%s does not match", v)
				}
			}
			return nil
		},
	}
}
