package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/deputy/pkg/errors"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for deputy.

To load completions:

Bash:
  $ source <(deputy completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ deputy completion bash > /etc/bash_completion.d/deputy
  # macOS:
  $ deputy completion bash > $(brew --prefix)/etc/bash_completion.d/deputy

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ deputy completion zsh > "${fpath[1]}/_deputy"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ deputy completion fish | source

  # To load completions for each session, execute once:
  $ deputy completion fish > ~/.config/fish/completions/deputy.fish

PowerShell:
  PS> deputy completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> deputy completion powershell > deputy.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return genCompletion(cmd.Root(), cmd.OutOrStdout(), args[0])
		},
	}

	return cmd
}

// genCompletion writes the completion script for shell to w.
func genCompletion(root *cobra.Command, w io.Writer, shell string) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	}
	return errors.New(errors.ErrCodeInvalidInput, "unsupported shell %q", shell)
}
