package cli

import (
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for linkbridge.

To load completions:

Bash:
  $ source <(linkbridge completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ linkbridge completion bash > /etc/bash_completion.d/linkbridge
  # macOS:
  $ linkbridge completion bash > $(brew --prefix)/etc/bash_completion.d/linkbridge

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ linkbridge completion zsh > "${fpath[1]}/_linkbridge"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ linkbridge completion fish | source

  # To load completions for each session, execute once:
  $ linkbridge completion fish > ~/.config/fish/completions/linkbridge.fish

PowerShell:
  PS> linkbridge completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> linkbridge completion powershell > linkbridge.ps1
  # and source this file from your PowerShell profile.
`,
	Example: `  linkbridge completion bash
  linkbridge completion zsh > "${fpath[1]}/_linkbridge"`,
	GroupID:               groupConfig,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(w)
		case "zsh":
			return cmd.Root().GenZshCompletion(w)
		case "fish":
			return cmd.Root().GenFishCompletion(w, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(w)
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(completionCmd)
}
