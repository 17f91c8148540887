package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/linkbridge/internal/chain/sol"
	"github.com/mrz1836/linkbridge/internal/output"
)

// providersCmd lists the wallets a link session would be offered.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the wallet providers offered to link sessions",
	Long: `List the EVM and Solana wallet providers built from the configured wallets,
with the ids and names the link frame receives. Keypair wallets ask for
their key file passphrase.`,
	Example: `  linkbridge providers
  linkbridge providers -o json`,
	GroupID: groupWallet,
	Args:    cobra.NoArgs,
	RunE:    runProviders,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := requireConfig(cc.Cfg); err != nil {
		return err
	}

	env, release, err := buildEnvironment(cc.Cfg, cc.walletDeps(sol.NewRPCNetwork(cc.Cfg.Networks.Solana.RPC)))
	if err != nil {
		return err
	}
	defer release()

	return output.RenderProviders(cmd.OutOrStdout(), cc.Fmt.Format(), env.Providers())
}
