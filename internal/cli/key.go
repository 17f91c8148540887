package cli

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/mrz1836/linkbridge/internal/config"
	"github.com/mrz1836/linkbridge/internal/crypto"
	"github.com/mrz1836/linkbridge/internal/wallet"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// keyCmd groups the keypair wallet helpers.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyCmd = &cobra.Command{
	Use:     "key",
	Short:   "Manage Solana key files",
	Long:    `Create and inspect the age-encrypted key files used by keypair wallets.`,
	GroupID: groupWallet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyGenerateCmd = &cobra.Command{
	Use:   "generate <path>",
	Short: "Generate a new encrypted Solana keypair",
	Long: `Generate a random Solana keypair and write it to path, encrypted with a
passphrase read from the terminal. Existing files are never overwritten.`,
	Example: `  linkbridge key generate ~/.linkbridge/keys/phantom.json`,
	Args:    cobra.ExactArgs(1),
	RunE:    runKeyGenerate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyAddressCmd = &cobra.Command{
	Use:   "address <path>",
	Short: "Show the address of a key file",
	Long: `Print the public address recorded in a key file. The passphrase is not
needed.`,
	Example: `  linkbridge key address ~/.linkbridge/keys/phantom.json`,
	Args:    cobra.ExactArgs(1),
	RunE:    runKeyAddress,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyGenerateCmd)
	keyCmd.AddCommand(keyAddressCmd)
}

// keyResult is the JSON shape of the key commands.
type keyResult struct {
	Path    string `json:"path"`
	Address string `json:"address"`
}

func runKeyGenerate(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)

	path, err := config.ExpandHome(args[0])
	if err != nil {
		return err
	}

	passphrase, err := promptNewPassphraseFn()
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(passphrase)

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}
	defer crypto.ZeroBytes(key)

	if err := wallet.SaveKeypair(path, key, passphrase); err != nil {
		if errors.Is(err, wallet.ErrKeyFileExists) {
			return linkerr.WithDetails(linkerr.ErrInvalidInput, map[string]string{"path": path, "reason": err.Error()})
		}
		return err
	}
	cc.Log.Info("generated key file %s", path)

	return printKey(cmd, cc, path, key.PublicKey())
}

func runKeyAddress(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)

	path, err := config.ExpandHome(args[0])
	if err != nil {
		return err
	}

	pub, err := wallet.ReadPublicKey(path)
	if err != nil {
		if errors.Is(err, wallet.ErrKeyFileNotFound) {
			return linkerr.WithDetails(linkerr.ErrInvalidInput, map[string]string{"path": path, "reason": err.Error()})
		}
		return err
	}
	return printKey(cmd, cc, path, pub)
}

func printKey(cmd *cobra.Command, cc *CommandContext, path string, pub solana.PublicKey) error {
	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return writeJSON(w, keyResult{Path: path, Address: pub.String()})
	}
	outln(w, pub.String())
	return nil
}
