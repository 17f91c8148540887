package cli

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/chain/sol"
	"github.com/mrz1836/linkbridge/internal/config"
	"github.com/mrz1836/linkbridge/internal/crypto"
	"github.com/mrz1836/linkbridge/internal/discovery"
	"github.com/mrz1836/linkbridge/internal/metrics"
	"github.com/mrz1836/linkbridge/internal/provider"
	"github.com/mrz1836/linkbridge/internal/wallet"
)

// walletDeps are the collaborators shared by the configured wallets.
type walletDeps struct {
	approver   wallet.Approver
	metrics    *metrics.Metrics
	network    sol.Network
	passphrase func(walletName string) ([]byte, error)
}

// buildEnvironment installs the configured wallets. EVM wallets are announced
// under their configured names; the legacy ethereum slot stays empty so a
// branded wallet is not listed twice. The returned func releases the
// wallets' connections and keys.
func buildEnvironment(c *config.Config, deps walletDeps) (*discovery.Environment, func(), error) {
	env := discovery.NewEnvironment()
	var closers []func()
	release := func() {
		for _, fn := range closers {
			fn()
		}
	}

	for _, wc := range c.Wallets {
		family, err := chain.ParseFamily(wc.Family)
		if err != nil {
			release()
			return nil, nil, err
		}

		switch family {
		case chain.EVM:
			w := wallet.NewRPCWallet(wc.Name, wc.RPC, wc.Brand, deps.approver)
			closers = append(closers, w.Close)

			var p provider.EVM = w
			if deps.metrics != nil {
				p = metrics.InstrumentEVM(w, deps.metrics)
			}
			env.Announce(provider.Announcement{UUID: uuid.NewString(), Name: wc.Name, Provider: p})

		case chain.Solana:
			k, err := loadKeypair(wc, deps)
			if err != nil {
				release()
				return nil, nil, err
			}
			closers = append(closers, k.Close)
			slot := discovery.SolanaSlot(wc.Slot)
			if slot == "" {
				slot = discovery.SlotGeneric
			}
			env.SetSolana(slot, k)
		}
	}
	return env, release, nil
}

func loadKeypair(wc config.WalletConfig, deps walletDeps) (*wallet.Keypair, error) {
	path, err := config.ExpandHome(wc.KeyFile)
	if err != nil {
		return nil, err
	}

	passphrase, err := deps.passphrase(wc.Name)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(passphrase)

	secret, err := wallet.LoadKeypair(path, passphrase)
	if err != nil {
		return nil, fmt.Errorf("loading wallet %s: %w", wc.Name, err)
	}
	defer secret.Destroy()

	return wallet.NewKeypair(wc.Name, solana.PrivateKey(secret.Bytes()),
		wallet.WithFlags(wallet.BrandFlags(wc.Brand)),
		wallet.WithApprover(deps.approver),
		wallet.WithNetwork(deps.network),
	), nil
}

// promptPassphrase asks for a wallet's key file passphrase on the terminal.
func promptPassphrase(walletName string) ([]byte, error) {
	return promptPasswordFn(fmt.Sprintf("Passphrase for %s: ", walletName))
}
