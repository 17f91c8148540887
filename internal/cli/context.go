package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/linkbridge/internal/chain/sol"
	"github.com/mrz1836/linkbridge/internal/config"
	"github.com/mrz1836/linkbridge/internal/metrics"
	"github.com/mrz1836/linkbridge/internal/output"
	"github.com/mrz1836/linkbridge/internal/wallet"
)

type cmdContextKey struct{}

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Log      *config.Logger
	Fmt      *output.Formatter
	Metrics  *metrics.Metrics
	Approver wallet.Approver

	// Passphrase reads a keypair wallet's key file passphrase.
	Passphrase func(walletName string) ([]byte, error)
}

// NewCommandContext creates a context with the given dependencies. Wallet
// approvals and passphrases default to the terminal.
func NewCommandContext(
	cfg *config.Config,
	logger *config.Logger,
	formatter *output.Formatter,
) *CommandContext {
	return &CommandContext{
		Cfg:        cfg,
		Log:        logger,
		Fmt:        formatter,
		Metrics:    metrics.Default(),
		Approver:   wallet.NewTerminalApprover(),
		Passphrase: promptPassphrase,
	}
}

// WithMetrics sets the metrics registry.
func (c *CommandContext) WithMetrics(m *metrics.Metrics) *CommandContext {
	c.Metrics = m
	return c
}

// WithApprover sets the wallet approver.
func (c *CommandContext) WithApprover(a wallet.Approver) *CommandContext {
	c.Approver = a
	return c
}

// WithPassphrase sets the key file passphrase source.
func (c *CommandContext) WithPassphrase(fn func(walletName string) ([]byte, error)) *CommandContext {
	c.Passphrase = fn
	return c
}

// SetCmdContext attaches cc to the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := commandContext(cmd)
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the CommandContext attached to cmd, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// walletDeps returns the collaborators the configured wallets share.
func (c *CommandContext) walletDeps(network sol.Network) walletDeps {
	return walletDeps{
		approver:   c.Approver,
		metrics:    c.Metrics,
		network:    network,
		passphrase: c.Passphrase,
	}
}
