package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/linkbridge/internal/config"
	"github.com/mrz1836/linkbridge/internal/metrics"
	"github.com/mrz1836/linkbridge/internal/output"
	"github.com/mrz1836/linkbridge/internal/wallet"
)

const testPassphrase = "correct horse battery"

// newTestCommand returns a command wired to a fresh CommandContext whose
// output lands in the returned buffer.
func newTestCommand(t *testing.T, cfg *config.Config, format output.Format) (*cobra.Command, *CommandContext, *bytes.Buffer) {
	t.Helper()

	buf := new(bytes.Buffer)
	cc := &CommandContext{
		Cfg:      cfg,
		Log:      config.NullLogger(),
		Fmt:      output.NewFormatter(format, buf),
		Metrics:  metrics.New(),
		Approver: wallet.AutoApprove(),
		Passphrase: func(string) ([]byte, error) {
			return []byte(testPassphrase), nil
		},
	}

	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())
	SetCmdContext(cmd, cc)
	return cmd, cc, buf
}

// testConfig returns defaults rooted in a temporary home.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Home = t.TempDir()
	return cfg
}

// writeKeyFile saves a fresh keypair encrypted with testPassphrase.
func writeKeyFile(t *testing.T, dir string) (string, solana.PublicKey) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	path := filepath.Join(dir, "keys", key.PublicKey().String()+".json")
	require.NoError(t, wallet.SaveKeypair(path, key, []byte(testPassphrase)))
	return path, key.PublicKey()
}

// withPromptPassword replaces the hidden-input prompt for the test.
func withPromptPassword(t *testing.T, answers ...string) {
	t.Helper()
	orig := promptPasswordFn
	t.Cleanup(func() { promptPasswordFn = orig })

	next := 0
	promptPasswordFn = func(string) ([]byte, error) {
		if next >= len(answers) {
			return nil, wallet.ErrNotTerminal
		}
		answer := answers[next]
		next++
		return []byte(answer), nil
	}
}
