package cli

import (
	"fmt"

	"github.com/mrz1836/linkbridge/internal/crypto"
	"github.com/mrz1836/linkbridge/internal/wallet"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// minPassphraseLength is the shortest passphrase accepted for a new key file.
const minPassphraseLength = 8

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // swapped by tests
var (
	promptPasswordFn      = promptPassword
	promptNewPassphraseFn = promptNewPassphrase
)

// promptPassword prompts for a secret with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	password, err := wallet.ReadPassphrase(prompt)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassphrase prompts for a new key file passphrase with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassphrase() ([]byte, error) {
	passphrase, err := promptPasswordFn("Enter key file passphrase: ")
	if err != nil {
		return nil, err
	}

	if len(passphrase) < minPassphraseLength {
		crypto.ZeroBytes(passphrase)
		return nil, linkerr.WithSuggestion(
			linkerr.ErrInvalidInput,
			fmt.Sprintf("passphrase must be at least %d characters", minPassphraseLength),
		)
	}

	confirm, err := promptPasswordFn("Confirm passphrase: ")
	if err != nil {
		crypto.ZeroBytes(passphrase)
		return nil, err
	}
	defer crypto.ZeroBytes(confirm)

	if string(passphrase) != string(confirm) {
		crypto.ZeroBytes(passphrase)
		return nil, linkerr.WithSuggestion(
			linkerr.ErrInvalidInput,
			"passphrases do not match",
		)
	}

	return passphrase, nil
}
