// Package wallet provides the host-side wallets the CLI injects into a
// link session: age-encrypted Solana keypairs, EVM wallets backed by a node
// that manages its own accounts, and the approval prompt guarding both.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/crypto"
	"github.com/mrz1836/linkbridge/internal/fileutil"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

const (
	// keyFilePermissions is the permission mode for key files.
	keyFilePermissions = 0o600

	// keyDirPermissions is the permission mode for the key directory.
	keyDirPermissions = 0o750

	keyFileVersion = 1
)

var (
	// ErrDecryptionFailed indicates decryption failed (wrong passphrase or corrupted file).
	ErrDecryptionFailed = errors.New("decryption failed - wrong passphrase or corrupted file")

	// ErrKeyFileExists is returned when saving over an existing key file.
	ErrKeyFileExists = errors.New("key file already exists")

	// ErrKeyFileNotFound is returned when a key file does not exist.
	ErrKeyFileNotFound = errors.New("key file not found")

	// ErrKeyMismatch means the decrypted key does not match the recorded public key.
	ErrKeyMismatch = errors.New("decrypted key does not match public key")
)

// keyFile is the on-disk layout. The public key is kept in clear so the
// wallet can be listed without the passphrase.
type keyFile struct {
	Version      int    `json:"version"`
	Family       string `json:"family"`
	PublicKey    string `json:"public_key"`
	EncryptedKey []byte `json:"encrypted_key"`
}

// SaveKeypair encrypts key with passphrase and writes it to path.
// The passphrase should be zeroed by the caller after this call returns.
func SaveKeypair(path string, key solana.PrivateKey, passphrase []byte) error {
	if _, err := os.Stat(path); err == nil {
		return ErrKeyFileExists
	}

	if err := os.MkdirAll(filepath.Dir(path), keyDirPermissions); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	encrypted, err := crypto.Encrypt(key, string(passphrase))
	if err != nil {
		return fmt.Errorf("encrypting key: %w", err)
	}

	data, err := json.MarshalIndent(keyFile{
		Version:      keyFileVersion,
		Family:       chain.Solana.String(),
		PublicKey:    key.PublicKey().String(),
		EncryptedKey: encrypted,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling key file: %w", err)
	}

	if err := fileutil.WriteNew(path, data, keyFilePermissions); err != nil {
		if errors.Is(err, fileutil.ErrExists) {
			return ErrKeyFileExists
		}
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

// LoadKeypair reads and decrypts the key stored at path into locked memory.
// The caller destroys the returned secret; the passphrase should be zeroed
// by the caller after this call returns.
func LoadKeypair(path string, passphrase []byte) (*crypto.SecureBytes, error) {
	kf, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}

	secret, err := crypto.DecryptSecure(kf.EncryptedKey, string(passphrase))
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	if secret.Len() != ed25519.PrivateKeySize {
		n := secret.Len()
		secret.Destroy()
		return nil, fmt.Errorf("invalid key length %d in %s", n, path) //nolint:err113 // message only
	}
	if solana.PrivateKey(secret.Bytes()).PublicKey().String() != kf.PublicKey {
		secret.Destroy()
		return nil, ErrKeyMismatch
	}
	return secret, nil
}

// ReadPublicKey returns the public key recorded in a key file without
// decrypting it.
func ReadPublicKey(path string) (solana.PublicKey, error) {
	kf, err := readKeyFile(path)
	if err != nil {
		return solana.PublicKey{}, err
	}
	pub, err := solana.PublicKeyFromBase58(kf.PublicKey)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("parsing public key: %w", err)
	}
	return pub, nil
}

func readKeyFile(path string) (*keyFile, error) {
	// #nosec G304 -- key file path is from validated config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrKeyFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parsing key file: %w", err)
	}
	if kf.Family != chain.Solana.String() {
		return nil, linkerr.WithDetails(linkerr.ErrUnsupportedFamily, map[string]string{"family": kf.Family, "path": path})
	}
	return &kf, nil
}
