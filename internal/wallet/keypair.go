package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/mrz1836/linkbridge/internal/chain/sol"
	"github.com/mrz1836/linkbridge/internal/crypto"
	"github.com/mrz1836/linkbridge/internal/provider"
)

// Wallet errors reported to the strategies, coded like a browser wallet.
var (
	errRejected = &provider.Error{Code: provider.CodeUserRejected, Message: "User rejected the request."}
	errNotReady = &provider.Error{Code: provider.CodeUnauthorized, Message: "wallet is not connected"}
	errClosed   = &provider.Error{Code: provider.CodeDisconnected, Message: "wallet is closed"}
)

// Keypair is a Solana wallet holding a key in locked memory. Every connect
// and signature goes through its Approver.
type Keypair struct {
	name     string
	secret   *crypto.SecureBytes
	pub      solana.PublicKey
	flags    provider.Flags
	approver Approver
	network  sol.Network

	mu        sync.Mutex
	connected bool
	trusted   bool
}

// KeypairOption configures a Keypair.
type KeypairOption func(*Keypair)

// WithFlags sets the brand flags the wallet announces.
func WithFlags(f provider.Flags) KeypairOption {
	return func(k *Keypair) { k.flags = f }
}

// WithApprover replaces the approval prompt.
func WithApprover(a Approver) KeypairOption {
	return func(k *Keypair) { k.approver = a }
}

// WithNetwork lets the wallet broadcast, which enables sign-and-send.
func WithNetwork(n sol.Network) KeypairOption {
	return func(k *Keypair) { k.network = n }
}

// NewKeypair creates a wallet holding a copy of key. The caller keeps
// ownership of key. Without an approver every request is rejected.
func NewKeypair(name string, key solana.PrivateKey, opts ...KeypairOption) *Keypair {
	k := &Keypair{
		name:   name,
		secret: crypto.SecureBytesFromSlice(key),
		pub:    key.PublicKey(),
		approver: ApproverFunc(func(context.Context, Request) (bool, error) {
			return false, nil
		}),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Close zeros the key. Later signatures fail.
func (k *Keypair) Close() {
	k.secret.Destroy()
}

// Name returns the configured wallet name.
func (k *Keypair) Name() string {
	return k.name
}

// Flags implements provider.Flagged.
func (k *Keypair) Flags() provider.Flags {
	return k.flags
}

// Connect implements provider.Solana. A silent connect succeeds only after
// an earlier approval in this process.
func (k *Keypair) Connect(ctx context.Context, onlyIfTrusted bool) (solana.PublicKey, error) {
	k.mu.Lock()
	trusted := k.trusted
	k.mu.Unlock()

	if !trusted {
		if onlyIfTrusted {
			return solana.PublicKey{}, errRejected
		}
		if err := k.approve(ctx, "connect", k.pub.String()); err != nil {
			return solana.PublicKey{}, err
		}
	}

	k.mu.Lock()
	k.connected = true
	k.trusted = true
	k.mu.Unlock()
	return k.pub, nil
}

// Disconnect implements provider.Solana. Trust survives a disconnect.
func (k *Keypair) Disconnect(context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.connected = false
	return nil
}

// PublicKey implements provider.Solana.
func (k *Keypair) PublicKey() (solana.PublicKey, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pub, k.connected
}

// SignMessage implements provider.Solana.
func (k *Keypair) SignMessage(ctx context.Context, message []byte) (solana.Signature, error) {
	if err := k.ready(); err != nil {
		return solana.Signature{}, err
	}
	if err := k.approve(ctx, "sign a message", string(message)); err != nil {
		return solana.Signature{}, err
	}
	key, err := k.privateKey()
	if err != nil {
		return solana.Signature{}, err
	}
	return key.Sign(message)
}

// SignTransaction implements provider.Solana.
func (k *Keypair) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if err := k.ready(); err != nil {
		return nil, err
	}
	if err := k.approve(ctx, "sign a transaction", describe(tx)); err != nil {
		return nil, err
	}
	if err := k.sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// SignAndSendTransaction implements provider.SolanaSignAndSender when the
// wallet has a network.
func (k *Keypair) SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if k.network == nil {
		return solana.Signature{}, &provider.Error{Code: provider.CodeUnsupportedMethod, Message: "signAndSendTransaction is not available"}
	}
	signed, err := k.SignTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	return k.network.SendTransaction(ctx, signed)
}

func (k *Keypair) ready() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.connected {
		return errNotReady
	}
	return nil
}

func (k *Keypair) approve(ctx context.Context, action, detail string) error {
	ok, err := k.approver.Approve(ctx, Request{Wallet: k.name, Action: action, Detail: detail})
	if err != nil {
		return fmt.Errorf("approval for %s: %w", action, err)
	}
	if !ok {
		return errRejected
	}
	return nil
}

func (k *Keypair) privateKey() (solana.PrivateKey, error) {
	b := k.secret.Bytes()
	if b == nil {
		return nil, errClosed
	}
	return solana.PrivateKey(b), nil
}

func (k *Keypair) sign(tx *solana.Transaction) error {
	key, err := k.privateKey()
	if err != nil {
		return err
	}
	_, err = tx.Sign(func(signer solana.PublicKey) *solana.PrivateKey {
		if signer.Equals(k.pub) {
			return &key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("signing transaction: %w", err)
	}
	return nil
}

func describe(tx *solana.Transaction) string {
	if tx == nil {
		return ""
	}
	programs := make([]string, 0, len(tx.Message.Instructions))
	for _, ix := range tx.Message.Instructions {
		id, err := tx.Message.Program(ix.ProgramIDIndex)
		if err != nil {
			continue
		}
		programs = append(programs, id.String())
	}
	return fmt.Sprintf("%d instruction(s) for programs %v", len(tx.Message.Instructions), programs)
}
