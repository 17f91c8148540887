// Package provider defines the wallet surfaces a host injects into the bridge.
//
// EVM wallets expose the EIP-1193 request surface. Solana wallets expose the
// connect and signing primitives common to Phantom-style providers, with the
// combined sign-and-send and the deprecated send primitives as optional
// capabilities discovered by type assertion.
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Error is a provider-originated failure carrying an EIP-1193 style code.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the numeric provider code.
func (e *Error) ErrorCode() int {
	return e.Code
}

// Well-known EIP-1193 and wallet error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
)

// Flags records the brand markers a provider announces about itself.
// Several wallets set more than one flag, so attribution uses an explicit
// precedence list instead of the first flag found.
type Flags struct {
	IsMetaMask       bool
	IsCoinbaseWallet bool
	IsRabby          bool
	IsBraveWallet    bool
	IsTrust          bool
	IsTrustWallet    bool
	IsPhantom        bool
	IsOKXWallet      bool
	IsSolflare       bool
	IsExodus         bool
}

// Flagged is implemented by providers that expose brand flags.
type Flagged interface {
	Flags() Flags
}

// EVM is an EIP-1193 provider.
type EVM interface {
	// Request performs a JSON-RPC style request and returns the raw result.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Announcement is an EIP-6963 provider announcement.
type Announcement struct {
	UUID     string
	Name     string
	Icon     string
	RDNS     string
	Provider EVM
}

// Solana is the minimum Solana wallet surface.
type Solana interface {
	// Connect connects the wallet. With onlyIfTrusted the wallet must not
	// prompt and fails unless the host was approved before.
	Connect(ctx context.Context, onlyIfTrusted bool) (solana.PublicKey, error)
	Disconnect(ctx context.Context) error
	// PublicKey returns the connected key and whether the wallet is connected.
	PublicKey() (solana.PublicKey, bool)
	SignMessage(ctx context.Context, message []byte) (solana.Signature, error)
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// SolanaSignAndSender is implemented by wallets with a combined sign-and-broadcast primitive.
type SolanaSignAndSender interface {
	SignAndSendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// SolanaSender is implemented by wallets that still expose the deprecated
// broadcast of an already signed transaction.
type SolanaSender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}
