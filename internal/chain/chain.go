// Package chain provides the wallet-operation contract shared by every chain
// family, plus the payload types and common utilities the strategies use.
package chain

import (
	"context"
	"strings"

	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// Family identifies a group of chains sharing a wallet-provider interface shape.
type Family string

// Supported chain families.
const (
	EVM    Family = "evm"
	Solana Family = "solana"
)

// SolanaMainnetChainID is the fixed chain id reported by the Solana family.
const SolanaMainnetChainID = "101"

// String returns the family identifier string.
func (f Family) String() string {
	return string(f)
}

// IsValid returns true if the family is a known family.
func (f Family) IsValid() bool {
	switch f {
	case EVM, Solana:
		return true
	default:
		return false
	}
}

// AllFamilies returns every known family, EVM first.
func AllFamilies() []Family {
	return []Family{EVM, Solana}
}

// ParseFamily maps an explicit network-type hint to a family.
// Hints are matched loosely, so "solana-mainnet" resolves to Solana and
// "eip155" resolves to EVM.
func ParseFamily(hint string) (Family, error) {
	h := strings.ToLower(strings.TrimSpace(hint))
	switch {
	case h == "":
		return "", linkerr.ErrUnsupportedFamily
	case strings.Contains(h, "solana"):
		return Solana, nil
	case h == "evm", h == "ethereum", h == "eth", strings.HasPrefix(h, "eip155"):
		return EVM, nil
	default:
		return "", linkerr.WithDetails(linkerr.ErrUnsupportedFamily, map[string]string{"networkType": hint})
	}
}

// ResolveFamily decides the family for a wallet operation. An explicit hint
// always wins. Without a hint the address shape is used: 0x-prefixed
// addresses are EVM, anything else non-empty is Solana. The address fallback
// only exists for frames that predate the networkType field and is ambiguous
// for any third family. With neither, EVM is assumed.
func ResolveFamily(hint, address string) (Family, error) {
	if strings.TrimSpace(hint) != "" {
		return ParseFamily(hint)
	}
	address = strings.TrimSpace(address)
	switch {
	case address == "":
		return EVM, nil
	case strings.HasPrefix(strings.ToLower(address), "0x"):
		return EVM, nil
	default:
		return Solana, nil
	}
}

// ProviderInfo describes an injected wallet provider as reported to the frame.
type ProviderInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Icon string `json:"icon,omitempty"`
	Type Family `json:"type"`
}

// Connector manages the wallet connection lifecycle.
type Connector interface {
	// Connect connects to the named wallet. An already connected wallet
	// returns its existing accounts instead of failing.
	Connect(ctx context.Context, req ConnectRequest) (*ConnectResult, error)

	// Disconnect drops the wallet connection. It never fails when nothing is connected.
	Disconnect(ctx context.Context, req DisconnectRequest) error

	// SwitchChain moves the wallet to another chain and re-derives accounts.
	SwitchChain(ctx context.Context, req SwitchChainRequest) (*SwitchChainResult, error)
}

// MessageSigner signs arbitrary messages.
type MessageSigner interface {
	SignMessage(ctx context.Context, req SignRequest) (string, error)
}

// TransactionSender submits transactions and returns their hash or signature.
type TransactionSender interface {
	SendNativeTransfer(ctx context.Context, req TransferRequest) (string, error)
	SendSmartContractInteraction(ctx context.Context, req ContractCallRequest) (string, error)
	SendTransactionBatch(ctx context.Context, req BatchRequest) (string, error)
	SendTransactionWithInstructions(ctx context.Context, req InstructionTransferRequest) (string, error)
}

// CapabilityReader reports wallet capabilities. Failures degrade to DefaultCapabilities.
type CapabilityReader interface {
	GetWalletCapabilities(ctx context.Context, req CapabilitiesRequest) (*Capabilities, error)
}

// ProviderLister enumerates the injected providers of a family.
type ProviderLister interface {
	Providers() []ProviderInfo
}

// Strategy is the uniform wallet-operation contract implemented per family.
type Strategy interface {
	Family() Family
	Connector
	MessageSigner
	TransactionSender
	CapabilityReader
	ProviderLister
}
