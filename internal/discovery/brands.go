// Package discovery enumerates the wallet providers injected into the host
// environment and attributes each one to a wallet brand.
//
// Several wallets announce themselves through the same injection point and
// set each other's brand flags for compatibility (Rabby and Brave both set
// isMetaMask, Exodus sets isPhantom). Attribution is therefore a pure
// function over the recorded flags, walked in a fixed precedence order.
package discovery

import (
	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/provider"
)

// Brand describes a wallet brand the bridge knows how to attribute.
type Brand struct {
	// ID is the stable identifier reported to the frame.
	ID string

	// Name is the human-readable brand name.
	Name string

	// Family is the chain family the brand entry belongs to.
	Family chain.Family

	// Slot is the dedicated Solana injection point, empty for EVM brands.
	Slot SolanaSlot

	// ManualOnly wallets must skip combined sign-and-send primitives.
	ManualOnly bool

	matches func(provider.Flags) bool
}

// Matches reports whether the flags claim this brand.
func (b Brand) Matches(f provider.Flags) bool {
	return b.matches != nil && b.matches(f)
}

// SolanaSlot names a Solana injection point.
type SolanaSlot string

// Known Solana injection points.
const (
	SlotPhantom  SolanaSlot = "phantom.solana"
	SlotSolflare SolanaSlot = "solflare"
	SlotTrust    SolanaSlot = "trustwallet.solana"
	SlotExodus   SolanaSlot = "exodus.solana"
	SlotGeneric  SolanaSlot = "solana"
)

func isTrust(f provider.Flags) bool { return f.IsTrust || f.IsTrustWallet }

// EVM brands in attribution precedence. MetaMask comes last because most
// other wallets also set isMetaMask.
var evmBrands = []Brand{
	{ID: "io.rabby", Name: "Rabby", Family: chain.EVM, matches: func(f provider.Flags) bool { return f.IsRabby }},
	{ID: "com.brave.wallet", Name: "Brave Wallet", Family: chain.EVM, matches: func(f provider.Flags) bool { return f.IsBraveWallet }},
	{ID: "com.coinbase.wallet", Name: "Coinbase Wallet", Family: chain.EVM, matches: func(f provider.Flags) bool { return f.IsCoinbaseWallet }},
	{ID: "com.trustwallet.app", Name: "Trust Wallet", Family: chain.EVM, matches: isTrust},
	{ID: "app.phantom", Name: "Phantom", Family: chain.EVM, matches: func(f provider.Flags) bool { return f.IsPhantom }},
	{ID: "com.okex.wallet", Name: "OKX Wallet", Family: chain.EVM, matches: func(f provider.Flags) bool { return f.IsOKXWallet }},
	{ID: "io.metamask", Name: "MetaMask", Family: chain.EVM, matches: func(f provider.Flags) bool { return f.IsMetaMask }},
}

// Solana brands in attribution precedence. Exodus comes before Phantom
// because Exodus also sets isPhantom.
var solanaBrands = []Brand{
	{ID: "solflare", Name: "Solflare", Family: chain.Solana, Slot: SlotSolflare, matches: func(f provider.Flags) bool { return f.IsSolflare }},
	{ID: "trust", Name: "Trust Wallet", Family: chain.Solana, Slot: SlotTrust, ManualOnly: true, matches: isTrust},
	{ID: "exodus", Name: "Exodus", Family: chain.Solana, Slot: SlotExodus, matches: func(f provider.Flags) bool { return f.IsExodus }},
	{ID: "phantom", Name: "Phantom", Family: chain.Solana, Slot: SlotPhantom, matches: func(f provider.Flags) bool { return f.IsPhantom }},
}

// genericSolana is reported for an unbranded provider in the generic slot.
var genericSolana = Brand{ID: "solana", Name: "Solana Wallet", Family: chain.Solana, Slot: SlotGeneric}

// AttributeEVM returns the first EVM brand claimed by the flags.
func AttributeEVM(f provider.Flags) (Brand, bool) {
	return attribute(evmBrands, f)
}

// AttributeSolana returns the first Solana brand claimed by the flags.
func AttributeSolana(f provider.Flags) (Brand, bool) {
	return attribute(solanaBrands, f)
}

func attribute(brands []Brand, f provider.Flags) (Brand, bool) {
	for _, b := range brands {
		if b.Matches(f) {
			return b, true
		}
	}
	return Brand{}, false
}

func flagsOf(p any) provider.Flags {
	if fl, ok := p.(provider.Flagged); ok {
		return fl.Flags()
	}
	return provider.Flags{}
}
