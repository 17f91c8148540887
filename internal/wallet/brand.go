package wallet

import (
	"strings"

	"github.com/mrz1836/linkbridge/internal/provider"
)

// BrandFlags returns the flags a wallet announces for a configured brand.
// Unknown or empty brands announce nothing.
func BrandFlags(brand string) provider.Flags {
	switch strings.ToLower(strings.TrimSpace(brand)) {
	case "metamask":
		return provider.Flags{IsMetaMask: true}
	case "rabby":
		return provider.Flags{IsRabby: true, IsMetaMask: true}
	case "brave":
		return provider.Flags{IsBraveWallet: true, IsMetaMask: true}
	case "coinbase":
		return provider.Flags{IsCoinbaseWallet: true}
	case "okx":
		return provider.Flags{IsOKXWallet: true}
	case "trust":
		return provider.Flags{IsTrust: true, IsTrustWallet: true}
	case "phantom":
		return provider.Flags{IsPhantom: true}
	case "solflare":
		return provider.Flags{IsSolflare: true}
	case "exodus":
		return provider.Flags{IsExodus: true, IsPhantom: true}
	default:
		return provider.Flags{}
	}
}
