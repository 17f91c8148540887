package discovery

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/provider"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// MaxSuggestionDistance is the largest edit distance offered as a "did you mean".
const MaxSuggestionDistance = 3

// Environment holds the injection points a host exposes to the bridge:
// the legacy ethereum slot, EIP-6963 announcements and the Solana slots.
type Environment struct {
	mu        sync.RWMutex
	ethereum  provider.EVM
	multi     []provider.EVM
	announced []provider.Announcement
	solana    map[SolanaSlot]provider.Solana
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{solana: make(map[SolanaSlot]provider.Solana)}
}

// SetEthereum installs the legacy ethereum slot. When several wallets share
// the slot, the extra providers mirror its providers array.
func (e *Environment) SetEthereum(p provider.EVM, providers ...provider.EVM) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ethereum = p
	e.multi = providers
}

// Announce records an EIP-6963 announcement. A repeated UUID replaces the earlier one.
func (e *Environment) Announce(a provider.Announcement) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.announced {
		if a.UUID != "" && e.announced[i].UUID == a.UUID {
			e.announced[i] = a
			return
		}
	}
	e.announced = append(e.announced, a)
}

// SetSolana installs a provider at a Solana injection point. A nil provider clears it.
func (e *Environment) SetSolana(slot SolanaSlot, p provider.Solana) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p == nil {
		delete(e.solana, slot)
		return
	}
	e.solana[slot] = p
}

// EVMProvider is a discovered EVM provider.
type EVMProvider struct {
	Info     chain.ProviderInfo
	Provider provider.EVM
}

// EVMProviders lists EIP-6963 announcements first, then the legacy slot's
// providers attributed by flag precedence. Names are unique case-insensitively.
func (e *Environment) EVMProviders() []EVMProvider {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]bool)
	var out []EVMProvider
	add := func(info chain.ProviderInfo, p provider.EVM) {
		key := normalize(info.Name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, EVMProvider{Info: info, Provider: p})
	}

	for _, a := range e.announced {
		id := a.UUID
		if a.RDNS != "" {
			id = a.RDNS
		}
		add(chain.ProviderInfo{ID: id, Name: a.Name, Icon: a.Icon, Type: chain.EVM}, a.Provider)
	}

	legacy := e.multi
	if len(legacy) == 0 && e.ethereum != nil {
		legacy = []provider.EVM{e.ethereum}
	}
	for _, p := range legacy {
		if b, ok := AttributeEVM(flagsOf(p)); ok {
			add(chain.ProviderInfo{ID: b.ID, Name: b.Name, Type: chain.EVM}, p)
		}
	}
	return out
}

// FindEVM returns the provider whose name matches, falling back to the
// legacy ethereum slot.
func (e *Environment) FindEVM(name string) (provider.EVM, error) {
	providers := e.EVMProviders()
	want := normalize(name)
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		if normalize(p.Info.Name) == want || normalize(p.Info.ID) == want {
			return p.Provider, nil
		}
		names = append(names, p.Info.Name)
	}

	e.mu.RLock()
	legacy := e.ethereum
	e.mu.RUnlock()
	if legacy != nil {
		return legacy, nil
	}

	return nil, notFound(name, chain.EVM, names)
}

// SolanaProvider is a discovered Solana provider.
type SolanaProvider struct {
	Info     chain.ProviderInfo
	Provider provider.Solana
	Brand    Brand
}

// SolanaProviders lists each brand slot whose provider attributes to that
// brand, then the generic slot if its brand is not already listed.
func (e *Environment) SolanaProviders() []SolanaProvider {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []SolanaProvider
	listed := make(map[string]bool)
	for _, b := range solanaBrands {
		p, ok := e.solana[b.Slot]
		if !ok {
			continue
		}
		if got, ok := AttributeSolana(flagsOf(p)); !ok || got.ID != b.ID {
			continue
		}
		listed[b.ID] = true
		out = append(out, SolanaProvider{Info: solanaInfo(b), Provider: p, Brand: b})
	}

	if p, ok := e.solana[SlotGeneric]; ok {
		b, branded := AttributeSolana(flagsOf(p))
		if !branded {
			b = genericSolana
		}
		if !listed[b.ID] {
			out = append(out, SolanaProvider{Info: solanaInfo(b), Provider: p, Brand: b})
		}
	}
	return out
}

// FindSolana returns the provider for a wallet name. The generic slot is
// used when its provider attributes to the requested brand or no brand was named.
func (e *Environment) FindSolana(name string) (SolanaProvider, error) {
	providers := e.SolanaProviders()
	want := normalize(name)
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		if normalize(p.Brand.ID) == want || normalize(p.Brand.Name) == want {
			return p, nil
		}
		names = append(names, p.Brand.Name)
	}

	e.mu.RLock()
	generic, ok := e.solana[SlotGeneric]
	e.mu.RUnlock()
	if ok {
		b, branded := AttributeSolana(flagsOf(generic))
		if !branded {
			b = genericSolana
		}
		if want == "" || want == "unknown" || want == normalize(genericSolana.ID) || normalize(b.Name) == want || b.ID == want {
			return SolanaProvider{Info: solanaInfo(b), Provider: generic, Brand: b}, nil
		}
	}

	return SolanaProvider{}, notFound(name, chain.Solana, names)
}

// IsManualOnly reports whether a wallet must skip combined sign-and-send.
func (p SolanaProvider) IsManualOnly(walletName string) bool {
	if p.Brand.ManualOnly {
		return true
	}
	f := flagsOf(p.Provider)
	return isTrust(f) || strings.Contains(normalize(walletName), "trust")
}

// Providers lists every discovered provider of both families, EVM first.
func (e *Environment) Providers() []chain.ProviderInfo {
	out := []chain.ProviderInfo{}
	for _, p := range e.EVMProviders() {
		out = append(out, p.Info)
	}
	for _, p := range e.SolanaProviders() {
		out = append(out, p.Info)
	}
	return out
}

func solanaInfo(b Brand) chain.ProviderInfo {
	return chain.ProviderInfo{ID: b.ID, Name: b.Name, Type: chain.Solana}
}

// normalize lowercases and strips whitespace so "Trust Wallet" matches "trustwallet".
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

func notFound(name string, family chain.Family, candidates []string) error {
	err := linkerr.WithDetails(linkerr.ErrProviderNotFound, map[string]string{
		"wallet": name,
		"family": family.String(),
	})
	if s := Suggest(name, candidates); s != "" {
		return linkerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", s))
	}
	return linkerr.WithSuggestion(err, "make sure the wallet is installed and enabled")
}

// Suggest returns the candidate closest to name, or empty when nothing is
// within MaxSuggestionDistance.
func Suggest(name string, candidates []string) string {
	want := normalize(name)
	if want == "" {
		return ""
	}

	minDist := math.MaxInt
	var suggestion string
	for _, c := range candidates {
		dist := levenshtein.ComputeDistance(want, normalize(c))
		if dist < minDist {
			minDist = dist
			suggestion = c
		}
		if dist == 0 {
			return c
		}
	}

	if minDist <= MaxSuggestionDistance {
		return suggestion
	}
	return ""
}
