package discovery

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/provider"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

type fakeEVM struct {
	flags provider.Flags
}

func (f *fakeEVM) Request(context.Context, string, ...any) (json.RawMessage, error) {
	return json.RawMessage(`null`), nil
}
func (f *fakeEVM) Flags() provider.Flags { return f.flags }

type fakeSolana struct {
	flags provider.Flags
}

func (f *fakeSolana) Connect(context.Context, bool) (solana.PublicKey, error) {
	return solana.PublicKey{}, nil
}
func (f *fakeSolana) Disconnect(context.Context) error    { return nil }
func (f *fakeSolana) PublicKey() (solana.PublicKey, bool) { return solana.PublicKey{}, false }
func (f *fakeSolana) Flags() provider.Flags               { return f.flags }
func (f *fakeSolana) SignMessage(context.Context, []byte) (solana.Signature, error) {
	return solana.Signature{}, nil
}
func (f *fakeSolana) SignTransaction(_ context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	return tx, nil
}

func TestAttributeEVM_Precedence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		flags provider.Flags
		want  string
	}{
		{"metamask alone", provider.Flags{IsMetaMask: true}, "MetaMask"},
		{"rabby pretends metamask", provider.Flags{IsMetaMask: true, IsRabby: true}, "Rabby"},
		{"brave pretends metamask", provider.Flags{IsMetaMask: true, IsBraveWallet: true}, "Brave Wallet"},
		{"coinbase", provider.Flags{IsCoinbaseWallet: true}, "Coinbase Wallet"},
		{"trust wallet flag", provider.Flags{IsTrustWallet: true, IsMetaMask: true}, "Trust Wallet"},
		{"phantom evm", provider.Flags{IsPhantom: true, IsMetaMask: true}, "Phantom"},
		{"okx", provider.Flags{IsOKXWallet: true, IsMetaMask: true}, "OKX Wallet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, ok := AttributeEVM(tt.flags)
			require.True(t, ok)
			assert.Equal(t, tt.want, b.Name)
		})
	}

	_, ok := AttributeEVM(provider.Flags{})
	assert.False(t, ok)
}

func TestAttributeSolana_Precedence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		flags provider.Flags
		want  string
	}{
		{"phantom", provider.Flags{IsPhantom: true}, "phantom"},
		{"exodus also sets phantom", provider.Flags{IsPhantom: true, IsExodus: true}, "exodus"},
		{"solflare wins", provider.Flags{IsSolflare: true, IsPhantom: true}, "solflare"},
		{"trust", provider.Flags{IsTrust: true}, "trust"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, ok := AttributeSolana(tt.flags)
			require.True(t, ok)
			assert.Equal(t, tt.want, b.ID)
		})
	}
}

func TestEVMProviders(t *testing.T) {
	t.Parallel()
	env := NewEnvironment()
	metamask := &fakeEVM{flags: provider.Flags{IsMetaMask: true}}
	rabby := &fakeEVM{flags: provider.Flags{IsMetaMask: true, IsRabby: true}}
	unknown := &fakeEVM{}

	env.Announce(provider.Announcement{UUID: "u-1", Name: "MetaMask", Icon: "data:image/svg+xml,", RDNS: "io.metamask", Provider: metamask})
	env.SetEthereum(rabby, rabby, metamask, unknown)

	providers := env.EVMProviders()
	require.Len(t, providers, 2)
	assert.Equal(t, chain.ProviderInfo{ID: "io.metamask", Name: "MetaMask", Icon: "data:image/svg+xml,", Type: chain.EVM}, providers[0].Info)
	assert.Equal(t, "Rabby", providers[1].Info.Name)
	assert.Same(t, rabby, providers[1].Provider)
}

func TestFindEVM(t *testing.T) {
	t.Parallel()

	t.Run("matches by normalized name", func(t *testing.T) {
		t.Parallel()
		env := NewEnvironment()
		cb := &fakeEVM{flags: provider.Flags{IsCoinbaseWallet: true}}
		env.SetEthereum(nil, cb)
		p, err := env.FindEVM("coinbase wallet")
		require.NoError(t, err)
		assert.Same(t, cb, p)
	})

	t.Run("falls back to legacy slot", func(t *testing.T) {
		t.Parallel()
		env := NewEnvironment()
		legacy := &fakeEVM{}
		env.SetEthereum(legacy)
		p, err := env.FindEVM("Some Wallet")
		require.NoError(t, err)
		assert.Same(t, legacy, p)
	})

	t.Run("not found suggests close name", func(t *testing.T) {
		t.Parallel()
		env := NewEnvironment()
		env.Announce(provider.Announcement{UUID: "u-1", Name: "MetaMask", Provider: &fakeEVM{}})
		_, err := env.FindEVM("MetaMsk")
		require.ErrorIs(t, err, linkerr.ErrProviderNotFound)
		assert.Equal(t, `did you mean "MetaMask"?`, linkerr.Suggestion(err))
	})
}

func TestFindEVM_NotFound(t *testing.T) {
	t.Parallel()
	env := NewEnvironment()
	_, err := env.FindEVM("Rabby")
	require.ErrorIs(t, err, linkerr.ErrProviderNotFound)
}

func TestSolanaProviders(t *testing.T) {
	t.Parallel()
	env := NewEnvironment()
	phantom := &fakeSolana{flags: provider.Flags{IsPhantom: true}}
	exodus := &fakeSolana{flags: provider.Flags{IsPhantom: true, IsExodus: true}}
	impostor := &fakeSolana{flags: provider.Flags{IsSolflare: true, IsPhantom: true}}

	env.SetSolana(SlotPhantom, phantom)
	env.SetSolana(SlotExodus, exodus)
	env.SetSolana(SlotTrust, impostor)
	env.SetSolana(SlotGeneric, phantom)

	providers := env.SolanaProviders()
	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.Info.ID)
	}
	assert.Equal(t, []string{"exodus", "phantom"}, ids)
}

func TestSolanaProviders_GenericSlot(t *testing.T) {
	t.Parallel()
	env := NewEnvironment()
	env.SetSolana(SlotGeneric, &fakeSolana{})

	providers := env.SolanaProviders()
	require.Len(t, providers, 1)
	assert.Equal(t, "solana", providers[0].Info.ID)
	assert.Equal(t, chain.Solana, providers[0].Info.Type)

	p, err := env.FindSolana("")
	require.NoError(t, err)
	assert.Equal(t, "solana", p.Brand.ID)

	_, err = env.FindSolana("Phantom")
	require.ErrorIs(t, err, linkerr.ErrProviderNotFound)
}

func TestFindSolana(t *testing.T) {
	t.Parallel()
	env := NewEnvironment()
	trust := &fakeSolana{flags: provider.Flags{IsTrustWallet: true}}
	env.SetSolana(SlotTrust, trust)
	env.SetSolana(SlotSolflare, &fakeSolana{flags: provider.Flags{IsSolflare: true}})

	p, err := env.FindSolana("Trust Wallet")
	require.NoError(t, err)
	assert.Same(t, trust, p.Provider)
	assert.True(t, p.IsManualOnly("Trust Wallet"))

	p, err = env.FindSolana("SOLFLARE")
	require.NoError(t, err)
	assert.False(t, p.IsManualOnly("Solflare"))

	_, err = env.FindSolana("Solflar")
	require.ErrorIs(t, err, linkerr.ErrProviderNotFound)
	assert.Equal(t, `did you mean "Solflare"?`, linkerr.Suggestion(err))
}

func TestProviders_MergesFamilies(t *testing.T) {
	t.Parallel()
	env := NewEnvironment()
	assert.Empty(t, env.Providers())

	env.SetEthereum(&fakeEVM{flags: provider.Flags{IsMetaMask: true}})
	env.SetSolana(SlotPhantom, &fakeSolana{flags: provider.Flags{IsPhantom: true}})

	providers := env.Providers()
	require.Len(t, providers, 2)
	assert.Equal(t, chain.EVM, providers[0].Type)
	assert.Equal(t, chain.Solana, providers[1].Type)
}

func TestSuggest(t *testing.T) {
	t.Parallel()
	candidates := []string{"MetaMask", "Rabby", "Coinbase Wallet"}
	assert.Equal(t, "MetaMask", Suggest("metamsk", candidates))
	assert.Equal(t, "Coinbase Wallet", Suggest("coinbasewalet", candidates))
	assert.Empty(t, Suggest("ledger live", candidates))
	assert.Empty(t, Suggest("", candidates))
}
