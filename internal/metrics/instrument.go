package metrics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/chain/sol"
	"github.com/mrz1836/linkbridge/internal/provider"
)

// InstrumentEVM wraps an EIP-1193 provider so every request is recorded as
// an RPC call. Brand flags of the wrapped provider are preserved.
func InstrumentEVM(p provider.EVM, m *Metrics) provider.EVM {
	return &evmProvider{next: p, m: m}
}

type evmProvider struct {
	next provider.EVM
	m    *Metrics
}

func (p *evmProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	start := time.Now()
	res, err := p.next.Request(ctx, method, params...)
	p.m.RecordRPCCall(chain.EVM.String(), method, time.Since(start), err)
	return res, err
}

func (p *evmProvider) Flags() provider.Flags {
	if f, ok := p.next.(provider.Flagged); ok {
		return f.Flags()
	}
	return provider.Flags{}
}

// InstrumentNetwork wraps Solana node access.
func InstrumentNetwork(n sol.Network, m *Metrics) sol.Network {
	return &solanaNetwork{next: n, m: m}
}

type solanaNetwork struct {
	next sol.Network
	m    *Metrics
}

func (n *solanaNetwork) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	start := time.Now()
	ok, err := n.next.AccountExists(ctx, account)
	n.m.RecordRPCCall(chain.Solana.String(), "getAccountInfo", time.Since(start), err)
	return ok, err
}

func (n *solanaNetwork) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	start := time.Now()
	h, err := n.next.LatestBlockhash(ctx)
	n.m.RecordRPCCall(chain.Solana.String(), "getLatestBlockhash", time.Since(start), err)
	return h, err
}

func (n *solanaNetwork) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := time.Now()
	sig, err := n.next.SendTransaction(ctx, tx)
	n.m.RecordRPCCall(chain.Solana.String(), "sendTransaction", time.Since(start), err)
	return sig, err
}
