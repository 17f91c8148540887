// Package sol implements the wallet-operation contract for Solana wallets.
package sol

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/chain/sol/txbuilder"
	"github.com/mrz1836/linkbridge/internal/discovery"
	"github.com/mrz1836/linkbridge/internal/provider"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// defaultInstructionWallet is used when an instruction set names no wallet.
const defaultInstructionWallet = "Phantom"

// Strategy drives Solana wallets found in the environment.
type Strategy struct {
	env     *discovery.Environment
	network Network
	builder *txbuilder.Builder
	logger  chain.Logger

	mu     sync.Mutex
	active *discovery.SolanaProvider
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithLogger sets the diagnostic logger.
func WithLogger(l chain.Logger) Option {
	return func(s *Strategy) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Solana strategy. The network is used for account probes,
// blockhashes and broadcasting wallet-signed transactions.
func New(env *discovery.Environment, network Network, opts ...Option) *Strategy {
	s := &Strategy{
		env:     env,
		network: network,
		builder: txbuilder.New(network),
		logger:  chain.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Family implements chain.Strategy.
func (s *Strategy) Family() chain.Family {
	return chain.Solana
}

// Providers lists the discovered Solana wallets.
func (s *Strategy) Providers() []chain.ProviderInfo {
	out := []chain.ProviderInfo{}
	for _, p := range s.env.SolanaProviders() {
		out = append(out, p.Info)
	}
	return out
}

// Connect connects the named wallet. An existing connection is returned
// as-is, otherwise a silent trusted connect is tried before prompting.
func (s *Strategy) Connect(ctx context.Context, req chain.ConnectRequest) (*chain.ConnectResult, error) {
	p, err := s.env.FindSolana(req.IntegrationName)
	if err != nil {
		return nil, err
	}

	pk, connected := p.Provider.PublicKey()
	if !connected {
		pk, err = p.Provider.Connect(ctx, true)
		if err != nil {
			s.logger.Debug("trusted connect to %s failed: %v", p.Brand.Name, err)
			pk, err = p.Provider.Connect(ctx, false)
		}
		if err != nil {
			return nil, opError(err, "connect to Solana wallet")
		}
	}

	s.mu.Lock()
	s.active = &p
	s.mu.Unlock()

	return &chain.ConnectResult{
		Accounts:    []string{pk.String()},
		ChainID:     json.Number(chain.SolanaMainnetChainID),
		IsConnected: true,
		NetworkType: chain.Solana,
	}, nil
}

// Disconnect disconnects the active wallet. Nothing connected is not an error.
func (s *Strategy) Disconnect(ctx context.Context, _ chain.DisconnectRequest) error {
	s.mu.Lock()
	active := s.active
	s.active = nil
	s.mu.Unlock()

	if active == nil {
		return nil
	}
	if err := active.Provider.Disconnect(ctx); err != nil {
		return opError(err, "disconnect from Solana wallet")
	}
	return nil
}

// SignMessage signs the UTF-8 message and returns the base58 signature.
func (s *Strategy) SignMessage(ctx context.Context, req chain.SignRequest) (string, error) {
	target, err := s.resolve(req.WalletName)
	if err != nil {
		return "", err
	}
	sig, err := target.provider.SignMessage(ctx, []byte(req.Message))
	if err != nil {
		return "", opError(err, "sign Solana message")
	}
	return sig.String(), nil
}

// SwitchChain is a no-op: the family has a single chain.
func (s *Strategy) SwitchChain(context.Context, chain.SwitchChainRequest) (*chain.SwitchChainResult, error) {
	accounts := []string{}
	if target, err := s.resolve(""); err == nil {
		if pk, ok := target.provider.PublicKey(); ok {
			accounts = append(accounts, pk.String())
		}
	}
	return &chain.SwitchChainResult{
		ChainID:     json.Number(chain.SolanaMainnetChainID),
		Accounts:    accounts,
		NetworkType: chain.Solana,
	}, nil
}

// SendNativeTransfer transfers SOL, or a token when the request names a mint.
func (s *Strategy) SendNativeTransfer(ctx context.Context, req chain.TransferRequest) (string, error) {
	target, err := s.resolve(req.WalletName)
	if err != nil {
		return "", err
	}

	params, err := s.transferParams(target, req)
	if err != nil {
		return "", err
	}
	ixs, err := s.builder.TransferInstructions(ctx, params)
	if err != nil {
		return "", opError(err, "build Solana transfer")
	}

	blockhash, err := s.blockhash(ctx, req.Blockhash)
	if err != nil {
		return "", err
	}
	tx, err := txbuilder.Plan{Payer: params.From, Blockhash: blockhash, Instructions: ixs}.Compile()
	if err != nil {
		return "", err
	}

	sig, err := s.submit(ctx, target, tx)
	if err != nil {
		return "", opError(err, "send Solana native transfer")
	}
	return sig, nil
}

// SendSmartContractInteraction is not available for Solana wallets.
func (s *Strategy) SendSmartContractInteraction(context.Context, chain.ContractCallRequest) (string, error) {
	return "", linkerr.WithDetails(linkerr.ErrNotSupported, map[string]string{"operation": "smart contract interaction", "family": "solana"})
}

// SendTransactionBatch is not implemented for Solana wallets.
func (s *Strategy) SendTransactionBatch(context.Context, chain.BatchRequest) (string, error) {
	return "", linkerr.WithDetails(linkerr.ErrNotImplemented, map[string]string{"operation": "transaction batch", "family": "solana"})
}

// SendTransactionWithInstructions sends externally authored instructions
// followed by the transfer, compiled against any supplied lookup tables.
func (s *Strategy) SendTransactionWithInstructions(ctx context.Context, req chain.InstructionTransferRequest) (string, error) {
	set := req.TransactionInstructions
	walletName := set.WalletName
	if walletName == "" {
		walletName = req.WalletName
	}
	if walletName == "" {
		walletName = defaultInstructionWallet
	}

	target, err := s.resolve(walletName)
	if err != nil {
		return "", err
	}

	params, err := s.transferParams(target, req.TransferRequest)
	if err != nil {
		return "", err
	}

	fill := txbuilder.Fill{Payer: params.From}
	if params.IsToken() {
		if params.TokenProgram == nil {
			program, err := s.builder.ResolveTokenProgram(ctx, params.From, *params.Mint)
			if err != nil {
				return "", opError(err, "resolve token program")
			}
			params.TokenProgram = &program
		}
		account, err := txbuilder.AssociatedTokenAddress(params.From, *params.TokenProgram, *params.Mint)
		if err != nil {
			return "", err
		}
		fill.TokenAccount = &account
	}

	ixs, err := txbuilder.ResolveInstructions(set.Instructions, fill)
	if err != nil {
		return "", err
	}
	transfer, err := s.builder.TransferInstructions(ctx, params)
	if err != nil {
		return "", opError(err, "build Solana transfer")
	}
	ixs = append(ixs, transfer...)

	tables, err := txbuilder.ParseLookupTables(set.LookupTables)
	if err != nil {
		return "", err
	}

	hash := set.Blockhash
	if hash == "" {
		hash = req.Blockhash
	}
	blockhash, err := s.blockhash(ctx, hash)
	if err != nil {
		return "", err
	}

	tx, err := txbuilder.Plan{
		Payer:        params.From,
		Blockhash:    blockhash,
		Instructions: ixs,
		LookupTables: tables,
	}.Compile()
	if err != nil {
		return "", err
	}

	sig, err := s.submit(ctx, target, tx)
	if err != nil {
		return "", opError(err, "send Solana transaction with instructions")
	}
	return sig, nil
}

// GetWalletCapabilities returns the conservative default; Solana wallets do
// not report atomic batching.
func (s *Strategy) GetWalletCapabilities(context.Context, chain.CapabilitiesRequest) (*chain.Capabilities, error) {
	return chain.DefaultCapabilities(), nil
}

// resolved is the wallet an operation runs against.
type resolved struct {
	name       string
	provider   provider.Solana
	manualOnly bool
}

// resolve picks the active wallet when the name is empty or matches it,
// otherwise looks the wallet up in the environment.
func (s *Strategy) resolve(walletName string) (resolved, error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	want := strings.ToLower(strings.TrimSpace(walletName))
	if active != nil && (want == "" || want == "unknown wallet" ||
		strings.EqualFold(active.Brand.Name, walletName) || strings.EqualFold(active.Brand.ID, walletName)) {
		return resolved{name: active.Brand.Name, provider: active.Provider, manualOnly: active.IsManualOnly(walletName)}, nil
	}

	if want == "unknown wallet" {
		walletName = ""
	}
	p, err := s.env.FindSolana(walletName)
	if err != nil {
		return resolved{}, err
	}
	return resolved{name: p.Brand.Name, provider: p.Provider, manualOnly: p.IsManualOnly(walletName)}, nil
}

// transferParams validates a transfer request and scales its amount.
func (s *Strategy) transferParams(target resolved, req chain.TransferRequest) (txbuilder.TransferParams, error) {
	var p txbuilder.TransferParams

	to, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.ToAddress))
	if err != nil {
		return p, linkerr.WithDetails(linkerr.ErrInvalidAddress, map[string]string{"field": "toAddress", "address": req.ToAddress})
	}
	p.To = to

	if req.Account != "" {
		from, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.Account))
		if err != nil {
			return p, linkerr.WithDetails(linkerr.ErrInvalidAddress, map[string]string{"field": "account", "address": req.Account})
		}
		p.From = from
	} else {
		pk, ok := target.provider.PublicKey()
		if !ok {
			return p, linkerr.WithDetails(linkerr.ErrNoAccounts, map[string]string{"wallet": target.name})
		}
		p.From = pk
	}

	amount, err := chain.ScaleAmount(req.Amount, req.DecimalPlaces)
	if err != nil {
		return p, err
	}
	if !amount.IsUint64() {
		return p, linkerr.WithDetails(linkerr.ErrInvalidAmount, map[string]string{"amount": req.Amount.String()})
	}
	p.Amount = amount.Uint64()

	if req.TokenMint == "" {
		return p, nil
	}
	mint, err := solana.PublicKeyFromBase58(req.TokenMint)
	if err != nil {
		return p, linkerr.WithDetails(linkerr.ErrInvalidAddress, map[string]string{"field": "tokenMint", "address": req.TokenMint})
	}
	p.Mint = &mint
	p.CreateATA = req.CreateATA

	if req.TokenProgram != "" {
		program, err := solana.PublicKeyFromBase58(req.TokenProgram)
		if err != nil {
			return p, linkerr.WithDetails(linkerr.ErrInvalidAddress, map[string]string{"field": "tokenProgram", "address": req.TokenProgram})
		}
		p.TokenProgram = &program
	}

	decimals := req.DecimalPlaces
	if req.TokenDecimals != nil {
		decimals = *req.TokenDecimals
	}
	if decimals < 0 || decimals > math.MaxUint8 {
		return p, linkerr.WithDetails(linkerr.ErrInvalidAmount, map[string]string{"field": "tokenDecimals"})
	}
	d := uint8(decimals) //nolint:gosec // G115: range checked above
	p.Decimals = &d
	return p, nil
}

// blockhash parses the supplied blockhash or fetches a fresh one.
func (s *Strategy) blockhash(ctx context.Context, supplied string) (solana.Hash, error) {
	h, ok, err := txbuilder.ParseBlockhash(supplied)
	if err != nil || ok {
		return h, err
	}
	if s.network == nil {
		return solana.Hash{}, linkerr.WithDetails(linkerr.ErrInvalidInput, map[string]string{"field": "blockhash"})
	}
	h, err = s.network.LatestBlockhash(ctx)
	if err != nil {
		return solana.Hash{}, linkerr.Wrap(err, "fetch blockhash")
	}
	return h, nil
}

// opError normalizes rejections and adds operation context to everything else.
func opError(err error, op string) error {
	if chain.IsUserRejection(err, chain.SolanaRejectionPhrases) {
		return linkerr.ErrUserRejected
	}
	var le *linkerr.LinkError
	if errors.As(err, &le) {
		return linkerr.Wrap(err, "%s", op)
	}
	return linkerr.WithDetails(linkerr.WithCause(linkerr.ErrProviderFailure, err), map[string]string{"operation": op})
}
