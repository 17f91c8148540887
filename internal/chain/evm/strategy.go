// Package evm implements the wallet-operation contract for EIP-1193 wallets.
package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/discovery"
	"github.com/mrz1836/linkbridge/internal/provider"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// DefaultConfirmationTimeout bounds how long a transaction is polled for a receipt.
const DefaultConfirmationTimeout = 5 * time.Minute

// Strategy drives EVM wallets found in the environment. It remembers the
// connected wallet and the chain it was on at connect time.
type Strategy struct {
	env     *discovery.Environment
	limiter *chain.RateLimiter
	timeout time.Duration
	logger  chain.Logger

	mu         sync.Mutex
	active     provider.EVM
	activeName string
	chainID    *big.Int
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

// WithRateLimiter replaces the limiter pacing confirmation polls.
func WithRateLimiter(l *chain.RateLimiter) Option {
	return func(s *Strategy) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithConfirmationTimeout changes how long receipts are polled for.
func WithConfirmationTimeout(d time.Duration) Option {
	return func(s *Strategy) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates an EVM strategy over the environment's providers.
func New(env *discovery.Environment, opts ...Option) *Strategy {
	s := &Strategy{
		env:     env,
		limiter: chain.DefaultRateLimiter(),
		timeout: DefaultConfirmationTimeout,
		logger:  chain.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Family implements chain.Strategy.
func (s *Strategy) Family() chain.Family {
	return chain.EVM
}

// Providers lists the discovered EVM wallets.
func (s *Strategy) Providers() []chain.ProviderInfo {
	out := []chain.ProviderInfo{}
	for _, p := range s.env.EVMProviders() {
		out = append(out, p.Info)
	}
	return out
}

// Connect connects the named wallet, asking for accounts only when none are
// exposed yet, and moves it to the target chain when one is given.
func (s *Strategy) Connect(ctx context.Context, req chain.ConnectRequest) (*chain.ConnectResult, error) {
	p, err := s.env.FindEVM(req.IntegrationName)
	if err != nil {
		return nil, err
	}

	accounts, err := requestAccounts(ctx, p)
	if err != nil {
		return nil, opError(err, "connect to EVM wallet")
	}

	chainID, err := chainIDOf(ctx, p)
	if err != nil {
		return nil, opError(err, "connect to EVM wallet")
	}

	target, err := chain.ParseQuantity(req.TargetChainID)
	if err != nil {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidInput, map[string]string{"field": "targetChainId"})
	}
	if target != nil && target.Sign() > 0 && target.Cmp(chainID) != 0 {
		s.logger.Debug("switching %s from chain %s to %s", req.IntegrationName, chainID, target)
		if err := switchTo(ctx, p, target); err != nil {
			return nil, err
		}
		if chainID, err = chainIDOf(ctx, p); err != nil {
			return nil, opError(err, "connect to EVM wallet")
		}
		if accounts, err = listAccounts(ctx, p); err != nil {
			return nil, opError(err, "connect to EVM wallet")
		}
	}

	s.mu.Lock()
	s.active = p
	s.activeName = req.IntegrationName
	s.chainID = chainID
	s.mu.Unlock()

	return &chain.ConnectResult{
		Accounts:    accounts,
		ChainID:     json.Number(chainID.String()),
		IsConnected: true,
		NetworkType: chain.EVM,
	}, nil
}

// Disconnect forgets the active wallet. Nothing connected is not an error.
func (s *Strategy) Disconnect(context.Context, chain.DisconnectRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.logger.Debug("disconnecting EVM wallet %s", s.activeName)
	}
	s.active = nil
	s.activeName = ""
	s.chainID = nil
	return nil
}

// SignMessage signs the UTF-8 message with personal_sign.
func (s *Strategy) SignMessage(ctx context.Context, req chain.SignRequest) (string, error) {
	p, err := s.signer(req.WalletName)
	if err != nil {
		return "", err
	}

	var sig string
	if err := call(ctx, p, &sig, "personal_sign", hexutil.Encode([]byte(req.Message)), req.Address); err != nil {
		return "", opError(err, "sign EVM message")
	}
	return sig, nil
}

// SwitchChain moves the wallet to another chain and re-reads its state.
func (s *Strategy) SwitchChain(ctx context.Context, req chain.SwitchChainRequest) (*chain.SwitchChainResult, error) {
	p, err := s.signer("")
	if err != nil {
		return nil, err
	}

	target, err := chain.ParseQuantity(req.ChainID)
	if err != nil || target == nil {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidInput, map[string]string{"field": "chainId"})
	}
	if err := switchTo(ctx, p, target); err != nil {
		return nil, err
	}

	chainID, err := chainIDOf(ctx, p)
	if err != nil {
		return nil, opError(err, "switch EVM chain")
	}
	accounts, err := listAccounts(ctx, p)
	if err != nil {
		return nil, opError(err, "switch EVM chain")
	}

	s.mu.Lock()
	if s.active == p {
		s.chainID = chainID
	}
	s.mu.Unlock()

	return &chain.SwitchChainResult{
		ChainID:     json.Number(chainID.String()),
		Accounts:    accounts,
		NetworkType: chain.EVM,
	}, nil
}

// GetWalletCapabilities reports atomic batch support on the requested chain.
// Any failure yields the conservative default.
func (s *Strategy) GetWalletCapabilities(ctx context.Context, req chain.CapabilitiesRequest) (*chain.Capabilities, error) {
	p, err := s.signer("")
	if err != nil {
		s.logger.Debug("capabilities: %v", err)
		return chain.DefaultCapabilities(), nil
	}

	id, err := chain.ParseQuantity(req.ChainID)
	if err != nil || id == nil {
		return chain.DefaultCapabilities(), nil
	}
	key := hexutil.EncodeBig(id)

	var byChain map[string]chain.Capabilities
	if err := call(ctx, p, &byChain, "wallet_getCapabilities", req.From, []string{key}); err != nil {
		s.logger.Debug("wallet_getCapabilities failed: %v", err)
		return chain.DefaultCapabilities(), nil
	}

	for _, k := range []string{key, "0x0"} {
		if c, ok := byChain[k]; ok && c.Atomic.Status != "" {
			return &c, nil
		}
	}
	return chain.DefaultCapabilities(), nil
}

// signer returns the active wallet, or the named one when nothing is connected.
func (s *Strategy) signer(walletName string) (provider.EVM, error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active != nil {
		return active, nil
	}
	p, err := s.env.FindEVM(walletName)
	if err != nil {
		return nil, linkerr.WithSuggestion(linkerr.ErrNoActiveProvider, "connect a wallet first")
	}
	return p, nil
}

// requireActive returns the connected wallet and its connect-time chain id.
func (s *Strategy) requireActive() (provider.EVM, *big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, nil, linkerr.ErrNoActiveProvider
	}
	return s.active, s.chainID, nil
}

// ensureNetwork fails when the wallet moved away from the recorded chain.
func ensureNetwork(ctx context.Context, p provider.EVM, recorded *big.Int) error {
	current, err := chainIDOf(ctx, p)
	if err != nil {
		return err
	}
	if recorded != nil && current.Cmp(recorded) != 0 {
		return linkerr.WithDetails(linkerr.ErrNetworkChanged, map[string]string{
			"expected": recorded.String(),
			"current":  current.String(),
		})
	}
	return nil
}

// switchTo issues wallet_switchEthereumChain.
func switchTo(ctx context.Context, p provider.EVM, id *big.Int) error {
	param := map[string]string{"chainId": hexutil.EncodeBig(id)}
	if _, err := p.Request(ctx, "wallet_switchEthereumChain", param); err != nil {
		var perr *provider.Error
		if errors.As(err, &perr) && perr.Code == provider.CodeUnrecognizedChain {
			return linkerr.WithDetails(linkerr.ErrChainNotConfigured, map[string]string{"chainId": id.String()})
		}
		return opError(err, "switch EVM chain")
	}
	return nil
}

// requestAccounts returns exposed accounts, prompting only when there are none.
func requestAccounts(ctx context.Context, p provider.EVM) ([]string, error) {
	accounts, err := listAccounts(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		return accounts, nil
	}
	if err := call(ctx, p, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, linkerr.ErrNoAccounts
	}
	return accounts, nil
}

func listAccounts(ctx context.Context, p provider.EVM) ([]string, error) {
	accounts := []string{}
	if err := call(ctx, p, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []string{}
	}
	return accounts, nil
}

func chainIDOf(ctx context.Context, p provider.EVM) (*big.Int, error) {
	var raw string
	if err := call(ctx, p, &raw, "eth_chainId"); err != nil {
		return nil, err
	}
	id, err := hexutil.DecodeBig(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing chain id %q: %w", raw, err)
	}
	return id, nil
}

// call performs a request and decodes its result into out.
func call(ctx context.Context, p provider.EVM, out any, method string, params ...any) error {
	res, err := p.Request(ctx, method, params...)
	if err != nil {
		return err
	}
	if out == nil || len(res) == 0 {
		return nil
	}
	if err := json.Unmarshal(res, out); err != nil {
		return fmt.Errorf("parsing %s result: %w", method, err)
	}
	return nil
}

// opError normalizes rejections and adds operation context to everything else.
func opError(err error, op string) error {
	if chain.IsUserRejection(err, chain.EVMRejectionPhrases) {
		return linkerr.ErrUserRejected
	}
	var le *linkerr.LinkError
	if errors.As(err, &le) {
		return linkerr.Wrap(err, "%s", op)
	}
	return linkerr.WithDetails(linkerr.WithCause(linkerr.ErrProviderFailure, err), map[string]string{"operation": op})
}
