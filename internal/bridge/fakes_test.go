package bridge_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrz1836/linkbridge/internal/bridge"
	"github.com/mrz1836/linkbridge/internal/chain"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// fakeFrame records navigation, posts and closes.
type fakeFrame struct {
	mu        sync.Mutex
	navigated []string
	posts     []bridge.Message
	closed    int
	navErr    error
	postErr   error
}

func (f *fakeFrame) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakeFrame) Post(_ context.Context, msg bridge.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.posts = append(f.posts, msg)
	return nil
}

func (f *fakeFrame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeFrame) navigations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigated...)
}

func (f *fakeFrame) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeFrame) postTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.posts))
	for i, m := range f.posts {
		out[i] = m.Type
	}
	return out
}

func (f *fakeFrame) posted(t *testing.T, msgType string) bridge.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.posts {
		if m.Type == msgType {
			return m
		}
	}
	require.Failf(t, "message not posted", "%s not in %v", msgType, f.posts)
	return bridge.Message{}
}

// fakeStrategy implements chain.Strategy with overridable behavior.
type fakeStrategy struct {
	family    chain.Family
	providers []chain.ProviderInfo

	connect    func(ctx context.Context, req chain.ConnectRequest) (*chain.ConnectResult, error)
	sign       func(ctx context.Context, req chain.SignRequest) (string, error)
	transfer   func(ctx context.Context, req chain.TransferRequest) (string, error)
	contract   func(ctx context.Context, req chain.ContractCallRequest) (string, error)
	disconnect func(ctx context.Context, req chain.DisconnectRequest) error

	mu    sync.Mutex
	calls []string
}

func (s *fakeStrategy) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
}

func (s *fakeStrategy) called() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeStrategy) Family() chain.Family { return s.family }

func (s *fakeStrategy) Providers() []chain.ProviderInfo { return s.providers }

func (s *fakeStrategy) Connect(ctx context.Context, req chain.ConnectRequest) (*chain.ConnectResult, error) {
	s.record("connect")
	if s.connect != nil {
		return s.connect(ctx, req)
	}
	return &chain.ConnectResult{Accounts: []string{"acct"}, ChainID: "1", IsConnected: true, NetworkType: s.family}, nil
}

func (s *fakeStrategy) Disconnect(ctx context.Context, req chain.DisconnectRequest) error {
	s.record("disconnect")
	if s.disconnect != nil {
		return s.disconnect(ctx, req)
	}
	return nil
}

func (s *fakeStrategy) SignMessage(ctx context.Context, req chain.SignRequest) (string, error) {
	s.record("sign")
	if s.sign != nil {
		return s.sign(ctx, req)
	}
	return "sig", nil
}

func (s *fakeStrategy) SwitchChain(_ context.Context, req chain.SwitchChainRequest) (*chain.SwitchChainResult, error) {
	s.record("switch")
	return &chain.SwitchChainResult{ChainID: req.ChainID, Accounts: []string{"acct"}, NetworkType: s.family}, nil
}

func (s *fakeStrategy) SendNativeTransfer(ctx context.Context, req chain.TransferRequest) (string, error) {
	s.record("native_transfer")
	if s.transfer != nil {
		return s.transfer(ctx, req)
	}
	return "0xhash", nil
}

func (s *fakeStrategy) SendSmartContractInteraction(ctx context.Context, req chain.ContractCallRequest) (string, error) {
	s.record("contract:" + string(req.Kind))
	if s.contract != nil {
		return s.contract(ctx, req)
	}
	return "0xcontract", nil
}

func (s *fakeStrategy) SendTransactionBatch(context.Context, chain.BatchRequest) (string, error) {
	s.record("batch")
	if s.family != chain.EVM {
		return "", linkerr.ErrNotImplemented
	}
	return "0xbatch", nil
}

func (s *fakeStrategy) SendTransactionWithInstructions(context.Context, chain.InstructionTransferRequest) (string, error) {
	s.record("instructions")
	return "sig-instructions", nil
}

func (s *fakeStrategy) GetWalletCapabilities(context.Context, chain.CapabilitiesRequest) (*chain.Capabilities, error) {
	s.record("capabilities")
	return chain.DefaultCapabilities(), nil
}

// harness wires a bridge to fake strategies and counts strategy creation.
type harness struct {
	bridge  *bridge.Bridge
	window  *bridge.Window
	evm     *fakeStrategy
	sol     *fakeStrategy
	created atomic.Int32
}

const hostOrigin = "https://host.test"

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		window: bridge.NewWindow(hostOrigin),
		evm: &fakeStrategy{family: chain.EVM, providers: []chain.ProviderInfo{
			{ID: "io.metamask", Name: "MetaMask", Type: chain.EVM},
		}},
		sol: &fakeStrategy{family: chain.Solana, providers: []chain.ProviderInfo{
			{ID: "phantom", Name: "Phantom", Type: chain.Solana},
		}},
	}
	reg := chain.NewRegistry()
	reg.Register(chain.EVM, func() (chain.Strategy, error) {
		h.created.Add(1)
		return h.evm, nil
	})
	reg.Register(chain.Solana, func() (chain.Strategy, error) {
		h.created.Add(1)
		return h.sol, nil
	})
	h.bridge = bridge.New(bridge.Config{Window: h.window, Registry: reg})
	return h
}

// callbacks records every callback invocation.
type callbacks struct {
	mu          sync.Mutex
	events      []bridge.Message
	connected   []json.RawMessage
	transfers   []json.RawMessage
	exits       []string
	summaries   []*bridge.SessionSummary
	exitInvoked int
}

func (c *callbacks) options() bridge.Options {
	return bridge.Options{
		OnEvent: func(ev bridge.Message) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.events = append(c.events, ev)
		},
		OnIntegrationConnected: func(p json.RawMessage) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.connected = append(c.connected, p)
		},
		OnTransferFinished: func(p json.RawMessage) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.transfers = append(c.transfers, p)
		},
		OnExit: func(msg string, summary *bridge.SessionSummary) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.exitInvoked++
			c.exits = append(c.exits, msg)
			c.summaries = append(c.summaries, summary)
		},
	}
}

func (c *callbacks) eventTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func token(link string) string {
	tok, err := bridge.EncodeToken(link)
	if err != nil {
		panic(err)
	}
	return tok
}

func dispatch(w *bridge.Window, origin, msgType, payload string) {
	msg := bridge.Message{Type: msgType}
	if payload != "" {
		msg.Payload = json.RawMessage(payload)
	}
	w.Dispatch(context.Background(), bridge.Event{Origin: origin, Data: msg})
}

func errorOf(t *testing.T, msg bridge.Message) string {
	t.Helper()
	var p struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p.Error
}
