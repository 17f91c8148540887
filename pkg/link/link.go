// Package link embeds the hosted link flow in a Go host.
//
// A Link owns at most one session at a time. Open decodes a link token,
// loads the link URL into a frame and routes the frame's messages: business
// events go to the caller's callbacks, wallet-operation requests go to the
// EVM and Solana strategies driving the wallets found in the Environment.
//
//	env := link.NewEnvironment()
//	env.SetEthereum(myWallet)
//	l := link.New(link.Options{OnExit: onExit}, link.WithEnvironment(env))
//	err := l.Open(ctx, token, myFrame)
package link

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mrz1836/linkbridge/internal/bridge"
	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/chain/evm"
	"github.com/mrz1836/linkbridge/internal/chain/sol"
	"github.com/mrz1836/linkbridge/internal/discovery"
)

// Types shared with the bridge.
type (
	Frame          = bridge.Frame
	Presenter      = bridge.Presenter
	PresenterFunc  = bridge.PresenterFunc
	Message        = bridge.Message
	Window         = bridge.Window
	Event          = bridge.Event
	SessionSummary = bridge.SessionSummary
	Recorder       = bridge.Recorder
	Environment    = discovery.Environment
	Logger         = chain.Logger
)

// Business event types delivered to OnEvent besides the raw frame events.
const (
	EventIntegrationConnected = bridge.EventIntegrationConnected
	EventTransferCompleted    = bridge.EventTransferCompleted
	EventPageLoaded           = bridge.EventPageLoaded
)

// InvalidTokenMessage is passed to OnExit when a link token cannot be decoded.
const InvalidTokenMessage = bridge.InvalidTokenMessage

// NewEnvironment creates an empty wallet environment.
func NewEnvironment() *Environment {
	return discovery.NewEnvironment()
}

// NewWindow creates the host window frames dispatch into. origin is the
// host's own origin and may be empty.
func NewWindow(origin string) *Window {
	return bridge.NewWindow(origin)
}

// EncodeToken builds a link token from a link URL.
func EncodeToken(linkURL string) (string, error) {
	return bridge.EncodeToken(linkURL)
}

// Options configures a Link. It is copied into each session on Open.
type Options struct {
	ClientID string

	// Language is a BCP 47 tag, or "system" for the host locale. Defaults to "en".
	Language string
	Theme    string

	AccessTokens              []IntegrationAccessToken
	TransferDestinationTokens []IntegrationAccessToken

	OnIntegrationConnected func(LinkPayload)
	OnTransferFinished     func(TransferFinishedPayload)
	OnEvent                func(Message)
	OnExit                 func(errorMessage string, summary *SessionSummary)
}

// Option configures the collaborators of a Link.
type Option func(*settings)

type settings struct {
	env       *discovery.Environment
	window    *bridge.Window
	presenter bridge.Presenter
	registry  *chain.Registry
	network   sol.Network
	solanaRPC string
	confirm   time.Duration
	logger    chain.Logger
	recorder  bridge.Recorder
}

// WithEnvironment sets the wallets the strategies drive.
func WithEnvironment(env *Environment) Option {
	return func(s *settings) {
		s.env = env
	}
}

// WithWindow sets the window frames dispatch into.
func WithWindow(w *Window) Option {
	return func(s *settings) {
		s.window = w
	}
}

// WithPresenter sets the presenter used when Open gets no frame.
func WithPresenter(p Presenter) Option {
	return func(s *settings) {
		s.presenter = p
	}
}

// WithSolanaRPC sets the Solana JSON-RPC endpoint used for account probes,
// blockhashes and broadcasts.
func WithSolanaRPC(endpoint string) Option {
	return func(s *settings) {
		s.solanaRPC = endpoint
	}
}

// WithSolanaNetwork replaces the Solana JSON-RPC network.
func WithSolanaNetwork(n sol.Network) Option {
	return func(s *settings) {
		s.network = n
	}
}

// WithConfirmationTimeout bounds how long EVM transfers wait for a receipt.
func WithConfirmationTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.confirm = d
	}
}

// WithRegistry replaces the default EVM and Solana strategies.
func WithRegistry(r *chain.Registry) Option {
	return func(s *settings) {
		s.registry = r
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithRecorder sets the telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		s.recorder = r
	}
}

// Link is the host-side entry point of the link flow.
type Link struct {
	opts   Options
	bridge *bridge.Bridge
	logger chain.Logger
}

// New creates a Link.
func New(opts Options, with ...Option) *Link {
	s := settings{}
	for _, o := range with {
		o(&s)
	}
	if s.logger == nil {
		s.logger = chain.NopLogger{}
	}
	if s.env == nil {
		s.env = discovery.NewEnvironment()
	}
	if s.registry == nil {
		s.registry = defaultRegistry(s)
	}

	return &Link{
		opts:   opts,
		logger: s.logger,
		bridge: bridge.New(bridge.Config{
			Window:    s.window,
			Registry:  s.registry,
			Presenter: s.presenter,
			Logger:    s.logger,
			Recorder:  s.recorder,
		}),
	}
}

// DefaultRegistry registers the EVM and Solana strategies over env. A nil
// network dials endpoint, or the public mainnet endpoint when it is empty.
func DefaultRegistry(env *Environment, network sol.Network, endpoint string, logger Logger) *chain.Registry {
	return defaultRegistry(settings{env: env, network: network, solanaRPC: endpoint, logger: logger})
}

func defaultRegistry(s settings) *chain.Registry {
	env, network, endpoint, logger := s.env, s.network, s.solanaRPC, s.logger
	evmOpts := []evm.Option{evm.WithLogger(logger)}
	if s.confirm > 0 {
		evmOpts = append(evmOpts, evm.WithConfirmationTimeout(s.confirm))
	}

	reg := chain.NewRegistry()
	reg.Register(chain.EVM, func() (chain.Strategy, error) {
		return evm.New(env, evmOpts...), nil
	})
	reg.Register(chain.Solana, func() (chain.Strategy, error) {
		n := network
		if n == nil {
			n = sol.NewRPCNetwork(endpoint)
		}
		return sol.New(env, n, sol.WithLogger(logger)), nil
	})
	return reg
}

// Open starts a session for token, replacing any open session without
// calling its OnExit. With a nil frame the configured presenter opens one.
// An invalid token calls OnExit with InvalidTokenMessage and returns the
// decoding error.
func (l *Link) Open(ctx context.Context, token string, frame Frame) error {
	return l.bridge.Open(ctx, token, frame, l.sessionOptions())
}

// Close ends the open session and calls OnExit without an error.
func (l *Link) Close() {
	l.bridge.Close()
}

// Window returns the window frames dispatch into.
func (l *Link) Window() *Window {
	return l.bridge.Window()
}

// SessionID returns the id of the open session, or "" without one.
func (l *Link) SessionID() string {
	if s := l.bridge.Session(); s != nil {
		return s.ID
	}
	return ""
}

// Wait blocks until in-flight wallet operations have finished.
func (l *Link) Wait() {
	l.bridge.Wait()
}

func (l *Link) sessionOptions() bridge.Options {
	o := l.opts
	out := bridge.Options{
		ClientID: o.ClientID,
		Language: o.Language,
		Theme:    o.Theme,
		OnEvent:  o.OnEvent,
		OnExit:   o.OnExit,
	}
	if len(o.AccessTokens) > 0 {
		out.AccessTokens = o.AccessTokens
	}
	if len(o.TransferDestinationTokens) > 0 {
		out.TransferDestinationTokens = o.TransferDestinationTokens
	}
	if o.OnIntegrationConnected != nil {
		out.OnIntegrationConnected = func(raw json.RawMessage) {
			var p LinkPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				l.logger.Error("decoding integration payload: %v", err)
				return
			}
			o.OnIntegrationConnected(p)
		}
	}
	if o.OnTransferFinished != nil {
		out.OnTransferFinished = func(raw json.RawMessage) {
			var p TransferFinishedPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				l.logger.Error("decoding transfer payload: %v", err)
				return
			}
			o.OnTransferFinished(p)
		}
	}
	return out
}
