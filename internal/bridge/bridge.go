package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/version"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// Recorder receives bridge telemetry.
type Recorder interface {
	MessageReceived(kind string)
	MessageDropped(reason string)
	WalletOperation(family, operation, result string, elapsed time.Duration)
	DeliveryFailed(msgType string)
}

type nopRecorder struct{}

func (nopRecorder) MessageReceived(string) {}
func (nopRecorder) MessageDropped(string) {}
func (nopRecorder) WalletOperation(string, string, string, time.Duration) {}
func (nopRecorder) DeliveryFailed(string) {}

// Drop reasons reported to the Recorder.
const (
	DropOrigin  = "origin"
	DropUnknown = "unknown"
	DropStale   = "stale"
)

// Config wires a Bridge to its collaborators.
type Config struct {
	Window    *Window
	Registry  *chain.Registry
	Presenter Presenter
	Specs     version.Specs
	Logger    chain.Logger
	Recorder  Recorder
}

// Bridge owns at most one live session and routes its messages.
type Bridge struct {
	window    *Window
	registry  *chain.Registry
	presenter Presenter
	specs     version.Specs
	logger    chain.Logger
	recorder  Recorder

	mu      sync.Mutex
	session *Session
	ops     sync.WaitGroup
}

// New creates a bridge. A nil window gets an origin-less window.
func New(cfg Config) *Bridge {
	b := &Bridge{
		window:    cfg.Window,
		registry:  cfg.Registry,
		presenter: cfg.Presenter,
		specs:     cfg.Specs,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
	}
	if b.window == nil {
		b.window = NewWindow("")
	}
	if b.registry == nil {
		b.registry = chain.NewRegistry()
	}
	if b.logger == nil {
		b.logger = chain.NopLogger{}
	}
	if b.recorder == nil {
		b.recorder = nopRecorder{}
	}
	if b.specs == (version.Specs{}) {
		b.specs = version.SDKSpecs()
	}
	return b
}

// Window returns the window inbound messages are dispatched into.
func (b *Bridge) Window() *Window {
	return b.window
}

// Session returns the live session, or nil.
func (b *Bridge) Session() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// Open starts a session for the link token. An invalid token invokes the
// exit callback once and changes nothing else. Any live session is torn down
// first, without invoking its exit callback. With a nil target the presenter
// opens the frame.
func (b *Bridge) Open(ctx context.Context, token string, target Frame, opts Options) error {
	u, err := DecodeToken(token)
	if err != nil {
		b.logger.Error("rejecting link token: %v", err)
		if opts.OnExit != nil {
			opts.OnExit(InvalidTokenMessage, nil)
		}
		return err
	}
	if target == nil && b.presenter == nil {
		return linkerr.WithSuggestion(linkerr.ErrNoFrame, "pass a frame or configure a presenter")
	}

	sess := newSession(u, decorateURL(u, opts.Language, opts.Theme), opts)

	b.mu.Lock()
	old := b.session
	var oldFrame Frame
	if old != nil {
		oldFrame = b.detachLocked(old)
	}
	sess.listener = b.window.AddListener(func(ctx context.Context, ev Event) {
		b.handle(ctx, sess, ev)
	})
	b.session = sess
	b.mu.Unlock()

	if old != nil {
		b.logger.Debug("session %s superseded by %s", old.ID, sess.ID)
		closeFrame(b.logger, oldFrame)
	}

	frame, err := b.openFrame(ctx, sess, target)
	if err != nil {
		b.mu.Lock()
		if b.session == sess {
			b.detachLocked(sess)
			b.session = nil
		}
		b.mu.Unlock()
		sess.shutdown()
		return linkerr.Wrap(err, "open link frame")
	}

	sess.setFrame(frame)
	if sess.Closed() {
		// Superseded or closed while the frame was opening.
		closeFrame(b.logger, frame)
	}
	b.logger.Debug("session %s opened for %s (client %q)", sess.ID, sess.TargetOrigin, opts.ClientID)
	return nil
}

func (b *Bridge) openFrame(ctx context.Context, sess *Session, target Frame) (Frame, error) {
	if target != nil {
		if err := target.Navigate(ctx, sess.LinkURL); err != nil {
			return nil, err
		}
		return target, nil
	}
	return b.presenter.Present(ctx, sess.LinkURL, b.window)
}

// Close tears down the live session and invokes its exit callback with no
// error. Without a live session it does nothing.
func (b *Bridge) Close() {
	b.mu.Lock()
	sess := b.session
	if sess == nil {
		b.mu.Unlock()
		return
	}
	frame := b.detachLocked(sess)
	b.session = nil
	b.mu.Unlock()

	closeFrame(b.logger, frame)
	sess.exit("", nil)
}

// Wait blocks until in-flight wallet operations have finished.
func (b *Bridge) Wait() {
	b.ops.Wait()
}

// detachLocked removes the session's listener and marks it closed. The
// caller must hold b.mu and close the returned frame.
func (b *Bridge) detachLocked(sess *Session) Frame {
	b.window.RemoveListener(sess.listener)
	return sess.shutdown()
}

func (b *Bridge) isLive(sess *Session) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session == sess
}

// finish ends the session after a terminal message.
func (b *Bridge) finish(sess *Session, summary *SessionSummary) {
	b.mu.Lock()
	if b.session != sess {
		b.mu.Unlock()
		return
	}
	frame := b.detachLocked(sess)
	b.session = nil
	b.mu.Unlock()

	closeFrame(b.logger, frame)

	var msg string
	if summary != nil {
		msg = summary.ErrorMessage
	}
	sess.exit(msg, summary)
}

func closeFrame(logger chain.Logger, f Frame) {
	if f == nil {
		return
	}
	if err := f.Close(); err != nil {
		logger.Debug("closing frame: %v", err)
	}
}

// handle classifies one inbound event for sess.
func (b *Bridge) handle(ctx context.Context, sess *Session, ev Event) {
	if !b.isLive(sess) {
		b.recorder.MessageDropped(DropStale)
		return
	}

	msgType := ev.Data.Type
	switch {
	case IsWalletOperation(msgType):
		b.recorder.MessageReceived("wallet_operation")
		b.dispatchWalletOperation(ctx, sess, ev.Data)

	case !b.trustedOrigin(sess, ev.Origin):
		b.logger.Error("dropping %s from untrusted origin %q", msgType, ev.Origin)
		b.recorder.MessageDropped(DropOrigin)

	case IsLinkEvent(msgType):
		b.recorder.MessageReceived("link_event")
		b.handleLinkEvent(ctx, sess, ev.Data)

	default:
		b.recorder.MessageDropped(DropUnknown)
	}
}

func (b *Bridge) trustedOrigin(sess *Session, origin string) bool {
	origin = normalizeOrigin(origin)
	if origin == sess.TargetOrigin {
		return true
	}
	own := b.window.Origin()
	return own != "" && origin == normalizeOrigin(own)
}

func (b *Bridge) handleLinkEvent(ctx context.Context, sess *Session, msg Message) {
	switch msg.Type {
	case TypeLoaded:
		b.pushInit(ctx, sess)
		sess.emit(Message{Type: EventPageLoaded})

	case TypeBrokerageAccountAccessToken:
		b.connected(sess, linkPayload{AccessToken: msg.Payload})

	case TypeDelayedAuthentication:
		b.connected(sess, linkPayload{DelayedAuth: msg.Payload})

	case EventIntegrationConnected:
		sess.emit(msg)
		sess.integrationConnected(msg.Payload)

	case TypeTransferFinished:
		sess.emit(Message{Type: EventTransferCompleted, Payload: msg.Payload})
		sess.transferFinished(msg.Payload)

	case EventTransferCompleted:
		sess.emit(msg)
		sess.transferFinished(msg.Payload)

	case TypeClose, TypeDone:
		b.finish(sess, parseSummary(b.logger, msg.Payload))

	default:
		sess.emit(msg)
	}
}

// connected reports tokens delivered by the frame as an integrationConnected event.
func (b *Bridge) connected(sess *Session, p linkPayload) {
	raw, err := json.Marshal(p)
	if err != nil {
		b.logger.Error("encoding integration payload: %v", err)
		return
	}
	sess.emit(Message{Type: EventIntegrationConnected, Payload: raw})
	sess.integrationConnected(raw)
}

// pushInit sends the init messages. Each is best-effort on its own.
func (b *Bridge) pushInit(ctx context.Context, sess *Session) {
	b.deliver(ctx, sess, TypeSDKSpecs, b.specs)
	b.deliver(ctx, sess, TypeInjectedWalletProviders, b.registry.Providers())
	if sess.opts.AccessTokens != nil {
		b.deliver(ctx, sess, TypeAccessTokens, sess.opts.AccessTokens)
	}
	if sess.opts.TransferDestinationTokens != nil {
		b.deliver(ctx, sess, TypeTransferDestinationTokens, sess.opts.TransferDestinationTokens)
	}
}

// deliver posts a message to the session's frame. Missing frames and
// delivery errors are logged, never returned.
func (b *Bridge) deliver(ctx context.Context, sess *Session, msgType string, payload any) {
	frame := sess.liveFrame(ctx)
	if frame == nil {
		b.logger.Debug("no live frame, dropping %s", msgType)
		b.recorder.DeliveryFailed(msgType)
		return
	}

	msg, err := NewMessage(msgType, payload)
	if err != nil {
		b.logger.Error("encoding %s: %v", msgType, err)
		b.recorder.DeliveryFailed(msgType)
		return
	}
	if err := frame.Post(ctx, msg); err != nil {
		b.logger.Error("delivering %s: %v", msgType, err)
		b.recorder.DeliveryFailed(msgType)
	}
}

func parseSummary(logger chain.Logger, raw json.RawMessage) *SessionSummary {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s SessionSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		logger.Debug("ignoring malformed session summary: %v", err)
		return nil
	}
	return &s
}
