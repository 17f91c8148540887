package bridge

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/google/uuid"
)

// Options is the caller configuration snapshotted into a session on open.
type Options struct {
	ClientID string
	Language string
	Theme    string

	// AccessTokens and TransferDestinationTokens are pushed to the frame
	// after it loads. Nil values are not sent.
	AccessTokens              any
	TransferDestinationTokens any

	OnIntegrationConnected func(payload json.RawMessage)
	OnTransferFinished     func(payload json.RawMessage)
	OnEvent                func(ev Message)
	OnExit                 func(errorMessage string, summary *SessionSummary)
}

// Session is one open embedding, from Open until teardown.
type Session struct {
	ID           string
	URL          *url.URL
	LinkURL      string
	TargetOrigin string

	opts     Options
	listener ListenerID
	exitOnce sync.Once

	mu     sync.Mutex
	frame  Frame
	closed bool
	ready  chan struct{}
	attach sync.Once
}

func newSession(u *url.URL, linkURL string, opts Options) *Session {
	return &Session{
		ID:           uuid.NewString(),
		URL:          u,
		LinkURL:      linkURL,
		TargetOrigin: Origin(u),
		opts:         opts,
		ready:        make(chan struct{}),
	}
}

// Closed reports whether the session was torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// setFrame records the frame and releases deliveries waiting for it. A nil
// frame marks the frame as unavailable.
func (s *Session) setFrame(f Frame) {
	s.mu.Lock()
	if !s.closed {
		s.frame = f
	}
	s.mu.Unlock()
	s.attach.Do(func() { close(s.ready) })
}

// liveFrame waits until the frame is attached and returns it, or nil when
// the session has no live frame.
func (s *Session) liveFrame(ctx context.Context) Frame {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.frame
}

// shutdown marks the session closed and returns the frame to close.
func (s *Session) shutdown() Frame {
	s.mu.Lock()
	f := s.frame
	s.frame = nil
	s.closed = true
	s.mu.Unlock()
	s.attach.Do(func() { close(s.ready) })
	return f
}

// exit invokes the exit callback at most once per session.
func (s *Session) exit(errorMessage string, summary *SessionSummary) {
	s.exitOnce.Do(func() {
		if s.opts.OnExit != nil {
			s.opts.OnExit(errorMessage, summary)
		}
	})
}

func (s *Session) emit(msg Message) {
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(msg)
	}
}

func (s *Session) integrationConnected(payload json.RawMessage) {
	if s.opts.OnIntegrationConnected != nil {
		s.opts.OnIntegrationConnected(payload)
	}
}

func (s *Session) transferFinished(payload json.RawMessage) {
	if s.opts.OnTransferFinished != nil {
		s.opts.OnTransferFinished(payload)
	}
}
