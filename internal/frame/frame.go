// Package frame renders link frames on a remote surface reached over a
// websocket. The link URL is dialed with its scheme swapped to ws or wss and
// every text message is a JSON {type, payload} envelope.
package frame

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mrz1836/linkbridge/internal/bridge"
	"github.com/mrz1836/linkbridge/internal/chain"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// MaxMessageSize bounds a single inbound frame message.
const MaxMessageSize = 1 << 20

// closeReason is sent with the normal closure frame.
const closeReason = "session closed"

// Option configures a Conn or Presenter.
type Option func(*options)

type options struct {
	httpClient *http.Client
	header     http.Header
	logger     chain.Logger
}

// WithHTTPClient sets the client used for the websocket handshake.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithHeader adds a handshake header.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Add(key, value)
	}
}

// WithLogger sets the logger for connection diagnostics.
func WithLogger(l chain.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: chain.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Conn is a bridge.Frame backed by a websocket. Inbound messages are
// dispatched into the window with the origin of the navigated link URL.
type Conn struct {
	window *bridge.Window
	opts   options

	mu     sync.Mutex
	ws     *websocket.Conn
	origin string
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an unconnected Conn dispatching into w.
func New(w *bridge.Window, opts ...Option) *Conn {
	return &Conn{window: w, opts: buildOptions(opts)}
}

// Navigate dials the link URL, replacing any previous connection.
func (c *Conn) Navigate(ctx context.Context, link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return linkerr.WithCause(linkerr.ErrInvalidLinkToken, err)
	}
	wsURL, err := socketURL(u)
	if err != nil {
		return err
	}

	ws, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{ //nolint:bodyclose // closed by the library on success
		HTTPClient: c.opts.httpClient,
		HTTPHeader: c.opts.header,
	})
	if err != nil {
		return linkerr.WithCause(linkerr.ErrNetworkError, err)
	}
	ws.SetReadLimit(MaxMessageSize)

	_ = c.Close()

	readCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	c.mu.Lock()
	c.ws = ws
	c.origin = bridge.Origin(u)
	c.cancel = cancel
	c.done = done
	origin := c.origin
	c.mu.Unlock()

	c.opts.logger.Debug("frame connected to %s", origin)
	go c.readLoop(readCtx, ws, origin, done)
	return nil
}

// Post writes msg to the frame.
func (c *Conn) Post(ctx context.Context, msg bridge.Message) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return linkerr.ErrNoFrame
	}
	if err := wsjson.Write(ctx, ws, msg); err != nil {
		return linkerr.WithCause(linkerr.ErrNetworkError, err)
	}
	return nil
}

// Close sends a normal closure and stops the read loop without waiting for
// it, so it is safe to call from a listener. Closing an unconnected or
// already closed Conn does nothing.
func (c *Conn) Close() error {
	c.mu.Lock()
	ws, cancel := c.ws, c.cancel
	c.ws, c.cancel = nil, nil
	c.mu.Unlock()
	if ws == nil {
		return nil
	}

	err := ws.Close(websocket.StatusNormalClosure, closeReason)
	cancel()
	if err != nil && !isClosed(err) {
		return err
	}
	return nil
}

// Done is closed when the read loop of the current connection exits. It is
// nil before the first Navigate.
func (c *Conn) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Origin returns the origin of the navigated link URL.
func (c *Conn) Origin() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.origin
}

func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn, origin string, done chan struct{}) {
	defer close(done)
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			var ce websocket.CloseError
			switch {
			case errors.As(err, &ce) && ce.Code == websocket.StatusNormalClosure:
				c.opts.logger.Debug("frame %s closed", origin)
			case ctx.Err() != nil:
			default:
				c.opts.logger.Error("frame %s read failed: %v", origin, err)
			}
			return
		}
		if typ != websocket.MessageText {
			c.opts.logger.Debug("ignoring binary frame message from %s", origin)
			continue
		}

		var msg bridge.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.opts.logger.Debug("ignoring malformed frame message from %s", origin)
			continue
		}
		c.window.Dispatch(ctx, bridge.Event{Origin: origin, Data: msg})
	}
}

func socketURL(u *url.URL) (string, error) {
	out := *u
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		out.Scheme = "ws"
	case "https", "wss":
		out.Scheme = "wss"
	default:
		return "", linkerr.WithDetails(linkerr.ErrInvalidLinkToken, map[string]string{"scheme": u.Scheme})
	}
	out.Fragment = ""
	return out.String(), nil
}

func isClosed(err error) bool {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}

// Presenter opens a websocket frame per link session.
type Presenter struct {
	opts []Option
}

// NewPresenter creates a Presenter whose frames use opts.
func NewPresenter(opts ...Option) *Presenter {
	return &Presenter{opts: opts}
}

// Present implements bridge.Presenter.
func (p *Presenter) Present(ctx context.Context, linkURL string, w *bridge.Window) (bridge.Frame, error) {
	c := New(w, p.opts...)
	if err := c.Navigate(ctx, linkURL); err != nil {
		return nil, err
	}
	return c, nil
}
