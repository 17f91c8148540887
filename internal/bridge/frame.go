package bridge

import (
	"context"
)

// Frame is the embedded surface rendering the link UI.
type Frame interface {
	// Navigate loads url into the frame. Inbound messages must not be
	// dispatched before Navigate returns.
	Navigate(ctx context.Context, url string) error

	// Post delivers a message to the frame.
	Post(ctx context.Context, msg Message) error

	// Close tears the frame down. Closing twice is not an error.
	Close() error
}

// Presenter opens an overlay frame for a link URL. Inbound frame messages
// are dispatched into the given window.
type Presenter interface {
	Present(ctx context.Context, linkURL string, w *Window) (Frame, error)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, linkURL string, w *Window) (Frame, error)

// Present implements Presenter.
func (f PresenterFunc) Present(ctx context.Context, linkURL string, w *Window) (Frame, error) {
	return f(ctx, linkURL, w)
}
